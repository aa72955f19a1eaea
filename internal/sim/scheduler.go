package sim

import (
	"sync"
	"time"
)

// StepFunc applies one simulation tick for a bin. It returns false when the
// bin no longer exists, which terminates the task.
type StepFunc func(id string, fillRate float64) bool

// Scheduler is an arena of cancellable repeating tasks keyed by bin id.
// At most one task exists per id: Start cancels and replaces any prior task
// for the same id. Each task ticks at a fixed period and auto-stops when its
// duration elapses; the auto-stop and manual Stop converge on the same
// cancellation path.
type Scheduler struct {
	step     StepFunc
	interval time.Duration

	mu    sync.Mutex
	tasks map[string]*task
}

type task struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func (t *task) cancel() { t.once.Do(func() { close(t.stop) }) }

// NewScheduler builds a scheduler ticking at interval (1s when <= 0).
func NewScheduler(step StepFunc, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Scheduler{step: step, interval: interval, tasks: make(map[string]*task)}
}

// Start launches a repeating simulation for id lasting duration. Any task
// already running for id is canceled first, never stacked.
func (s *Scheduler) Start(id string, duration time.Duration, fillRate float64) {
	t := &task{stop: make(chan struct{}), done: make(chan struct{})}
	s.mu.Lock()
	if prev, ok := s.tasks[id]; ok {
		prev.cancel()
	}
	s.tasks[id] = t
	s.mu.Unlock()

	go s.run(id, t, duration, fillRate)
}

func (s *Scheduler) run(id string, t *task, duration time.Duration, fillRate float64) {
	defer close(t.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	deadline := time.NewTimer(duration)
	defer deadline.Stop()

	for {
		select {
		case <-ticker.C:
			if !s.step(id, fillRate) {
				s.remove(id, t)
				return
			}
		case <-deadline.C:
			s.remove(id, t)
			return
		case <-t.stop:
			return
		}
	}
}

// remove detaches t from the arena unless a newer task already replaced it.
func (s *Scheduler) remove(id string, t *task) {
	s.mu.Lock()
	if cur, ok := s.tasks[id]; ok && cur == t {
		delete(s.tasks, id)
	}
	s.mu.Unlock()
	t.cancel()
}

// Stop cancels the running task for id, reporting whether one was running.
// Stopping an absent or already-stopped simulation returns false. Stop does
// not return until any in-flight tick has finished, so callers may delete
// the bin immediately afterwards without a stale tick broadcasting behind
// the deletion.
func (s *Scheduler) Stop(id string) bool {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if ok {
		delete(s.tasks, id)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	t.cancel()
	<-t.done
	return true
}

// Running reports whether a simulation task exists for id.
func (s *Scheduler) Running(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[id]
	return ok
}

// Active returns the number of running simulation tasks.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// StopAll cancels every task and waits for them to wind down; used on
// shutdown.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	tasks := s.tasks
	s.tasks = make(map[string]*task)
	s.mu.Unlock()
	for _, t := range tasks {
		t.cancel()
	}
	for _, t := range tasks {
		<-t.done
	}
}
