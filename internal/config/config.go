package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds runtime configuration for the simulator.
type Config struct {
	Listen       string        `json:"listen"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`

	// TickInterval is the simulation tick period. One second matches the
	// dashboards' expectations; tests shrink it.
	TickInterval time.Duration `json:"tick_interval"`

	// WSSendBuffer bounds each socket subscriber's event queue.
	WSSendBuffer int `json:"ws_send_buffer"`

	// BackendURL is the optional platform backend base URL. Empty disables
	// outbound forwarding entirely.
	BackendURL string `json:"backend_url"`
}

func Default() Config {
	return Config{
		Listen:       ":5000",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		TickInterval: time.Second,
		WSSendBuffer: 64,
		BackendURL:   "",
	}
}

// FromEnv layers environment overrides on top of the defaults.
func FromEnv() Config {
	cfg := Default()
	if v := os.Getenv("LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("BACKEND_URL"); v != "" {
		cfg.BackendURL = v
	}
	if v := parseIntEnv("WS_SEND_BUFFER", 0); v > 0 {
		cfg.WSSendBuffer = v
	}
	if v := parseIntEnv("TICK_INTERVAL_MS", 0); v > 0 {
		cfg.TickInterval = time.Duration(v) * time.Millisecond
	}
	return cfg
}

func parseIntEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}
