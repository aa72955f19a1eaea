package ws

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/greenloop/binsim/internal/bin"
	"github.com/greenloop/binsim/internal/events"
	"github.com/greenloop/binsim/internal/fleet"
)

// Handler upgrades HTTP to WebSocket and speaks the bin event protocol:
// the server pushes the full fleet on connect, then streams bin:update to
// everyone, bin:detailed to room subscribers, and bin:deleted on removal.
// Clients send bin:subscribe / bin:unsubscribe / bin:update frames.
type Handler struct {
	Upgrader    websocket.Upgrader
	Fleet       *fleet.Fleet
	SendBufSize int
	Logger      *log.Logger
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
	log  *log.Logger
}

const (
	pongWait   = 75 * time.Second
	pingPeriod = (pongWait * 9) / 10
	writeWait  = 10 * time.Second
)

// Message is the envelope for both directions of the socket protocol.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// binRef addresses a bin in subscribe/unsubscribe/deleted frames.
type binRef struct {
	BinID string `json:"binId"`
}

// binUpdate is a client-originated partial update. Unknown ids are silently
// ignored; clients observe outcomes through the broadcast stream.
type binUpdate struct {
	BinID        string   `json:"binId"`
	FillLevel    *float64 `json:"fillLevel"`
	Temperature  *float64 `json:"temperature"`
	BatteryLevel *float64 `json:"batteryLevel"`
	Status       *string  `json:"status"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Error("upgrade failed", "err", err)
		return
	}
	cl := &client{conn: c, log: h.Logger}
	go h.run(cl)
}

func (h *Handler) run(c *client) {
	defer c.conn.Close()
	c.conn.SetReadLimit(512 * 1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	buf := h.SendBufSize
	if buf <= 0 {
		buf = 64
	}
	sub := h.Fleet.Bus().Subscribe(buf)
	defer sub.Cancel()

	// Initial snapshot: the full fleet, before any streamed events.
	c.writeEvent(events.BinList, h.Fleet.ListBins())

	// Ping loop (keepalive)
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.mu.Lock()
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					c.mu.Unlock()
					return
				}
				c.mu.Unlock()
			case <-done:
				return
			}
		}
	}()

	// Event forwarder loop
	go func() {
		for {
			select {
			case ev, ok := <-sub.C:
				if !ok {
					return
				}
				if ev.Bin != nil {
					c.writeEvent(ev.Name, ev.Bin)
				} else {
					c.writeEvent(ev.Name, binRef{BinID: ev.BinID})
				}
			case <-done:
				return
			}
		}
	}()

	// Read loop
	for {
		mt, raw, err := c.conn.ReadMessage()
		if err != nil {
			close(done)
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.writeEvent("error", map[string]string{"error": "malformed message"})
			continue
		}
		h.dispatch(c, sub, msg)
	}
}

func (h *Handler) dispatch(c *client, sub *events.Subscription, msg Message) {
	switch msg.Event {
	case "bin:subscribe":
		var ref binRef
		if json.Unmarshal(msg.Data, &ref) == nil && ref.BinID != "" {
			sub.Join(ref.BinID)
		}
	case "bin:unsubscribe":
		var ref binRef
		if json.Unmarshal(msg.Data, &ref) == nil && ref.BinID != "" {
			sub.Leave(ref.BinID)
		}
	case "bin:update":
		var up binUpdate
		if json.Unmarshal(msg.Data, &up) != nil || up.BinID == "" {
			return
		}
		// No acknowledgment channel for unknown ids; the broadcast stream is
		// the only success signal.
		h.Fleet.UpdateBin(up.BinID, bin.Update{
			FillLevel:    up.FillLevel,
			Temperature:  up.Temperature,
			BatteryLevel: up.BatteryLevel,
			Status:       up.Status,
		})
	default:
		h.Logger.Debug("ignoring unknown socket event", "event", msg.Event)
	}
}

func (c *client) writeEvent(event string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		c.log.Error("marshal socket event", "event", event, "err", err)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(Message{Event: event, Data: raw}); err != nil {
		if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
			c.log.Warn("write timeout (deadline exceeded)", "err", err)
			return
		}
		if errors.Is(err, os.ErrDeadlineExceeded) {
			c.log.Warn("write deadline exceeded", "err", err)
			return
		}
		c.log.Warn("write error", "err", err)
	}
}
