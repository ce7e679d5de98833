// Package eventstream fans vehicle lifecycle events out to external
// monitoring dashboards over a gorilla/websocket broadcast hub. This is
// pure observability sugar: no planner or vehicle decision depends on a
// subscriber being present, and every send is best-effort.
package eventstream

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"materialcontrol/core/internal/vehicle"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 32
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// envelope is the wire shape of one forwarded event.
type envelope struct {
	Kind      string `json:"kind"`
	VehicleID int    `json:"vehicle_id"`
	Skill     string `json:"skill"`
	TaskID    int    `json:"task_id,omitempty"`
}

// Hub holds the set of subscribed dashboards and fans events out to all
// of them. The zero value is not usable; construct with New.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// New constructs an empty hub.
func New() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// ServeHTTP upgrades the request to a websocket connection and registers
// it as a subscriber until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBufferSize)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writePump(c)
	go h.readPump(c)
}

// readPump discards inbound frames; subscribers are read-only. Its job
// is purely to detect disconnects via a read error.
func (h *Hub) readPump(c *client) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Broadcast fans ev out to every connected subscriber. A subscriber
// whose send buffer is full is dropped rather than allowed to stall the
// broadcaster; this mirrors the "detach on a dropped receiver" event
// discipline used throughout the vehicle layer.
func (h *Hub) Broadcast(ev vehicle.Event) {
	env := envelope{
		Kind:      ev.Kind.String(),
		VehicleID: ev.VehicleID,
		Skill:     ev.Skill.String(),
		TaskID:    ev.TaskID,
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- raw:
		default:
			go h.remove(c)
		}
	}
}

// Forward drains events from sink and broadcasts each, until sink is
// closed. Intended to run in its own goroutine as the single consumer of
// a vehicle's (or fan-in of all vehicles') event channel.
func (h *Hub) Forward(events <-chan vehicle.Event) {
	for ev := range events {
		h.Broadcast(ev)
	}
}
