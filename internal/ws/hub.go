// Package ws broadcasts batch-analysis progress and completion events to
// connected browser clients over a websocket, so a long-running re-analysis
// job doesn't force the caller to poll.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// EventType tags the kind of update a job broadcasts.
type EventType string

const (
	EventProgress   EventType = "progress"
	EventCompleted  EventType = "completed"
	EventFailed     EventType = "failed"
)

// Event is the JSON payload pushed to every subscriber of a job.
type Event struct {
	JobID   string    `json:"job_id"`
	Type    EventType `json:"type"`
	Current int       `json:"current,omitempty"`
	Total   int       `json:"total,omitempty"`
	Message string    `json:"message,omitempty"`
}

type client struct {
	conn  *websocket.Conn
	send  chan Event
	jobID string
}

// Hub fans out job events to every client subscribed to that job's ID.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*client]bool // jobID -> clients
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*client]bool)}
}

// ServeWS upgrades the request to a websocket and subscribes the connection
// to updates for jobID until it disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, jobID string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{conn: conn, send: make(chan Event, 16), jobID: jobID}
	h.register(c)

	go h.writePump(c)
	go h.readPump(c)
	return nil
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.jobID] == nil {
		h.clients[c.jobID] = make(map[*client]bool)
	}
	h.clients[c.jobID][c] = true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[c.jobID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.jobID)
		}
	}
	close(c.send)
}

// readPump only exists to notice the client going away (close frames,
// errors); this hub never accepts client-originated messages.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				logrus.Errorf("ws: marshal event for job %s: %v", c.jobID, err)
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Publish fans event out to every client currently subscribed to its JobID.
// Safe to call with no subscribers; the event is simply dropped.
func (h *Hub) Publish(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[event.JobID] {
		select {
		case c.send <- event:
		default:
			logrus.Warnf("ws: dropping event for slow client on job %s", event.JobID)
		}
	}
}

// ProgressFunc adapts a Hub into the analyser.ProgressFunc shape so a job
// runner can wire engine-analysis progress straight into broadcasts.
func (h *Hub) ProgressFunc(jobID string) func(current, total int) {
	return func(current, total int) {
		h.Publish(Event{JobID: jobID, Type: EventProgress, Current: current, Total: total})
	}
}
