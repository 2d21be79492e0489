// Package realtime pushes lifecycle events to open dashboards over
// WebSocket so pages re-fetch instead of reloading.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/events"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/pkg/logging"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4 * 1024
	sendBuffer = 64
)

// Message is what a connected page receives for one event.
type Message struct {
	Type       string    `json:"type"`
	LeadID     string    `json:"leadId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
	// Refresh names the list kinds whose contents may have changed.
	Refresh []string `json:"refresh"`
}

var refreshByType = map[string][]string{
	events.TypeLeadCreated:       {"prospects", "clients"},
	events.TypeLeadStatusChanged: {"prospects", "leads", "clients"},
	events.TypeLeadDeleted:       {"prospects", "leads", "clients", "proposals", "visits"},
	events.TypeSaleRecorded:      {"leads", "clients", "dashboard"},
}

type client struct {
	orgID  string
	userID string
	conn   *websocket.Conn
	send   chan []byte
}

// Hub tracks open connections per organization.
type Hub struct {
	mu     sync.RWMutex
	orgs   map[string]map[*client]struct{}
	logger *logging.Logger
}

func NewHub(logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Default()
	}
	return &Hub{orgs: make(map[string]map[*client]struct{}), logger: logger}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.orgs[c.orgID]
	if !ok {
		conns = make(map[*client]struct{})
		h.orgs[c.orgID] = conns
	}
	conns[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.orgs[c.orgID]
	if !ok {
		return
	}
	if _, ok := conns[c]; !ok {
		return
	}
	delete(conns, c)
	close(c.send)
	if len(conns) == 0 {
		delete(h.orgs, c.orgID)
	}
}

// Connections counts open connections of an organization.
func (h *Hub) Connections(orgID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.orgs[orgID])
}

// Broadcast sends msg to every connection of orgID. Slow clients miss it.
func (h *Hub) Broadcast(orgID string, msg Message) int {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode realtime message", "error", err)
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for c := range h.orgs[orgID] {
		select {
		case c.send <- data:
			sent++
		default:
			h.logger.Warn("dropping realtime message for slow client", "org_id", orgID, "user_id", c.userID)
		}
	}
	return sent
}

// Subscriber adapts the hub to the event bus.
func (h *Hub) Subscriber() events.Handler {
	return func(_ context.Context, e events.Event) error {
		refresh, ok := refreshByType[e.Type]
		if !ok {
			return nil
		}
		h.Broadcast(e.OrgID, Message{Type: e.Type, LeadID: e.LeadID, OccurredAt: e.OccurredAt, Refresh: refresh})
		return nil
	}
}

// serve owns conn until the peer goes away.
func (h *Hub) serve(conn *websocket.Conn, orgID, userID string) {
	c := &client{orgID: orgID, userID: userID, conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(c)
	go h.writePump(c)
	h.readPump(c)
}

// readPump only drains control frames; pages never send data.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMsgSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("realtime connection closed", "org_id", c.orgID, "error", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
