// Package sse streams lead marketplace events to connected dashboards over
// Server-Sent Events.
package sse

import (
	"encoding/json"
	"sync"

	"lead_broker_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EventType represents different types of SSE events
type EventType string

const (
	EventLeadSubmitted     EventType = "lead_submitted"
	EventLeadDistributed   EventType = "lead_distributed"
	EventLeadUnmatched     EventType = "lead_unmatched"
	EventLeadStatusChanged EventType = "lead_status_changed"
	EventCapacityExhausted EventType = "capacity_exhausted"
)

const clientBuffer = 32

// Event represents an SSE event payload
type Event struct {
	Type    EventType   `json:"type"`
	LeadID  uuid.UUID   `json:"leadId,omitempty"`
	BuyerID string      `json:"buyerId,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// client is one open stream. An empty buyerID receives every event.
type client struct {
	id      uuid.UUID
	buyerID string
	events  chan Event
}

// Service manages SSE connections and event broadcasting
type Service struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*client
	log     *logger.Logger
}

// New creates a new SSE service
func New(log *logger.Logger) *Service {
	return &Service{
		clients: make(map[uuid.UUID]*client),
		log:     log,
	}
}

func (s *Service) addClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.id] = c
}

func (s *Service) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c.id]; !ok {
		return
	}
	delete(s.clients, c.id)
	close(c.events)
}

// Broadcast sends event to every dashboard stream and to the streams of the
// buyers in buyerIDs.
func (s *Service) Broadcast(event Event, buyerIDs ...string) {
	targets := make(map[string]bool, len(buyerIDs))
	for _, id := range buyerIDs {
		targets[id] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sent := 0
	for _, c := range s.clients {
		if c.buyerID != "" && !targets[c.buyerID] {
			continue
		}
		select {
		case c.events <- event:
			sent++
		default:
			s.log.Warn("sse event buffer full", "client_id", c.id.String(), "type", string(event.Type))
		}
	}
	s.log.Debug("sse event published", "type", string(event.Type), "clients", sent)
}

// ClientCount returns the number of open streams.
func (s *Service) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Handler streams events. ?buyerId= narrows the stream to one buyer's leads.
func (s *Service) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		cl := &client{
			id:      uuid.New(),
			buyerID: c.Query("buyerId"),
			events:  make(chan Event, clientBuffer),
		}
		s.addClient(cl)
		defer s.removeClient(cl)

		c.SSEvent("connected", gin.H{"clientId": cl.id, "buyerId": cl.buyerID})
		c.Writer.Flush()

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
				return
			case event, ok := <-cl.events:
				if !ok {
					return
				}
				data, err := json.Marshal(event)
				if err != nil {
					continue
				}
				c.SSEvent(string(event.Type), string(data))
				c.Writer.Flush()
			}
		}
	}
}

// Close disconnects every client.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.clients {
		close(c.events)
		delete(s.clients, id)
	}
}
