package server

import (
	"encoding/json"
	"sync"
)

const (
	EventAttemptHit       = "attempt_hit"
	EventAttemptMiss      = "attempt_miss"
	EventLocationAdvanced = "location_advanced"
	EventSessionComplete  = "session_complete"
)

// SessionEvent is the payload published to session subscribers.
type SessionEvent struct {
	Type              string   `json:"type"`
	LocationID        string   `json:"locationId,omitempty"`
	LocationName      string   `json:"locationName,omitempty"`
	VisitedCount      int      `json:"visitedCount,omitempty"`
	CostDays          int      `json:"costDays,omitempty"`
	TotalDaysTraveled int      `json:"totalDaysTraveled"`
	VisitedIDs        []string `json:"visitedIds,omitempty"`
}

// Broker is an in-process pub/sub for session events, keyed by session ID.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives JSON-encoded events for the session.
func (b *Broker) Subscribe(sessionID string) chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[chan []byte]struct{})
	}
	b.subs[sessionID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(sessionID string, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[sessionID], ch)
	if len(b.subs[sessionID]) == 0 {
		delete(b.subs, sessionID)
	}
	b.mu.Unlock()
}

// Publish sends an event to every subscriber of the session. Slow
// subscribers miss events rather than block the game.
func (b *Broker) Publish(sessionID string, event SessionEvent) {
	data, _ := json.Marshal(event)
	b.mu.RLock()
	for ch := range b.subs[sessionID] {
		select {
		case ch <- data:
		default:
		}
	}
	b.mu.RUnlock()
}
