// Package voice is the client side of the hosted voice-call service: the
// assistant configuration it is started with, the events it emits and a
// websocket transport that speaks its protocol.
package voice

import (
	"sync"

	"github.com/chadiek/speaking-coach/internal/domain"
)

// EventType names an inbound call event.
type EventType string

const (
	EventCallStart   EventType = "call-start"
	EventCallEnd     EventType = "call-end"
	EventMessage     EventType = "message"
	EventError       EventType = "error"
	EventSpeechStart EventType = "speech-start"
	EventSpeechEnd   EventType = "speech-end"
)

const (
	MessageTypeTranscript = "transcript"
	TranscriptFinal       = "final"
	TranscriptPartial     = "partial"
)

// Message is the payload of a "message" event.
type Message struct {
	Type           string      `json:"type"`
	TranscriptType string      `json:"transcriptType,omitempty"`
	Role           domain.Role `json:"role,omitempty"`
	Transcript     string      `json:"transcript,omitempty"`
}

// IsFinalTranscript reports whether m is a finalized transcript segment.
func (m *Message) IsFinalTranscript() bool {
	return m != nil && m.Type == MessageTypeTranscript && m.TranscriptType == TranscriptFinal
}

// Event is one inbound call event. Message is set for EventMessage and Err
// for EventError.
type Event struct {
	Type    EventType
	Message *Message
	Err     error
}

// Handler receives events of one type.
type Handler func(Event)

// Unsubscribe removes a handler. It is safe to call more than once.
type Unsubscribe func()

// Hub fans events out to subscribers. Handlers run on the emitting goroutine
// in subscription order.
type Hub struct {
	mu       sync.RWMutex
	next     int
	handlers map[EventType]map[int]Handler
	order    map[EventType][]int
}

func NewHub() *Hub {
	return &Hub{handlers: map[EventType]map[int]Handler{}, order: map[EventType][]int{}}
}

// Subscribe registers h for events of type t.
func (h *Hub) Subscribe(t EventType, fn Handler) Unsubscribe {
	h.mu.Lock()
	id := h.next
	h.next++
	if h.handlers[t] == nil {
		h.handlers[t] = map[int]Handler{}
	}
	h.handlers[t][id] = fn
	h.order[t] = append(h.order[t], id)
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.handlers[t], id)
			ids := h.order[t]
			for i, v := range ids {
				if v == id {
					h.order[t] = append(ids[:i:i], ids[i+1:]...)
					break
				}
			}
			h.mu.Unlock()
		})
	}
}

// Emit delivers ev to the handlers subscribed to its type.
func (h *Hub) Emit(ev Event) {
	h.mu.RLock()
	ids := h.order[ev.Type]
	fns := make([]Handler, 0, len(ids))
	for _, id := range ids {
		if fn, ok := h.handlers[ev.Type][id]; ok {
			fns = append(fns, fn)
		}
	}
	h.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// Count returns the number of live subscriptions across all event types.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, m := range h.handlers {
		n += len(m)
	}
	return n
}
