package api

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/multi-agent/chatstream/internal/dispatch"
	"github.com/multi-agent/chatstream/pkg/logger"
)

// EventBus fans engine state changes out to SSE subscribers.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[string]chan Event
}

// Event is one SSE event.
type Event struct {
	Type string
	Data any
}

// NewEventBus creates the bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string]chan Event)}
}

// Publish broadcasts to every subscriber. A slow subscriber drops the event
// rather than blocking the publisher.
func (b *EventBus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe registers a subscriber channel.
func (b *EventBus) Subscribe(id string) chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, 32)
	b.subscribers[id] = ch
	return ch
}

// Unsubscribe removes a subscriber.
//
// The channel is not closed; sseHandler exits via ctx.Done() and the
// unreferenced channel is collected.
func (b *EventBus) Unsubscribe(id string) {
	b.mu.Lock()
	delete(b.subscribers, id)
	b.mu.Unlock()
}

// Callbacks returns an observer set that republishes every state change as
// an SSE event.
func (b *EventBus) Callbacks() dispatch.Callbacks {
	return dispatch.Callbacks{
		OnConnectedChange: func(v bool) { b.Publish(Event{Type: "connected", Data: v}) },
		OnRunningChange:   func(v bool) { b.Publish(Event{Type: "running", Data: v}) },
		OnWaitingForInputChange: func(v bool) {
			b.Publish(Event{Type: "waiting_for_input", Data: v})
		},
		OnPermissionDenialsChange: func(v []map[string]any) {
			b.Publish(Event{Type: "permission_denials", Data: v})
		},
		OnPendingQuestionChange: func(v map[string]any) {
			b.Publish(Event{Type: "pending_question", Data: v})
		},
		OnSessionTerminatedChange: func(v bool) {
			b.Publish(Event{Type: "session_terminated", Data: v})
		},
		OnMessagesChange: func(v any) { b.Publish(Event{Type: "messages", Data: v}) },
	}
}

// sseHandler streams bus events to one client.
func (s *Server) sseHandler(c *gin.Context) {
	clientID := fmt.Sprintf("sse-%d", time.Now().UnixNano())
	ch := s.bus.Subscribe(clientID)
	defer func() {
		s.bus.Unsubscribe(clientID)
		logger.Info("sse client disconnected", logger.FieldID, clientID)
	}()

	logger.Info("sse client connected", logger.FieldID, clientID)

	c.Stream(func(w io.Writer) bool {
		keepalive := time.NewTimer(30 * time.Second)
		defer keepalive.Stop()

		select {
		case evt, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(evt.Type, evt.Data)
			return true
		case <-keepalive.C:
			c.SSEvent("ping", "keepalive")
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
