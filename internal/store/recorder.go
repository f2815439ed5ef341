package store

import (
	"context"
	"encoding/json"

	"github.com/multi-agent/chatstream/internal/engine"
	"github.com/multi-agent/chatstream/internal/events"
)

// TailReader exposes the most recent message of a session; satisfied by the
// engine.
type TailReader interface {
	LastMessage(sessionID string) (engine.Message, bool)
}

// MessageInserter is the write half of the store the recorder needs.
type MessageInserter interface {
	Insert(ctx context.Context, rec *MessageRecord) error
}

// StreamRecorder bridges the event stream to the message store. User
// messages persist directly from the event; assistant messages persist at
// turn end, reading the finalized text back from the tail so the stored
// content matches what cleanup left behind.
type StreamRecorder struct {
	store MessageInserter
	tail  TailReader
}

// NewStreamRecorder creates the recorder.
func NewStreamRecorder(store MessageInserter, tail TailReader) *StreamRecorder {
	return &StreamRecorder{store: store, tail: tail}
}

// Record persists the event's message, if it carries one.
func (r *StreamRecorder) Record(ctx context.Context, ev events.Event) error {
	switch ev.Kind {
	case events.KindUserMessage:
		var refs json.RawMessage
		if len(ev.CodeReferences) > 0 {
			refs, _ = json.Marshal(ev.CodeReferences)
		}
		return r.store.Insert(ctx, &MessageRecord{
			SessionID:      ev.SessionID,
			Role:           string(engine.RoleUser),
			Content:        ev.Content,
			CodeReferences: refs,
		})
	case events.KindAssistantTurnEnd:
		msg, ok := r.tail.LastMessage(ev.SessionID)
		if !ok || msg.Role != engine.RoleAssistant {
			// Empty turn: cleanup removed the message, nothing to store.
			return nil
		}
		return r.store.Insert(ctx, &MessageRecord{
			SessionID: ev.SessionID,
			Role:      string(msg.Role),
			Content:   msg.Content,
		})
	}
	return nil
}
