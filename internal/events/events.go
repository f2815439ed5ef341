// Package events defines the demultiplexed agent-stream event model.
//
// The transport delivers discrete JSON frames, each tagged with the owning
// session id. Normalize collapses the backend's raw event-type vocabulary
// onto the four semantic kinds the engine consumes.
package events

import "encoding/json"

// Kind is the semantic event kind consumed by the engine.
type Kind string

const (
	KindAssistantTextDelta Kind = "assistant-text-delta"
	KindAssistantTurnEnd   Kind = "assistant-turn-end"
	KindUserMessage        Kind = "user-message"
	KindSessionStatus      Kind = "session-status"
	KindUnknown            Kind = "unknown"
)

// Frame is one raw wire frame as read off the stream.
type Frame struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// SessionStatus carries the backend-reported externally observable session
// fields.
type SessionStatus struct {
	Connected           bool             `json:"connected"`
	Running             bool             `json:"running"`
	WaitingForUserInput bool             `json:"waitingForUserInput"`
	PermissionDenials   []map[string]any `json:"permissionDenials,omitempty"`
	PendingQuestion     map[string]any   `json:"pendingQuestion,omitempty"`
	Terminated          bool             `json:"terminated"`
}

// Event is a normalized, engine-ready event.
type Event struct {
	Kind      Kind
	SessionID string

	// KindAssistantTextDelta
	Chunk string

	// KindUserMessage
	Content        string
	CodeReferences []CodeReference

	// KindSessionStatus
	Status SessionStatus
}

// CodeReference points at a source location attached to a user message.
type CodeReference struct {
	File      string `json:"file"`
	StartLine int    `json:"startLine,omitempty"`
	EndLine   int    `json:"endLine,omitempty"`
	Preview   string `json:"preview,omitempty"`
}
