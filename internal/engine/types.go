package engine

import (
	"encoding/json"
	"time"

	"github.com/multi-agent/chatstream/internal/events"
)

// Role is the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// RunStatus is the per-session run state.
type RunStatus string

const (
	RunStatusIdle    RunStatus = "idle"
	RunStatusRunning RunStatus = "running"
)

// Message is one chat message. Messages are immutable once appended, except
// for the in-progress assistant tail, which is replaced wholesale (never
// mutated in place) on every streamed chunk so observers can rely on
// structural equality for change detection.
type Message struct {
	ID             string                 `json:"id"`
	Role           Role                   `json:"role"`
	Content        string                 `json:"content"`
	CodeReferences []events.CodeReference `json:"codeReferences,omitempty"`
	Ts             string                 `json:"ts"`
}

// UIState is the UI-facing snapshot of the displayed session. It is a value:
// readers treat it as a whole snapshot, never as something to diff for
// correctness.
type UIState struct {
	SessionID       string    `json:"sessionId"`
	Messages        []Message `json:"messages"`
	TypingIndicator bool      `json:"typingIndicator"`
	RunStatus       RunStatus `json:"runStatus"`
}

// HistoryRecord is a compact persisted message used to rebuild a session's
// message list.
type HistoryRecord struct {
	ID             int64
	Role           string
	Content        string
	CodeReferences json.RawMessage
	CreatedAt      time.Time
}

// sessionState is the mutable live state of one session, owned exclusively
// by the engine.
type sessionState struct {
	sessionID string
	messages  []Message
	draft     string // currentAssistantDraft: full accumulated text of the in-progress turn
	runStatus RunStatus
	typing    bool

	// assistantIndex points at the in-progress assistant tail, -1 when no
	// turn is streaming. Finalize always resets it together with draft and
	// the run flags, never independently.
	assistantIndex int

	status    events.SessionStatus
	hasStatus bool
}

func newSessionState(sessionID string) *sessionState {
	return &sessionState{
		sessionID:      sessionID,
		messages:       []Message{},
		runStatus:      RunStatusIdle,
		assistantIndex: -1,
	}
}
