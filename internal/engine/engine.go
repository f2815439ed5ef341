// Package engine is the multi-session live-stream state engine.
//
// It ingests demultiplexed agent events (one stream per chat session),
// reassembles them into structured chat messages, and mirrors only the
// currently displayed session's state into a UI-facing snapshot while
// background sessions keep accumulating output.
//
// All mutation entry points are total functions: malformed or empty input is
// a silent no-op and an unknown session id lazily creates state, never an
// error.
package engine

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/multi-agent/chatstream/internal/dispatch"
	"github.com/multi-agent/chatstream/internal/events"
	"github.com/multi-agent/chatstream/internal/sanitize"
)

// Engine owns all per-session live state plus the displayed-session mirror.
type Engine struct {
	mu sync.RWMutex // protects sessions/displayed/ui/seq

	sessions  map[string]*sessionState
	displayed string
	ui        UIState
	seq       uint64

	dispatcher *dispatch.Dispatcher
}

// New creates an empty engine. dispatcher may be nil, in which case change
// notifications are recorded but invoke nothing.
func New(dispatcher *dispatch.Dispatcher) *Engine {
	if dispatcher == nil {
		dispatcher = dispatch.New()
	}
	return &Engine{
		sessions:   map[string]*sessionState{},
		ui:         UIState{Messages: []Message{}, RunStatus: RunStatusIdle},
		dispatcher: dispatcher,
	}
}

// Dispatcher returns the engine's callback dispatcher for host configuration.
func (e *Engine) Dispatcher() *dispatch.Dispatcher { return e.dispatcher }

// getOrCreateLocked returns the session's live state, creating it on first
// touch. Never fails. Must be called with e.mu held.
func (e *Engine) getOrCreateLocked(sessionID string) *sessionState {
	st, ok := e.sessions[sessionID]
	if !ok {
		st = newSessionState(sessionID)
		e.sessions[sessionID] = st
	}
	return st
}

// nextMessageIDLocked generates a process-unique, monotonic-ish message id.
func (e *Engine) nextMessageIDLocked(role Role) string {
	e.seq++
	return fmt.Sprintf("%s-%d-%d", role, time.Now().UnixMilli(), e.seq)
}

// Apply routes a normalized event to the matching mutation, addressed by the
// event's owning session id. Unknown kinds are dropped.
func (e *Engine) Apply(ev events.Event) {
	switch ev.Kind {
	case events.KindAssistantTextDelta:
		e.AppendAssistantText(ev.SessionID, ev.Chunk)
	case events.KindAssistantTurnEnd:
		e.FinalizeAssistantMessage(ev.SessionID)
	case events.KindUserMessage:
		e.AddMessage(ev.SessionID, RoleUser, ev.Content, ev.CodeReferences)
	case events.KindSessionStatus:
		e.ApplySessionStatus(ev.SessionID, ev.Status)
	}
}

// AddMessage appends a new message to the target session and returns its id.
// Does not change the session's run status.
func (e *Engine) AddMessage(sessionID string, role Role, content string, refs []events.CodeReference) string {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return ""
	}

	e.mu.Lock()
	st := e.getOrCreateLocked(id)
	msgID := e.nextMessageIDLocked(role)
	list := cloneMessages(st.messages)
	list = append(list, Message{
		ID:             msgID,
		Role:           role,
		Content:        content,
		CodeReferences: cloneCodeReferences(refs),
		Ts:             time.Now().UTC().Format(time.RFC3339),
	})
	st.messages = list
	notify := e.mirrorLocked(id)
	e.mu.Unlock()

	notify()
	return msgID
}

// AppendAssistantText accumulates one streamed chunk into the target
// session's in-progress assistant turn.
//
// The chunk is sanitized first; a chunk that is pure control codes must not
// create a draft or mark the session running. Each chunk is a delta: the
// result is equivalent to having received the full accumulated text in one
// chunk (concatenation across chunk boundaries is associative).
func (e *Engine) AppendAssistantText(sessionID, chunk string) {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return
	}
	clean := sanitize.StripANSI(chunk)
	if clean == "" {
		return
	}

	e.mu.Lock()
	st := e.getOrCreateLocked(id)
	list := cloneMessages(st.messages)

	if st.assistantIndex >= 0 && st.assistantIndex == len(list)-1 {
		// In-progress assistant tail: replace wholesale with the updated
		// full draft, preserving the id for stable list rendering.
		st.draft += clean
		tail := list[st.assistantIndex]
		list[st.assistantIndex] = Message{
			ID:      tail.ID,
			Role:    RoleAssistant,
			Content: st.draft,
			Ts:      tail.Ts,
		}
	} else {
		// No turn in progress: start a new assistant message seeded with
		// just this chunk.
		st.draft = clean
		list = append(list, Message{
			ID:      e.nextMessageIDLocked(RoleAssistant),
			Role:    RoleAssistant,
			Content: st.draft,
			Ts:      time.Now().UTC().Format(time.RFC3339),
		})
		st.assistantIndex = len(list) - 1
	}
	st.messages = list
	st.runStatus = RunStatusRunning
	st.typing = true
	notify := e.mirrorLocked(id)
	e.mu.Unlock()

	notify()
}

// FinalizeAssistantMessage closes the target session's in-progress turn:
// trailing incomplete markup is stripped, a turn whose content trims to
// empty leaves no artifact, and the draft and run flags are cleared
// together. Idempotent: a second call with no intervening append mutates
// nothing further.
func (e *Engine) FinalizeAssistantMessage(sessionID string) {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return
	}

	e.mu.Lock()
	st := e.getOrCreateLocked(id)
	if st.assistantIndex >= 0 && st.assistantIndex == len(st.messages)-1 {
		list := cloneMessages(st.messages)
		idx := st.assistantIndex
		cleaned := sanitize.StripTrailingIncompleteTag(list[idx].Content)
		if cleaned != list[idx].Content {
			tail := list[idx]
			list[idx] = Message{ID: tail.ID, Role: tail.Role, Content: cleaned, Ts: tail.Ts}
		}
		// A tool-only / silent turn leaves no artifact.
		if strings.TrimSpace(list[idx].Content) == "" {
			list = list[:idx]
		}
		st.messages = list
	}
	st.draft = ""
	st.runStatus = RunStatusIdle
	st.typing = false
	st.assistantIndex = -1
	notify := e.mirrorLocked(id)
	e.mu.Unlock()

	notify()
}

// ApplySessionStatus records the backend-reported session status and, when
// the target session is displayed, forwards each changed field to the
// matching observer callback.
func (e *Engine) ApplySessionStatus(sessionID string, status events.SessionStatus) {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return
	}

	e.mu.Lock()
	st := e.getOrCreateLocked(id)
	st.status = status
	st.hasStatus = true
	displayed := id == e.displayed
	e.mu.Unlock()

	if displayed {
		e.notifyStatus(status)
	}
}

// notifyStatus forwards every externally observable status field; the
// dispatcher suppresses transitions to deeply-equal values.
func (e *Engine) notifyStatus(status events.SessionStatus) {
	e.dispatcher.ConnectedChanged(status.Connected)
	e.dispatcher.RunningChanged(status.Running)
	e.dispatcher.WaitingForInputChanged(status.WaitingForUserInput)
	e.dispatcher.PermissionDenialsChanged(status.PermissionDenials)
	e.dispatcher.PendingQuestionChanged(status.PendingQuestion)
	e.dispatcher.SessionTerminatedChanged(status.Terminated)
}

// LastMessage returns a copy of the session's most recent message, if any.
func (e *Engine) LastMessage(sessionID string) (Message, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	st, ok := e.sessions[sessionID]
	if !ok || len(st.messages) == 0 {
		return Message{}, false
	}
	msg := st.messages[len(st.messages)-1]
	msg.CodeReferences = cloneCodeReferences(msg.CodeReferences)
	return msg, true
}

// Sessions returns all known session ids, sorted.
func (e *Engine) Sessions() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]string, 0, len(e.sessions))
	for id := range e.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SessionStats returns per-session message counts and run states for
// diagnostics and snapshot uploads.
func (e *Engine) SessionStats() map[string]any {
	e.mu.RLock()
	defer e.mu.RUnlock()

	perSession := map[string]any{}
	totalMessages := 0
	for id, st := range e.sessions {
		perSession[id] = map[string]any{
			"messages":  len(st.messages),
			"runStatus": string(st.runStatus),
		}
		totalMessages += len(st.messages)
	}
	return map[string]any{
		"sessionCount":  len(e.sessions),
		"totalMessages": totalMessages,
		"displayed":     e.displayed,
		"perSession":    perSession,
	}
}
