package engine

import "strings"

// Display projection: at most one session's live state is mirrored into the
// UI-facing snapshot at a time. Background sessions keep accumulating; their
// mutations simply do not touch the snapshot until they are displayed.

// SetDisplayed switches the UI mirror to the given session, creating its
// live state if this is the first touch. The mirror is rebuilt as a full
// snapshot of the target and every observable field is re-announced so
// observers converge on the new session's state without diffing against the
// previous one.
func (e *Engine) SetDisplayed(sessionID string) {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return
	}
	e.mu.Lock()
	st := e.getOrCreateLocked(id)
	e.displayed = id
	e.ui = UIState{
		SessionID:       id,
		Messages:        cloneMessages(st.messages),
		TypingIndicator: st.typing,
		RunStatus:       st.runStatus,
	}
	messages := cloneMessages(st.messages)
	status := st.status
	hasStatus := st.hasStatus
	e.mu.Unlock()

	// Forget previous observations so equal-by-coincidence fields still
	// announce for the newly displayed session.
	e.dispatcher.Reset()
	e.dispatcher.MessagesChanged(messages)
	if hasStatus {
		e.notifyStatus(status)
	}
}

// Displayed returns the currently mirrored session id, "" when none.
func (e *Engine) Displayed() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.displayed
}

// UIState returns a deep copy of the current display snapshot. Mutating the
// returned value cannot affect engine state.
func (e *Engine) UIState() UIState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return cloneUIState(e.ui)
}

// mirrorLocked refreshes the snapshot if sessionID is displayed and returns
// the observer notification to run after the lock is released. Returns a
// no-op when the mutated session is in the background. Must be called with
// e.mu held.
func (e *Engine) mirrorLocked(sessionID string) func() {
	if sessionID != e.displayed {
		return func() {}
	}
	st := e.sessions[sessionID]
	e.ui = UIState{
		SessionID:       sessionID,
		Messages:        cloneMessages(st.messages),
		TypingIndicator: st.typing,
		RunStatus:       st.runStatus,
	}
	messages := cloneMessages(st.messages)
	return func() { e.dispatcher.MessagesChanged(messages) }
}
