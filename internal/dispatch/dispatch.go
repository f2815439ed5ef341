// Package dispatch forwards externally observable state transitions to
// caller-supplied observers.
//
// The dispatcher holds the most recently configured callback set and always
// invokes the current entry, so a host that reconfigures on every render pass
// never has a stale closure invoked ("latest observer wins"). A transition to
// a deeply-equal value is suppressed; every real change invokes exactly the
// matching callback.
package dispatch

import (
	"reflect"
	"sync"
)

// Callbacks is the observer set. Nil entries are skipped.
type Callbacks struct {
	OnConnectedChange         func(bool)
	OnRunningChange           func(bool)
	OnWaitingForInputChange   func(bool)
	OnPermissionDenialsChange func([]map[string]any)
	OnPendingQuestionChange   func(map[string]any)
	OnSessionTerminatedChange func(bool)
	OnMessagesChange          func(any)
}

// field keys for last-value bookkeeping.
const (
	fieldConnected  = "connected"
	fieldRunning    = "running"
	fieldWaiting    = "waitingForUserInput"
	fieldDenials    = "permissionDenials"
	fieldPendingQ   = "pendingQuestion"
	fieldTerminated = "terminated"
	fieldMessages   = "messages"
)

// Dispatcher invokes the latest configured callbacks on field changes.
type Dispatcher struct {
	mu   sync.Mutex
	cbs  Callbacks
	last map[string]any
}

// New creates an empty dispatcher. Until Configure is called every
// notification is recorded for duplicate suppression but invokes nothing.
func New() *Dispatcher {
	return &Dispatcher{last: map[string]any{}}
}

// Configure replaces the callback set wholesale. Call on every host
// reconfiguration; dispatch always reads the table configured last.
func (d *Dispatcher) Configure(cbs Callbacks) {
	d.mu.Lock()
	d.cbs = cbs
	d.mu.Unlock()
}

// changed records value under key and reports whether it differs from the
// previous value. The first observation always counts as a change.
func (d *Dispatcher) changed(key string, value any) bool {
	prev, seen := d.last[key]
	if seen && reflect.DeepEqual(prev, value) {
		return false
	}
	d.last[key] = value
	return true
}

// ConnectedChanged notifies the connection-status observer.
func (d *Dispatcher) ConnectedChanged(connected bool) {
	d.mu.Lock()
	fire := d.changed(fieldConnected, connected)
	cb := d.cbs.OnConnectedChange
	d.mu.Unlock()
	if fire && cb != nil {
		cb(connected)
	}
}

// RunningChanged notifies the running-status observer.
func (d *Dispatcher) RunningChanged(running bool) {
	d.mu.Lock()
	fire := d.changed(fieldRunning, running)
	cb := d.cbs.OnRunningChange
	d.mu.Unlock()
	if fire && cb != nil {
		cb(running)
	}
}

// WaitingForInputChanged notifies the waiting-for-input observer.
func (d *Dispatcher) WaitingForInputChanged(waiting bool) {
	d.mu.Lock()
	fire := d.changed(fieldWaiting, waiting)
	cb := d.cbs.OnWaitingForInputChange
	d.mu.Unlock()
	if fire && cb != nil {
		cb(waiting)
	}
}

// PermissionDenialsChanged notifies the permission-denials observer.
func (d *Dispatcher) PermissionDenialsChanged(denials []map[string]any) {
	d.mu.Lock()
	fire := d.changed(fieldDenials, denials)
	cb := d.cbs.OnPermissionDenialsChange
	d.mu.Unlock()
	if fire && cb != nil {
		cb(denials)
	}
}

// PendingQuestionChanged notifies the pending-question observer.
// question is nil when the backend cleared it.
func (d *Dispatcher) PendingQuestionChanged(question map[string]any) {
	d.mu.Lock()
	fire := d.changed(fieldPendingQ, question)
	cb := d.cbs.OnPendingQuestionChange
	d.mu.Unlock()
	if fire && cb != nil {
		cb(question)
	}
}

// SessionTerminatedChanged notifies the termination observer.
func (d *Dispatcher) SessionTerminatedChanged(terminated bool) {
	d.mu.Lock()
	fire := d.changed(fieldTerminated, terminated)
	cb := d.cbs.OnSessionTerminatedChange
	d.mu.Unlock()
	if fire && cb != nil {
		cb(terminated)
	}
}

// MessagesChanged notifies the message-list observer. messages must be a
// snapshot owned by the dispatcher from here on; callers pass a fresh copy.
func (d *Dispatcher) MessagesChanged(messages any) {
	d.mu.Lock()
	fire := d.changed(fieldMessages, messages)
	cb := d.cbs.OnMessagesChange
	d.mu.Unlock()
	if fire && cb != nil {
		cb(messages)
	}
}

// Reset forgets all recorded last values. Used when the displayed session
// switches so the new session's full snapshot re-fires every observer.
func (d *Dispatcher) Reset() {
	d.mu.Lock()
	d.last = map[string]any{}
	d.mu.Unlock()
}
