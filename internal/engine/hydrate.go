package engine

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/multi-agent/chatstream/internal/events"
)

// HydrateHistory replaces the target session's message list with persisted
// records, ordered by record id. Hydration is refused (returning false) when
// the session has a streaming turn in progress, so a slow history fetch can
// never clobber live output that arrived first.
func (e *Engine) HydrateHistory(sessionID string, records []HistoryRecord) bool {
	if sessionID == "" {
		return false
	}

	e.mu.Lock()
	st := e.getOrCreateLocked(sessionID)
	if st.assistantIndex >= 0 || len(st.messages) > 0 {
		e.mu.Unlock()
		return false
	}

	sorted := make([]HistoryRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	list := make([]Message, 0, len(sorted))
	for _, rec := range sorted {
		msgID := e.nextMessageIDLocked(Role(rec.Role))
		list = append(list, Message{
			ID:             msgID,
			Role:           Role(rec.Role),
			Content:        rec.Content,
			CodeReferences: decodeCodeReferences(rec.CodeReferences),
			Ts:             rec.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	st.messages = list
	notify := e.mirrorLocked(sessionID)
	e.mu.Unlock()

	notify()
	return true
}

// decodeCodeReferences tolerantly parses the persisted refs column; bad or
// empty JSON yields nil rather than an error.
func decodeCodeReferences(raw json.RawMessage) []events.CodeReference {
	if len(raw) == 0 {
		return nil
	}
	var refs []events.CodeReference
	if err := json.Unmarshal(raw, &refs); err != nil {
		return nil
	}
	return refs
}
