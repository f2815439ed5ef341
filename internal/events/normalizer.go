package events

import "encoding/json"

// Normalize maps a raw frame onto a semantic engine event.
//
// Pure function, no state, no locks, hot-path safe. Unknown types normalize
// to KindUnknown and are dropped by the consumer.
func Normalize(frame Frame) Event {
	var payload map[string]any
	if len(frame.Data) > 0 {
		_ = json.Unmarshal(frame.Data, &payload)
	}
	if payload == nil {
		payload = map[string]any{}
	}

	ev := Event{
		Kind:      classify(frame.Type),
		SessionID: frame.SessionID,
	}

	switch ev.Kind {
	case KindAssistantTextDelta:
		// Priority: delta > chunk > text > content
		ev.Chunk = extractFirstString(payload, "delta", "chunk", "text", "content")
	case KindUserMessage:
		ev.Content = extractFirstString(payload, "content", "text", "message")
		ev.CodeReferences = extractCodeReferences(frame.Data)
	case KindSessionStatus:
		_ = json.Unmarshal(frame.Data, &ev.Status)
	}
	return ev
}

// classify maps the backend's raw event-type names onto semantic kinds.
func classify(rawType string) Kind {
	switch rawType {
	// ── Assistant text streaming ──
	case "assistant-text-delta", "assistant_delta",
		"agent_message_delta", "agent_message_content_delta":
		return KindAssistantTextDelta

	// ── Turn lifecycle ──
	case "assistant-turn-end", "assistant_done",
		"agent_message_completed", "turn_complete", "idle":
		return KindAssistantTurnEnd

	// ── User echo ──
	case "user-message", "user_message":
		return KindUserMessage

	// ── Session status push ──
	case "session-status", "session_status", "status":
		return KindSessionStatus
	}

	return KindUnknown
}

func extractFirstString(payload map[string]any, keys ...string) string {
	for _, key := range keys {
		value, ok := payload[key]
		if !ok {
			continue
		}
		if text, ok := value.(string); ok {
			return text
		}
	}
	return ""
}

func extractCodeReferences(data json.RawMessage) []CodeReference {
	if len(data) == 0 {
		return nil
	}
	var wrapper struct {
		CodeReferences []CodeReference `json:"codeReferences"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil
	}
	return wrapper.CodeReferences
}
