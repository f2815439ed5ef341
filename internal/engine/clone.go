package engine

// Deep-copy helpers preserving value semantics for observers.

import "github.com/multi-agent/chatstream/internal/events"

func cloneMessages(src []Message) []Message {
	out := make([]Message, len(src))
	for i, msg := range src {
		msg.CodeReferences = cloneCodeReferences(msg.CodeReferences)
		out[i] = msg
	}
	return out
}

func cloneCodeReferences(src []events.CodeReference) []events.CodeReference {
	if src == nil {
		return nil
	}
	out := make([]events.CodeReference, len(src))
	copy(out, src)
	return out
}

func cloneUIState(src UIState) UIState {
	src.Messages = cloneMessages(src.Messages)
	return src
}
