package events

import (
	"encoding/json"
	"testing"
)

func TestNormalize_AssistantDelta(t *testing.T) {
	ev := Normalize(Frame{
		Type:      "agent_message_delta",
		SessionID: "s1",
		Data:      json.RawMessage(`{"delta":"Hel"}`),
	})
	if ev.Kind != KindAssistantTextDelta {
		t.Fatalf("kind = %q, want %q", ev.Kind, KindAssistantTextDelta)
	}
	if ev.SessionID != "s1" {
		t.Fatalf("sessionID = %q, want s1", ev.SessionID)
	}
	if ev.Chunk != "Hel" {
		t.Fatalf("chunk = %q, want Hel", ev.Chunk)
	}
}

func TestNormalize_ChunkKeyPriority(t *testing.T) {
	ev := Normalize(Frame{
		Type: "assistant-text-delta",
		Data: json.RawMessage(`{"text":"from text","delta":"from delta"}`),
	})
	if ev.Chunk != "from delta" {
		t.Fatalf("chunk = %q, want %q", ev.Chunk, "from delta")
	}
}

func TestNormalize_TurnEndAliases(t *testing.T) {
	for _, raw := range []string{"assistant-turn-end", "turn_complete", "idle", "agent_message_completed"} {
		ev := Normalize(Frame{Type: raw, SessionID: "s"})
		if ev.Kind != KindAssistantTurnEnd {
			t.Fatalf("type %q: kind = %q, want %q", raw, ev.Kind, KindAssistantTurnEnd)
		}
	}
}

func TestNormalize_UserMessageWithCodeReferences(t *testing.T) {
	ev := Normalize(Frame{
		Type:      "user-message",
		SessionID: "s2",
		Data:      json.RawMessage(`{"content":"fix this","codeReferences":[{"file":"main.go","startLine":10,"endLine":12}]}`),
	})
	if ev.Kind != KindUserMessage {
		t.Fatalf("kind = %q, want %q", ev.Kind, KindUserMessage)
	}
	if ev.Content != "fix this" {
		t.Fatalf("content = %q, want %q", ev.Content, "fix this")
	}
	if len(ev.CodeReferences) != 1 || ev.CodeReferences[0].File != "main.go" {
		t.Fatalf("codeReferences = %+v", ev.CodeReferences)
	}
	if ev.CodeReferences[0].StartLine != 10 || ev.CodeReferences[0].EndLine != 12 {
		t.Fatalf("line range = %d-%d, want 10-12", ev.CodeReferences[0].StartLine, ev.CodeReferences[0].EndLine)
	}
}

func TestNormalize_SessionStatus(t *testing.T) {
	ev := Normalize(Frame{
		Type:      "session-status",
		SessionID: "s3",
		Data:      json.RawMessage(`{"connected":true,"running":true,"waitingForUserInput":false,"permissionDenials":[{"tool":"bash"}],"pendingQuestion":{"prompt":"ok?"},"terminated":false}`),
	})
	if ev.Kind != KindSessionStatus {
		t.Fatalf("kind = %q, want %q", ev.Kind, KindSessionStatus)
	}
	if !ev.Status.Connected || !ev.Status.Running {
		t.Fatalf("status = %+v", ev.Status)
	}
	if len(ev.Status.PermissionDenials) != 1 {
		t.Fatalf("denials = %+v", ev.Status.PermissionDenials)
	}
	if ev.Status.PendingQuestion["prompt"] != "ok?" {
		t.Fatalf("pendingQuestion = %+v", ev.Status.PendingQuestion)
	}
}

func TestNormalize_UnknownType(t *testing.T) {
	ev := Normalize(Frame{Type: "mystery_event", SessionID: "s"})
	if ev.Kind != KindUnknown {
		t.Fatalf("kind = %q, want %q", ev.Kind, KindUnknown)
	}
}

func TestNormalize_MalformedPayload(t *testing.T) {
	ev := Normalize(Frame{
		Type:      "assistant-text-delta",
		SessionID: "s",
		Data:      json.RawMessage(`not json`),
	})
	if ev.Kind != KindAssistantTextDelta || ev.Chunk != "" {
		t.Fatalf("ev = %+v, want empty chunk", ev)
	}
}
