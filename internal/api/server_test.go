package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/multi-agent/chatstream/internal/engine"
	"github.com/multi-agent/chatstream/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeHistory struct {
	records map[string][]store.MessageRecord
	err     error
}

func (f *fakeHistory) ListBySession(_ context.Context, sessionID string, _ int) ([]store.MessageRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records[sessionID], nil
}

func doJSON(t *testing.T, s *Server, method, path string) (int, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	s.Engine().ServeHTTP(w, req)

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response not JSON: %v (%s)", err, w.Body.String())
	}
	return w.Code, body
}

func TestStateEndpoint(t *testing.T) {
	eng := engine.New(nil)
	eng.SetDisplayed("s1")
	eng.AddMessage("s1", engine.RoleUser, "hello", nil)
	s := NewServer(eng, nil, nil)

	code, body := doJSON(t, s, http.MethodGet, "/api/state")
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	data := body["data"].(map[string]any)
	if data["sessionId"] != "s1" {
		t.Fatalf("sessionId = %v, want s1", data["sessionId"])
	}
	msgs := data["messages"].([]any)
	if len(msgs) != 1 {
		t.Fatalf("messages = %v, want 1 entry", msgs)
	}
}

func TestSessionsEndpoint(t *testing.T) {
	eng := engine.New(nil)
	eng.AddMessage("a", engine.RoleUser, "1", nil)
	eng.AddMessage("b", engine.RoleUser, "2", nil)
	eng.SetDisplayed("a")
	s := NewServer(eng, nil, nil)

	code, body := doJSON(t, s, http.MethodGet, "/api/sessions")
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	data := body["data"].(map[string]any)
	live := data["live"].([]any)
	if len(live) != 2 {
		t.Fatalf("live = %v, want 2 sessions", live)
	}
	if data["displayed"] != "a" {
		t.Fatalf("displayed = %v, want a", data["displayed"])
	}
}

func TestDisplayHydratesColdSession(t *testing.T) {
	eng := engine.New(nil)
	hist := &fakeHistory{records: map[string][]store.MessageRecord{
		"cold": {
			{ID: 1, SessionID: "cold", Role: "user", Content: "earlier question", CreatedAt: time.Now()},
			{ID: 2, SessionID: "cold", Role: "assistant", Content: "earlier answer", CreatedAt: time.Now()},
		},
	}}
	s := NewServer(eng, hist, nil)

	code, body := doJSON(t, s, http.MethodPost, "/api/sessions/cold/display")
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	data := body["data"].(map[string]any)
	msgs := data["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages = %v, want 2 hydrated entries", msgs)
	}
	first := msgs[0].(map[string]any)
	if first["content"] != "earlier question" {
		t.Fatalf("first hydrated message = %v", first)
	}
}

func TestDisplayDoesNotHydrateLiveSession(t *testing.T) {
	eng := engine.New(nil)
	eng.AddMessage("live", engine.RoleUser, "fresh", nil)
	hist := &fakeHistory{records: map[string][]store.MessageRecord{
		"live": {{ID: 1, SessionID: "live", Role: "user", Content: "stale"}},
	}}
	s := NewServer(eng, hist, nil)

	_, body := doJSON(t, s, http.MethodPost, "/api/sessions/live/display")
	data := body["data"].(map[string]any)
	msgs := data["messages"].([]any)
	if len(msgs) != 1 {
		t.Fatalf("messages = %v, want the single live entry", msgs)
	}
	if msgs[0].(map[string]any)["content"] != "fresh" {
		t.Fatalf("live message overwritten: %v", msgs[0])
	}
}

func TestHistoryEndpointWithoutStore(t *testing.T) {
	s := NewServer(engine.New(nil), nil, nil)
	code, _ := doJSON(t, s, http.MethodGet, "/api/sessions/s1/history")
	if code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 when persistence is off", code)
	}
}

func TestEventBusForwardsMessageChanges(t *testing.T) {
	eng := engine.New(nil)
	s := NewServer(eng, nil, nil)

	ch := s.Bus().Subscribe("test")
	defer s.Bus().Unsubscribe("test")

	eng.SetDisplayed("s1")
	eng.AddMessage("s1", engine.RoleUser, "hello bus", nil)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case evt := <-ch:
			if evt.Type != "messages" {
				continue
			}
			msgs, ok := evt.Data.([]engine.Message)
			if !ok {
				t.Fatalf("messages payload type %T", evt.Data)
			}
			if len(msgs) == 1 && msgs[0].Content == "hello bus" {
				return
			}
		case <-deadline:
			t.Fatal("no messages event on the bus")
		}
	}
}
