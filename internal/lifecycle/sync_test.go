package lifecycle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/multi-agent/chatstream/internal/registry"
)

type fakeStats struct {
	mu    sync.Mutex
	value map[string]any
}

func (f *fakeStats) SessionStats() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

func (f *fakeStats) set(v map[string]any) {
	f.mu.Lock()
	f.value = v
	f.mu.Unlock()
}

type registryStub struct {
	mu          sync.Mutex
	sessions    []map[string]any
	failPolls   bool
	failUploads bool
	deleted     []string
	uploads     int
}

func (r *registryStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.failPolls {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(r.sessions)
	})
	mux.HandleFunc("/sessions/", func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		r.deleted = append(r.deleted, req.URL.Path[len("/sessions/"):])
		r.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/snapshot", func(w http.ResponseWriter, _ *http.Request) {
		r.mu.Lock()
		r.uploads++
		fail := r.failUploads
		r.mu.Unlock()
		if fail {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})
	return mux
}

func newTestSyncer(t *testing.T, stub *registryStub, opts Options) (*Syncer, *fakeStats) {
	t.Helper()
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)
	stats := &fakeStats{value: map[string]any{"sessionCount": 0}}
	client := registry.NewClient(srv.URL, 5*time.Second)
	return NewSyncer(client, stats, opts), stats
}

func TestRunOnceUpdatesSessions(t *testing.T) {
	stub := &registryStub{sessions: []map[string]any{
		{"id": "s1", "title": "work", "lastAccess": "2026-08-31T10:00:00Z"},
	}}
	s, _ := newTestSyncer(t, stub, Options{})

	s.RunOnce(context.Background())
	got := s.Sessions()
	if len(got) != 1 || got[0].ID != "s1" {
		t.Fatalf("Sessions() = %v, want [s1]", got)
	}
}

func TestRunOnceKeepsPreviousListOnFailure(t *testing.T) {
	stub := &registryStub{sessions: []map[string]any{
		{"id": "s1", "title": "work", "lastAccess": "2026-08-31T10:00:00Z"},
	}}
	s, _ := newTestSyncer(t, stub, Options{})

	s.RunOnce(context.Background())
	stub.mu.Lock()
	stub.failPolls = true
	stub.mu.Unlock()
	s.RunOnce(context.Background())

	got := s.Sessions()
	if len(got) != 1 || got[0].ID != "s1" {
		t.Fatalf("Sessions() after failed poll = %v, want previous list", got)
	}
}

func TestCleanupDeletesIdleUntitledOnly(t *testing.T) {
	old := time.Now().Add(-2 * time.Hour).Format(time.RFC3339)
	fresh := time.Now().Format(time.RFC3339)
	stub := &registryStub{sessions: []map[string]any{
		{"id": "idle-untitled", "title": "", "lastAccess": old},
		{"id": "idle-titled", "title": "keep me", "lastAccess": old},
		{"id": "fresh-untitled", "title": "", "lastAccess": fresh},
	}}
	s, _ := newTestSyncer(t, stub, Options{
		IdleCleanupAfter: time.Hour,
		CleanupEnabled:   true,
	})

	s.RunOnce(context.Background())

	stub.mu.Lock()
	deleted := append([]string(nil), stub.deleted...)
	stub.mu.Unlock()
	if len(deleted) != 1 || deleted[0] != "idle-untitled" {
		t.Fatalf("deleted = %v, want [idle-untitled]", deleted)
	}
}

func TestCleanupDisabled(t *testing.T) {
	old := time.Now().Add(-2 * time.Hour).Format(time.RFC3339)
	stub := &registryStub{sessions: []map[string]any{
		{"id": "idle-untitled", "title": "", "lastAccess": old},
	}}
	s, _ := newTestSyncer(t, stub, Options{
		IdleCleanupAfter: time.Hour,
		CleanupEnabled:   false,
	})

	s.RunOnce(context.Background())

	stub.mu.Lock()
	deleted := len(stub.deleted)
	stub.mu.Unlock()
	if deleted != 0 {
		t.Fatalf("cleanup ran while disabled: %d deletes", deleted)
	}
}

func TestUploadOnceSkipsUnchangedStats(t *testing.T) {
	stub := &registryStub{}
	s, stats := newTestSyncer(t, stub, Options{})

	ctx := context.Background()
	s.UploadOnce(ctx)
	s.UploadOnce(ctx)

	stub.mu.Lock()
	uploads := stub.uploads
	stub.mu.Unlock()
	if uploads != 1 {
		t.Fatalf("uploads = %d, want 1 (second unchanged snapshot skipped)", uploads)
	}

	stats.set(map[string]any{"sessionCount": 5})
	s.UploadOnce(ctx)

	stub.mu.Lock()
	uploads = stub.uploads
	stub.mu.Unlock()
	if uploads != 2 {
		t.Fatalf("uploads = %d, want 2 after stats change", uploads)
	}
}

func TestUploadOnceRetriesAfterFailure(t *testing.T) {
	stub := &registryStub{failUploads: true}
	s, _ := newTestSyncer(t, stub, Options{})

	ctx := context.Background()
	s.UploadOnce(ctx)

	// Registry recovers; stats are unchanged but the previous upload never
	// landed, so the next tick must try again.
	stub.mu.Lock()
	stub.failUploads = false
	stub.mu.Unlock()
	s.UploadOnce(ctx)

	stub.mu.Lock()
	uploads := stub.uploads
	stub.mu.Unlock()
	if uploads != 2 {
		t.Fatalf("upload attempts = %d, want 2 (failed upload retried at next tick)", uploads)
	}

	// Once a snapshot lands, an unchanged one is skipped again.
	s.UploadOnce(ctx)
	stub.mu.Lock()
	uploads = stub.uploads
	stub.mu.Unlock()
	if uploads != 2 {
		t.Fatalf("upload attempts = %d, want 2 (unchanged snapshot after success skipped)", uploads)
	}
}
