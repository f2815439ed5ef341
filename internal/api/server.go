// Package api exposes the engine over HTTP: JSON state endpoints plus an
// SSE feed of live state changes.
package api

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/multi-agent/chatstream/internal/engine"
	"github.com/multi-agent/chatstream/internal/registry"
	"github.com/multi-agent/chatstream/internal/store"
)

// HistorySource is the read half of the message store. nil when persistence
// is not configured.
type HistorySource interface {
	ListBySession(ctx context.Context, sessionID string, limit int) ([]store.MessageRecord, error)
}

// RegistryView yields the last known registry session list. nil when the
// lifecycle syncer is not running.
type RegistryView interface {
	Sessions() []registry.SessionInfo
}

// Server is the HTTP front of the engine.
type Server struct {
	router  *gin.Engine
	engine  *engine.Engine
	history HistorySource
	reg     RegistryView
	bus     *EventBus
}

// NewServer creates the server and binds the engine's observer callbacks to
// the SSE bus.
func NewServer(eng *engine.Engine, history HistorySource, reg RegistryView) *Server {
	r := gin.Default()
	s := &Server{
		router:  r,
		engine:  eng,
		history: history,
		reg:     reg,
		bus:     NewEventBus(),
	}
	s.bindObservers()
	s.registerRoutes()
	return s
}

// Engine returns the gin engine, for listening or test drivers.
func (s *Server) Engine() *gin.Engine { return s.router }

// Bus returns the SSE event bus.
func (s *Server) Bus() *EventBus { return s.bus }

// Run serves on addr until failure.
func (s *Server) Run(addr string) error { return s.router.Run(addr) }

// bindObservers forwards every engine state change onto the SSE bus.
func (s *Server) bindObservers() {
	s.engine.Dispatcher().Configure(s.bus.Callbacks())
}
