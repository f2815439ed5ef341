package api

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/multi-agent/chatstream/internal/engine"
	"github.com/multi-agent/chatstream/pkg/logger"
)

func (s *Server) registerRoutes() {
	apiGroup := s.router.Group("/api")
	{
		apiGroup.GET("/state", s.stateHandler)
		apiGroup.GET("/sessions", s.sessionsHandler)
		apiGroup.POST("/sessions/:id/display", s.displayHandler)
		apiGroup.GET("/sessions/:id/history", s.historyHandler)
		apiGroup.GET("/events", s.sseHandler)
	}
}

// stateHandler returns the displayed session's snapshot.
func (s *Server) stateHandler(c *gin.Context) {
	success(c, s.engine.UIState())
}

// sessionsHandler merges the engine's live session set with the registry's
// authoritative list.
func (s *Server) sessionsHandler(c *gin.Context) {
	payload := gin.H{
		"live":      s.engine.Sessions(),
		"displayed": s.engine.Displayed(),
	}
	if s.reg != nil {
		payload["registry"] = s.reg.Sessions()
	}
	success(c, payload)
}

// displayHandler switches the displayed session. A session with no live
// messages is hydrated from persisted history first, so switching to a cold
// session shows its past conversation.
func (s *Server) displayHandler(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Param("id"))
	if sessionID == "" {
		badRequest(c, "invalid_session", "session id is required")
		return
	}

	if s.history != nil {
		records, err := s.history.ListBySession(c.Request.Context(), sessionID, 0)
		if err != nil {
			logger.Warn("history hydration skipped",
				logger.FieldSessionID, sessionID, logger.FieldError, err)
		} else if len(records) > 0 {
			hist := make([]engine.HistoryRecord, len(records))
			for i, rec := range records {
				hist[i] = engine.HistoryRecord{
					ID:             rec.ID,
					Role:           rec.Role,
					Content:        rec.Content,
					CodeReferences: rec.CodeReferences,
					CreatedAt:      rec.CreatedAt,
				}
			}
			s.engine.HydrateHistory(sessionID, hist)
		}
	}

	s.engine.SetDisplayed(sessionID)
	success(c, s.engine.UIState())
}

// historyHandler returns a session's persisted messages.
func (s *Server) historyHandler(c *gin.Context) {
	if s.history == nil {
		notFound(c, "message persistence is not configured")
		return
	}
	sessionID := strings.TrimSpace(c.Param("id"))
	if sessionID == "" {
		badRequest(c, "invalid_session", "session id is required")
		return
	}
	records, err := s.history.ListBySession(c.Request.Context(), sessionID, 0)
	if err != nil {
		serverError(c, err)
		return
	}
	success(c, records)
}
