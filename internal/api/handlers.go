// ABOUTME: Gin handlers for chat, search, history and ingestion
// ABOUTME: Handlers bind JSON, delegate to the App and map errors onto status codes
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/harper/optimedix/internal/core"
	"github.com/harper/optimedix/internal/models"
	"go.uber.org/zap"
)

// Chat handles POST /api/v1/chat
func (s *Server) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	session, reply, err := s.app.Chat(c.Request.Context(), req.SessionID, req.Question)
	if errors.Is(err, core.ErrEmptyQuery) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		s.logger.Error("chat failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process question"})
		return
	}
	c.JSON(http.StatusOK, newChatResponse(session.ID, reply))
}

// Search handles POST /api/v1/search
func (s *Server) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if req.Limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be positive"})
		return
	}

	results, err := s.app.Responder.Search(c.Request.Context(), req.Query, req.Limit)
	if err != nil {
		if errors.Is(err, core.ErrEmptyQuery) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.logger.Error("search failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to search corpus"})
		return
	}
	if results == nil {
		results = models.RetrievalResult{}
	}
	c.JSON(http.StatusOK, SearchResponse{Results: results})
}

// ListSessions handles GET /api/v1/sessions
func (s *Server) ListSessions(c *gin.Context) {
	stored, err := s.app.Storage.Transcripts().Sessions(c.Request.Context())
	if err != nil {
		s.logger.Error("failed to list sessions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list sessions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"active":   s.app.Sessions.IDs(),
		"sessions": stored,
	})
}

// GetHistory handles GET /api/v1/sessions/:id/history
func (s *Server) GetHistory(c *gin.Context) {
	id := c.Param("id")
	turns, err := s.app.History(c.Request.Context(), id)
	if err != nil {
		s.logger.Error("failed to load history", zap.String("session_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load history"})
		return
	}
	if turns == nil {
		turns = []models.ConversationTurn{}
	}
	c.JSON(http.StatusOK, HistoryResponse{SessionID: id, Turns: turns})
}

// ClearHistory handles DELETE /api/v1/sessions/:id/history
func (s *Server) ClearHistory(c *gin.Context) {
	id := c.Param("id")
	if err := s.app.ClearSession(c.Request.Context(), id); err != nil {
		s.logger.Error("failed to clear history", zap.String("session_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear history"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Ingest handles POST /api/v1/ingest
func (s *Server) Ingest(c *gin.Context) {
	report, err := s.app.Ingest(c.Request.Context())
	if err != nil && !models.IsIngestWarning(err) {
		s.logger.Error("ingestion failed", zap.Error(err))
		status := http.StatusInternalServerError
		if errors.Is(err, models.ErrDimensionMismatch) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	resp := IngestResponse{Report: report}
	if err != nil {
		resp.Warning = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// Reindex handles POST /api/v1/reindex
func (s *Server) Reindex(c *gin.Context) {
	if err := s.app.Ingestor.Reindex(c.Request.Context()); err != nil {
		s.logger.Error("reindex failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Index reset"})
}
