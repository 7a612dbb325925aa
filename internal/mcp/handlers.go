// ABOUTME: MCP tool handler implementations for the optimedix server
// ABOUTME: Tool failures are returned as error results so the client can show them
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/harper/optimedix/internal/app"
	"github.com/harper/optimedix/internal/core"
	"github.com/harper/optimedix/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	app    *app.App
	logger *zap.Logger
}

// NewHandlers creates handlers over a
func NewHandlers(a *app.App) *Handlers {
	return &Handlers{app: a, logger: a.Logger.Named("mcp")}
}

// AskMedicalQuestion handles the ask_medical_question tool
func (h *Handlers) AskMedicalQuestion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("question argument is required and must be a string"), nil
	}
	sessionID := request.GetString("session_id", "")

	s, reply, err := h.app.Chat(ctx, sessionID, question)
	if errors.Is(err, core.ErrEmptyQuery) {
		return mcp.NewToolResultError("question cannot be empty"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("chat failed: %v", err)), nil
	}

	response := map[string]interface{}{
		"session_id": s.ID,
		"message":    reply.Message(),
	}
	switch r := reply.(type) {
	case *models.ClarificationRequest:
		response["kind"] = "clarification"
		response["questions"] = r.Questions
	case *models.Answer:
		response["kind"] = "answer"
		response["outcome"] = string(r.Outcome)
		response["sources"] = nonNil(r.Sources)
	}
	return jsonResult(response)
}

// SearchCorpus handles the search_corpus tool
func (h *Handlers) SearchCorpus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required and must be a string"), nil
	}
	maxResults := request.GetInt("max_results", 5)
	if maxResults <= 0 {
		return mcp.NewToolResultError("max_results must be positive"), nil
	}

	results, err := h.app.Responder.Search(ctx, query, maxResults)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	chunks := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		chunks = append(chunks, map[string]interface{}{
			"source":   r.Chunk.Source,
			"position": r.Chunk.Position,
			"score":    r.Score,
			"text":     r.Chunk.Text,
		})
	}
	return jsonResult(map[string]interface{}{"results": chunks})
}

// GetChatHistory handles the get_chat_history tool
func (h *Handlers) GetChatHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id argument is required and must be a string"), nil
	}

	turns, err := h.app.History(ctx, sessionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load history: %v", err)), nil
	}

	formatted := make([]map[string]interface{}, 0, len(turns))
	for _, turn := range turns {
		formatted = append(formatted, map[string]interface{}{
			"role":      string(turn.Role),
			"content":   turn.Content,
			"timestamp": turn.Timestamp.Format(time.RFC3339),
		})
	}
	return jsonResult(map[string]interface{}{
		"session_id": sessionID,
		"turns":      formatted,
	})
}

// ClearChatHistory handles the clear_chat_history tool
func (h *Handlers) ClearChatHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id argument is required and must be a string"), nil
	}
	if err := h.app.ClearSession(ctx, sessionID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to clear history: %v", err)), nil
	}
	return jsonResult(map[string]interface{}{"success": true, "session_id": sessionID})
}

// IngestCorpus handles the ingest_corpus tool
func (h *Handlers) IngestCorpus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := h.app.Ingest(ctx)
	if err != nil && !models.IsIngestWarning(err) {
		h.logger.Error("ingestion failed", zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("ingestion failed: %v", err)), nil
	}

	response := map[string]interface{}{"report": report}
	if err != nil {
		response["warning"] = err.Error()
	}
	return jsonResult(response)
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	responseJSON, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
