// ABOUTME: Request and response bodies of the HTTP API
// ABOUTME: Replies are flattened into one shape tagged by kind
package api

import (
	"github.com/harper/optimedix/internal/ingest"
	"github.com/harper/optimedix/internal/models"
)

// ChatRequest is the body of POST /api/v1/chat
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question" binding:"required"`
}

// ChatResponse carries either an answer or a clarification request
type ChatResponse struct {
	SessionID string `json:"session_id"`
	// Kind is "answer" or "clarification"
	Kind      string   `json:"kind"`
	Message   string   `json:"message"`
	Outcome   string   `json:"outcome,omitempty"`
	Sources   []string `json:"sources,omitempty"`
	Questions []string `json:"questions,omitempty"`
}

func newChatResponse(sessionID string, reply models.Reply) ChatResponse {
	resp := ChatResponse{SessionID: sessionID, Message: reply.Message()}
	switch r := reply.(type) {
	case *models.ClarificationRequest:
		resp.Kind = "clarification"
		resp.Questions = r.Questions
	case *models.Answer:
		resp.Kind = "answer"
		resp.Outcome = string(r.Outcome)
		resp.Sources = r.Sources
	}
	return resp
}

// SearchRequest is the body of POST /api/v1/search
type SearchRequest struct {
	Query string `json:"query" binding:"required"`
	Limit int    `json:"limit"`
}

// SearchResponse lists retrieved chunks, most similar first
type SearchResponse struct {
	Results models.RetrievalResult `json:"results"`
}

// HistoryResponse is a session transcript
type HistoryResponse struct {
	SessionID string                    `json:"session_id"`
	Turns     []models.ConversationTurn `json:"turns"`
}

// IngestResponse reports an ingestion run; Warning holds a recoverable problem
type IngestResponse struct {
	Report  ingest.Report `json:"report"`
	Warning string        `json:"warning,omitempty"`
}
