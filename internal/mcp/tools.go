// ABOUTME: MCP tool definitions and registration for the optimedix server
// ABOUTME: Declares the JSON schemas of the five assistant tools
package mcp

import (
	"github.com/harper/optimedix/internal/app"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// ServerName and ServerVersion identify the server to MCP clients
const (
	ServerName    = "OptiMedix Medical Assistant"
	ServerVersion = "0.1.0"
)

// NewServer creates an MCP server with every tool registered
func NewServer(a *app.App) (*mcpserver.MCPServer, *Handlers) {
	server := mcpserver.NewMCPServer(ServerName, ServerVersion)
	handlers := RegisterTools(server, a)
	return server, handlers
}

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, a *app.App) *Handlers {
	handlers := NewHandlers(a)

	// 1. ask_medical_question - one chat turn against the medical corpus
	server.AddTool(mcp.Tool{
		Name:        "ask_medical_question",
		Description: "Ask the medical assistant a question. Answers are grounded in the document corpus and cite their sources; vague symptom descriptions get clarifying questions instead. Reuse session_id to continue a conversation.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"question": map[string]interface{}{
					"type":        "string",
					"description": "The user's question or reply to a clarification",
				},
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Conversation to continue; omit to start a new one",
				},
			},
			Required: []string{"question"},
		},
	}, handlers.AskMedicalQuestion)

	// 2. search_corpus - retrieval without generation
	server.AddTool(mcp.Tool{
		Name:        "search_corpus",
		Description: "Search the medical document corpus by semantic similarity without generating an answer.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query",
				},
				"max_results": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of chunks to return (default: 5)",
					"default":     5,
				},
			},
			Required: []string{"query"},
		},
	}, handlers.SearchCorpus)

	// 3. get_chat_history - transcript of a conversation
	server.AddTool(mcp.Tool{
		Name:        "get_chat_history",
		Description: "Get the transcript of a conversation in order.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Conversation to read",
				},
			},
			Required: []string{"session_id"},
		},
	}, handlers.GetChatHistory)

	// 4. clear_chat_history - reset a conversation
	server.AddTool(mcp.Tool{
		Name:        "clear_chat_history",
		Description: "Clear a conversation's transcript, memory and pending clarification.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Conversation to clear",
				},
			},
			Required: []string{"session_id"},
		},
	}, handlers.ClearChatHistory)

	// 5. ingest_corpus - synchronize the index with the corpus directory
	server.AddTool(mcp.Tool{
		Name:        "ingest_corpus",
		Description: "Re-read the medical document corpus and update the vector index. Unchanged documents are skipped.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, handlers.IngestCorpus)

	return handlers
}
