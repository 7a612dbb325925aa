// ABOUTME: MCP command starts the Model Context Protocol server
// ABOUTME: Lets LLM agents like Claude query the medical corpus via stdio
package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/harper/optimedix/internal/mcp"
	"github.com/harper/optimedix/internal/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs OptiMedix as an MCP (Model Context Protocol) server, enabling
LLM agents like Claude to ask grounded medical questions, search the
corpus and manage chat history via stdio.

Logs go to stderr so stdout stays reserved for the protocol.`,
		RunE: runMCP,
		Example: `  # Start MCP server (typically called by Claude Desktop)
  optimedix mcp

  # Configure in claude_desktop_config.json:
  # {
  #   "mcpServers": {
  #     "optimedix": {
  #       "command": "optimedix",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
	}

	return cmd
}

// runMCP starts the MCP server
func runMCP(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, release, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer release()

	if _, err := a.Ingest(ctx); err != nil {
		if !models.IsIngestWarning(err) {
			return fmt.Errorf("ingesting corpus: %w", err)
		}
		a.Logger.Warn("corpus not ready", zap.Error(err))
	}

	a.Logger.Info("MCP server starting on stdio")
	if err := mcp.ServeStdio(ctx, a); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	a.Logger.Info("MCP server stopped")
	return nil
}
