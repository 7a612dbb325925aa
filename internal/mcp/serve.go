// ABOUTME: Runs the MCP server over stdin and stdout
// ABOUTME: Protocol errors are logged through zap so stdout carries only JSON-RPC
package mcp

import (
	"context"
	"errors"
	"os"

	"github.com/harper/optimedix/internal/app"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// ServeStdio serves every tool on stdio until ctx is done or stdin closes
func ServeStdio(ctx context.Context, a *app.App) error {
	server, _ := NewServer(a)
	stdio := mcpserver.NewStdioServer(server)
	stdio.SetErrorLogger(zap.NewStdLog(a.Logger.Named("mcp")))

	err := stdio.Listen(ctx, os.Stdin, os.Stdout)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
