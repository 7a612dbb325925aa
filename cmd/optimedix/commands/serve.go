// ABOUTME: Serve command starts the HTTP API
// ABOUTME: Shuts down gracefully on SIGINT or SIGTERM
package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/harper/optimedix/internal/api"
	"github.com/harper/optimedix/internal/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	serveAddr       string
	serveSkipIngest bool
)

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API.

Routes:
  GET    /health
  GET    /metrics
  POST   /api/v1/chat
  POST   /api/v1/search
  GET    /api/v1/sessions
  GET    /api/v1/sessions/:id/history
  DELETE /api/v1/sessions/:id/history
  POST   /api/v1/ingest
  POST   /api/v1/reindex

Examples:
  optimedix serve
  optimedix serve --addr :9090`,
		RunE: runServe,
	}

	cmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: server.addr from config)")
	cmd.Flags().BoolVar(&serveSkipIngest, "skip-ingest", false, "Do not ingest the corpus at startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, release, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer release()

	if !serveSkipIngest {
		if _, err := a.Ingest(ctx); err != nil {
			if !models.IsIngestWarning(err) {
				return err
			}
			a.Logger.Warn("corpus not ready", zap.Error(err))
		}
	}

	addr := a.Config.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	return api.NewServer(a).Run(ctx, addr, a.Config.Server.ShutdownTimeout)
}
