// ABOUTME: CLI command to ingest the medical corpus into the vector index
// ABOUTME: With --watch it keeps the index in step with file changes until interrupted
package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/harper/optimedix/internal/models"
	"github.com/spf13/cobra"
)

var (
	ingestPath  string
	ingestWatch bool
)

// NewIngestCmd creates the ingest command
func NewIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest the document corpus",
		Long: `Chunk, embed and store every .txt and .md document in the corpus.

Unchanged documents are skipped, edited ones are re-embedded and deleted
ones are removed from the index. A missing corpus directory is created.

Examples:
  optimedix ingest
  optimedix ingest --path ./data/medical_docs
  optimedix ingest --watch`,
		RunE: runIngest,
	}

	cmd.Flags().StringVar(&ingestPath, "path", "", "Corpus directory (default: corpus.path from config)")
	cmd.Flags().BoolVar(&ingestWatch, "watch", false, "Keep running and re-ingest files as they change")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, release, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer release()
	if ingestPath != "" {
		a.Config.Corpus.Path = ingestPath
	}

	report, err := a.Ingest(ctx)
	if err != nil && !models.IsIngestWarning(err) {
		return fmt.Errorf("ingesting corpus: %w", err)
	}

	out := cmd.OutOrStdout()
	if outputFormat == "json" {
		if err := writeJSON(out, report); err != nil {
			return err
		}
	} else if !quiet {
		if err != nil {
			fmt.Fprintf(out, "Warning: %v\n", err)
		}
		fmt.Fprintf(out, "Documents ingested: %d\n", report.Documents)
		fmt.Fprintf(out, "Chunks stored:      %d\n", report.ChunksStored)
		fmt.Fprintf(out, "Unchanged:          %d\n", report.Skipped)
		fmt.Fprintf(out, "Removed:            %d\n", report.Removed)
	}

	if !ingestWatch {
		return nil
	}
	if !quiet {
		fmt.Fprintf(out, "Watching %s for changes (Ctrl+C to stop)...\n", a.Config.Corpus.Path)
	}
	return a.Watcher().Run(ctx)
}
