// ABOUTME: CLI command that drops and recreates the vector index
// ABOUTME: Asks for confirmation unless --yes is given
package commands

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	reindexYes bool
)

// NewReindexCmd creates the reindex command
func NewReindexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Delete and recreate the vector index",
		Long: `Delete every stored chunk and recreate an empty index.

The ingestion manifest is cleared too, so the next ingest re-embeds the
whole corpus. Running it on a missing index is harmless.

Examples:
  optimedix reindex
  optimedix reindex --yes && optimedix ingest`,
		RunE: runReindex,
	}

	cmd.Flags().BoolVarP(&reindexYes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

func runReindex(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if !reindexYes {
		fmt.Fprint(out, "This deletes every stored chunk. Continue? [y/N] ")
		answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	ctx := cmd.Context()
	a, release, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer release()

	if err := a.Ingestor.Reindex(ctx); err != nil {
		return fmt.Errorf("resetting index: %w", err)
	}
	if !quiet {
		fmt.Fprintln(out, "Index reset. Run \"optimedix ingest\" to rebuild it.")
	}
	return nil
}
