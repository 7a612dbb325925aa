// ABOUTME: Check command verifies connectivity to the embedder, index and LLM
// ABOUTME: Prints a status table and fails when any component is down
package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// NewCheckCmd creates the check command
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check connections to the embedding, index and LLM services",
		Long: `Probe each external dependency once:

  embedding  embeds a short text and checks its dimension
  index      opens the index and counts stored chunks
  llm        asks the model to reply to "Hello!"

Examples:
  optimedix check
  optimedix check --format json`,
		RunE: runCheck,
	}

	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, release, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer release()

	results := a.Check(ctx)

	failed := 0
	for _, r := range results {
		if !r.OK {
			failed++
		}
	}

	if outputFormat == "json" {
		if err := writeJSON(cmd.OutOrStdout(), results); err != nil {
			return err
		}
	} else {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "COMPONENT\tSTATUS\tLATENCY\tDETAIL\n")
		fmt.Fprintf(w, "---------\t------\t-------\t------\n")
		for _, r := range results {
			status := "ok"
			if !r.OK {
				status = "FAILED"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Component, status, r.Latency.Round(time.Millisecond), truncate(r.Detail, 60))
		}
		_ = w.Flush()
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(results))
	}
	return nil
}
