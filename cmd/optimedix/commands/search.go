// ABOUTME: CLI command to search the corpus
// ABOUTME: Retrieval only; no answer is generated
package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	searchLimit int
)

// NewSearchCmd creates search command
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the medical corpus",
		Long: `Search the ingested corpus by semantic similarity.

Embeds the query and lists the closest chunks with their source
and score. No LLM call is made.

Examples:
  optimedix search "aspirin dosage"
  optimedix search --limit 10 "chest pain causes"
  optimedix search --format json "persistent cough"`,
		Args: cobra.ExactArgs(1),
		RunE: runSearch,
	}

	cmd.Flags().IntVar(&searchLimit, "limit", 5, "Maximum results to return")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := validatePositiveInt(searchLimit, "limit"); err != nil {
		return err
	}
	query := args[0]

	ctx := cmd.Context()
	a, release, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer release()

	results, err := a.Responder.Search(ctx, query, searchLimit)
	if err != nil {
		return fmt.Errorf("searching corpus: %w", err)
	}

	if len(results) == 0 {
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "No passages found for query: %s\n", query)
		}
		return nil
	}

	if outputFormat == "json" {
		return writeJSON(cmd.OutOrStdout(), results)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SCORE\tSOURCE\tPOS\tPREVIEW\n")
	fmt.Fprintf(w, "-----\t------\t---\t-------\n")
	for _, r := range results {
		preview := strings.Join(strings.Fields(r.Chunk.Text), " ")
		fmt.Fprintf(w, "%.3f\t%s\t%d\t%s\n",
			r.Score,
			truncate(r.Chunk.Source, 30),
			r.Chunk.Position,
			truncate(preview, 60))
	}
	_ = w.Flush()

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "\nFound %d result(s)\n", len(results))
	}
	return nil
}
