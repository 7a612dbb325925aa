// ABOUTME: CLI commands to list, show and export stored chat sessions
// ABOUTME: Reads the transcripts persisted by chat, ask, serve and mcp
package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/harper/optimedix/internal/storage/sqlite"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOutput string
)

// NewHistoryCmd creates the history command group
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect stored chat sessions",
		Long: `List stored chat sessions, print a transcript or export it.

Examples:
  optimedix history list
  optimedix history show 3f2a...
  optimedix history export 3f2a... --format markdown --output visit.md`,
	}

	cmd.AddCommand(newHistoryListCmd(), newHistoryShowCmd(), newHistoryExportCmd())
	return cmd
}

func newHistoryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored sessions",
		Long: `List stored sessions, most recently active first.

Examples:
  optimedix history list
  optimedix history list --format json`,
		Args: cobra.NoArgs,
		RunE: runHistoryList,
	}
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, release, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer release()

	sessions, err := a.Storage.Transcripts().Sessions(ctx)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	if len(sessions) == 0 {
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "No sessions found\n")
		}
		return nil
	}

	if outputFormat == "json" {
		return writeJSON(cmd.OutOrStdout(), sessions)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SESSION ID\tTURNS\tCREATED\tLAST ACTIVE\n")
	fmt.Fprintf(w, "----------\t-----\t-------\t-----------\n")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
			truncate(s.ID, 40),
			s.TurnCount,
			formatTime(s.CreatedAt),
			formatTime(s.UpdatedAt))
	}
	_ = w.Flush()

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "\nTotal: %d session(s)\n", len(sessions))
	}
	return nil
}

func newHistoryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Print a session transcript",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryShow,
	}
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, release, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer release()

	turns, err := a.Storage.Transcripts().Turns(ctx, args[0])
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}
	if len(turns) == 0 {
		return fmt.Errorf("session %s not found", args[0])
	}

	if outputFormat == "json" {
		return writeJSON(cmd.OutOrStdout(), sqlite.NewExportData(args[0], turns))
	}
	fmt.Fprint(cmd.OutOrStdout(), sqlite.RenderText(turns))
	return nil
}

func newHistoryExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <session-id>",
		Short: "Export a session transcript to a file",
		Long: `Export a session transcript as text, Markdown or YAML.

The default file name is medical_chat_history_<timestamp> with the
extension of the chosen format.

Examples:
  optimedix history export 3f2a...
  optimedix history export 3f2a... --format yaml --output visit.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: runHistoryExport,
	}

	cmd.Flags().StringVar(&exportFormat, "format", "txt", "Export format: txt, markdown or yaml")
	cmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path")

	return cmd
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	format, err := sqlite.ParseExportFormat(exportFormat)
	if err != nil {
		return err
	}
	output := exportOutput
	if output == "" {
		output = sqlite.DefaultExportName(format, time.Now())
	}

	ctx := cmd.Context()
	a, release, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer release()

	if err := a.Storage.ExportSession(ctx, args[0], output, format); err != nil {
		return fmt.Errorf("exporting session: %w", err)
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Exported session %s to %s\n", args[0], output)
	}
	return nil
}
