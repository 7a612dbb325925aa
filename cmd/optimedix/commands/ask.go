// ABOUTME: CLI command for a single question
// ABOUTME: Runs one chat turn, optionally continuing a stored session ID
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	askSession string
)

// NewAskCmd creates the ask command
func NewAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a single medical question",
		Long: `Ask one question and print the reply.

The corpus must already be ingested (see "optimedix ingest"). Pass
--session to record the turn under a known session ID.

Examples:
  optimedix ask "What is aspirin used for?"
  optimedix ask --session visit-42 "Is ibuprofen safe with aspirin?"
  optimedix ask --format json "What causes a dry cough?"`,
		Args: cobra.ExactArgs(1),
		RunE: runAsk,
	}

	cmd.Flags().StringVar(&askSession, "session", "", "Session ID to record the turn under")

	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, release, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer release()

	s, reply, err := a.Chat(ctx, askSession, args[0])
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return writeJSON(cmd.OutOrStdout(), newReplyView(s.ID, reply))
	}
	printReply(cmd.OutOrStdout(), reply)
	if !quiet {
		fmt.Fprintf(cmd.ErrOrStderr(), "\nsession: %s\n", s.ID)
	}
	return nil
}
