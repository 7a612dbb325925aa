// ABOUTME: Interactive chat REPL over the medical corpus
// ABOUTME: Ingests at startup, then reads one question per line until EOF or /quit
package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/harper/optimedix/internal/app"
	"github.com/harper/optimedix/internal/core"
	"github.com/harper/optimedix/internal/models"
	"github.com/harper/optimedix/internal/storage/sqlite"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	chatSkipIngest bool
	chatSession    string
)

const chatHelp = `Commands:
  /clear           clear the conversation
  /history         print the conversation so far
  /export [path]   save the conversation as text
  /quit            leave`

// NewChatCmd creates the chat command
func NewChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive medical chat",
		Long: `Start an interactive chat session.

The corpus is ingested first so new or edited documents are picked up;
unchanged documents are skipped. Type a question per line.

` + chatHelp + `

Examples:
  optimedix chat
  optimedix chat --skip-ingest
  optimedix chat --session visit-42`,
		RunE: runChat,
	}

	cmd.Flags().BoolVar(&chatSkipIngest, "skip-ingest", false, "Do not ingest the corpus at startup")
	cmd.Flags().StringVar(&chatSession, "session", "", "Session ID to use (default: a new random ID)")

	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, release, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer release()

	out := cmd.OutOrStdout()
	if !chatSkipIngest {
		if err := ingestAtStartup(ctx, a, out); err != nil {
			return err
		}
	}

	session := a.Sessions.GetOrCreate(chatSession)
	if !quiet {
		fmt.Fprintf(out, "OptiMedix medical assistant (session %s)\n", session.ID)
		fmt.Fprintln(out, "This assistant is informational only; consult a medical professional for advice.")
		fmt.Fprintln(out, "Type /help for commands.")
	}

	return repl(ctx, a, session, cmd.InOrStdin(), out)
}

func ingestAtStartup(ctx context.Context, a *app.App, out io.Writer) error {
	report, err := a.Ingest(ctx)
	if err != nil && !models.IsIngestWarning(err) {
		return fmt.Errorf("ingesting corpus: %w", err)
	}
	if quiet {
		return nil
	}
	if err != nil {
		fmt.Fprintf(out, "Warning: %v\n", err)
		return nil
	}
	fmt.Fprintf(out, "Corpus ready: %d document(s) ingested, %d unchanged, %d removed.\n",
		report.Documents, report.Skipped, report.Removed)
	return nil
}

func repl(ctx context.Context, a *app.App, session *core.Session, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(out, "\nYou: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			done, err := runChatCommand(ctx, a, session, line, out)
			if err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
			}
			if done {
				return nil
			}
			continue
		}

		reply, err := a.Responder.Chat(ctx, session, line)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		fmt.Fprint(out, "\nAssistant: ")
		printReply(out, reply)
		if ans, ok := reply.(*models.Answer); ok && ans.Err != nil {
			a.Logger.Debug("turn failed", zap.String("session_id", session.ID), zap.Error(ans.Err))
		}
	}
}

// runChatCommand handles a slash command and reports whether the REPL should end
func runChatCommand(ctx context.Context, a *app.App, session *core.Session, line string, out io.Writer) (bool, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		fmt.Fprintln(out, chatHelp)
	case "/clear":
		if err := a.ClearSession(ctx, session.ID); err != nil {
			return false, err
		}
		fmt.Fprintln(out, "Conversation cleared.")
	case "/history":
		turns := session.Transcript()
		if len(turns) == 0 {
			fmt.Fprintln(out, "No messages yet.")
			return false, nil
		}
		fmt.Fprintln(out, sqlite.RenderText(turns))
	case "/export":
		path := sqlite.DefaultExportName(sqlite.FormatText, time.Now())
		if len(fields) > 1 {
			path = fields[1]
		}
		turns := session.Transcript()
		if len(turns) == 0 {
			return false, fmt.Errorf("nothing to export")
		}
		if err := sqlite.ExportToFile(path, sqlite.FormatText, session.ID, turns); err != nil {
			return false, err
		}
		fmt.Fprintf(out, "Conversation saved to %s\n", path)
	default:
		return false, fmt.Errorf("unknown command %s (try /help)", fields[0])
	}
	return false, nil
}
