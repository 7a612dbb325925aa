// ABOUTME: Shared helpers for CLI commands
// ABOUTME: Text truncation, relative times, reply rendering and JSON output
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/harper/optimedix/internal/models"
)

// truncate shortens a string to maxLen, adding "..." if truncated
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return string(runes[:maxLen-3]) + "..."
}

// formatTime formats a time for display
func formatTime(t time.Time) string {
	diff := time.Since(t)

	if diff < time.Minute {
		return "just now"
	} else if diff < time.Hour {
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	} else if diff < 24*time.Hour {
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	} else if diff < 7*24*time.Hour {
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
	return t.Format("2006-01-02")
}

// validatePositiveInt returns error if n is not positive
func validatePositiveInt(n int, name string) error {
	if n <= 0 {
		return fmt.Errorf("%s must be positive, got %d", name, n)
	}
	return nil
}

// writeJSON prints v indented
func writeJSON(w io.Writer, v any) error {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", jsonData)
	return err
}

type replyView struct {
	SessionID string   `json:"session_id"`
	Kind      string   `json:"kind"`
	Message   string   `json:"message"`
	Outcome   string   `json:"outcome,omitempty"`
	Sources   []string `json:"sources,omitempty"`
	Questions []string `json:"questions,omitempty"`
}

func newReplyView(sessionID string, reply models.Reply) replyView {
	v := replyView{SessionID: sessionID, Message: reply.Message()}
	switch r := reply.(type) {
	case *models.ClarificationRequest:
		v.Kind = "clarification"
		v.Questions = r.Questions
	case *models.Answer:
		v.Kind = "answer"
		v.Outcome = string(r.Outcome)
		v.Sources = r.Sources
	}
	return v
}

// printReply renders a reply as text, listing clarifying questions one per line
func printReply(w io.Writer, reply models.Reply) {
	if clar, ok := reply.(*models.ClarificationRequest); ok {
		fmt.Fprintln(w, strings.TrimSpace(models.ClarificationPrefix))
		for _, q := range clar.Questions {
			fmt.Fprintf(w, "  - %s\n", q)
		}
		return
	}
	fmt.Fprintln(w, reply.Message())
}
