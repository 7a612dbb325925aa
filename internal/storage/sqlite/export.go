// ABOUTME: Export functionality for chat transcripts
// ABOUTME: Supports plain text, YAML and Markdown export formats
package sqlite

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harper/optimedix/internal/models"
	"gopkg.in/yaml.v3"
)

// ExportFormat selects the transcript rendering
type ExportFormat string

const (
	FormatText     ExportFormat = "txt"
	FormatMarkdown ExportFormat = "markdown"
	FormatYAML     ExportFormat = "yaml"
)

// ParseExportFormat accepts txt/text, md/markdown and yaml/yml
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(s) {
	case "txt", "text", "":
		return FormatText, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown export format %q (use txt, markdown or yaml)", s)
	}
}

// Extension returns the file extension for f
func (f ExportFormat) Extension() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	case FormatYAML:
		return ".yaml"
	default:
		return ".txt"
	}
}

// ExportData represents an exportable transcript
type ExportData struct {
	Version    string       `yaml:"version" json:"version"`
	ExportedAt string       `yaml:"exported_at" json:"exported_at"`
	Tool       string       `yaml:"tool" json:"tool"`
	SessionID  string       `yaml:"session_id" json:"session_id"`
	Turns      []ExportTurn `yaml:"turns" json:"turns"`
}

// ExportTurn represents a turn for export
type ExportTurn struct {
	Role      string `yaml:"role" json:"role"`
	Content   string `yaml:"content" json:"content"`
	Timestamp string `yaml:"timestamp" json:"timestamp"`
}

// NewExportData builds the export structure for a transcript
func NewExportData(sessionID string, turns []models.ConversationTurn) *ExportData {
	data := &ExportData{
		Version:    "1.0",
		ExportedAt: time.Now().Format(time.RFC3339),
		Tool:       "optimedix",
		SessionID:  sessionID,
		Turns:      make([]ExportTurn, 0, len(turns)),
	}
	for _, t := range turns {
		data.Turns = append(data.Turns, ExportTurn{
			Role:      string(t.Role),
			Content:   t.Content,
			Timestamp: t.FormattedTimestamp(),
		})
	}
	return data
}

// RenderText renders turns as "**Role** (timestamp):\ncontent\n" blocks separated by blank lines
func RenderText(turns []models.ConversationTurn) string {
	blocks := make([]string, 0, len(turns))
	for _, t := range turns {
		blocks = append(blocks, fmt.Sprintf("**%s** (%s):\n%s\n", t.Role.Title(), t.FormattedTimestamp(), t.Content))
	}
	return strings.Join(blocks, "\n")
}

// WriteTranscript renders turns in format to w
func WriteTranscript(w io.Writer, format ExportFormat, sessionID string, turns []models.ConversationTurn) error {
	switch format {
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(NewExportData(sessionID, turns)); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return encoder.Close()
	case FormatMarkdown:
		return writeMarkdown(w, sessionID, turns)
	default:
		_, err := io.WriteString(w, RenderText(turns))
		return err
	}
}

func writeMarkdown(w io.Writer, sessionID string, turns []models.ConversationTurn) error {
	_, _ = fmt.Fprintf(w, "# Medical Chat History - %s\n\n", time.Now().Format("2006-01-02"))
	_, _ = fmt.Fprintf(w, "Session: `%s`\n\n", sessionID)
	for _, t := range turns {
		_, _ = fmt.Fprintf(w, "### %s\n\n", t.Role.Title())
		_, _ = fmt.Fprintf(w, "*%s*\n\n", t.FormattedTimestamp())
		if _, err := fmt.Fprintf(w, "%s\n\n", t.Content); err != nil {
			return err
		}
	}
	return nil
}

// DefaultExportName returns medical_chat_history_<YYYYmmdd_HHMMSS><ext>
func DefaultExportName(format ExportFormat, at time.Time) string {
	return "medical_chat_history_" + at.Format("20060102_150405") + format.Extension()
}

// ExportToFile writes turns to outputPath, creating parent directories
func ExportToFile(outputPath string, format ExportFormat, sessionID string, turns []models.ConversationTurn) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(outputPath) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return WriteTranscript(file, format, sessionID, turns)
}

// ExportSession writes a stored session's transcript to outputPath
func (s *Storage) ExportSession(ctx context.Context, sessionID, outputPath string, format ExportFormat) error {
	turns, err := s.transcripts.Turns(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	if len(turns) == 0 {
		return fmt.Errorf("session %s has no turns", sessionID)
	}
	return ExportToFile(outputPath, format, sessionID, turns)
}
