// ABOUTME: Tests for transcript export
// ABOUTME: Verifies the text, Markdown and YAML renderings and file export
package sqlite

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harper/optimedix/internal/models"
	"gopkg.in/yaml.v3"
)

func sampleTurns() []models.ConversationTurn {
	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	return []models.ConversationTurn{
		{Role: models.RoleUser, Content: "What is aspirin used for?", Timestamp: at},
		{Role: models.RoleAssistant, Content: "Headache.\n\nSources consulted: aspirin.txt", Timestamp: at.Add(2 * time.Second)},
	}
}

func TestRenderText(t *testing.T) {
	want := "**User** (2024-05-01 09:30:00):\nWhat is aspirin used for?\n" +
		"\n" +
		"**Assistant** (2024-05-01 09:30:02):\nHeadache.\n\nSources consulted: aspirin.txt\n"
	if got := RenderText(sampleTurns()); got != want {
		t.Errorf("RenderText() =\n%q\nwant\n%q", got, want)
	}
}

func TestWriteTranscript_YAML(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTranscript(&buf, FormatYAML, "s1", sampleTurns()); err != nil {
		t.Fatalf("WriteTranscript() error = %v", err)
	}

	var data ExportData
	if err := yaml.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if data.SessionID != "s1" || data.Tool != "optimedix" {
		t.Errorf("header = %+v", data)
	}
	if len(data.Turns) != 2 || data.Turns[1].Role != "assistant" {
		t.Errorf("Turns = %+v", data.Turns)
	}
}

func TestWriteTranscript_Markdown(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTranscript(&buf, FormatMarkdown, "s1", sampleTurns()); err != nil {
		t.Fatalf("WriteTranscript() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"# Medical Chat History", "### User", "### Assistant", "*2024-05-01 09:30:00*"} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q:\n%s", want, out)
		}
	}
}

func TestParseExportFormat(t *testing.T) {
	tests := map[string]ExportFormat{
		"":         FormatText,
		"txt":      FormatText,
		"md":       FormatMarkdown,
		"Markdown": FormatMarkdown,
		"yml":      FormatYAML,
	}
	for in, want := range tests {
		got, err := ParseExportFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseExportFormat(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseExportFormat("pdf"); err == nil {
		t.Error("ParseExportFormat(pdf) should fail")
	}
}

func TestDefaultExportName(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 30, 5, 0, time.UTC)
	if got := DefaultExportName(FormatText, at); got != "medical_chat_history_20240501_093005.txt" {
		t.Errorf("DefaultExportName() = %s", got)
	}
}

func TestStorage_ExportSession(t *testing.T) {
	ctx := context.Background()
	store, err := NewStorageInMemory()
	if err != nil {
		t.Fatalf("NewStorageInMemory() error = %v", err)
	}
	defer func() { _ = store.Close() }()

	for _, tr := range sampleTurns() {
		if err := store.Transcripts().Append(ctx, "s1", tr); err != nil {
			t.Fatal(err)
		}
	}

	out := filepath.Join(t.TempDir(), "nested", "history.txt")
	if err := store.ExportSession(ctx, "s1", out, FormatText); err != nil {
		t.Fatalf("ExportSession() error = %v", err)
	}
	content, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "**User** (2024-05-01 09:30:00):") {
		t.Errorf("export content = %q", content)
	}

	if err := store.ExportSession(ctx, "missing", out, FormatText); err == nil {
		t.Error("ExportSession() for an empty session should fail")
	}
}
