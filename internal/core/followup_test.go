// ABOUTME: Tests for the follow-up trigger table
// ABOUTME: Verifies matching, scan order and YAML loading

package core

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFollowUpTable_Questions(t *testing.T) {
	table := DefaultFollowUpTable()

	tests := []struct {
		name  string
		query string
		want  int
		first string
	}{
		{"pain", "I have chest pain", 4, "Can you describe the location of the pain?"},
		{"uppercase", "PAIN in my back", 4, "Can you describe the location of the pain?"},
		{"substring", "painful knee", 4, "Can you describe the location of the pain?"},
		{"cough", "I have a cough", 3, "How long have you had the cough?"},
		{"both in scan order", "cough and pain", 7, "Can you describe the location of the pain?"},
		{"none", "What is aspirin used for?", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := table.Questions(tt.query)
			if len(got) != tt.want {
				t.Fatalf("Questions(%q) = %d questions, want %d", tt.query, len(got), tt.want)
			}
			if tt.want > 0 && got[0] != tt.first {
				t.Errorf("first question = %q, want %q", got[0], tt.first)
			}
		})
	}

	both := table.Questions("cough and pain")
	if both[4] != "How long have you had the cough?" {
		t.Errorf("cough questions should follow pain questions, got %q", both[4])
	}
}

func TestLoadFollowUpTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "triggers.yaml")
	content := `
- trigger: Rash
  questions:
    - Where is the rash?
    - Is it itchy?
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	table, err := LoadFollowUpTable(path)
	if err != nil {
		t.Fatalf("LoadFollowUpTable() error = %v", err)
	}
	if got := table.Questions("a red rash"); len(got) != 2 {
		t.Errorf("Questions() = %v, want 2", got)
	}
	if got := table.Questions("chest pain"); got != nil {
		t.Errorf("loaded table should replace the defaults, got %v", got)
	}
}

func TestLoadFollowUpTable_Invalid(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"no keyword":   "- questions: [a]\n",
		"no questions": "- trigger: fever\n",
		"not a list":   "trigger: fever\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadFollowUpTable(path); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := LoadFollowUpTable(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
