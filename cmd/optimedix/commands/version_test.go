// ABOUTME: Tests for version command
// ABOUTME: Verifies version info display and SetVersion functionality

package commands

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewVersionCmd(t *testing.T) {
	cmd := NewVersionCmd()

	if cmd.Use != "version" {
		t.Errorf("Use = %q, want %q", cmd.Use, "version")
	}

	if cmd.Short == "" {
		t.Error("Short description should not be empty")
	}

	if cmd.Long == "" {
		t.Error("Long description should not be empty")
	}
}

func withVersion(t *testing.T, version, commit, date string) {
	t.Helper()
	original := versionInfo
	SetVersion(version, commit, date)
	t.Cleanup(func() { versionInfo = original })
}

func TestVersionCmd_Output(t *testing.T) {
	withVersion(t, "1.2.3", "abc123", "2026-01-31")

	outputStr, err := run(t, "", "version")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	expectedParts := []string{
		"OptiMedix 1.2.3",
		"Commit: abc123",
		"Built:  2026-01-31",
	}
	for _, part := range expectedParts {
		if !strings.Contains(outputStr, part) {
			t.Errorf("Output should contain %q, got:\n%s", part, outputStr)
		}
	}
}

func TestVersionCmd_JSON(t *testing.T) {
	withVersion(t, "1.2.3", "abc123", "2026-01-31")

	outputStr, err := run(t, "", "--format", "json", "version")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var got VersionInfo
	if err := json.Unmarshal([]byte(outputStr), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, outputStr)
	}
	if got != (VersionInfo{Version: "1.2.3", Commit: "abc123", Date: "2026-01-31"}) {
		t.Errorf("got %+v", got)
	}
}

func TestSetVersion(t *testing.T) {
	withVersion(t, "v2.0.0", "def456", "2026-02-01")

	if versionInfo.Version != "v2.0.0" {
		t.Errorf("Version = %q, want %q", versionInfo.Version, "v2.0.0")
	}
	if versionInfo.Commit != "def456" {
		t.Errorf("Commit = %q, want %q", versionInfo.Commit, "def456")
	}
	if versionInfo.Date != "2026-02-01" {
		t.Errorf("Date = %q, want %q", versionInfo.Date, "2026-02-01")
	}
}
