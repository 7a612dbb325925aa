// ABOUTME: Tests for ChunkEngine boundary-aware chunking
// ABOUTME: Verifies size bounds, exact overlap, determinism and separator preference

package core

import (
	"math/rand/v2"
	"strings"
	"testing"
	"unicode/utf8"
)

func newTestEngine(t *testing.T) *ChunkEngine {
	t.Helper()
	ce, err := NewChunkEngine(DefaultChunkSize, DefaultChunkOverlap)
	if err != nil {
		t.Fatalf("NewChunkEngine() error = %v", err)
	}
	return ce
}

func TestNewChunkEngine_Invalid(t *testing.T) {
	tests := []struct {
		name          string
		size, overlap int
	}{
		{"zero size", 0, 0},
		{"negative overlap", 10, -1},
		{"overlap equals size", 10, 10},
		{"overlap above size", 10, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewChunkEngine(tt.size, tt.overlap); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSplit_EmptyText(t *testing.T) {
	ce := newTestEngine(t)
	for _, text := range []string{"", "   ", "\t\n\r"} {
		if chunks := ce.Split(text); chunks != nil {
			t.Errorf("Split(%q) = %d chunks, want none", text, len(chunks))
		}
	}
}

func TestSplit_ShortText(t *testing.T) {
	ce := newTestEngine(t)
	text := "Aspirin is used for headache and fever reduction."
	chunks := ce.Split(text)
	if len(chunks) != 1 || chunks[0] != text {
		t.Errorf("Split() = %q, want the text unchanged", chunks)
	}
}

// randomDocument builds prose with a mix of every separator kind
func randomDocument(r *rand.Rand, words int) string {
	vocab := []string{"aspirin", "fever", "dose", "patients", "chronic", "ibuprofen", "cough", "héadache", "渋滞", "relief"}
	var b strings.Builder
	for i := 0; i < words; i++ {
		b.WriteString(vocab[r.IntN(len(vocab))])
		switch n := r.IntN(40); {
		case n == 0:
			b.WriteString(".\n\n")
		case n == 1:
			b.WriteString("\n")
		case n < 5:
			b.WriteString(". ")
		case n == 5:
			b.WriteString("! ")
		case n == 6:
			b.WriteString("? ")
		case n < 10:
			b.WriteString(", ")
		default:
			b.WriteString(" ")
		}
	}
	return b.String()
}

func checkChunkProperties(t *testing.T, ce *ChunkEngine, text string) {
	t.Helper()
	chunks := ce.Split(text)
	if len(chunks) == 0 {
		t.Fatal("no chunks for non-empty text")
	}

	var rebuilt strings.Builder
	for i, c := range chunks {
		n := utf8.RuneCountInString(c)
		if n > DefaultChunkSize {
			t.Errorf("chunk %d has %d runes, want <= %d", i, n, DefaultChunkSize)
		}
		if i == 0 {
			rebuilt.WriteString(c)
			continue
		}
		prev := []rune(chunks[i-1])
		cur := []rune(c)
		if len(prev) > DefaultChunkOverlap && len(cur) > DefaultChunkOverlap {
			tail := string(prev[len(prev)-DefaultChunkOverlap:])
			head := string(cur[:DefaultChunkOverlap])
			if tail != head {
				t.Errorf("chunks %d and %d do not overlap by exactly %d runes:\n%q\n%q", i-1, i, DefaultChunkOverlap, tail, head)
			}
		}
		rebuilt.WriteString(string(cur[DefaultChunkOverlap:]))
	}
	if rebuilt.String() != text {
		t.Error("chunks minus overlaps do not reconstruct the document")
	}
}

func TestSplit_Properties(t *testing.T) {
	ce := newTestEngine(t)
	r := rand.New(rand.NewPCG(7, 11))
	for i := 0; i < 50; i++ {
		checkChunkProperties(t, ce, randomDocument(r, 50+r.IntN(800)))
	}
}

func TestSplit_UnbrokenToken(t *testing.T) {
	ce := newTestEngine(t)
	text := strings.Repeat("x", 1234)
	checkChunkProperties(t, ce, text)

	chunks := ce.Split(text)
	if utf8.RuneCountInString(chunks[0]) != DefaultChunkSize {
		t.Errorf("first chunk = %d runes, want a hard cut at %d", len(chunks[0]), DefaultChunkSize)
	}
}

func TestSplit_PrefersParagraphBreak(t *testing.T) {
	ce := newTestEngine(t)
	first := strings.Repeat("word ", 60) + "end."
	second := strings.Repeat("more, words. ", 40)
	text := first + "\n\n" + second

	chunks := ce.Split(text)
	if !strings.HasSuffix(chunks[0], "end.\n\n") {
		t.Errorf("first chunk should end at the paragraph break, ends with %q", chunks[0][len(chunks[0])-10:])
	}
}

func TestSplit_Deterministic(t *testing.T) {
	ce := newTestEngine(t)
	text := randomDocument(rand.New(rand.NewPCG(1, 2)), 600)
	a := ce.Split(text)
	b := ce.Split(text)
	if len(a) != len(b) {
		t.Fatalf("chunk counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestChunkDocument(t *testing.T) {
	ce := newTestEngine(t)
	text := randomDocument(rand.New(rand.NewPCG(3, 4)), 400)

	chunks, err := ce.ChunkDocument("guide.md", text)
	if err != nil {
		t.Fatalf("ChunkDocument() error = %v", err)
	}
	again, _ := ce.ChunkDocument("guide.md", text)
	for i, c := range chunks {
		if c.Position != i {
			t.Errorf("chunk %d has position %d", i, c.Position)
		}
		if c.Source != "guide.md" {
			t.Errorf("chunk %d has source %q", i, c.Source)
		}
		if c.ID != again[i].ID {
			t.Errorf("chunk %d ID is not stable", i)
		}
	}

	if _, err := ce.ChunkDocument("", text); err == nil {
		t.Error("expected error for empty source")
	}
}
