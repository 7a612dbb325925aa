// ABOUTME: Tests for the corpus watcher
// ABOUTME: Waits on the processed hook instead of sleeping
package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_IngestsAndRemoves(t *testing.T) {
	f := newFixture(t, true, 8)
	processed := make(chan string, 16)

	w := NewWatcher(f.ingestor, f.root, 20*time.Millisecond, nil)
	w.processed = processed

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// give the watcher time to register the directory
	time.Sleep(50 * time.Millisecond)

	path := filepath.Join(f.root, "aspirin.txt")
	writeFile(t, path, "Aspirin is used for headache and fever reduction.")
	waitFor(t, processed, path)
	assert.Eventually(t, func() bool { return indexCount(f) == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(path))
	waitFor(t, processed, path)
	assert.Eventually(t, func() bool { return indexCount(f) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_IgnoresIneligibleFiles(t *testing.T) {
	f := newFixture(t, true, 8)
	processed := make(chan string, 16)
	w := NewWatcher(f.ingestor, f.root, 20*time.Millisecond, nil)
	w.processed = processed

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)

	writeFile(t, filepath.Join(f.root, "scan.pdf"), "%PDF")
	select {
	case p := <-processed:
		t.Errorf("processed ineligible file %s", p)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	assert.NoError(t, <-done)
}

func waitFor(t *testing.T, processed <-chan string, path string) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case p := <-processed:
			if p == path {
				return
			}
		case <-deadline:
			t.Fatalf("watcher never processed %s", path)
		}
	}
}

func indexCount(f *fixture) int {
	n, err := f.index.Count(context.Background())
	if err != nil {
		return -1
	}
	return n
}
