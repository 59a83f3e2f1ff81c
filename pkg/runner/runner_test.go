package runner

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatcher_DebouncesBurstsIntoOneRun(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "rcp-manifest.yaml")
	if err := os.WriteFile(target, []byte("policies: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var runs atomic.Int32
	w, err := NewWatcher([]string{dir}, 100*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v, want nil", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Watch(ctx)
	}()

	// Burst of writes well inside the debounce window.
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(target, []byte("policies: []\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Wait out the debounce plus slack.
	deadline := time.After(2 * time.Second)
	for runs.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("watcher never triggered a run")
		case <-time.After(20 * time.Millisecond):
		}
	}
	// Allow any spurious second fire to surface before asserting.
	time.Sleep(300 * time.Millisecond)

	if got := runs.Load(); got != 1 {
		t.Errorf("runs = %d, want 1 (burst should debounce)", got)
	}

	cancel()
	<-done
}

func TestWatcher_MissingPath(t *testing.T) {
	_, err := NewWatcher([]string{filepath.Join(t.TempDir(), "missing")}, 0, func(ctx context.Context) error { return nil }, nil)
	if err == nil {
		t.Fatal("NewWatcher() error = nil, want error for missing path")
	}
}

func TestScheduler_InvalidSpec(t *testing.T) {
	_, err := NewScheduler("not a schedule", func(ctx context.Context) error { return nil }, nil)
	if err == nil {
		t.Fatal("NewScheduler() error = nil, want error")
	}
}

func TestScheduler_TriggersRuns(t *testing.T) {
	var runs atomic.Int32
	s, err := NewScheduler("@every 100ms", func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v, want nil", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v, want nil", err)
	}

	deadline := time.After(3 * time.Second)
	for runs.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("scheduler never triggered a run")
		case <-time.After(20 * time.Millisecond):
		}
	}

	s.Stop()
}
