package source

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatcher_ReloadOnChange(t *testing.T) {
	dir := t.TempDir()
	writePolicyFile(t, dir, "policy.yaml", validPolicyDoc)

	w, err := NewWatcher(&WatcherConfig{
		Path:             dir,
		DebounceInterval: 20 * time.Millisecond,
	}, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reloads atomic.Int32
	watchErr := make(chan error, 1)
	go func() {
		watchErr <- w.Watch(ctx, func() error {
			reloads.Add(1)
			return nil
		})
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	writePolicyFile(t, dir, "policy.yaml", validPolicyDoc+"\n# touched\n")

	deadline := time.After(2 * time.Second)
	for reloads.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("reload never fired after file change")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	if err := <-watchErr; err != nil {
		t.Errorf("Watch() error = %v", err)
	}
}

func TestWatcher_IgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWatcher(&WatcherConfig{
		Path:             dir,
		DebounceInterval: 20 * time.Millisecond,
	}, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reloads atomic.Int32
	go w.Watch(ctx, func() error {
		reloads.Add(1)
		return nil
	})

	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a policy"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	time.Sleep(200 * time.Millisecond)
	if n := reloads.Load(); n != 0 {
		t.Errorf("got %d reloads for a non-policy file, want 0", n)
	}
}

func TestWatcher_StopAfterContextCancel(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWatcher(&WatcherConfig{
		Path:             dir,
		DebounceInterval: 20 * time.Millisecond,
	}, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	watchErr := make(chan error, 1)
	go func() {
		watchErr <- w.Watch(ctx, func() error { return nil })
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()
	if err := <-watchErr; err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	// The loop exited through the context, but Stop must still have a
	// released fsnotify watcher behind it.
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() after context cancel error = %v", err)
	}
	if err := w.watcher.Add(dir); err == nil {
		t.Error("fsnotify watcher still accepts paths after Stop")
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestDebouncer_CollapsesBurst(t *testing.T) {
	d := newDebouncer(30 * time.Millisecond)
	defer d.stop()

	var fired atomic.Int32
	for i := 0; i < 10; i++ {
		d.trigger(func() { fired.Add(1) })
		time.Sleep(2 * time.Millisecond)
	}

	time.Sleep(150 * time.Millisecond)
	if n := fired.Load(); n != 1 {
		t.Errorf("callback fired %d times for one burst, want 1", n)
	}
}
