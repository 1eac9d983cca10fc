package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatcherConfig contains configuration for the policy directory watcher.
type WatcherConfig struct {
	// Path is the file or directory to watch.
	Path string

	// DebounceInterval is the quiet period before a reload fires after a
	// burst of file events (default: 100ms).
	DebounceInterval time.Duration

	// Extensions is the list of file extensions to watch.
	Extensions []string
}

// DefaultWatcherConfig returns the default watcher configuration.
func DefaultWatcherConfig() *WatcherConfig {
	return &WatcherConfig{
		DebounceInterval: 100 * time.Millisecond,
		Extensions:       []string{".yaml", ".yml"},
	}
}

// Watcher watches the policy directory and triggers reloads on change.
// Rapid event bursts are debounced so an editor save touching several files
// produces a single reload.
type Watcher struct {
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	config   *WatcherConfig
	debounce *debouncer

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	stopOnce  sync.Once
	closeOnce sync.Once
	closeErr  error
}

// NewWatcher creates a watcher for the configured path.
func NewWatcher(config *WatcherConfig, logger *slog.Logger) (*Watcher, error) {
	if config == nil {
		config = DefaultWatcherConfig()
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = DefaultWatcherConfig().DebounceInterval
	}
	if len(config.Extensions) == 0 {
		config.Extensions = DefaultWatcherConfig().Extensions
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		watcher:  fsw,
		logger:   logger.With("component", "policy.watcher"),
		config:   config,
		debounce: newDebouncer(config.DebounceInterval),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Watch blocks processing file events until the context is cancelled or Stop
// is called. onReload is invoked after each debounced change burst; reload
// errors are logged and watching continues.
func (w *Watcher) Watch(ctx context.Context, onReload func() error) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	// Release the fsnotify descriptor on every exit path, context
	// cancellation included, so a deferred Stop after cancellation does not
	// leak it.
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		w.close()
		close(w.doneCh)
	}()

	if err := w.addPath(w.config.Path); err != nil {
		return fmt.Errorf("failed to watch path: %w", err)
	}

	w.logger.Info("policy watcher started",
		"path", w.config.Path,
		"debounce_ms", w.config.DebounceInterval.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("policy watcher stopped (context cancelled)")
			return nil

		case <-w.stopCh:
			w.logger.Info("policy watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !w.shouldProcess(event) {
				continue
			}

			w.logger.Debug("policy file event",
				"path", event.Name,
				"op", event.Op.String(),
			)

			w.debounce.trigger(func() {
				w.logger.Info("reloading policies",
					"path", event.Name,
					"op", event.Op.String(),
				)
				if err := onReload(); err != nil {
					w.logger.Error("policy reload failed", "error", err)
				}
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("policy watcher error", "error", err)
		}
	}
}

// Stop stops the watcher and waits for the event loop to exit. It releases
// the fsnotify watcher even when the loop already exited through context
// cancellation, and is safe to call more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	running := w.running
	w.mu.Unlock()

	if running {
		w.stopOnce.Do(func() { close(w.stopCh) })
		<-w.doneCh
	}

	return w.close()
}

// close releases the fsnotify watcher and the debounce timer. Only the first
// call does the work.
func (w *Watcher) close() error {
	w.closeOnce.Do(func() {
		w.debounce.stop()
		if err := w.watcher.Close(); err != nil {
			w.closeErr = fmt.Errorf("failed to close watcher: %w", err)
		}
	})
	return w.closeErr
}

func (w *Watcher) addPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return w.watcher.Add(path)
	}

	return filepath.Walk(path, func(sub string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(filepath.Base(sub), ".") && sub != path {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			if err := w.watcher.Add(sub); err != nil {
				return fmt.Errorf("failed to watch directory %q: %w", sub, err)
			}
			w.logger.Debug("watching directory", "path", sub)
		}
		return nil
	})
}

func (w *Watcher) shouldProcess(event fsnotify.Event) bool {
	if event.Op&fsnotify.Chmod == fsnotify.Chmod {
		return false
	}
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return false
	}

	ext := strings.ToLower(filepath.Ext(event.Name))
	for _, want := range w.config.Extensions {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}

// debouncer collapses rapid event bursts into a single callback after a quiet
// period.
type debouncer struct {
	interval time.Duration
	timer    *time.Timer
	mu       sync.Mutex
	callback func()
	stopCh   chan struct{}
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

func (d *debouncer) trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.callback = callback

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() {
		select {
		case <-d.stopCh:
			return
		default:
			d.mu.Lock()
			cb := d.callback
			d.mu.Unlock()
			if cb != nil {
				cb()
			}
		}
	})
}

func (d *debouncer) stop() {
	close(d.stopCh)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.callback = nil
}
