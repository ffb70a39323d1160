package config

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 300 * time.Millisecond

// Reloader watches a config file on disk and hot-swaps the in-memory
// Config whenever it changes, notifying subscribers with the new value.
type Reloader struct {
	path    string
	logger  *slog.Logger
	watcher *fsnotify.Watcher

	mu      sync.RWMutex
	current *Config

	subsMu sync.Mutex
	subs   []func(*Config)

	debounce *time.Timer
	done     chan struct{}
	stopOnce sync.Once
}

// NewReloader loads path once and returns a Reloader ready to Start.
func NewReloader(path string, logger *slog.Logger) (*Reloader, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reloader{
		path:    path,
		logger:  logger,
		current: cfg,
		done:    make(chan struct{}),
	}, nil
}

// Current returns the most recently loaded Config.
func (r *Reloader) Current() *Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Subscribe registers fn to be called with the new Config after every
// successful reload. fn must not block.
func (r *Reloader) Subscribe(fn func(*Config)) {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()
	r.subs = append(r.subs, fn)
}

// Start begins watching the config file until ctx is cancelled or Stop is
// called.
func (r *Reloader) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(r.path); err != nil {
		_ = watcher.Close()
		return err
	}
	r.watcher = watcher
	go r.run(ctx)
	return nil
}

func (r *Reloader) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			r.Stop()
			return
		case <-r.done:
			return
		case ev, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				r.scheduleReload()
			}
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				r.logger.Warn("config watcher error", "error", err)
			}
		}
	}
}

func (r *Reloader) scheduleReload() {
	r.subsMu.Lock()
	if r.debounce != nil {
		r.debounce.Stop()
	}
	r.debounce = time.AfterFunc(reloadDebounce, r.reload)
	r.subsMu.Unlock()
}

func (r *Reloader) reload() {
	cfg, err := Load(r.path)
	if err != nil {
		r.logger.Warn("config reload failed, keeping previous config", "error", err, "path", r.path)
		return
	}
	r.mu.Lock()
	r.current = cfg
	r.mu.Unlock()

	r.logger.Info("config reloaded", "path", r.path)

	r.subsMu.Lock()
	subs := append([]func(*Config){}, r.subs...)
	r.subsMu.Unlock()
	for _, fn := range subs {
		fn(cfg)
	}
}

// Stop releases the underlying file watch.
func (r *Reloader) Stop() {
	r.stopOnce.Do(func() {
		if r.watcher != nil {
			_ = r.watcher.Close()
		}
		close(r.done)
	})
}
