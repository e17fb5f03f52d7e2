// Package codewatcher reloads the application codes file when it changes.
// It watches the directory of spawnpoint.Config.CodesFile so editors that
// replace the file on save are picked up as well.
package codewatcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/spawnpoint/pkg/codes"
	"github.com/bft-labs/spawnpoint/pkg/log"
	"github.com/bft-labs/spawnpoint/pkg/spawnpoint"
)

// Plugin implements codes file watching.
type Plugin struct {
	mu sync.Mutex

	// Configuration
	debounceDelay time.Duration
	onReload      func(n int, err error)

	// Runtime state
	path     string
	catalog  *codes.Catalog
	logger   log.Logger
	watcher  *fsnotify.Watcher
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
}

// Config holds configuration options for the code watcher plugin.
type Config struct {
	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	// OnReload, when set, is called after every reload attempt with the
	// number of codes loaded.
	OnReload func(n int, err error)
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 100 * time.Millisecond,
	}
}

// New creates a new code watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	return &Plugin{
		debounceDelay: cfg.DebounceDelay,
		onReload:      cfg.OnReload,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "codewatcher"
}

// Initialize starts watching the codes file of app.
func (p *Plugin) Initialize(ctx context.Context, app *spawnpoint.App) error {
	p.logger = app.Logger()
	path := app.Config().CodesFile
	if path == "" {
		p.logger.Warn("Code watcher disabled: no codes file configured")
		return nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve codes file: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	p.mu.Lock()
	p.path = abs
	p.catalog = app.Codes().Catalog()
	p.watcher = watcher
	p.mu.Unlock()

	// The plugin lifetime follows the app, not the Setup context.
	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancel = cancel

	p.logger.Info("Code watcher plugin initialized", log.String("file", abs))

	p.wg.Add(1)
	go p.watchLoop(watchCtx)

	return nil
}

// Shutdown stops the watcher and any pending reload.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	return nil
}

// watchLoop watches for codes file changes.
func (p *Plugin) watchLoop(ctx context.Context) {
	defer p.wg.Done()
	defer p.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != p.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.debounceReload(p.debounceDelay)

		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("Code watcher: watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) debounceReload(delay time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}

	p.debounce = time.AfterFunc(delay, p.reload)
}

func (p *Plugin) reload() {
	n, err := p.catalog.LoadFile(p.path)
	if err != nil {
		p.logger.Error("Code watcher: reload failed", log.String("file", p.path), log.Err(err))
	} else {
		p.logger.Info("Code watcher: codes reloaded", log.Int("count", n))
	}
	if p.onReload != nil {
		p.onReload(n, err)
	}
}

// Ensure Plugin implements spawnpoint.Plugin.
var _ spawnpoint.Plugin = (*Plugin)(nil)
