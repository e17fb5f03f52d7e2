package codewatcher

import "github.com/bft-labs/spawnpoint/pkg/spawnpoint"

// WithCodeWatcher returns a spawnpoint Option that reloads the codes file
// whenever it changes on disk.
//
// Usage:
//
//	app, err := spawnpoint.New(cfg,
//	    codewatcher.WithCodeWatcher(codewatcher.Config{
//	        DebounceDelay: 100 * time.Millisecond,
//	    }),
//	)
func WithCodeWatcher(cfg Config) spawnpoint.Option {
	plugin := New(cfg)
	return spawnpoint.WithPlugin(plugin)
}

// WithDefaultCodeWatcher returns a spawnpoint Option that enables code
// watching with default settings (debounce 100ms).
//
// Usage:
//
//	app, err := spawnpoint.New(cfg, codewatcher.WithDefaultCodeWatcher())
func WithDefaultCodeWatcher() spawnpoint.Option {
	return WithCodeWatcher(DefaultConfig())
}
