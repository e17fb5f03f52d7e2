package spawnpoint

import "context"

// Plugin extends an App with a subsystem that owns live resources.
//
// Initialize runs during Setup. A plugin that returns nil is registered with
// the lifecycle registry as "plugin:<name>" and stays registered until its
// Shutdown has returned, so the process does not exit while it is still
// releasing resources.
type Plugin interface {
	Name() string
	Initialize(ctx context.Context, app *App) error
	Shutdown(ctx context.Context) error
}

// BasePlugin provides no-op Initialize and Shutdown. Embed it and override
// what the plugin needs.
type BasePlugin struct{}

// Initialize does nothing.
func (BasePlugin) Initialize(context.Context, *App) error { return nil }

// Shutdown does nothing.
func (BasePlugin) Shutdown(context.Context) error { return nil }

func pluginID(p Plugin) string {
	return "plugin:" + p.Name()
}
