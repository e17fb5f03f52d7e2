package spawnpoint

import "errors"

// Common errors.
var (
	ErrInvalidConfig = errors.New("spawnpoint: invalid config")
)

// Codes raised by the application itself.
const (
	CodeAlreadySetup    = "spawnpoint.already_setup"
	CodeNotCollection   = "spawnpoint.config.sample_not_collection"
	CodePluginFailed    = "spawnpoint.plugin_failed"
	CodeLockedTimeout   = "app.config.locked_timeout"
	CodeEmptyCollection = "rotation.empty_collection"
)
