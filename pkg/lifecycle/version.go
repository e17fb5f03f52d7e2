package lifecycle

// Version information for the lifecycle module.
const (
	Version              = "1.0.0"
	MinCompatibleVersion = "1.0.0"
)
