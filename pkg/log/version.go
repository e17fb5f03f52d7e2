package log

// Version information for the log module. 1.1.0 added runtime debug
// toggling to the zerolog adapter.
const (
	Version              = "1.1.0"
	MinCompatibleVersion = "1.0.0"
)
