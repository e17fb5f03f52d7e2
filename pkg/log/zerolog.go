package log

import (
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// ZerologAdapter implements Logger using zerolog.
type ZerologAdapter struct {
	logger zerolog.Logger
	debug  atomic.Bool
}

// NewZerologAdapter creates a new zerolog adapter with console output on stderr.
func NewZerologAdapter() *ZerologAdapter {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	return NewZerologAdapterWithLogger(zerolog.New(output).With().Timestamp().Logger())
}

// NewZerologAdapterWithLogger creates an adapter wrapping an existing zerolog.Logger.
// Debug output starts disabled unless the wrapped logger is already at debug level.
func NewZerologAdapterWithLogger(logger zerolog.Logger) *ZerologAdapter {
	z := &ZerologAdapter{logger: logger}
	z.debug.Store(logger.GetLevel() <= zerolog.DebugLevel)
	return z
}

// SetDebug enables or disables debug-level output.
func (z *ZerologAdapter) SetDebug(enabled bool) {
	z.debug.Store(enabled)
}

// ToggleDebug flips debug-level output and returns the new setting.
func (z *ZerologAdapter) ToggleDebug() bool {
	for {
		old := z.debug.Load()
		if z.debug.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// DebugEnabled reports whether debug-level output is enabled.
func (z *ZerologAdapter) DebugEnabled() bool {
	return z.debug.Load()
}

// Debug logs a debug-level message. It is dropped unless debug output is enabled.
func (z *ZerologAdapter) Debug(msg string, fields ...Field) {
	if !z.debug.Load() {
		return
	}
	l := z.logger.Level(zerolog.DebugLevel)
	emit(l.Debug(), msg, fields)
}

// Info logs an info-level message.
func (z *ZerologAdapter) Info(msg string, fields ...Field) {
	emit(z.logger.Info(), msg, fields)
}

// Warn logs a warning-level message.
func (z *ZerologAdapter) Warn(msg string, fields ...Field) {
	emit(z.logger.Warn(), msg, fields)
}

// Error logs an error-level message.
func (z *ZerologAdapter) Error(msg string, fields ...Field) {
	emit(z.logger.Error(), msg, fields)
}

func emit(event *zerolog.Event, msg string, fields []Field) {
	for _, f := range fields {
		event = addField(event, f)
	}
	event.Msg(msg)
}

// addField adds a Field to a zerolog.Event.
func addField(event *zerolog.Event, f Field) *zerolog.Event {
	switch v := f.Value.(type) {
	case string:
		return event.Str(f.Key, v)
	case []string:
		return event.Strs(f.Key, v)
	case int:
		return event.Int(f.Key, v)
	case bool:
		return event.Bool(f.Key, v)
	case time.Duration:
		return event.Dur(f.Key, v)
	case time.Time:
		return event.Time(f.Key, v)
	case error:
		return event.Err(v)
	default:
		return event.Interface(f.Key, v)
	}
}

// Logger returns the underlying zerolog.Logger.
func (z *ZerologAdapter) Logger() zerolog.Logger {
	return z.logger
}
