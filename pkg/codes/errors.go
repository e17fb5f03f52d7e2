package codes

import (
	"errors"
	"fmt"
)

// ErrUnknownCode is returned when a code is not in the catalog.
var ErrUnknownCode = errors.New("codes: unknown code")

// Kind separates hard application errors from soft, user caused failures.
type Kind string

const (
	// KindErrorCode marks system-wide problems not caused by the user.
	KindErrorCode Kind = "errorCode"

	// KindFailCode marks user or validation failures.
	KindFailCode Kind = "failCode"
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindErrorCode || k == KindFailCode
}

// Code links a machine readable code to its message and extra data.
type Code struct {
	Code    string
	Message string
	Data    map[string]interface{}
}

// Error is a Code raised as a Go error.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Data    map[string]interface{}
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s [%s]: %s: %v", e.Kind, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Kind, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error with the same kind and code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Code == e.Code
}

// CodeOf extracts the code from err if it wraps an *Error.
func CodeOf(err error) (string, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}
