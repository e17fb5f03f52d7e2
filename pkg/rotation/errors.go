package rotation

import "errors"

// Rotation errors. They can be checked with errors.Is.
var (
	// ErrEmptyCollection is returned by constructors given no items.
	ErrEmptyCollection = errors.New("rotation: collection must contain at least one item")

	// ErrCorruptedState is returned by Pool.Next when no unused index is left
	// to pick from, which only happens if the used set was tampered with.
	ErrCorruptedState = errors.New("rotation: used set is corrupted")

	// ErrLockTimeout is delivered to a LockQueue callback whose request was
	// not admitted before its timeout.
	ErrLockTimeout = errors.New("rotation: timed out waiting for a free item")
)
