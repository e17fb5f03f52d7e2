package codes

import (
	"errors"
	"fmt"
	"maps"
	"sync"
)

// Event is emitted every time a known code is raised as an error.
type Event struct {
	Kind Kind
	Code Code
}

// Listener receives raised code events. Listeners run synchronously on the
// goroutine that raised the code and should return quickly.
type Listener func(Event)

type listenerEntry struct {
	id int
	fn Listener
}

type errorMapping struct {
	code   string
	target error
}

// Factory builds codes and code errors from a Catalog and notifies
// listeners of every raised error.
type Factory struct {
	catalog *Catalog

	mu        sync.RWMutex
	listeners []listenerEntry
	nextID    int
	mappings  []errorMapping
}

// NewFactory creates a Factory backed by catalog. A nil catalog gets a
// fresh NewCatalog.
func NewFactory(catalog *Catalog) *Factory {
	if catalog == nil {
		catalog = NewCatalog()
	}
	return &Factory{catalog: catalog}
}

// Catalog returns the backing catalog.
func (f *Factory) Catalog() *Catalog {
	return f.catalog
}

// Code builds a Code from the catalog. data is copied.
func (f *Factory) Code(code string, data map[string]interface{}) (Code, error) {
	msg, ok := f.catalog.Message(code)
	if !ok {
		return Code{}, fmt.Errorf("%w: %s", ErrUnknownCode, code)
	}
	return Code{Code: code, Message: msg, Data: maps.Clone(data)}, nil
}

// ErrorCode raises code as a hard application error.
func (f *Factory) ErrorCode(code string, data map[string]interface{}) *Error {
	return f.raise(KindErrorCode, code, data, nil)
}

// FailCode raises code as a soft, user caused failure.
func (f *Factory) FailCode(code string, data map[string]interface{}) *Error {
	return f.raise(KindFailCode, code, data, nil)
}

// Wrap raises code with cause attached, so errors.Is still matches cause.
func (f *Factory) Wrap(kind Kind, code string, cause error) *Error {
	return f.raise(kind, code, nil, cause)
}

func (f *Factory) raise(kind Kind, code string, data map[string]interface{}, cause error) *Error {
	c, err := f.Code(code, data)
	if err != nil {
		if cause == nil {
			cause = err
		} else {
			cause = errors.Join(cause, err)
		}
		return &Error{Kind: kind, Code: code, Message: ErrUnknownCode.Error(), Data: maps.Clone(data), Cause: cause}
	}

	f.emit(Event{Kind: kind, Code: c})
	return &Error{Kind: kind, Code: c.Code, Message: c.Message, Data: c.Data, Cause: cause}
}

// Subscribe registers l for raised code events and returns a function that
// removes it.
func (f *Factory) Subscribe(l Listener) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.listeners = append(f.listeners, listenerEntry{id: id, fn: l})

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		for i, e := range f.listeners {
			if e.id == id {
				f.listeners = append(f.listeners[:i], f.listeners[i+1:]...)
				return
			}
		}
	}
}

func (f *Factory) emit(ev Event) {
	f.mu.RLock()
	listeners := make([]Listener, len(f.listeners))
	for i, e := range f.listeners {
		listeners[i] = e.fn
	}
	f.mu.RUnlock()

	for _, l := range listeners {
		l(ev)
	}
}

// RegisterError maps errors matching target (via errors.Is) to code.
func (f *Factory) RegisterError(code string, target error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mappings = append(f.mappings, errorMapping{code: code, target: target})
}

// RegisterErrors maps several targets at once, keyed by code.
func (f *Factory) RegisterErrors(targets map[string]error) {
	for code, target := range targets {
		f.RegisterError(code, target)
	}
}

// Mask converts err into a code error of the given kind using the first
// matching registered mapping. It reports false when nothing matches.
func (f *Factory) Mask(err error, kind Kind) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	f.mu.RLock()
	mappings := append([]errorMapping(nil), f.mappings...)
	f.mu.RUnlock()

	for _, m := range mappings {
		if errors.Is(err, m.target) {
			return f.Wrap(kind, m.code, err), true
		}
	}
	return nil, false
}
