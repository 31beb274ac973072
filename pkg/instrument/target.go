package instrument

import "sync"

// Target is a named, replaceable primitive such as a global function or a
// prototype method.
type Target[F any] interface {
	// Lookup returns the current value and whether it is defined.
	Lookup() (F, bool)

	// Replace installs a new value.
	Replace(F)
}

// Marker is implemented by targets that can remember whether they already
// carry a wrapper, so a second install never double-wraps.
type Marker interface {
	Wrapped() bool
	MarkWrapped(bool)
}

// Slot is an in-memory Target. The zero value is undefined.
type Slot[F any] struct {
	mu      sync.RWMutex
	fn      F
	defined bool
	wrapped bool
}

// NewSlot returns a slot holding fn.
func NewSlot[F any](fn F) *Slot[F] {
	return &Slot[F]{fn: fn, defined: true}
}

// Lookup implements Target.
func (s *Slot[F]) Lookup() (F, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fn, s.defined
}

// Replace implements Target. Replacing an undefined slot defines it.
func (s *Slot[F]) Replace(fn F) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fn = fn
	s.defined = true
}

// Get returns the current value, or the zero value when undefined.
func (s *Slot[F]) Get() F {
	fn, _ := s.Lookup()
	return fn
}

// Wrapped implements Marker.
func (s *Slot[F]) Wrapped() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wrapped
}

// MarkWrapped implements Marker.
func (s *Slot[F]) MarkWrapped(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wrapped = v
}

// defined reports whether the target currently holds a value.
func defined[F any](t Target[F]) bool {
	_, ok := t.Lookup()
	return ok
}

// alreadyWrapped reports whether t is marked as carrying a wrapper.
func alreadyWrapped(t any) bool {
	m, ok := t.(Marker)
	return ok && m.Wrapped()
}

func markWrapped(t any, v bool) {
	if m, ok := t.(Marker); ok {
		m.MarkWrapped(v)
	}
}
