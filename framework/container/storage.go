package container

import "weak"

// storage holds the cached instance of one shared Definition.
// Every method is called with the container build mutex held.
type storage interface {
	load() (any, bool)
	store(v any)
	clear()
	// strong reports whether the container keeps the instance alive.
	strong() bool
}

// newStorage returns the storage a scope needs, or nil for Prototype.
func newStorage[T any](s Scope) storage {
	switch s {
	case Singleton:
		return &strongStorage{}
	case SingletonWeak:
		return &weakStorage[T]{}
	default:
		return nil
	}
}

type strongStorage struct {
	v   any
	set bool
}

func (s *strongStorage) load() (any, bool) { return s.v, s.set }

func (s *strongStorage) store(v any) {
	s.v, s.set = v, true
}

func (s *strongStorage) clear() {
	s.v, s.set = nil, false
}

func (s *strongStorage) strong() bool { return true }

// weakStorage observes a *T without keeping it reachable.
type weakStorage[T any] struct {
	p   weak.Pointer[T]
	set bool
}

func (s *weakStorage[T]) load() (any, bool) {
	if !s.set {
		return nil, false
	}
	v := s.p.Value()
	if v == nil {
		return nil, false
	}
	return v, true
}

func (s *weakStorage[T]) store(v any) {
	p, ok := v.(*T)
	if !ok || p == nil {
		s.clear()
		return
	}
	s.p, s.set = weak.Make(p), true
}

func (s *weakStorage[T]) clear() {
	s.p, s.set = weak.Pointer[T]{}, false
}

func (s *weakStorage[T]) strong() bool { return false }
