package container

import "fmt"

// Scope controls how long a resolved instance lives and who owns it.
type Scope int

const (
	// Prototype builds a fresh instance on every resolution. Nothing is cached.
	Prototype Scope = iota

	// Singleton builds the instance once. The container is its owner until
	// it is released or the container is closed.
	Singleton

	// SingletonWeak caches the instance without owning it. Once every caller
	// has dropped its references the garbage collector may reclaim it, and the
	// next resolution builds a new one.
	SingletonWeak
)

// String returns the configuration name of the scope.
func (s Scope) String() string {
	switch s {
	case Prototype:
		return "prototype"
	case Singleton:
		return "singleton"
	case SingletonWeak:
		return "singleton_weak"
	default:
		return "unknown"
	}
}

// ParseScope is the inverse of Scope.String.
func ParseScope(s string) (Scope, error) {
	switch s {
	case "prototype", "":
		return Prototype, nil
	case "singleton":
		return Singleton, nil
	case "singleton_weak":
		return SingletonWeak, nil
	default:
		return Prototype, fmt.Errorf("container: unknown scope %q", s)
	}
}

// State is the lifecycle of a cached instance for one Definition.
type State int

const (
	Empty State = iota
	Building
	Ready
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Building:
		return "building"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// ConflictPolicy decides what Register does when a key is already claimed by
// another Definition.
type ConflictPolicy int

const (
	// RejectConflicts fails the registration with a KeyConflictError. The
	// existing Definition stays in place.
	RejectConflicts ConflictPolicy = iota

	// ReplaceConflicts lets the newest registration win for the contested key.
	ReplaceConflicts
)

func (p ConflictPolicy) String() string {
	if p == ReplaceConflicts {
		return "replace"
	}
	return "reject"
}

// ParseConflictPolicy accepts "reject" or "replace".
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch s {
	case "reject", "":
		return RejectConflicts, nil
	case "replace":
		return ReplaceConflicts, nil
	default:
		return RejectConflicts, fmt.Errorf("container: unknown conflict policy %q", s)
	}
}
