package container

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedDefinition is returned when a builder is committed without a
	// key or without a usable producer.
	ErrMalformedDefinition = errors.New("malformed definition")

	// ErrKeyConflict is returned when a key is already claimed by a different
	// Definition.
	ErrKeyConflict = errors.New("key already registered")

	// ErrNotRegistered is returned when no Definition answers to a key.
	ErrNotRegistered = errors.New("key not registered")

	// ErrDependencyNotFound is returned when an autowired property refers to a
	// key nobody registered.
	ErrDependencyNotFound = errors.New("dependency not found")

	// ErrCircularDependency is returned when a Definition is needed again
	// while it is still being built. The message carries the chain.
	ErrCircularDependency = errors.New("circular dependency detected")

	// ErrConstruction matches every ConstructionError.
	ErrConstruction = errors.New("construction failed")

	// ErrNilInstance is returned when a producer returns nil without error.
	ErrNilInstance = errors.New("producer returned nil")

	// ErrTypeMismatch is returned when a resolved value is not of the
	// requested type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrArgumentMismatch is returned when a resolution passes no argument to
	// a definition that takes one, passes one to a definition that takes
	// none, or passes one of the wrong type.
	ErrArgumentMismatch = errors.New("argument mismatch")

	// ErrForeignDefinition is returned when a Definition already registered in
	// one container is registered into another.
	ErrForeignDefinition = errors.New("definition belongs to another container")

	// ErrContainerClosed is returned by Register and Resolve after Close.
	ErrContainerClosed = errors.New("container closed")
)

// DefinitionError describes why a builder could not produce a Definition.
type DefinitionError struct {
	Definition string
	Reason     string
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("%s %s: %s", ErrMalformedDefinition, e.Definition, e.Reason)
}

func (e *DefinitionError) Unwrap() error { return ErrMalformedDefinition }

// KeyConflictError reports which Definition already owns a key.
type KeyConflictError struct {
	Key      Key
	Existing string
	Incoming string
}

func (e *KeyConflictError) Error() string {
	return fmt.Sprintf("%s: [%s] is held by %s, rejected %s", ErrKeyConflict, e.Key, e.Existing, e.Incoming)
}

func (e *KeyConflictError) Unwrap() error { return ErrKeyConflict }

// DependencyNotFoundError names the property whose key is missing.
type DependencyNotFoundError struct {
	Definition string
	Property   string
	Key        Key
}

func (e *DependencyNotFoundError) Error() string {
	return fmt.Sprintf("%s: %s.%s needs [%s]", ErrDependencyNotFound, e.Definition, e.Property, e.Key)
}

func (e *DependencyNotFoundError) Unwrap() error { return ErrDependencyNotFound }

// ConstructionError wraps a failure raised while building an instance.
// Stage is one of "produce", "autowire" or "completion".
type ConstructionError struct {
	Definition string
	Stage      string
	Err        error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("%s: %s (%s): %v", ErrConstruction, e.Definition, e.Stage, e.Err)
}

func (e *ConstructionError) Unwrap() error { return e.Err }

func (e *ConstructionError) Is(target error) bool { return target == ErrConstruction }
