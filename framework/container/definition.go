package container

import (
	"fmt"
	"reflect"
	"strings"
	"sync/atomic"
)

// ── Producer ──────────────────────────────────────────────────────────────────

// ProducerKind tells how a Definition creates its instance.
type ProducerKind int

const (
	// TypeProducer allocates a zero value with new(T).
	TypeProducer ProducerKind = iota
	// FactoryProducer calls a user function.
	FactoryProducer
)

func (k ProducerKind) String() string {
	if k == FactoryProducer {
		return "factory"
	}
	return "type"
}

// ── Properties ────────────────────────────────────────────────────────────────

// Property is one autowired dependency of a *T: the key to resolve and the
// setter that stores the resolved value.
//
//	container.Inject("Storage", func(m *AccountManager, s Storage) { m.Storage = s })
type Property[T any] struct {
	name string
	key  Key
	set  func(*T, any) error
}

// Inject declares a property resolved through the capability key of D.
func Inject[T, D any](name string, set func(*T, D)) Property[T] {
	return InjectKey(name, KeyFor[D](), set)
}

// InjectKey declares a property resolved through an explicit key.
func InjectKey[T, D any](name string, key Key, set func(*T, D)) Property[T] {
	p := Property[T]{name: name, key: key}
	if set == nil {
		return p
	}
	p.set = func(target *T, v any) error {
		d, ok := v.(D)
		if !ok {
			return fmt.Errorf("%w: property %s wants %s, got %T", ErrTypeMismatch, name, reflect.TypeFor[D](), v)
		}
		set(target, d)
		return nil
	}
	return p
}

// Name returns the property label used in errors.
func (p Property[T]) Name() string { return p.name }

// Key returns the key the property resolves.
func (p Property[T]) Key() Key { return p.key }

// property is the type-erased Property stored on a Definition.
type property struct {
	name string
	key  Key
	set  func(target, value any) error
}

func erase[T any](p Property[T]) property {
	ep := property{name: p.name, key: p.key}
	if p.set != nil {
		ep.set = func(target, value any) error {
			return p.set(target.(*T), value)
		}
	}
	return ep
}

// ── Definition ────────────────────────────────────────────────────────────────

// Definition is the immutable recipe for one object: the keys it answers to,
// how it is produced, which properties are autowired, its scope and the hooks
// run after construction.
//
// Definitions are created by the staged builder returned from Define and
// belong to exactly one Container once registered.
type Definition struct {
	name       string
	keys       []Key
	kind       ProducerKind
	typ        reflect.Type
	produce    func(Resolver, any) (any, error)
	args       reflect.Type
	properties []property
	hooks      []func(Resolver, any) error
	scope      Scope
	newStorage func(Scope) storage

	owner atomic.Pointer[Container]
}

// Keys returns every key the Definition is registered under.
func (d *Definition) Keys() []Key {
	return append([]Key(nil), d.keys...)
}

// Name returns the definition name, or "" when it has none.
func (d *Definition) Name() string { return d.name }

// Scope returns the lifetime policy of the instance.
func (d *Definition) Scope() Scope { return d.scope }

// Producer returns how the instance is created.
func (d *Definition) Producer() ProducerKind { return d.kind }

// Type returns the pointer type of the produced instance.
func (d *Definition) Type() reflect.Type { return d.typ }

// Args returns the type of the argument the factory takes, or nil.
func (d *Definition) Args() reflect.Type { return d.args }

// Properties returns the autowired property names in injection order.
func (d *Definition) Properties() []string {
	out := make([]string, len(d.properties))
	for i, p := range d.properties {
		out[i] = p.name
	}
	return out
}

// Dependencies returns the keys of the autowired properties in injection order.
func (d *Definition) Dependencies() []Key {
	out := make([]Key, len(d.properties))
	for i, p := range d.properties {
		out[i] = p.key
	}
	return out
}

// String describes the Definition for logs and error messages.
func (d *Definition) String() string {
	return fmt.Sprintf("[%s] => %s (%s, %s)", strings.Join(keyStrings(d.keys), " | "), typeName(d.typ), d.kind, d.scope)
}

// Label is the short identity used in dependency chains and metrics.
func (d *Definition) Label() string {
	if len(d.keys) == 0 {
		return typeName(d.typ)
	}
	return d.keys[0].String()
}
