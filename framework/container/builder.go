package container

import (
	"fmt"
	"reflect"
)

// draft collects builder input until Build freezes it into a Definition.
// It is shared by every stage of one builder chain and by groups.
type draft struct {
	c          *Container
	typ        reflect.Type
	name       string
	keys       []Key
	aliases    []Key
	kind       ProducerKind
	produce    func(Resolver, any) (any, error)
	args       reflect.Type
	hasFactory bool
	properties []property
	hooks      []func(Resolver, any) error
	scope      Scope
	scopeSet   bool
	newStorage func(Scope) storage

	built *Definition
	err   error
}

// ── Stages ────────────────────────────────────────────────────────────────────

// KeyStage is the first stage: choose the keys.
type KeyStage[T any] struct{ d *draft }

// ConstructionStage chooses how the instance is produced.
type ConstructionStage[T any] struct{ d *draft }

// AliasStage adds extra keys. Alias accumulates; Aliases replaces and moves on.
type AliasStage[T any] struct{ *AutowireStage[T] }

// AutowireStage declares autowired properties. Autowire accumulates;
// AutowireAll replaces and moves on.
type AutowireStage[T any] struct{ *ScopeStage[T] }

// ScopeStage selects the lifetime policy.
type ScopeStage[T any] struct{ *CompletionStage[T] }

// CompletionStage adds completion hooks and finishes the chain.
type CompletionStage[T any] struct{ d *draft }

// Define starts a definition of *T for c.
//
//	def, err := container.Define[AccountManager](c).
//	    Key(container.KeyFor[Accounts]()).
//	    Type().
//	    Autowire(container.Inject("Storage", func(m *AccountManager, s Storage) { m.Storage = s })).
//	    Scope(container.Singleton).
//	    Completed(func(r container.Resolver, m *AccountManager) error { return m.Load() }).
//	    Commit()
func Define[T any](c *Container) *KeyStage[T] {
	return &KeyStage[T]{d: &draft{
		c:          c,
		typ:        reflect.TypeFor[*T](),
		newStorage: newStorage[T],
	}}
}

// Named qualifies every capability key and alias that has no name of its own.
func (s *KeyStage[T]) Named(name string) *KeyStage[T] {
	s.d.name = name
	return s
}

// Key sets the primary keys. At least one is required.
func (s *KeyStage[T]) Key(first Key, rest ...Key) *ConstructionStage[T] {
	s.d.keys = append([]Key{first}, rest...)
	return &ConstructionStage[T]{d: s.d}
}

// Type produces instances with new(T).
func (s *ConstructionStage[T]) Type() *AliasStage[T] {
	s.d.kind = TypeProducer
	s.d.produce = func(Resolver, any) (any, error) { return new(T), nil }
	return s.next()
}

// Factory produces instances with fn. The resolver passed to fn must be used
// for nested resolutions so the dependency chain is tracked, and must not be
// kept after fn returns. Resolving through a captured *Container instead
// deadlocks once it reaches a shared definition this call is still building.
func (s *ConstructionStage[T]) Factory(fn func(r Resolver) (*T, error)) *AliasStage[T] {
	s.d.kind = FactoryProducer
	s.d.hasFactory = true
	s.d.produce = nil
	if fn != nil {
		s.d.produce = func(r Resolver, _ any) (any, error) {
			v, err := fn(r)
			if err != nil || v == nil {
				return nil, err
			}
			return v, nil
		}
	}
	return s.next()
}

// Constructor is Factory for functions that need no resolver and cannot fail.
func (s *ConstructionStage[T]) Constructor(fn func() *T) *AliasStage[T] {
	if fn == nil {
		return s.Factory(nil)
	}
	return s.Factory(func(Resolver) (*T, error) { return fn(), nil })
}

// FactoryWith produces instances with fn from an argument supplied at
// resolution time. Every key of the definition takes an argument of type A,
// so it is only reachable through ResolveWith. Such definitions are always
// Prototype.
//
//	container.FactoryWith(container.Define[FileModel](c).Key(container.KeyFor[*FileModel]()),
//	    func(_ container.Resolver, path string) (*FileModel, error) { return ParsePath(path), nil },
//	).Commit()
func FactoryWith[T, A any](s *ConstructionStage[T], fn func(r Resolver, arg A) (*T, error)) *AliasStage[T] {
	s.d.kind = FactoryProducer
	s.d.hasFactory = true
	s.d.args = reflect.TypeFor[A]()
	s.d.produce = nil
	if fn != nil {
		s.d.produce = func(r Resolver, arg any) (any, error) {
			a, ok := arg.(A)
			if !ok && arg != nil {
				return nil, fmt.Errorf("%w: want %s, got %T", ErrArgumentMismatch, typeName(reflect.TypeFor[A]()), arg)
			}
			v, err := fn(r, a)
			if err != nil || v == nil {
				return nil, err
			}
			return v, nil
		}
	}
	return s.next()
}

func (s *ConstructionStage[T]) next() *AliasStage[T] {
	cs := &CompletionStage[T]{d: s.d}
	return &AliasStage[T]{&AutowireStage[T]{&ScopeStage[T]{cs}}}
}

// Alias adds one more key.
func (s *AliasStage[T]) Alias(k Key) *AliasStage[T] {
	s.d.aliases = append(s.d.aliases, k)
	return s
}

// Aliases discards previously added aliases and uses ks instead.
func (s *AliasStage[T]) Aliases(ks ...Key) *AutowireStage[T] {
	s.d.aliases = append([]Key(nil), ks...)
	return s.AutowireStage
}

// Autowire adds one property.
func (s *AutowireStage[T]) Autowire(p Property[T]) *AutowireStage[T] {
	s.d.properties = append(s.d.properties, erase(p))
	return s
}

// AutowireAll discards previously added properties and uses ps instead.
func (s *AutowireStage[T]) AutowireAll(ps ...Property[T]) *ScopeStage[T] {
	s.d.properties = make([]property, 0, len(ps))
	for _, p := range ps {
		s.d.properties = append(s.d.properties, erase(p))
	}
	return s.ScopeStage
}

// Scope sets the lifetime policy. Without it the container default applies.
func (s *ScopeStage[T]) Scope(scope Scope) *CompletionStage[T] {
	s.d.scope, s.d.scopeSet = scope, true
	return s.CompletionStage
}

// Completed appends a hook run after construction and autowiring.
func (s *CompletionStage[T]) Completed(fn func(r Resolver, v *T) error) *CompletionStage[T] {
	if fn == nil {
		s.d.hooks = append(s.d.hooks, nil)
		return s
	}
	s.d.hooks = append(s.d.hooks, func(r Resolver, v any) error {
		return fn(r, v.(*T))
	})
	return s
}

// Build validates the chain and returns the Definition without registering
// it. Later calls return the same Definition.
func (s *CompletionStage[T]) Build() (*Definition, error) {
	return s.d.build()
}

// Commit builds the Definition and registers it in the container given to
// Define.
func (s *CompletionStage[T]) Commit() (*Definition, error) {
	def, err := s.d.build()
	if err != nil {
		return nil, err
	}
	if s.d.c == nil {
		return nil, &DefinitionError{Definition: def.Label(), Reason: "no container to commit into"}
	}
	if err := s.d.c.Register(def); err != nil {
		return nil, err
	}
	return def, nil
}

func (s *CompletionStage[T]) draftOf() *draft { return s.d }

// ── Build ─────────────────────────────────────────────────────────────────────

func (d *draft) build() (*Definition, error) {
	if d.built != nil || d.err != nil {
		return d.built, d.err
	}
	d.built, d.err = d.freeze()
	return d.built, d.err
}

func (d *draft) freeze() (*Definition, error) {
	label := typeName(d.typ)
	fail := func(reason string) (*Definition, error) {
		return nil, &DefinitionError{Definition: label, Reason: reason}
	}

	if len(d.keys) == 0 {
		return fail("no key")
	}
	// Only an explicit name qualifies capability keys; a name-only key just
	// labels the definition.
	qualifier := d.name
	name := d.name
	if name == "" {
		for _, k := range d.keys {
			if k.Type == nil && k.Name != "" {
				name = k.Name
				break
			}
		}
	}

	all := make([]Key, 0, len(d.keys)+len(d.aliases))
	seen := make(map[Key]bool, cap(all))
	for _, k := range append(append([]Key(nil), d.keys...), d.aliases...) {
		if k.IsZero() {
			return fail("zero key")
		}
		if k.Type != nil && k.Name == "" && qualifier != "" {
			k = k.WithName(qualifier)
		}
		if d.args != nil {
			if k.Args != nil && k.Args != d.args {
				return fail("key " + k.String() + " takes another argument than the factory")
			}
			k.Args = d.args
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		all = append(all, k)
	}
	label = all[0].String()

	if d.produce == nil {
		if d.hasFactory {
			return fail("nil factory")
		}
		return fail("no producer")
	}
	for _, p := range d.properties {
		if p.key.IsZero() {
			return fail("property " + p.name + " has no key")
		}
		if p.set == nil {
			return fail("property " + p.name + " has no setter")
		}
	}
	for _, h := range d.hooks {
		if h == nil {
			return fail("nil completion hook")
		}
	}

	scope := d.scope
	if !d.scopeSet {
		scope = Prototype
		if d.c != nil && d.args == nil {
			scope = d.c.defaultScope
		}
	}
	if d.args != nil && scope != Prototype {
		return fail("a factory taking an argument must be prototype")
	}

	return &Definition{
		name:       name,
		keys:       all,
		kind:       d.kind,
		typ:        d.typ,
		produce:    d.produce,
		args:       d.args,
		properties: append([]property(nil), d.properties...),
		hooks:      append([]func(Resolver, any) error(nil), d.hooks...),
		scope:      scope,
		newStorage: d.newStorage,
	}, nil
}
