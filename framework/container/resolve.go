package container

import (
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
)

// Resolver looks up instances. *Container implements it, and factories and
// completion hooks receive one that also tracks the current dependency chain.
type Resolver interface {
	Resolve(key Key) (any, error)
	ResolveNamed(capability Key, name string) (any, error)
	ResolveWith(key Key, arg any) (any, error)
}

// ── Resolution state ──────────────────────────────────────────────────────────

// pathNode is one link of the definitions being built by the current call,
// innermost first.
type pathNode struct {
	def    *Definition
	parent *pathNode
}

func (n *pathNode) contains(def *Definition) bool {
	for ; n != nil; n = n.parent {
		if n.def == def {
			return true
		}
	}
	return false
}

// defs returns the chain outermost first.
func (n *pathNode) defs() []*Definition {
	var out []*Definition
	for ; n != nil; n = n.parent {
		out = append(out, n.def)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// chain identifies one top-level resolution. waiting is the entry it is
// blocked on, guarded by build.mu.
type chain struct {
	waiting *entry
}

// waitsOn reports whether the goroutine behind from is, through the entries
// it waits on, blocked by target.
func waitsOn(from, target *chain) bool {
	seen := make(map[*chain]bool)
	for cur := from; cur != nil && !seen[cur]; {
		if cur == target {
			return true
		}
		seen[cur] = true
		if cur.waiting == nil {
			return false
		}
		cur = cur.waiting.owner
	}
	return false
}

// argument is the runtime argument of one resolution. A nil *argument means
// the caller passed none.
type argument struct{ v any }

// resolution is the Resolver handed to factories and hooks.
type resolution struct {
	c     *Container
	path  *pathNode
	chain *chain
}

func (r *resolution) Resolve(key Key) (any, error) {
	return r.c.resolve(r.chain, r.path, key, nil)
}

func (r *resolution) ResolveNamed(capability Key, name string) (any, error) {
	return r.c.resolve(r.chain, r.path, capability.WithName(name), nil)
}

func (r *resolution) ResolveWith(key Key, arg any) (any, error) {
	return r.c.resolve(r.chain, r.path, key, &argument{v: arg})
}

// ── Resolution ────────────────────────────────────────────────────────────────

// Resolve returns the instance registered under key.
func (c *Container) Resolve(key Key) (any, error) {
	return c.resolve(&chain{}, nil, key, nil)
}

// ResolveNamed returns the instance registered under capability qualified by
// name.
func (c *Container) ResolveNamed(capability Key, name string) (any, error) {
	return c.resolve(&chain{}, nil, capability.WithName(name), nil)
}

// ResolveWith builds a fresh instance of the definition registered under key,
// passing arg to its factory. key must carry the argument type, see WithArgs.
func (c *Container) ResolveWith(key Key, arg any) (any, error) {
	return c.resolve(&chain{}, nil, key, &argument{v: arg})
}

func (c *Container) resolve(ch *chain, path *pathNode, key Key, arg *argument) (any, error) {
	def, owner, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return owner.instance(ch, path, def, arg)
}

func (c *Container) instance(ch *chain, path *pathNode, def *Definition, arg *argument) (any, error) {
	start := time.Now()
	v, err := c.obtain(ch, path, def, arg)
	if c.observer != nil {
		c.observer.Resolved(def, time.Since(start), err)
	}
	return v, err
}

func (c *Container) obtain(ch *chain, path *pathNode, def *Definition, arg *argument) (any, error) {
	switch {
	case def.args != nil && arg == nil:
		return nil, fmt.Errorf("%w: %s needs a %s argument", ErrArgumentMismatch, def.Label(), typeName(def.args))
	case def.args == nil && arg != nil:
		return nil, fmt.Errorf("%w: %s takes no argument", ErrArgumentMismatch, def.Label())
	}
	if path.contains(def) {
		return nil, circular(path, def)
	}
	next := &pathNode{def: def, parent: path}
	if def.scope == Prototype {
		var v any
		if arg != nil {
			v = arg.v
		}
		return c.construct(ch, next, def, v)
	}

	b := c.build
	b.mu.Lock()
	for {
		e := c.entryFor(def)
		switch e.state {
		case Ready:
			if v, ok := e.store.load(); ok {
				b.mu.Unlock()
				return v, nil
			}
			e.state = Empty
			c.logger.Debug("weak instance reclaimed", zap.String("definition", def.Label()))

		case Building:
			if e.owner == ch || waitsOn(e.owner, ch) {
				b.mu.Unlock()
				return nil, circular(path, def)
			}
			ch.waiting = e
			b.cond.Wait()
			ch.waiting = nil

		case Empty:
			e.state, e.owner = Building, ch
			b.mu.Unlock()
			return c.fill(ch, next, def, e)
		}
	}
}

// fill builds def into e. The entry is settled even if construction panics.
// An instance finished after Close is not cached; if it is strongly owned
// and an io.Closer it is closed here instead.
func (c *Container) fill(ch *chain, path *pathNode, def *Definition, e *entry) (v any, err error) {
	done := false
	defer func() {
		var orphan any
		b := c.build
		b.mu.Lock()
		e.owner = nil
		c.mu.RLock()
		closed := c.closed
		c.mu.RUnlock()
		switch {
		case done && err == nil && !closed:
			e.store.store(v)
			e.state = Ready
			b.seq++
			e.seq = b.seq
		default:
			if done && err == nil && e.store.strong() {
				orphan = v
			}
			e.store.clear()
			e.state = Empty
		}
		b.cond.Broadcast()
		b.mu.Unlock()

		if done && err == nil && closed {
			err = fmt.Errorf("%w: %s finished building after close", ErrContainerClosed, def.Label())
			if closer, ok := orphan.(io.Closer); ok {
				err = errors.Join(err, closer.Close())
			}
			v = nil
		}
	}()
	v, err = c.construct(ch, path, def, nil)
	done = true
	return v, err
}

// construct runs producer, autowiring and hooks, in that order.
func (c *Container) construct(ch *chain, path *pathNode, def *Definition, arg any) (any, error) {
	r := &resolution{c: c, path: path, chain: ch}

	v, err := def.produce(r, arg)
	if err != nil {
		return nil, &ConstructionError{Definition: def.Label(), Stage: "produce", Err: err}
	}
	if v == nil {
		return nil, &ConstructionError{Definition: def.Label(), Stage: "produce", Err: ErrNilInstance}
	}

	for _, p := range def.properties {
		dep, owner, err := c.lookup(p.key)
		if err != nil {
			if errors.Is(err, ErrNotRegistered) {
				return nil, &DependencyNotFoundError{Definition: def.Label(), Property: p.name, Key: p.key}
			}
			return nil, err
		}
		value, err := owner.instance(ch, path, dep, nil)
		if err != nil {
			return nil, err
		}
		if err := p.set(v, value); err != nil {
			return nil, &ConstructionError{Definition: def.Label(), Stage: "autowire", Err: err}
		}
	}

	for _, hook := range def.hooks {
		if err := hook(r, v); err != nil {
			return nil, &ConstructionError{Definition: def.Label(), Stage: "completion", Err: err}
		}
	}

	c.logger.Debug("instance built",
		zap.String("definition", def.Label()),
		zap.String("scope", def.scope.String()),
	)
	if c.observer != nil {
		c.observer.Built(def)
	}
	return v, nil
}

func circular(path *pathNode, def *Definition) error {
	defs := append(path.defs(), def)
	return fmt.Errorf("%w: %s", ErrCircularDependency, chainString(defs))
}

// ── Generics helpers ──────────────────────────────────────────────────────────

// Resolve returns the instance registered under the capability key of T.
//
//	accounts, err := container.Resolve[Accounts](c)
func Resolve[T any](r Resolver) (T, error) {
	return ResolveKey[T](r, KeyFor[T]())
}

// ResolveNamed returns the instance registered under the capability key of T
// qualified by name.
//
//	home, err := container.ResolveNamed[Page](c, "home")
func ResolveNamed[T any](r Resolver, name string) (T, error) {
	return ResolveKey[T](r, NamedKeyFor[T](name))
}

// ResolveKey returns the instance registered under key as a T.
func ResolveKey[T any](r Resolver, key Key) (T, error) {
	var zero T
	v, err := r.Resolve(key)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: [%s] resolved to %T, want %s", ErrTypeMismatch, key, v, typeName(KeyFor[T]().Type))
	}
	return typed, nil
}

// ResolveWith builds a fresh instance from the definition registered under
// the capability key of T for arguments of type A.
//
//	file, err := container.ResolveWith[*FileModel](c, "/a/b/c.mp4")
func ResolveWith[T, A any](r Resolver, arg A) (T, error) {
	return ResolveKeyWith[T](r, WithArgs[A](KeyFor[T]()), arg)
}

// ResolveNamedWith is ResolveWith for a named capability key.
func ResolveNamedWith[T, A any](r Resolver, name string, arg A) (T, error) {
	return ResolveKeyWith[T](r, WithArgs[A](NamedKeyFor[T](name)), arg)
}

// ResolveKeyWith resolves key with arg and returns the instance as a T.
func ResolveKeyWith[T any](r Resolver, key Key, arg any) (T, error) {
	var zero T
	v, err := r.ResolveWith(key, arg)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: [%s] resolved to %T, want %s", ErrTypeMismatch, key, v, typeName(KeyFor[T]().Type))
	}
	return typed, nil
}

// MustResolve is Resolve that panics on error. Use it in composition roots.
func MustResolve[T any](r Resolver) T {
	v, err := Resolve[T](r)
	if err != nil {
		panic(fmt.Sprintf("container: MustResolve[%s]: %v", typeName(KeyFor[T]().Type), err))
	}
	return v
}
