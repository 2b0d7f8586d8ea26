package container

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ── Container ─────────────────────────────────────────────────────────────────

// Container is the object context: it maps keys to Definitions and caches the
// instances of shared scopes.
//
// It supports:
//   - Register / Configure / Group
//   - Resolve / ResolveNamed and the generic helpers
//   - Prototype, Singleton and SingletonWeak scopes
//   - Autowired properties and completion hooks
//   - Release by scope or name, Clean and Close
//   - Lazy registration through Defer, used by lazy modules
//   - Child containers falling back to their parent
type Container struct {
	mu sync.RWMutex

	// key → definition; aliases point at the same *Definition
	registry map[Key]*Definition

	// registration order, for listing
	defs []*Definition

	// key → loader registering that key on first use
	deferred map[Key]*deferral

	closed bool

	// shared with child containers
	build *buildSync

	// guarded by build.mu
	entries map[*Definition]*entry

	parent *Container

	logger       *zap.Logger
	defaultScope Scope
	conflicts    ConflictPolicy
	observer     Observer
}

// buildSync coordinates construct-once builds. One instance is shared by a
// container and all of its children so that wait-for chains can be walked
// across them.
type buildSync struct {
	mu   sync.Mutex
	cond *sync.Cond
	seq  uint64
}

// entry is the cache slot of a shared Definition.
type entry struct {
	state State
	store storage
	owner *chain
	seq   uint64
}

type deferral struct {
	once sync.Once
	fn   func(*Container) error
	err  error
}

// New creates an empty container.
func New(opts ...Option) *Container {
	c := &Container{
		registry: make(map[Key]*Definition),
		deferred: make(map[Key]*deferral),
		entries:  make(map[*Definition]*entry),
		logger:   zap.NewNop(),
	}
	c.build = &buildSync{}
	c.build.cond = sync.NewCond(&c.build.mu)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Child creates a container whose unknown keys are looked up in c.
// Definitions found in c are built and cached by c.
func (c *Container) Child(opts ...Option) *Container {
	child := &Container{
		registry:     make(map[Key]*Definition),
		deferred:     make(map[Key]*deferral),
		entries:      make(map[*Definition]*entry),
		build:        c.build,
		parent:       c,
		logger:       c.logger,
		defaultScope: c.defaultScope,
		conflicts:    c.conflicts,
		observer:     c.observer,
	}
	for _, opt := range opts {
		opt(child)
	}
	return child
}

// Parent returns the container c falls back to, or nil.
func (c *Container) Parent() *Container { return c.parent }

// Logger returns the container logger.
func (c *Container) Logger() *zap.Logger { return c.logger }

// DefaultScope returns the scope used by definitions that do not pick one.
func (c *Container) DefaultScope() Scope { return c.defaultScope }

// ── Registration ──────────────────────────────────────────────────────────────

// Register makes def resolvable under every one of its keys.
//
// Registering the same Definition twice is a no-op. A key held by another
// Definition is rejected with a *KeyConflictError unless the container was
// created with WithConflictPolicy(ReplaceConflicts).
func (c *Container) Register(def *Definition) error {
	if def == nil {
		return &DefinitionError{Definition: "<nil>", Reason: "nil definition"}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrContainerClosed
	}

	claimed := def.owner.CompareAndSwap(nil, c)
	if !claimed && def.owner.Load() != c {
		return fmt.Errorf("%w: %s", ErrForeignDefinition, def.Label())
	}

	if c.conflicts == RejectConflicts {
		for _, k := range def.keys {
			if held, ok := c.registry[k]; ok && held != def {
				if claimed {
					def.owner.Store(nil)
				}
				return &KeyConflictError{Key: k, Existing: held.Label(), Incoming: def.Label()}
			}
		}
	}

	added := false
	displaced := make(map[*Definition]bool)
	for _, k := range def.keys {
		held, ok := c.registry[k]
		if ok && held == def {
			continue
		}
		if ok {
			displaced[held] = true
			c.logger.Warn("definition replaced",
				zap.String("key", k.String()),
				zap.String("existing", held.Label()),
				zap.String("incoming", def.Label()),
			)
		}
		c.registry[k] = def
		added = true
	}
	if !added {
		return nil
	}

	if !slices.Contains(c.defs, def) {
		c.defs = append(c.defs, def)
	}
	for held := range displaced {
		if !c.holdsAnyKey(held) {
			c.defs = slices.DeleteFunc(c.defs, func(d *Definition) bool { return d == held })
		}
	}

	c.logger.Debug("definition registered",
		zap.Strings("keys", keyStrings(def.keys)),
		zap.String("scope", def.scope.String()),
		zap.String("producer", def.kind.String()),
	)
	return nil
}

// holdsAnyKey must be called with mu held.
func (c *Container) holdsAnyKey(def *Definition) bool {
	for _, k := range def.keys {
		if c.registry[k] == def {
			return true
		}
	}
	return false
}

// Defer registers fn to run the first time any of keys is looked up and not
// yet registered. fn normally registers those keys. It runs at most once,
// and its error is returned to every lookup of those keys.
func (c *Container) Defer(fn func(*Container) error, keys ...Key) {
	d := &deferral{fn: fn}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		c.deferred[k] = d
	}
}

func (d *deferral) load(c *Container) error {
	d.once.Do(func() { d.err = d.fn(c) })
	return d.err
}

// ── Lookup ────────────────────────────────────────────────────────────────────

// lookup finds the Definition for key and the container that owns its cache,
// running deferred loaders and walking up to the parent on a miss.
func (c *Container) lookup(key Key) (*Definition, *Container, error) {
	for cur := c; cur != nil; cur = cur.parent {
		def, err := cur.local(key)
		if err != nil {
			return nil, nil, err
		}
		if def != nil {
			return def, cur, nil
		}
	}
	if c.logger.Core().Enabled(zap.DebugLevel) {
		c.logger.Debug("key not registered",
			zap.String("key", key.String()),
			zap.Strings("resolvable", c.Describe()),
		)
	}
	return nil, nil, fmt.Errorf("%w: [%s]", ErrNotRegistered, key)
}

func (c *Container) local(key Key) (*Definition, error) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return nil, ErrContainerClosed
	}
	def, ok := c.registry[key]
	d := c.deferred[key]
	c.mu.RUnlock()

	if ok {
		return def, nil
	}
	if d == nil {
		return nil, nil
	}
	if err := d.load(c); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.registry[key], nil
}

// peek is lookup without deferred loading or logging.
func (c *Container) peek(key Key) (*Definition, *Container) {
	for cur := c; cur != nil; cur = cur.parent {
		cur.mu.RLock()
		def, ok := cur.registry[key]
		cur.mu.RUnlock()
		if ok {
			return def, cur
		}
	}
	return nil, nil
}

// ── Introspection ─────────────────────────────────────────────────────────────

// Has reports whether key is registered here, deferred here, or known to a parent.
func (c *Container) Has(key Key) bool {
	for cur := c; cur != nil; cur = cur.parent {
		cur.mu.RLock()
		_, ok := cur.registry[key]
		_, deferred := cur.deferred[key]
		cur.mu.RUnlock()
		if ok || deferred {
			return true
		}
	}
	return false
}

// State returns the cache state of the Definition behind key. Prototype
// definitions and unknown keys are always Empty.
func (c *Container) State(key Key) State {
	def, owner := c.peek(key)
	if def == nil {
		return Empty
	}
	return owner.stateOf(def)
}

// StateOf returns the cache state of def in the container that owns it,
// whichever keys it still answers to. Unregistered definitions are Empty.
func (c *Container) StateOf(def *Definition) State {
	owner := def.owner.Load()
	if owner == nil {
		return Empty
	}
	return owner.stateOf(def)
}

func (c *Container) stateOf(def *Definition) State {
	if def.scope == Prototype {
		return Empty
	}
	b := c.build
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := c.entries[def]
	if !ok {
		return Empty
	}
	if e.state == Ready {
		if _, alive := e.store.load(); !alive {
			return Empty
		}
	}
	return e.state
}

// Definitions returns the definitions registered in c, in registration order.
func (c *Container) Definitions() []*Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*Definition(nil), c.defs...)
}

// Keys returns every key registered in c, sorted by their string form.
func (c *Container) Keys() []Key {
	c.mu.RLock()
	keys := make([]Key, 0, len(c.registry))
	for k := range c.registry {
		keys = append(keys, k)
	}
	c.mu.RUnlock()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// Describe lists every resolvable key with what it produces, parents
// included, sorted.
//
//	[github.com/km-arc/go-carbon/cmd/netdisk.Accounts] => *main.AccountManager (type, singleton)
func (c *Container) Describe() []string {
	var out []string
	seen := make(map[Key]bool)
	for cur := c; cur != nil; cur = cur.parent {
		cur.mu.RLock()
		for k, def := range cur.registry {
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, fmt.Sprintf("[%s] => %s (%s, %s)", k, typeName(def.typ), def.kind, def.scope))
		}
		cur.mu.RUnlock()
	}
	sort.Strings(out)
	return out
}

// ── Release ───────────────────────────────────────────────────────────────────

// ReleaseScope drops the cached instances of every definition in scope s.
func (c *Container) ReleaseScope(s Scope) {
	c.release(func(d *Definition) bool { return d.scope == s })
}

// ReleaseName drops the cached instances of definitions named name.
func (c *Container) ReleaseName(name string) {
	c.release(func(d *Definition) bool { return d.name == name })
}

// ReleaseAll drops every cached instance. Definitions stay registered.
func (c *Container) ReleaseAll() {
	c.release(func(*Definition) bool { return true })
}

func (c *Container) release(match func(*Definition) bool) {
	b := c.build
	b.mu.Lock()
	defer b.mu.Unlock()
	for def, e := range c.entries {
		if e.state != Ready || !match(def) {
			continue
		}
		e.store.clear()
		e.state = Empty
		c.logger.Debug("instance released", zap.String("definition", def.Label()))
	}
}

// Clean removes every definition and cached instance.
func (c *Container) Clean() {
	c.mu.Lock()
	c.registry = make(map[Key]*Definition)
	c.deferred = make(map[Key]*deferral)
	for _, def := range c.defs {
		def.owner.CompareAndSwap(c, nil)
	}
	c.defs = nil
	c.mu.Unlock()

	b := c.build
	b.mu.Lock()
	c.entries = make(map[*Definition]*entry)
	b.mu.Unlock()
}

// Close releases every cached instance and closes the Singleton instances
// implementing io.Closer, most recently built first. The container refuses
// registrations and resolutions afterwards.
func (c *Container) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	type built struct {
		def *Definition
		v   any
		seq uint64
	}
	var owned []built

	b := c.build
	b.mu.Lock()
	for def, e := range c.entries {
		if e.state != Ready {
			continue
		}
		if v, ok := e.store.load(); ok && e.store.strong() {
			owned = append(owned, built{def: def, v: v, seq: e.seq})
		}
		e.store.clear()
		e.state = Empty
	}
	b.mu.Unlock()

	sort.Slice(owned, func(i, j int) bool { return owned[i].seq > owned[j].seq })

	var errs []error
	for _, o := range owned {
		closer, ok := o.v.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", o.def.Label(), err))
		}
	}
	c.logger.Debug("container closed", zap.Int("released", len(owned)))
	return errors.Join(errs...)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// entryFor must be called with build.mu held.
func (c *Container) entryFor(def *Definition) *entry {
	e, ok := c.entries[def]
	if !ok {
		e = &entry{store: def.newStorage(def.scope)}
		c.entries[def] = e
	}
	return e
}

func chainString(defs []*Definition) string {
	parts := make([]string, len(defs))
	for i, d := range defs {
		parts[i] = d.Label()
	}
	return strings.Join(parts, " -> ")
}
