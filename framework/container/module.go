package container

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"
)

// ErrUnknownModule is returned by ModuleRegistry.Load for names nobody registered.
var ErrUnknownModule = errors.New("unknown module")

// ── Module interface ──────────────────────────────────────────────────────────

// Module groups the definitions of one feature area.
//
// Register is called when the module is loaded: immediately for eager modules,
// on first use of a provided key for lazy ones. Boot is called once every
// eager module is registered, so it may resolve anything.
//
//	type StorageModule struct{ container.BaseModule }
//
//	func (StorageModule) Register(c *container.Container) error {
//	    _, err := container.Define[Disk](c).Key(container.KeyFor[Storage]()).Type().
//	        Scope(container.Singleton).Commit()
//	    return err
//	}
type Module interface {
	// Register adds definitions to the container.
	// Do NOT resolve here; use Boot.
	Register(c *Container) error

	// Boot runs after registration of all eager modules.
	Boot(c *Container) error

	// Provides lists the keys a lazy module registers. Resolving any of them
	// loads the module.
	Provides() []Key

	// Priority orders loading and booting; higher goes first.
	Priority() Priority

	// IsLazy reports whether the module waits for first use.
	IsLazy() bool
}

// Terminator is implemented by modules that need to clean up on shutdown.
type Terminator interface {
	Terminate(c *Container) error
}

// BaseModule is an embeddable no-op implementation of everything but Register.
//
//	type MyModule struct{ container.BaseModule }
//	func (m *MyModule) Register(c *container.Container) error { ... }
type BaseModule struct{}

func (BaseModule) Boot(*Container) error { return nil }
func (BaseModule) Provides() []Key        { return nil }
func (BaseModule) Priority() Priority     { return DefaultPriority }
func (BaseModule) IsLazy() bool           { return false }

// ModuleName returns m.Name() when m has one, its type name otherwise.
func ModuleName(m Module) string {
	if n, ok := m.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", m)
}

// ── Priority ──────────────────────────────────────────────────────────────────

// Priority orders modules. The bands leave room for fine tuning with Increase.
type Priority int

const (
	DefaultPriority    Priority = 0
	BusinessPriority   Priority = 1000
	ServicesPriority   Priority = 2000
	FoundationPriority Priority = 3000
	SystemPriority     Priority = 10000
)

// Increase raises p by n without leaving its band. System is unbounded.
//
//	container.ServicesPriority.Increase(10) // 2010
func (p Priority) Increase(n int) Priority {
	n = max(0, n)
	switch {
	case p >= SystemPriority:
		return p + Priority(n)
	case p >= FoundationPriority:
		return p + Priority(min(n, 6999))
	default:
		return p + Priority(min(n, 999))
	}
}

// ── ModuleRegistry ────────────────────────────────────────────────────────────

type moduleState struct {
	module Module
	name   string

	once   sync.Once
	err    error
	loaded bool
	booted bool
}

// ModuleRegistry loads and boots modules into one container.
type ModuleRegistry struct {
	c *Container

	mu      sync.Mutex
	modules []*moduleState
	byName  map[string]*moduleState
	seen    map[Module]bool
	booted  bool
}

// NewModuleRegistry creates a registry bound to c.
func NewModuleRegistry(c *Container) *ModuleRegistry {
	return &ModuleRegistry{
		c:      c,
		byName: make(map[string]*moduleState),
		seen:   make(map[Module]bool),
	}
}

// Register adds a module. Eager modules are registered right away and, when
// the registry is already booted, booted too. Lazy modules are deferred until
// one of their keys is resolved or Load is called. Adding the same module
// twice is a no-op.
func (r *ModuleRegistry) Register(m Module) error {
	r.mu.Lock()
	if r.seen[m] {
		r.mu.Unlock()
		return nil
	}
	r.seen[m] = true
	s := &moduleState{module: m, name: ModuleName(m)}
	r.modules = append(r.modules, s)
	r.byName[s.name] = s
	r.mu.Unlock()

	if m.IsLazy() {
		if keys := m.Provides(); len(keys) > 0 {
			r.c.Defer(func(*Container) error { return r.load(s) }, keys...)
		}
		r.c.logger.Debug("module deferred", zap.String("module", s.name))
		return nil
	}
	return r.load(s)
}

// Load loads the lazy module called name now.
func (r *ModuleRegistry) Load(name string) error {
	r.mu.Lock()
	s, ok := r.byName[name]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModule, name)
	}
	return r.load(s)
}

func (r *ModuleRegistry) load(s *moduleState) error {
	s.once.Do(func() {
		if err := s.module.Register(r.c); err != nil {
			s.err = fmt.Errorf("register module %s: %w", s.name, err)
			return
		}
		r.mu.Lock()
		s.loaded = true
		booted := r.booted
		r.mu.Unlock()
		r.c.logger.Debug("module registered",
			zap.String("module", s.name),
			zap.Int("priority", int(s.module.Priority())),
			zap.Bool("lazy", s.module.IsLazy()),
		)
		if booted {
			s.err = r.boot(s)
		}
	})
	return s.err
}

func (r *ModuleRegistry) boot(s *moduleState) error {
	if err := s.module.Boot(r.c); err != nil {
		return fmt.Errorf("boot module %s: %w", s.name, err)
	}
	r.mu.Lock()
	s.booted = true
	r.mu.Unlock()
	return nil
}

// Boot boots every loaded module by priority. Later calls are no-ops.
func (r *ModuleRegistry) Boot() error {
	r.mu.Lock()
	if r.booted {
		r.mu.Unlock()
		return nil
	}
	r.booted = true
	pending := make([]*moduleState, 0, len(r.modules))
	for _, s := range r.ordered() {
		if s.loaded && !s.booted {
			pending = append(pending, s)
		}
	}
	r.mu.Unlock()

	for _, s := range pending {
		if err := r.boot(s); err != nil {
			return err
		}
	}
	return nil
}

// Booted reports whether Boot has been called.
func (r *ModuleRegistry) Booted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.booted
}

// Modules returns every module, eager before lazy, higher priority first.
func (r *ModuleRegistry) Modules() []Module {
	r.mu.Lock()
	defer r.mu.Unlock()
	ordered := r.ordered()
	out := make([]Module, len(ordered))
	for i, s := range ordered {
		out[i] = s.module
	}
	return out
}

// Loaded reports whether the module called name has been registered into the
// container.
func (r *ModuleRegistry) Loaded(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byName[name]
	return ok && s.loaded
}

// Shutdown terminates loaded modules in reverse boot order.
func (r *ModuleRegistry) Shutdown() error {
	r.mu.Lock()
	var loaded []*moduleState
	for _, s := range r.ordered() {
		if s.loaded {
			loaded = append(loaded, s)
		}
	}
	r.mu.Unlock()

	var errs []error
	for _, s := range slices.Backward(loaded) {
		t, ok := s.module.(Terminator)
		if !ok {
			continue
		}
		if err := t.Terminate(r.c); err != nil {
			errs = append(errs, fmt.Errorf("terminate module %s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

// ordered must be called with mu held.
func (r *ModuleRegistry) ordered() []*moduleState {
	out := slices.Clone(r.modules)
	slices.SortStableFunc(out, func(a, b *moduleState) int {
		la, lb := a.module.IsLazy(), b.module.IsLazy()
		switch {
		case la != lb && lb:
			return -1
		case la != lb:
			return 1
		}
		return int(b.module.Priority()) - int(a.module.Priority())
	})
	return out
}
