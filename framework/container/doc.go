// Package container provides the object context: a dependency-injection
// container with staged definitions, scoped lifetimes, autowiring and modules.
//
// # Overview
//
// A Definition describes one object: the keys it answers to, how it is
// produced, which properties are injected from the same container, its scope
// and the hooks run once it is complete. Definitions are written with a staged
// builder whose types only allow the stages in order.
//
// Go has no runtime constructor reflection, so producers are either new(T) or
// an explicit factory, and autowiring uses typed setter functions.
//
// # Container Lifecycle
//
//  1. Create: c := container.New(container.WithLogger(log))
//  2. Register definitions or modules: registry.Register(&StorageModule{})
//  3. Boot: registry.Boot(), after which everything may be resolved
//  4. Resolve
//  5. Close: c.Close() closes Singleton io.Closers
//
// # Definitions
//
//	// Prototype: a new instance on every Resolve
//	container.Define[FileModel](c).
//	    Key(container.KeyFor[*FileModel]()).
//	    Type().
//	    Commit()
//
//	// Prototype built from an argument given at resolution time
//	container.FactoryWith(
//	    container.Define[FileModel](c).Key(container.KeyFor[*FileModel]()),
//	    func(_ container.Resolver, path string) (*FileModel, error) { return ParsePath(path), nil },
//	).Commit()
//
//	// Singleton built by a factory, also reachable through an alias
//	container.Define[Disk](c).
//	    Key(container.KeyFor[Storage]()).
//	    Factory(func(r container.Resolver) (*Disk, error) {
//	        cfg, err := container.Resolve[*config.Config](r)
//	        if err != nil {
//	            return nil, err
//	        }
//	        return OpenDisk(cfg.App.Root)
//	    }).
//	    Alias(container.KeyFor[io.Closer]()).
//	    Scope(container.Singleton).
//	    Commit()
//
//	// Autowired properties and a completion hook
//	container.Define[AccountManager](c).
//	    Key(container.KeyFor[Accounts]()).
//	    Type().
//	    Autowire(container.Inject("Storage", func(m *AccountManager, s Storage) { m.Storage = s })).
//	    Scope(container.SingletonWeak).
//	    Completed(func(_ container.Resolver, m *AccountManager) error { return m.Load() }).
//	    Commit()
//
// # Scopes
//
//   - Prototype: nothing is cached.
//   - Singleton: built once, owned by the container until released.
//   - SingletonWeak: built once and observed through a weak pointer. When
//     the program drops every reference the next Resolve builds a new one.
//     Zero-size types and small pointer-free types served by the tiny
//     allocator are never reclaimed, so for them SingletonWeak behaves like
//     Singleton without Close.
//
// Shared scopes are built at most once at a time: concurrent callers wait
// for the builder and receive its instance. A failed build caches nothing.
//
// # Resolving
//
//	raw, err := c.Resolve(container.KeyFor[Storage]())
//
//	// Generic
//	accounts, err := container.Resolve[Accounts](c)
//	home, err := container.ResolveNamed[Page](c, "home")
//
//	// Definitions built by FactoryWith need their argument
//	file, err := container.ResolveWith[*FileModel](c, "/a/b/c.mp4")
//
// A Definition that is needed again while it is being built fails with
// ErrCircularDependency and the chain, for example "A -> B -> A".
//
// Factories and completion hooks must resolve through the Resolver they are
// given. Resolving a shared definition that is still being built through a
// captured *Container is not tracked as part of the chain: it waits for the
// build it belongs to and deadlocks.
//
// Named qualifies the capability keys of a definition that carry no name of
// their own. A name-only key such as NameKey("home") names the definition for
// ReleaseName and listings but leaves the other keys as given.
//
// # Groups and Configurations
//
//	container.Group(c,
//	    container.Define[HomePage](c).Named("home").Key(container.KeyFor[*HomePage]()).Type(),
//	    container.Define[FilePage](c).Named("file").Key(container.KeyFor[*FilePage]()).Type(),
//	).Alias(container.KeyFor[Page]()).Commit()
//
// # Modules
//
//	type StorageModule struct{ container.BaseModule }
//
//	func (StorageModule) IsLazy() bool              { return true }
//	func (StorageModule) Provides() []container.Key { return []container.Key{container.KeyFor[Storage]()} }
//	func (StorageModule) Register(c *container.Container) error {
//	    _, err := container.Define[Disk](c).Key(container.KeyFor[Storage]()).Type().Commit()
//	    return err // only called on first Resolve of Storage
//	}
package container
