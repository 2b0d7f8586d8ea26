package container_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-carbon/framework/container"
)

func accountsDefinition(c *container.Container, scope container.Scope) *container.CompletionStage[AccountManager] {
	return container.Define[AccountManager](c).
		Key(container.KeyFor[Accounts]()).
		Constructor(func() *AccountManager { return &AccountManager{user: "alice"} }).
		Autowire(container.Inject("Storage", func(m *AccountManager, s Storage) { m.Storage = s })).
		Scope(scope)
}

// ── Autowiring ────────────────────────────────────────────────────────────────

func TestAutowire_InjectsFromSameContainer(t *testing.T) {
	c := container.New()
	mustCommit(t, diskDefinition(c, "/data", container.Singleton))
	mustCommit(t, accountsDefinition(c, container.Prototype))

	accounts, err := container.Resolve[Accounts](c)
	require.NoError(t, err)

	m := accounts.(*AccountManager)
	require.NotNil(t, m.Storage)
	assert.Equal(t, "/data", m.Storage.Root())

	disk, err := container.Resolve[Storage](c)
	require.NoError(t, err)
	assert.Same(t, disk, m.Storage, "singleton dependency is shared")
}

func TestAutowire_MissingDependencyThenSuccess(t *testing.T) {
	c := container.New()
	mustCommit(t, accountsDefinition(c, container.Singleton))

	_, err := container.Resolve[Accounts](c)
	require.ErrorIs(t, err, container.ErrDependencyNotFound)

	var dnf *container.DependencyNotFoundError
	require.ErrorAs(t, err, &dnf)
	assert.Equal(t, "Storage", dnf.Property)
	assert.Equal(t, container.KeyFor[Storage](), dnf.Key)
	assert.Equal(t, container.Empty, c.State(container.KeyFor[Accounts]()), "nothing partial is cached")

	mustCommit(t, diskDefinition(c, "/data", container.Singleton))

	accounts, err := container.Resolve[Accounts](c)
	require.NoError(t, err)
	assert.Equal(t, "/data", accounts.(*AccountManager).Storage.Root())
}

func TestAutowire_NamedKey(t *testing.T) {
	c := container.New()
	mustCommit(t, container.Define[Disk](c).
		Key(container.NamedKeyFor[Storage]("backup")).
		Constructor(func() *Disk { return &Disk{root: "/backup"} }))
	mustCommit(t, container.Define[AccountManager](c).
		Key(container.KeyFor[Accounts]()).
		Type().
		Autowire(container.InjectKey("Backup", container.NamedKeyFor[Storage]("backup"),
			func(m *AccountManager, s Storage) { m.Storage = s })))

	accounts, err := container.Resolve[Accounts](c)
	require.NoError(t, err)
	assert.Equal(t, "/backup", accounts.(*AccountManager).Storage.Root())
}

func TestAutowire_TypeMismatch(t *testing.T) {
	c := container.New()
	mustCommit(t, container.Define[HomePage](c).Key(container.NameKey("storage")).Type())
	mustCommit(t, container.Define[AccountManager](c).
		Key(container.KeyFor[Accounts]()).
		Type().
		Autowire(container.InjectKey("Storage", container.NameKey("storage"),
			func(m *AccountManager, s Storage) { m.Storage = s })))

	_, err := container.Resolve[Accounts](c)
	require.ErrorIs(t, err, container.ErrTypeMismatch)

	var ce *container.ConstructionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "autowire", ce.Stage)
}

// ── Completion hooks ──────────────────────────────────────────────────────────

func TestCompleted_RunsAfterAutowireInOrder(t *testing.T) {
	c := container.New()
	mustCommit(t, diskDefinition(c, "/data", container.Singleton))

	var order []string
	mustCommit(t, accountsDefinition(c, container.Singleton).
		Completed(func(_ container.Resolver, m *AccountManager) error {
			require.NotNil(t, m.Storage, "properties are set before hooks")
			order = append(order, "first")
			m.loads++
			return nil
		}).
		Completed(func(_ container.Resolver, m *AccountManager) error {
			order = append(order, "second")
			return nil
		}))

	accounts, err := container.Resolve[Accounts](c)
	require.NoError(t, err)
	_, err = container.Resolve[Accounts](c)
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, order, "hooks run once per build")
	assert.Equal(t, 1, accounts.(*AccountManager).loads)
}

func TestCompleted_HookResolvesThroughResolver(t *testing.T) {
	c := container.New()
	mustCommit(t, diskDefinition(c, "/data", container.Singleton))
	mustCommit(t, container.Define[AccountManager](c).
		Key(container.KeyFor[Accounts]()).
		Type().
		Completed(func(r container.Resolver, m *AccountManager) error {
			s, err := container.Resolve[Storage](r)
			if err != nil {
				return err
			}
			m.Storage = s
			return nil
		}))

	accounts, err := container.Resolve[Accounts](c)
	require.NoError(t, err)
	assert.Equal(t, "/data", accounts.(*AccountManager).Storage.Root())
}

func TestCompleted_ErrorRollsBack(t *testing.T) {
	c := container.New()
	fail := true
	mustCommit(t, container.Define[Disk](c).
		Key(container.KeyFor[Storage]()).
		Type().
		Scope(container.Singleton).
		Completed(func(container.Resolver, *Disk) error {
			if fail {
				return errBoom
			}
			return nil
		}))

	_, err := container.Resolve[Storage](c)
	require.ErrorIs(t, err, errBoom)
	require.ErrorIs(t, err, container.ErrConstruction)

	var ce *container.ConstructionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "completion", ce.Stage)
	assert.Equal(t, container.Empty, c.State(container.KeyFor[Storage]()))

	fail = false
	_, err = container.Resolve[Storage](c)
	require.NoError(t, err)
	assert.Equal(t, container.Ready, c.State(container.KeyFor[Storage]()))
}

// ── Producer failures ─────────────────────────────────────────────────────────

func TestFactory_Error(t *testing.T) {
	c := container.New()
	mustCommit(t, container.Define[Disk](c).
		Key(container.KeyFor[Storage]()).
		Factory(func(container.Resolver) (*Disk, error) { return nil, errBoom }).
		Scope(container.Singleton))

	_, err := container.Resolve[Storage](c)
	require.ErrorIs(t, err, errBoom)

	var ce *container.ConstructionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "produce", ce.Stage)
	assert.Contains(t, ce.Definition, "Storage")
}

func TestFactory_NilInstance(t *testing.T) {
	c := container.New()
	mustCommit(t, container.Define[Disk](c).
		Key(container.KeyFor[Storage]()).
		Factory(func(container.Resolver) (*Disk, error) { return nil, nil }))

	_, err := container.Resolve[Storage](c)
	require.ErrorIs(t, err, container.ErrNilInstance)
}

func TestFactory_ResolvesDependencies(t *testing.T) {
	c := container.New()
	mustCommit(t, diskDefinition(c, "/data", container.Singleton))
	mustCommit(t, container.Define[AccountManager](c).
		Key(container.KeyFor[Accounts]()).
		Factory(func(r container.Resolver) (*AccountManager, error) {
			s, err := container.Resolve[Storage](r)
			if err != nil {
				return nil, err
			}
			return &AccountManager{Storage: s, user: "bob"}, nil
		}))

	accounts, err := container.Resolve[Accounts](c)
	require.NoError(t, err)
	assert.Equal(t, "bob", accounts.Current())
}

// ── Cycles ────────────────────────────────────────────────────────────────────

func TestCycle_AutowiredSingletons(t *testing.T) {
	c := container.New()
	mustCommit(t, container.Define[A](c).
		Key(container.NameKey("A")).
		Type().
		Autowire(container.InjectKey("B", container.NameKey("B"), func(a *A, b *B) { a.B = b })).
		Scope(container.Singleton))
	mustCommit(t, container.Define[B](c).
		Key(container.NameKey("B")).
		Type().
		Autowire(container.InjectKey("A", container.NameKey("A"), func(b *B, a *A) { b.A = a })).
		Scope(container.Singleton))

	_, err := c.Resolve(container.NameKey("A"))
	require.ErrorIs(t, err, container.ErrCircularDependency)
	assert.Contains(t, err.Error(), "A -> B -> A")

	assert.Equal(t, container.Empty, c.State(container.NameKey("A")))
	assert.Equal(t, container.Empty, c.State(container.NameKey("B")))
}

func TestCycle_PrototypeFactories(t *testing.T) {
	c := container.New()
	mustCommit(t, container.Define[A](c).
		Key(container.NameKey("A")).
		Factory(func(r container.Resolver) (*A, error) {
			b, err := container.ResolveKey[*B](r, container.NameKey("B"))
			return &A{B: b}, err
		}))
	mustCommit(t, container.Define[B](c).
		Key(container.NameKey("B")).
		Factory(func(r container.Resolver) (*B, error) {
			a, err := container.ResolveKey[*A](r, container.NameKey("A"))
			return &B{A: a}, err
		}))

	_, err := c.Resolve(container.NameKey("B"))
	require.ErrorIs(t, err, container.ErrCircularDependency)
	assert.Contains(t, err.Error(), "B -> A -> B")
}

func TestCycle_SelfThroughAlias(t *testing.T) {
	c := container.New()
	mustCommit(t, container.Define[A](c).
		Key(container.NameKey("A")).
		Type().
		Alias(container.NameKey("alias")).
		Autowire(container.InjectKey("Self", container.NameKey("alias"), func(*A, *A) {})).
		Scope(container.SingletonWeak))

	_, err := c.Resolve(container.NameKey("A"))
	require.ErrorIs(t, err, container.ErrCircularDependency)
	assert.Contains(t, err.Error(), "A -> A")
}

func TestCycle_SingletonFactoryResolvingItselfFailsFast(t *testing.T) {
	c := container.New()
	mustCommit(t, container.Define[A](c).
		Key(container.NameKey("A")).
		Factory(func(r container.Resolver) (*A, error) {
			_, err := r.Resolve(container.NameKey("A"))
			return &A{}, err
		}).
		Scope(container.Singleton))

	errc := make(chan error, 1)
	go func() {
		_, err := c.Resolve(container.NameKey("A"))
		errc <- err
	}()

	select {
	case err := <-errc:
		require.ErrorIs(t, err, container.ErrCircularDependency)
		assert.Equal(t, container.Empty, c.State(container.NameKey("A")))
	case <-time.After(5 * time.Second):
		t.Fatal("resolving through the passed resolver must not block")
	}
}

func TestDiamond_IsNotACycle(t *testing.T) {
	c := container.New()
	mustCommit(t, diskDefinition(c, "/data", container.Prototype))
	mustCommit(t, container.Define[AccountManager](c).
		Key(container.KeyFor[Accounts]()).
		Type().
		Autowire(container.Inject("First", func(m *AccountManager, s Storage) { m.Storage = s })).
		Autowire(container.Inject("Second", func(m *AccountManager, s Storage) { m.user = s.Root() })))

	accounts, err := container.Resolve[Accounts](c)
	require.NoError(t, err)
	assert.Equal(t, "/data", accounts.Current())
}

// ── Generic helpers ───────────────────────────────────────────────────────────

func TestResolveKey_TypeMismatch(t *testing.T) {
	c := container.New()
	mustCommit(t, diskDefinition(c, "/data", container.Prototype))

	_, err := container.ResolveKey[Page](c, container.KeyFor[Storage]())
	require.ErrorIs(t, err, container.ErrTypeMismatch)
}

func TestResolveNamed(t *testing.T) {
	c := container.New()
	mustCommit(t, container.Define[Disk](c).
		Named("backup").
		Key(container.KeyFor[Storage]()).
		Constructor(func() *Disk { return &Disk{root: "/backup"} }))

	s, err := container.ResolveNamed[Storage](c, "backup")
	require.NoError(t, err)
	assert.Equal(t, "/backup", s.Root())

	raw, err := c.ResolveNamed(container.KeyFor[Storage](), "backup")
	require.NoError(t, err)
	assert.IsType(t, &Disk{}, raw)

	_, err = container.Resolve[Storage](c)
	require.ErrorIs(t, err, container.ErrNotRegistered)
}

func TestMustResolve(t *testing.T) {
	c := container.New()
	mustCommit(t, diskDefinition(c, "/data", container.Prototype))

	assert.Equal(t, "/data", container.MustResolve[Storage](c).Root())
	assert.Panics(t, func() { container.MustResolve[Accounts](c) })
}

// ── Observer ──────────────────────────────────────────────────────────────────

type recordingObserver struct {
	resolved []string
	failed   int
	built    []string
}

func (o *recordingObserver) Resolved(def *container.Definition, _ time.Duration, err error) {
	o.resolved = append(o.resolved, def.Keys()[0].String())
	if err != nil {
		o.failed++
	}
}

func (o *recordingObserver) Built(def *container.Definition) {
	o.built = append(o.built, def.Keys()[0].String())
}

func TestObserver_ReceivesEvents(t *testing.T) {
	obs := &recordingObserver{}
	c := container.New(container.WithObserver(obs))
	mustCommit(t, container.Define[Disk](c).Key(container.NameKey("disk")).Type().Scope(container.Singleton))

	_, err := c.Resolve(container.NameKey("disk"))
	require.NoError(t, err)
	_, err = c.Resolve(container.NameKey("disk"))
	require.NoError(t, err)

	assert.Equal(t, []string{"disk", "disk"}, obs.resolved)
	assert.Equal(t, []string{"disk"}, obs.built)
	assert.Zero(t, obs.failed)
}
