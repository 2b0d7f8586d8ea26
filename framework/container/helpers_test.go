package container_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-carbon/framework/container"
)

// ── fixtures ──────────────────────────────────────────────────────────────────

type Storage interface{ Root() string }

type Disk struct {
	root     string
	closeErr error
	closed   *[]string
}

func (d *Disk) Root() string { return d.root }

func (d *Disk) Close() error {
	if d.closed != nil {
		*d.closed = append(*d.closed, d.root)
	}
	return d.closeErr
}

type Accounts interface{ Current() string }

type AccountManager struct {
	Storage Storage
	user    string
	loads   int
}

func (m *AccountManager) Current() string { return m.user }

type Page interface{ Title() string }

type HomePage struct{ visits int }

func (*HomePage) Title() string { return "home" }

type FilePage struct{ visits int }

func (*FilePage) Title() string { return "file" }

type A struct{ B *B }
type B struct{ A *A }

// Session is large enough to stay out of the tiny allocator, so weak pointers
// to it are reclaimable.
type Session struct {
	ID      int
	Storage Storage
	buf     []byte
}

var errBoom = errors.New("boom")

// ── helpers ───────────────────────────────────────────────────────────────────

type committer interface {
	Commit() (*container.Definition, error)
}

func mustCommit(t *testing.T, s committer) *container.Definition {
	t.Helper()
	def, err := s.Commit()
	require.NoError(t, err)
	return def
}

// counter counts builds and is safe for concurrent use.
type counter struct {
	mu sync.Mutex
	n  int
}

func (c *counter) inc() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return c.n
}

func (c *counter) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func diskDefinition(c *container.Container, root string, scope container.Scope) *container.CompletionStage[Disk] {
	return container.Define[Disk](c).
		Key(container.KeyFor[Storage]()).
		Constructor(func() *Disk { return &Disk{root: root} }).
		Scope(scope)
}
