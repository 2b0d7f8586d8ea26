package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/km-arc/go-carbon/framework/container"
)

// Storage is where account and file data lives.
type Storage interface {
	Root() string
	Path(elem ...string) string
}

// Disk is a Storage rooted at a local directory.
type Disk struct {
	root string

	mu     sync.Mutex
	closed bool
}

func OpenDisk(root string) (*Disk, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("open disk: %w", err)
	}
	return &Disk{root: root}, nil
}

func (d *Disk) Root() string { return d.root }

func (d *Disk) Path(elem ...string) string {
	return filepath.Join(append([]string{d.root}, elem...)...)
}

func (d *Disk) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errors.New("disk already closed")
	}
	d.closed = true
	return nil
}

type PaymentType int

const (
	PaymentNormal PaymentType = iota
	PaymentVIP
	PaymentSVIP
)

func (p PaymentType) String() string {
	switch p {
	case PaymentVIP:
		return "vip"
	case PaymentSVIP:
		return "svip"
	default:
		return "normal"
	}
}

// Account is the signed-in user.
type Account struct {
	Name    string
	Avatar  string
	Payment PaymentType
}

// Accounts manages the signed-in account.
type Accounts interface {
	Current() *Account
}

// AccountManager is the Accounts implementation. Storage is autowired and
// Load runs once it is set.
type AccountManager struct {
	Storage Storage

	current *Account
}

func (m *AccountManager) Load() error {
	if m.Storage == nil {
		return errors.New("account manager: no storage")
	}
	m.current = &Account{
		Name:    "65803387",
		Avatar:  "65803387.png",
		Payment: PaymentSVIP,
	}
	return nil
}

func (m *AccountManager) Current() *Account { return m.current }

// BasicModule provides storage and accounts to every other module.
type BasicModule struct {
	container.BaseModule
	Root string
}

func (m *BasicModule) Name() string                 { return "basic" }
func (m *BasicModule) Priority() container.Priority { return container.BusinessPriority.Increase(10) }

func (m *BasicModule) Register(c *container.Container) error {
	root := m.Root
	_, err := container.Define[Disk](c).
		Key(container.KeyFor[Storage]()).
		Factory(func(container.Resolver) (*Disk, error) { return OpenDisk(root) }).
		Scope(container.Singleton).
		Commit()
	if err != nil {
		return err
	}

	_, err = container.Define[AccountManager](c).
		Key(container.KeyFor[Accounts]()).
		Type().
		Autowire(container.Inject("Storage", func(m *AccountManager, s Storage) { m.Storage = s })).
		Scope(container.SingletonWeak).
		Completed(func(_ container.Resolver, m *AccountManager) error { return m.Load() }).
		Commit()
	return err
}
