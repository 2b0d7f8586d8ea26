package main

import (
	"fmt"

	"github.com/km-arc/go-carbon/framework/container"
)

// AvatarFactory renders account avatars.
type AvatarFactory interface {
	Avatar(a *Account) string
}

type avatarFactory struct {
	Storage Storage
}

func (f *avatarFactory) Avatar(a *Account) string {
	return fmt.Sprintf("<img src=%q alt=%q>", f.Storage.Path("avatars", a.Avatar), a.Name)
}

// AvatarModule is loaded the first time an AvatarFactory is needed.
type AvatarModule struct {
	container.BaseModule
}

func (m *AvatarModule) Name() string { return "avatar" }
func (m *AvatarModule) IsLazy() bool { return true }

func (m *AvatarModule) Provides() []container.Key {
	return []container.Key{container.KeyFor[AvatarFactory]()}
}

func (m *AvatarModule) Register(c *container.Container) error {
	_, err := container.Define[avatarFactory](c).
		Key(container.KeyFor[AvatarFactory]()).
		Type().
		Autowire(container.Inject("Storage", func(f *avatarFactory, s Storage) { f.Storage = s })).
		Scope(container.Singleton).
		Commit()
	return err
}
