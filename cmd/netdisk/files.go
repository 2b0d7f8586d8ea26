package main

import (
	"path"

	"github.com/km-arc/go-carbon/framework/container"
)

// FileModel is one file of the signed-in account.
type FileModel struct {
	Dir  string
	Name string
}

// ParsePath splits p into directory and file name. A path without an
// extension is a directory.
func ParsePath(p string) *FileModel {
	if path.Ext(p) == "" {
		return &FileModel{Dir: p}
	}
	return &FileModel{Dir: path.Dir(p), Name: path.Base(p)}
}

// Page is one screen of the web client.
type Page interface {
	Title() string
}

type HomePage struct{ Accounts Accounts }

func (p *HomePage) Title() string { return "Home of " + p.Accounts.Current().Name }

type FilePage struct{ Files *FileManager }

func (p *FilePage) Title() string { return "Files" }

// FileManager lists the files of the signed-in account.
type FileManager struct {
	Accounts Accounts
	Avatars  AvatarFactory
	r        container.Resolver
}

// Recent returns the most recently opened files, each a fresh FileModel.
func (m *FileManager) Recent() ([]*FileModel, error) {
	var out []*FileModel
	for _, p := range []string{"/c/d/test.txt", "/a/b/c.mp4"} {
		f, err := container.ResolveWith[*FileModel](m.r, p)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// FileModule provides file models, the file manager and the pages.
type FileModule struct {
	container.BaseModule
}

func (m *FileModule) Name() string { return "file" }

func (m *FileModule) Register(c *container.Container) error {
	_, err := container.FactoryWith(
		container.Define[FileModel](c).Key(container.KeyFor[*FileModel]()),
		func(_ container.Resolver, p string) (*FileModel, error) { return ParsePath(p), nil },
	).Commit()
	if err != nil {
		return err
	}

	_, err = container.Define[FileManager](c).
		Key(container.KeyFor[*FileManager]()).
		Factory(func(container.Resolver) (*FileManager, error) {
			return &FileManager{r: c}, nil
		}).
		AutowireAll(
			container.Inject("Accounts", func(m *FileManager, a Accounts) { m.Accounts = a }),
			container.Inject("Avatars", func(m *FileManager, f AvatarFactory) { m.Avatars = f }),
		).
		Scope(container.Singleton).
		Commit()
	if err != nil {
		return err
	}

	_, err = container.Group(c,
		container.Define[HomePage](c).
			Named("home").
			Key(container.KeyFor[*HomePage]()).
			Type().
			Autowire(container.Inject("Accounts", func(p *HomePage, a Accounts) { p.Accounts = a })),
		container.Define[FilePage](c).
			Named("file").
			Key(container.KeyFor[*FilePage]()).
			Type().
			Autowire(container.Inject("Files", func(p *FilePage, f *FileManager) { p.Files = f })),
	).Alias(container.KeyFor[Page]()).Commit()
	return err
}
