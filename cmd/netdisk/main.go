// Command netdisk wires a small file-sharing backend out of modules and
// serves the container inspector.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/km-arc/go-carbon/framework/app"
	"github.com/km-arc/go-carbon/framework/config"
	"github.com/km-arc/go-carbon/framework/container"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	a, err := app.New()
	if err != nil {
		return err
	}
	if err := register(a, config.Get("NETDISK_ROOT", filepath.Join(os.TempDir(), "netdisk"))); err != nil {
		return err
	}
	if err := a.Boot(); err != nil {
		return err
	}

	if err := tour(a); err != nil {
		a.Logger.Error("tour failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.Run(ctx)
}

func register(a *app.Application, root string) error {
	for _, m := range []container.Module{
		&BasicModule{Root: root},
		&FileModule{},
		&AvatarModule{},
	} {
		if err := a.Register(m); err != nil {
			return err
		}
	}
	return nil
}

// tour resolves the main services once and logs what it got.
func tour(a *app.Application) error {
	files, err := container.Resolve[*FileManager](a)
	if err != nil {
		return err
	}
	recent, err := files.Recent()
	if err != nil {
		return err
	}
	home, err := container.ResolveNamed[Page](a, "home")
	if err != nil {
		return err
	}

	account := files.Accounts.Current()
	a.Logger.Info("netdisk ready",
		zap.String("account", account.Name),
		zap.Stringer("payment", account.Payment),
		zap.String("avatar", files.Avatars.Avatar(account)),
		zap.Int("recent", len(recent)),
		zap.String("home", home.Title()),
		zap.Strings("definitions", a.Describe()),
	)
	return nil
}
