package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/km-arc/go-carbon/framework/config"
	"github.com/km-arc/go-carbon/framework/container"
	"github.com/km-arc/go-carbon/framework/logging"
	"github.com/km-arc/go-carbon/framework/metrics"
	"github.com/km-arc/go-carbon/framework/providers"
)

const shutdownTimeout = 10 * time.Second

// Application owns the container, its modules and the inspector server.
// It embeds the Container and ModuleRegistry so user code can call
// app.Register(&MyModule{}) or container.Resolve[T](app) directly.
type Application struct {
	*container.Container
	*container.ModuleRegistry

	Config *config.Config
	Logger *zap.Logger
}

// New loads the configuration from envFiles and creates the application.
func New(envFiles ...string) (*Application, error) {
	return NewWithConfig(config.Load(envFiles...))
}

// NewWithConfig creates the application from an already loaded configuration
// and registers the framework modules.
func NewWithConfig(cfg *config.Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	opts, err := cfg.ContainerOptions()
	if err != nil {
		return nil, err
	}
	opts = append(opts, container.WithLogger(logger.Named("container")))

	var collector *metrics.Collector
	if cfg.Inspector.Metrics {
		collector = metrics.New(metrics.Options{Go: true, Process: true})
		opts = append(opts, container.WithObserver(collector))
	}

	c := container.New(opts...)
	reg := container.NewModuleRegistry(c)
	a := &Application{Container: c, ModuleRegistry: reg, Config: cfg, Logger: logger}

	core := []container.Module{
		&providers.ConfigModule{Config: cfg},
		&providers.LoggingModule{Logger: logger},
		&providers.InspectorModule{Modules: reg},
	}
	if collector != nil {
		core = append(core, &providers.MetricsModule{Collector: collector})
	}
	for _, m := range core {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Register adds a module to the application.
func (a *Application) Register(m container.Module) error {
	return a.ModuleRegistry.Register(m)
}

// Run boots the application and serves the inspector, when enabled, until ctx
// is done. The application is shut down before Run returns.
func (a *Application) Run(ctx context.Context) error {
	if err := a.Boot(); err != nil {
		return errors.Join(err, a.Shutdown())
	}

	g, ctx := errgroup.WithContext(ctx)
	if a.Config.Inspector.Enabled {
		srv, err := container.ResolveNamed[*http.Server](a, providers.InspectorServerName)
		if err != nil {
			return errors.Join(fmt.Errorf("inspector: %w", err), a.Shutdown())
		}
		g.Go(func() error {
			a.Logger.Info("inspector listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	a.Logger.Info("application running",
		zap.String("app", a.Config.App.Name),
		zap.String("env", a.Environment()),
	)
	if a.IsProduction() && a.Config.Inspector.Enabled {
		a.Logger.Warn("inspector enabled in production", zap.String("addr", a.Config.Inspector.Addr))
	}
	if a.IsDebug() {
		a.Logger.Info("definitions", zap.Strings("resolvable", a.Describe()))
	}
	g.Go(func() error {
		<-ctx.Done()
		return nil
	})

	err := g.Wait()
	return errors.Join(err, a.Shutdown())
}

// Shutdown terminates the modules in reverse order and closes the container.
func (a *Application) Shutdown() error {
	a.Logger.Info("application shutting down")
	return errors.Join(a.ModuleRegistry.Shutdown(), a.Container.Close())
}

// Environment returns the APP_ENV value.
func (a *Application) Environment() string { return a.Config.App.Env }
func (a *Application) IsProduction() bool  { return a.Environment() == "production" }
func (a *Application) IsDebug() bool       { return a.Config.App.Debug }
