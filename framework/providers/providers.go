// Package providers holds the modules every application registers: the
// configuration, the logger, the metrics collector and the inspector.
package providers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/km-arc/go-carbon/framework/config"
	"github.com/km-arc/go-carbon/framework/container"
	"github.com/km-arc/go-carbon/framework/inspect"
	"github.com/km-arc/go-carbon/framework/metrics"
)

// InspectorServerName names the *http.Server serving the inspector.
const InspectorServerName = "inspector"

// ── ConfigModule ──────────────────────────────────────────────────────────────

// ConfigModule exposes the loaded configuration.
//
// Keys:
//   - *config.Config
type ConfigModule struct {
	container.BaseModule
	Config *config.Config
}

func (m *ConfigModule) Name() string                 { return "config" }
func (m *ConfigModule) Priority() container.Priority { return container.SystemPriority.Increase(2) }

func (m *ConfigModule) Register(c *container.Container) error {
	cfg := m.Config
	_, err := container.Define[config.Config](c).
		Key(container.KeyFor[*config.Config]()).
		Constructor(func() *config.Config { return cfg }).
		Scope(container.Singleton).
		Commit()
	return err
}

// ── LoggingModule ─────────────────────────────────────────────────────────────

// LoggingModule exposes the application logger and flushes it on shutdown.
//
// Keys:
//   - *zap.Logger
type LoggingModule struct {
	container.BaseModule
	Logger *zap.Logger
}

func (m *LoggingModule) Name() string                 { return "logging" }
func (m *LoggingModule) Priority() container.Priority { return container.SystemPriority.Increase(1) }

func (m *LoggingModule) Register(c *container.Container) error {
	l := m.Logger
	_, err := container.Define[zap.Logger](c).
		Key(container.KeyFor[*zap.Logger]()).
		Constructor(func() *zap.Logger { return l }).
		Scope(container.Singleton).
		Commit()
	return err
}

// Terminate flushes buffered entries. Sync errors on terminals are ignored.
func (m *LoggingModule) Terminate(*container.Container) error {
	_ = m.Logger.Sync()
	return nil
}

// ── MetricsModule ─────────────────────────────────────────────────────────────

// MetricsModule exposes the Prometheus collector observing the container.
//
// Keys:
//   - *metrics.Collector
type MetricsModule struct {
	container.BaseModule
	Collector *metrics.Collector
}

func (m *MetricsModule) Name() string                 { return "metrics" }
func (m *MetricsModule) Priority() container.Priority { return container.FoundationPriority }

func (m *MetricsModule) Register(c *container.Container) error {
	col := m.Collector
	_, err := container.Define[metrics.Collector](c).
		Key(container.KeyFor[*metrics.Collector]()).
		Constructor(func() *metrics.Collector { return col }).
		Scope(container.Singleton).
		Commit()
	return err
}

// ── InspectorModule ───────────────────────────────────────────────────────────

// InspectorModule builds the inspector and the server that exposes it. It is
// lazy: nothing is built until the server is first resolved.
//
// Keys:
//   - *inspect.Inspector
//   - *http.Server named "inspector"
type InspectorModule struct {
	container.BaseModule
	Modules *container.ModuleRegistry
}

func (m *InspectorModule) Name() string                 { return "inspector" }
func (m *InspectorModule) Priority() container.Priority { return container.ServicesPriority }
func (m *InspectorModule) IsLazy() bool                 { return true }

func (m *InspectorModule) Provides() []container.Key {
	return []container.Key{
		container.KeyFor[*inspect.Inspector](),
		container.NamedKeyFor[*http.Server](InspectorServerName),
	}
}

func (m *InspectorModule) Register(c *container.Container) error {
	_, err := container.Define[inspect.Inspector](c).
		Key(container.KeyFor[*inspect.Inspector]()).
		Factory(func(r container.Resolver) (*inspect.Inspector, error) {
			cfg, err := container.Resolve[*config.Config](r)
			if err != nil {
				return nil, err
			}
			log, err := container.Resolve[*zap.Logger](r)
			if err != nil {
				return nil, err
			}

			opts := []inspect.Option{inspect.WithLogger(log.Named("inspector"))}
			if m.Modules != nil {
				opts = append(opts, inspect.WithModules(m.Modules))
			}
			if cfg.Inspector.Metrics {
				col, err := container.Resolve[*metrics.Collector](r)
				if err != nil {
					return nil, err
				}
				opts = append(opts, inspect.WithMetrics(col.Handler()))
			}
			return inspect.New(c, opts...), nil
		}).
		Scope(container.Singleton).
		Commit()
	if err != nil {
		return err
	}

	_, err = container.Define[http.Server](c).
		Named(InspectorServerName).
		Key(container.KeyFor[*http.Server]()).
		Factory(func(r container.Resolver) (*http.Server, error) {
			cfg, err := container.Resolve[*config.Config](r)
			if err != nil {
				return nil, err
			}
			insp, err := container.Resolve[*inspect.Inspector](r)
			if err != nil {
				return nil, err
			}
			return &http.Server{
				Addr:              cfg.Inspector.Addr,
				Handler:           insp.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}, nil
		}).
		Scope(container.Singleton).
		Commit()
	return err
}
