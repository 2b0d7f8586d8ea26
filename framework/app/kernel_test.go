package app_test

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/km-arc/go-carbon/framework/app"
	"github.com/km-arc/go-carbon/framework/config"
	"github.com/km-arc/go-carbon/framework/container"
	"github.com/km-arc/go-carbon/framework/metrics"
	"github.com/km-arc/go-carbon/framework/providers"
)

type Counter struct{ n int }

type counterModule struct {
	container.BaseModule
	bootErr    error
	terminated bool
}

func (m *counterModule) Name() string { return "counter" }

func (m *counterModule) Register(c *container.Container) error {
	_, err := container.Define[Counter](c).Key(container.KeyFor[*Counter]()).Type().Commit()
	return err
}

func (m *counterModule) Boot(*container.Container) error { return m.bootErr }

func (m *counterModule) Terminate(*container.Container) error {
	m.terminated = true
	return nil
}

func newConfig(t *testing.T, inspector bool) *config.Config {
	t.Helper()
	cfg := config.Load("testdata/missing.env")
	cfg.App.Env = "testing"
	cfg.Log.Level = "error"
	cfg.Inspector.Enabled = inspector
	cfg.Inspector.Addr = "127.0.0.1:0"
	return cfg
}

func TestNew_LoadsEnvFile(t *testing.T) {
	for _, k := range []string{"APP_NAME", "APP_ENV", "CARBON_DEFAULT_SCOPE", "LOG_LEVEL"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}

	a, err := app.New("testdata/app.env")
	require.NoError(t, err)

	assert.Equal(t, "NetDisk", a.Config.App.Name)
	assert.Equal(t, "testing", a.Environment())
	assert.False(t, a.IsProduction())
	assert.Equal(t, container.Singleton, a.DefaultScope())
}

func TestNewWithConfig_FrameworkModules(t *testing.T) {
	cfg := newConfig(t, false)
	a, err := app.NewWithConfig(cfg)
	require.NoError(t, err)

	got, err := container.Resolve[*config.Config](a)
	require.NoError(t, err)
	assert.Same(t, cfg, got)

	_, err = container.Resolve[*metrics.Collector](a)
	require.NoError(t, err)

	assert.False(t, a.Loaded("inspector"), "the inspector is lazy")
}

func TestNewWithConfig_MetricsDisabled(t *testing.T) {
	cfg := newConfig(t, false)
	cfg.Inspector.Metrics = false
	a, err := app.NewWithConfig(cfg)
	require.NoError(t, err)

	_, err = container.Resolve[*metrics.Collector](a)
	assert.ErrorIs(t, err, container.ErrNotRegistered)
}

func TestNewWithConfig_Invalid(t *testing.T) {
	cfg := newConfig(t, false)
	cfg.Container.KeyConflict = "merge"

	_, err := app.NewWithConfig(cfg)
	assert.ErrorContains(t, err, "The selected CARBON_KEY_CONFLICT is invalid.")
}

func TestRegisterAndBoot(t *testing.T) {
	a, err := app.NewWithConfig(newConfig(t, false))
	require.NoError(t, err)

	require.NoError(t, a.Register(&counterModule{}))
	require.NoError(t, a.Boot())
	assert.True(t, a.Booted())

	first, err := container.Resolve[*Counter](a)
	require.NoError(t, err)
	second, err := container.Resolve[*Counter](a)
	require.NoError(t, err)
	assert.NotSame(t, first, second, "default scope is prototype")
}

func TestRun_StopsWithContext(t *testing.T) {
	for _, inspector := range []bool{false, true} {
		t.Run(map[bool]string{false: "no inspector", true: "inspector"}[inspector], func(t *testing.T) {
			a, err := app.NewWithConfig(newConfig(t, inspector))
			require.NoError(t, err)
			m := &counterModule{}
			require.NoError(t, a.Register(m))

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- a.Run(ctx) }()

			require.Eventually(t, a.Booted, time.Second, 5*time.Millisecond)
			cancel()

			select {
			case err := <-done:
				require.NoError(t, err)
			case <-time.After(5 * time.Second):
				t.Fatal("Run did not return")
			}

			assert.True(t, m.terminated)
			assert.Equal(t, inspector, a.Loaded("inspector"))
			_, err = container.Resolve[*Counter](a)
			assert.ErrorIs(t, err, container.ErrContainerClosed)
		})
	}
}

func TestRun_LogsEnvironmentNotes(t *testing.T) {
	cfg := newConfig(t, true)
	cfg.App.Env = "production"
	cfg.App.Debug = true
	a, err := app.NewWithConfig(cfg)
	require.NoError(t, err)
	core, logs := observer.New(zap.InfoLevel)
	a.Logger = zap.New(core)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	require.Eventually(t, func() bool { return logs.FilterMessage("application running").Len() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.True(t, a.IsProduction())
	warned := logs.FilterMessage("inspector enabled in production").All()
	require.Len(t, warned, 1)
	assert.Equal(t, zap.WarnLevel, warned[0].Level)
	assert.Equal(t, 1, logs.FilterMessage("definitions").Len())
}

func TestRun_QuietOutsideDebug(t *testing.T) {
	cfg := newConfig(t, false)
	cfg.App.Debug = false
	a, err := app.NewWithConfig(cfg)
	require.NoError(t, err)
	core, logs := observer.New(zap.InfoLevel)
	a.Logger = zap.New(core)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, a.Run(ctx))

	assert.False(t, a.IsDebug())
	assert.Zero(t, logs.FilterMessage("definitions").Len())
	assert.Zero(t, logs.FilterMessage("inspector enabled in production").Len())
}

func TestRun_BootFailure(t *testing.T) {
	a, err := app.NewWithConfig(newConfig(t, false))
	require.NoError(t, err)
	m := &counterModule{bootErr: errors.New("disk offline")}
	require.NoError(t, a.Register(m))

	err = a.Run(context.Background())
	assert.ErrorContains(t, err, "boot module counter: disk offline")
	assert.True(t, m.terminated)
}

func TestRun_InspectorServerIsSingleton(t *testing.T) {
	a, err := app.NewWithConfig(newConfig(t, true))
	require.NoError(t, err)

	srv, err := container.ResolveNamed[*http.Server](a, providers.InspectorServerName)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:0", srv.Addr)
	require.NoError(t, a.Shutdown())
}
