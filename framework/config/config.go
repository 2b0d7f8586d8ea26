package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/km-arc/go-carbon/framework/container"
	"github.com/km-arc/go-carbon/framework/http/validation"
)

// Config is the central typed configuration struct.
type Config struct {
	App       AppConfig
	Container ContainerConfig
	Inspector InspectorConfig
	Log       LogConfig
}

type AppConfig struct {
	Name  string
	Env   string // local | production | testing
	Debug bool
}

// ContainerConfig holds the object context defaults.
type ContainerConfig struct {
	DefaultScope string // prototype | singleton | singleton_weak
	KeyConflict  string // reject | replace
}

// InspectorConfig controls the HTTP endpoint exposing definitions and metrics.
type InspectorConfig struct {
	Enabled bool
	Addr    string
	Metrics bool
}

type LogConfig struct {
	Level  string // debug | info | warn | error
	Format string // json | console
}

// Load reads .env (if present) and populates a Config from environment variables.
// Call once at bootstrap: cfg := config.Load()
func Load(envFiles ...string) *Config {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production
	_ = godotenv.Load(files...)

	return &Config{
		App: AppConfig{
			Name:  env("APP_NAME", "GoCarbon"),
			Env:   env("APP_ENV", "local"),
			Debug: envBool("APP_DEBUG", true),
		},
		Container: ContainerConfig{
			DefaultScope: env("CARBON_DEFAULT_SCOPE", "prototype"),
			KeyConflict:  env("CARBON_KEY_CONFLICT", "reject"),
		},
		Inspector: InspectorConfig{
			Enabled: envBool("INSPECTOR_ENABLED", false),
			Addr:    env("INSPECTOR_ADDR", ":9090"),
			Metrics: envBool("INSPECTOR_METRICS", true),
		},
		Log: LogConfig{
			Level:  env("LOG_LEVEL", "info"),
			Format: env("LOG_FORMAT", "json"),
		},
	}
}

// Validate checks every enumerated setting.
func (c *Config) Validate() error {
	v := validation.Make(map[string]string{
		"CARBON_DEFAULT_SCOPE": c.Container.DefaultScope,
		"CARBON_KEY_CONFLICT":  c.Container.KeyConflict,
		"INSPECTOR_ADDR":       c.Inspector.Addr,
		"LOG_LEVEL":            c.Log.Level,
		"LOG_FORMAT":           c.Log.Format,
	}, validation.Rules{
		"CARBON_DEFAULT_SCOPE": "required|in:prototype,singleton,singleton_weak",
		"CARBON_KEY_CONFLICT":  "required|in:reject,replace",
		"INSPECTOR_ADDR":       "required|address",
		"LOG_LEVEL":            "required|in:debug,info,warn,error",
		"LOG_FORMAT":           "required|in:json,console",
	})
	if err := v.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// ContainerOptions turns the container settings into container options.
func (c *Config) ContainerOptions() ([]container.Option, error) {
	scope, err := container.ParseScope(c.Container.DefaultScope)
	if err != nil {
		return nil, err
	}
	policy, err := container.ParseConflictPolicy(c.Container.KeyConflict)
	if err != nil {
		return nil, err
	}
	return []container.Option{
		container.WithDefaultScope(scope),
		container.WithConflictPolicy(policy),
	}, nil
}

// Get returns a raw env value, falling back to defaultVal.
func Get(key, defaultVal string) string {
	return env(key, defaultVal)
}

// GetInt returns an int env value.
func GetInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// GetBool returns a bool env value.
func GetBool(key string, defaultVal bool) bool {
	return envBool(key, defaultVal)
}

// ── helpers ─────────────────────────────────────────────────────────────────

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
