package container

import (
	"time"

	"go.uber.org/zap"
)

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger used for registration and build events.
func WithLogger(l *zap.Logger) Option {
	return func(c *Container) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDefaultScope sets the scope of definitions that do not choose one.
func WithDefaultScope(s Scope) Option {
	return func(c *Container) { c.defaultScope = s }
}

// WithConflictPolicy sets what Register does with contested keys.
func WithConflictPolicy(p ConflictPolicy) Option {
	return func(c *Container) { c.conflicts = p }
}

// WithObserver installs an Observer notified of every resolution and build.
func WithObserver(o Observer) Option {
	return func(c *Container) { c.observer = o }
}

// Observer receives resolution events. Implementations must be safe for
// concurrent use.
type Observer interface {
	// Resolved is called once per resolution of def, nested ones included.
	Resolved(def *Definition, took time.Duration, err error)
	// Built is called each time a fresh instance of def completes.
	Built(def *Definition)
}
