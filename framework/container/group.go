package container

// Member is a finished builder chain that a group or a Configuration can
// register. Every stage from AliasStage on satisfies it.
type Member interface {
	Build() (*Definition, error)
	draftOf() *draft
}

// GroupBuilder applies shared settings to several builder chains and
// registers them together.
//
//	container.Group(c,
//	    container.Define[HomePage](c).Named("home").Key(container.KeyFor[*HomePage]()).Type(),
//	    container.Define[FilePage](c).Named("file").Key(container.KeyFor[*FilePage]()).Type(),
//	).Alias(container.KeyFor[Page]()).Scope(container.Singleton).Commit()
//
//	page, _ := container.ResolveNamed[Page](c, "home")
type GroupBuilder struct {
	c       *Container
	members []Member
}

// Group collects members for unified configuration.
func Group(c *Container, members ...Member) *GroupBuilder {
	return &GroupBuilder{c: c, members: members}
}

// Named sets the name of every member that has none yet.
func (g *GroupBuilder) Named(name string) *GroupBuilder {
	for _, m := range g.members {
		if d := m.draftOf(); d.name == "" {
			d.name = name
		}
	}
	return g
}

// Alias appends k to the aliases of every member.
func (g *GroupBuilder) Alias(k Key) *GroupBuilder {
	for _, m := range g.members {
		d := m.draftOf()
		d.aliases = append(d.aliases, k)
	}
	return g
}

// Aliases replaces the aliases of every member with ks.
func (g *GroupBuilder) Aliases(ks ...Key) *GroupBuilder {
	for _, m := range g.members {
		m.draftOf().aliases = append([]Key(nil), ks...)
	}
	return g
}

// Scope sets the scope of every member.
func (g *GroupBuilder) Scope(s Scope) *GroupBuilder {
	for _, m := range g.members {
		d := m.draftOf()
		d.scope, d.scopeSet = s, true
	}
	return g
}

// Completed appends fn to the hooks of every member.
func (g *GroupBuilder) Completed(fn func(r Resolver, v any) error) *GroupBuilder {
	for _, m := range g.members {
		d := m.draftOf()
		d.hooks = append(d.hooks, fn)
	}
	return g
}

// Members returns the grouped chains, for use inside a Configuration.
func (g *GroupBuilder) Members() []Member {
	return append([]Member(nil), g.members...)
}

// Commit builds and registers every member, stopping at the first error.
func (g *GroupBuilder) Commit() ([]*Definition, error) {
	return g.c.registerMembers(g.members)
}

// ── Configuration ─────────────────────────────────────────────────────────────

// Configuration is a reusable set of definitions.
//
//	type StorageConfig struct{}
//
//	func (StorageConfig) Definitions(c *container.Container) []container.Member {
//	    return []container.Member{
//	        container.Define[Disk](c).Key(container.KeyFor[Storage]()).Type(),
//	    }
//	}
type Configuration interface {
	Definitions(c *Container) []Member
}

// Configure registers the definitions of every configuration in order.
func (c *Container) Configure(cfgs ...Configuration) error {
	for _, cfg := range cfgs {
		if _, err := c.registerMembers(cfg.Definitions(c)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Container) registerMembers(members []Member) ([]*Definition, error) {
	defs := make([]*Definition, 0, len(members))
	for _, m := range members {
		def, err := m.Build()
		if err != nil {
			return defs, err
		}
		if err := c.Register(def); err != nil {
			return defs, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}
