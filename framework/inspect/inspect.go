// Package inspect serves a read-mostly HTTP view of a container: its
// definitions, the state of their cached instances, its modules and metrics.
package inspect

import (
	"errors"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/km-arc/go-carbon/framework/container"
	gohttp "github.com/km-arc/go-carbon/framework/http"
	"github.com/km-arc/go-carbon/framework/http/validation"
	"github.com/km-arc/go-carbon/framework/logging"
	"github.com/km-arc/go-carbon/framework/routing"
)

const scopeRule = "nullable|in:prototype,singleton,singleton_weak"

// Inspector exposes c over HTTP.
type Inspector struct {
	c       *container.Container
	modules *container.ModuleRegistry
	metrics http.Handler
	logger  *zap.Logger
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithModules adds the /modules routes.
func WithModules(r *container.ModuleRegistry) Option {
	return func(i *Inspector) { i.modules = r }
}

// WithMetrics mounts h on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(i *Inspector) { i.metrics = h }
}

// WithLogger logs every request through l.
func WithLogger(l *zap.Logger) Option {
	return func(i *Inspector) { i.logger = l }
}

// New creates an Inspector for c.
func New(c *container.Container, opts ...Option) *Inspector {
	i := &Inspector{c: c, logger: zap.NewNop()}
	for _, o := range opts {
		o(i)
	}
	return i
}

// Handler returns a router serving every inspector route.
func (i *Inspector) Handler() http.Handler {
	r := routing.New(logging.RequestLogger(i.logger))
	i.Routes(r)
	return r
}

// Routes registers the inspector routes on r.
//
//	GET    /definitions              ?scope=
//	GET    /definitions/{key}
//	DELETE /instances                ?scope= | ?name=
//	GET    /modules
//	POST   /modules/{name}/load
//	GET    /metrics
func (i *Inspector) Routes(r *routing.Router) {
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		gohttp.NewResponse(w).NotFound()
	})
	r.Get("/definitions", i.listDefinitions)
	r.Get("/definitions/*", i.showDefinition)
	r.Delete("/instances", i.releaseInstances)

	if i.modules != nil {
		r.Get("/modules", i.listModules)
		r.Post("/modules/{name}/load", i.loadModule)
	}
	if i.metrics != nil {
		r.Handle("/metrics", i.metrics)
	}
}

// ── Definitions ───────────────────────────────────────────────────────────────

// DefinitionView is the JSON form of a registered Definition.
type DefinitionView struct {
	Keys         []string `json:"keys"`
	Name         string   `json:"name,omitempty"`
	Type         string   `json:"type"`
	Producer     string   `json:"producer"`
	Scope        string   `json:"scope"`
	Args         string   `json:"args,omitempty"`
	Properties   []string `json:"properties,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
	State        string   `json:"state"`
}

func (i *Inspector) view(def *container.Definition) DefinitionView {
	keys := def.Keys()
	v := DefinitionView{
		Keys:       make([]string, len(keys)),
		Name:       def.Name(),
		Type:       def.Type().String(),
		Producer:   def.Producer().String(),
		Scope:      def.Scope().String(),
		Properties: def.Properties(),
		State:      i.c.StateOf(def).String(),
	}
	if t := def.Args(); t != nil {
		v.Args = t.String()
	}
	for n, k := range keys {
		v.Keys[n] = k.String()
	}
	for _, k := range def.Dependencies() {
		v.Dependencies = append(v.Dependencies, k.String())
	}
	return v
}

func (i *Inspector) listDefinitions(w http.ResponseWriter, r *http.Request) {
	req, res := gohttp.NewRequest(r), gohttp.NewResponse(w)

	v := req.Validate(validation.Rules{"scope": scopeRule})
	if v.Fails() {
		res.ValidationError(v.Errors())
		return
	}

	scope := req.Query("scope")
	views := []DefinitionView{}
	for _, def := range i.c.Definitions() {
		if scope != "" && def.Scope().String() != scope {
			continue
		}
		views = append(views, i.view(def))
	}
	res.Success(views)
}

// showDefinition matches the wildcard against every key string and name.
func (i *Inspector) showDefinition(w http.ResponseWriter, r *http.Request) {
	res := gohttp.NewResponse(w)

	id, err := url.PathUnescape(routing.Param(r, "*"))
	if err != nil || id == "" {
		res.NotFound("Definition not found.")
		return
	}
	for _, def := range i.c.Definitions() {
		if def.Name() == id {
			res.Success(i.view(def))
			return
		}
		for _, k := range def.Keys() {
			if k.String() == id {
				res.Success(i.view(def))
				return
			}
		}
	}
	res.NotFound("Definition not found.")
}

// ── Instances ─────────────────────────────────────────────────────────────────

func (i *Inspector) releaseInstances(w http.ResponseWriter, r *http.Request) {
	req, res := gohttp.NewRequest(r), gohttp.NewResponse(w)

	v := req.Validate(validation.Rules{
		"scope": scopeRule,
		"name":  "sometimes|max:255",
	})
	if v.Fails() {
		res.ValidationError(v.Errors())
		return
	}

	switch {
	case req.Has("scope"):
		// validated above
		scope, _ := container.ParseScope(req.Query("scope"))
		i.c.ReleaseScope(scope)
	case req.Has("name"):
		i.c.ReleaseName(req.Query("name"))
	default:
		i.c.ReleaseAll()
	}
	res.NoContent()
}

// ── Modules ───────────────────────────────────────────────────────────────────

// ModuleView is the JSON form of a registered Module.
type ModuleView struct {
	Name     string `json:"name"`
	Priority int    `json:"priority"`
	Lazy     bool   `json:"lazy"`
	Loaded   bool   `json:"loaded"`
}

func (i *Inspector) moduleView(m container.Module) ModuleView {
	name := container.ModuleName(m)
	return ModuleView{
		Name:     name,
		Priority: int(m.Priority()),
		Lazy:     m.IsLazy(),
		Loaded:   i.modules.Loaded(name),
	}
}

func (i *Inspector) listModules(w http.ResponseWriter, _ *http.Request) {
	mods := i.modules.Modules()
	views := make([]ModuleView, len(mods))
	for n, m := range mods {
		views[n] = i.moduleView(m)
	}
	gohttp.NewResponse(w).Success(views)
}

func (i *Inspector) loadModule(w http.ResponseWriter, r *http.Request) {
	res := gohttp.NewResponse(w)
	name := routing.Param(r, "name")

	if err := i.modules.Load(name); err != nil {
		if errors.Is(err, container.ErrUnknownModule) {
			res.NotFound("Module not found.")
			return
		}
		i.logger.Error("module load failed", zap.String("module", name), zap.Error(err))
		res.ServerError(err.Error())
		return
	}
	for _, m := range i.modules.Modules() {
		if container.ModuleName(m) == name {
			res.Success(i.moduleView(m))
			return
		}
	}
	res.NotFound("Module not found.")
}
