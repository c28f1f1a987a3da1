// Package rc is the facade a driver process constructs once and calls
// into for every service and runlevel operation: it wires the path
// layout, resolver, runlevel registry, state store, process supervisor,
// dependency cache/query, and hook dispatcher into a single handle.
package rc

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/openrc-go/rcsvc/internal/depcache"
	"github.com/openrc-go/rcsvc/internal/depquery"
	"github.com/openrc-go/rcsvc/internal/hook"
	"github.com/openrc-go/rcsvc/internal/rcenv"
	"github.com/openrc-go/rcsvc/internal/rcpath"
	"github.com/openrc-go/rcsvc/internal/resolver"
	"github.com/openrc-go/rcsvc/internal/runlevel"
	"github.com/openrc-go/rcsvc/internal/supervise"
	"github.com/openrc-go/rcsvc/internal/svcstate"
)

// Runtime is the single entry point a driver process uses. It owns no
// goroutines of its own beyond what Cache.Watch spawns if the caller
// asks for it.
type Runtime struct {
	root      rcpath.Root
	cfg       Config
	resolver  *resolver.Resolver
	runlevels *runlevel.Registry
	state     *svcstate.Store
	super     *supervise.Supervisor
	cache     *depcache.Cache
	hooks     *hook.Dispatcher
	environ   *rcenv.Environ
	logger    *slog.Logger
}

// Option configures a Runtime at construction.
type Option func(*runtimeOptions)

type runtimeOptions struct {
	userScriptDir string
	hookCallback  hook.Callback
	cfg           *Config
}

// WithUserScriptDir adds a user-local init script directory searched
// before the root's own init.d, matching the resolver's documented
// user-local-wins precedence.
func WithUserScriptDir(dir string) Option {
	return func(o *runtimeOptions) { o.userScriptDir = dir }
}

// WithHookCallback wires the single host-provided hook callback.
func WithHookCallback(cb hook.Callback) Option {
	return func(o *runtimeOptions) { o.hookCallback = cb }
}

// WithConfig overrides the loaded/default Config.
func WithConfig(cfg Config) Option {
	return func(o *runtimeOptions) { o.cfg = &cfg }
}

// New constructs a Runtime anchored at rootDir (empty defaults to
// rcpath.DefaultRoot), loading rc.yaml from rootDir if present.
func New(rootDir string, opts ...Option) (*Runtime, error) {
	o := &runtimeOptions{}
	for _, opt := range opts {
		opt(o)
	}

	root := rcpath.NewRoot(rootDir)

	cfg := o.cfg
	if cfg == nil {
		loaded, err := LoadConfig(ConfigPath(root.Dir()))
		if err != nil {
			return nil, fmt.Errorf("rc: loading config: %w", err)
		}
		cfg = &loaded
	}

	dirs := []string{root.InitDir()}
	if o.userScriptDir != "" {
		dirs = append([]string{o.userScriptDir}, dirs...)
	}
	dirs = append(dirs, cfg.ScriptDirs...)
	res := resolver.New(dirs...)

	trailPath := filepath.Join(root.Dir(), "hooks.log")
	dispatcher, err := hook.NewDispatcher(o.hookCallback, trailPath)
	if err != nil {
		return nil, fmt.Errorf("rc: creating hook dispatcher: %w", err)
	}

	store := svcstate.New(root, dispatcher)
	super := supervise.New(store)
	store.SetCrashChecker(super)

	cache := depcache.New(root, res)

	environ, err := rcenv.New()
	if err != nil {
		dispatcher.Close()
		return nil, fmt.Errorf("rc: creating plugin environment: %w", err)
	}
	rcenv.Init(environ)

	return &Runtime{
		root:      root,
		cfg:       *cfg,
		resolver:  res,
		runlevels: runlevel.New(root),
		state:     store,
		super:     super,
		cache:     cache,
		hooks:     dispatcher,
		environ:   environ,
		logger:    slog.With("component", "rc"),
	}, nil
}

// Close releases the hook trail file handle and the plugin environment
// pipe.
func (rt *Runtime) Close() error {
	environErr := rt.environ.Close()
	if err := rt.hooks.Close(); err != nil {
		return err
	}
	return environErr
}

// Resolver, Runlevels, State, Supervisor, Cache, Hooks, Environ give
// direct access to the wired subsystems for callers (notably
// cmd/rcinit) that need operations this facade doesn't wrap one-to-one.
func (rt *Runtime) Resolver() *resolver.Resolver      { return rt.resolver }
func (rt *Runtime) Runlevels() *runlevel.Registry     { return rt.runlevels }
func (rt *Runtime) State() *svcstate.Store            { return rt.state }
func (rt *Runtime) Supervisor() *supervise.Supervisor { return rt.super }
func (rt *Runtime) Cache() *depcache.Cache            { return rt.cache }
func (rt *Runtime) Root() rcpath.Root                 { return rt.root }

// Environ exposes the write-only plugin environment pipe so a host
// process can publish KEY=VALUE records for collaborators outside this
// module's scope (the script interpreter, plugin glue) to read from its
// read side.
func (rt *Runtime) Environ() *rcenv.Environ { return rt.environ }

// Graph returns the current dependency graph, rebuilding the on-disk
// cache first if it's stale.
func (rt *Runtime) Graph(ctx context.Context) (*depquery.Graph, error) {
	if err := rt.cache.Update(ctx, false); err != nil {
		return nil, err
	}
	graph, err := rt.cache.Load()
	if err != nil {
		return nil, err
	}
	active, err := rt.runlevels.Get()
	if err != nil {
		return nil, err
	}
	members, err := rt.activeMemberSet(active)
	if err != nil {
		return nil, err
	}
	graph.ResolveProvides(members)
	return graph, nil
}

func (rt *Runtime) activeMemberSet(level string) (map[string]bool, error) {
	names, err := rt.runlevels.Members(level)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set, nil
}

// WaitService blocks until name's transition lock is free or timeout
// elapses, per spec's wait_service.
func (rt *Runtime) WaitService(ctx context.Context, name string, timeout time.Duration) (bool, error) {
	lock, err := rt.state.NewTransitionLock(name)
	if err != nil {
		return false, err
	}
	defer lock.Unlock()
	return lock.Wait(ctx, timeout)
}
