package pluginhost

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Nomadcxx/pyprlandd/internal/backend"
	"github.com/Nomadcxx/pyprlandd/internal/backendproxy"
	"github.com/Nomadcxx/pyprlandd/internal/pyprconf"
	"github.com/Nomadcxx/pyprlandd/internal/pyprerrors"
	"github.com/Nomadcxx/pyprlandd/internal/schema"
	"github.com/Nomadcxx/pyprlandd/internal/state"
)

// Factory constructs a fresh Plugin instance. cmd/pyprlandd builds the
// name-to-Factory map passed to NewHost as one static table, the
// compile-time-registration replacement for the Python loader's
// importlib-based module resolution (spec.md §4.6).
type Factory func() Plugin

// Schemas optionally supplied per plugin name for config validation
// (spec.md §4.3). A plugin without a registered schema validates trivially.
type SchemaProvider func(name string) *schema.Schema

// Host loads, initializes, reloads, and unloads plugins (spec.md §4.6).
type Host struct {
	log      zerolog.Logger
	shared   *state.SharedState
	rawBack  backend.Backend
	schemas  SchemaProvider
	registry map[string]Factory

	loaded map[string]*loadedPlugin
}

type loadedPlugin struct {
	plugin Plugin
	log    zerolog.Logger
}

func NewHost(log zerolog.Logger, shared *state.SharedState, back backend.Backend, registry map[string]Factory, schemas SchemaProvider) *Host {
	return &Host{
		log:      log,
		shared:   shared,
		rawBack:  back,
		schemas:  schemas,
		registry: registry,
		loaded:   map[string]*loadedPlugin{},
	}
}

// Loaded returns the currently loaded plugin instances, for the dispatcher
// to index by event/command name.
func (h *Host) Loaded() map[string]Plugin {
	out := make(map[string]Plugin, len(h.loaded))
	for name, lp := range h.loaded {
		out[name] = lp.plugin
	}
	return out
}

// LoadAll loads every plugin named in doc.PluginNames() plus the implicit
// "pyprland" core plugin, per spec.md §4.6.
func (h *Host) LoadAll(ctx context.Context, doc *pyprconf.Document, env state.Environment) error {
	names := append([]string{CorePluginName}, doc.PluginNames()...)
	for _, name := range names {
		if _, already := h.loaded[name]; already {
			continue
		}
		if err := h.loadOne(ctx, name, doc, env); err != nil {
			return err
		}
	}
	return nil
}

func (h *Host) loadOne(ctx context.Context, name string, doc *pyprconf.Document, env state.Environment) error {
	factory, ok := h.registry[name]
	if !ok {
		return pyprerrors.New(pyprerrors.KindPluginLoadError,
			fmt.Errorf("unknown plugin %q (resolved as <name>, external:<name>, pyprland.plugins.<name>)", name))
	}

	p := factory()

	if envs := p.Environments(); len(envs) > 0 {
		supported := false
		for _, e := range envs {
			if e == env {
				supported = true
				break
			}
		}
		if !supported {
			h.log.Info().Str("plugin", name).Str("env", env.String()).Msg("plugin skipped: unsupported environment")
			return nil
		}
	}

	pluginLog := h.log.With().Str("plugin", name).Logger()
	proxy := backendproxy.New(h.rawBack, pluginLog)
	bindBase(p, name, h.shared, proxy)

	if err := p.Init(ctx); err != nil {
		return pyprerrors.NewPlugin(pyprerrors.KindPluginLoadError, name, err)
	}

	h.loaded[name] = &loadedPlugin{plugin: p, log: pluginLog}

	if err := h.reloadOne(ctx, name, doc, ReasonInit); err != nil {
		// Config errors are non-fatal (spec.md §7); init proceeds.
		h.log.Warn().Err(err).Str("plugin", name).Msg("plugin config error during load")
	}
	return nil
}

// reloadOne runs LoadConfig (schema validation) then OnReload, bounded by
// half the global task timeout (spec.md §4.5).
func (h *Host) reloadOne(ctx context.Context, name string, doc *pyprconf.Document, reason ReloadReason) error {
	lp, ok := h.loaded[name]
	if !ok {
		return fmt.Errorf("pluginhost: plugin %q not loaded", name)
	}

	view := schema.NewView(h.schemaFor(name), doc.Section(name), lp.log)
	if err := lp.plugin.LoadConfig(view); err != nil {
		return pyprerrors.NewPlugin(pyprerrors.KindPluginConfigError, name, err)
	}

	res := view.Validate()
	for _, w := range res.Warnings {
		lp.log.Warn().Msg("config: " + w)
	}
	if !res.OK() {
		for _, e := range res.Errors {
			lp.log.Error().Msg("config: " + e)
		}
		return pyprerrors.NewPlugin(pyprerrors.KindPluginConfigError, name,
			fmt.Errorf("%d config validation error(s)", len(res.Errors)))
	}

	reloadCtx, cancel := context.WithTimeout(ctx, reloadTimeout)
	defer cancel()
	if err := lp.plugin.OnReload(reloadCtx, reason); err != nil {
		return pyprerrors.NewPlugin(pyprerrors.KindHandlerError, name, err)
	}
	return nil
}

func (h *Host) schemaFor(name string) *schema.Schema {
	if h.schemas == nil {
		return nil
	}
	return h.schemas(name)
}

const (
	globalTaskTimeout = 5 * time.Second
	reloadTimeout     = globalTaskTimeout / 2
)

// Reload re-resolves the plugin list: unloads plugins no longer present
// (awaiting Exit, per spec.md §4.6), loads newly added ones, and re-runs
// LoadConfig+OnReload(RELOAD) on survivors.
func (h *Host) Reload(ctx context.Context, doc *pyprconf.Document, env state.Environment) error {
	wanted := map[string]bool{CorePluginName: true}
	for _, n := range doc.PluginNames() {
		wanted[n] = true
	}

	var toUnload []string
	for name := range h.loaded {
		if !wanted[name] {
			toUnload = append(toUnload, name)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range toUnload {
		name := name
		g.Go(func() error { return h.unloadOne(gctx, name) })
	}
	if err := g.Wait(); err != nil {
		h.log.Error().Err(err).Msg("pluginhost: error unloading plugins during reload")
	}

	for name := range wanted {
		if _, ok := h.loaded[name]; !ok {
			if err := h.loadOne(ctx, name, doc, env); err != nil {
				return err
			}
			continue
		}
		if err := h.reloadOne(ctx, name, doc, ReasonReload); err != nil {
			h.log.Warn().Err(err).Str("plugin", name).Msg("plugin config error during reload")
		}
	}
	return nil
}

func (h *Host) unloadOne(ctx context.Context, name string) error {
	lp, ok := h.loaded[name]
	if !ok {
		return nil
	}
	exitCtx, cancel := context.WithTimeout(ctx, reloadTimeout)
	defer cancel()
	err := lp.plugin.Exit(exitCtx)
	delete(h.loaded, name)
	return err
}

// ExitAll calls Exit on every loaded plugin, bounded by the global
// task-timeout, per spec.md §4.1's shutdown sequence.
func (h *Host) ExitAll(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	for name, lp := range h.loaded {
		name, lp := name, lp
		g.Go(func() error {
			exitCtx, cancel := context.WithTimeout(gctx, globalTaskTimeout)
			defer cancel()
			if err := lp.plugin.Exit(exitCtx); err != nil {
				h.log.Warn().Err(err).Str("plugin", name).Msg("plugin exit error")
			}
			return nil
		})
	}
	_ = g.Wait()
}
