// Package pluginhost implements the plugin interface and load/unload/
// reload lifecycle of spec.md §4.3/§4.6.
//
// The Python original discovers handlers dynamically by method-name
// convention (run_<cmd>, event_<name>, niri_<name>). Design Note §9
// re-expresses that as explicit compile-time registration: every Plugin
// publishes a static {command name -> CommandFunc} and {event name ->
// EventFunc} table from Commands()/Events(), so internal/dispatcher can
// index plugins by event name instead of scanning every plugin's methods
// on every event.
package pluginhost

import (
	"context"

	"github.com/Nomadcxx/pyprlandd/internal/backend"
	"github.com/Nomadcxx/pyprlandd/internal/schema"
	"github.com/Nomadcxx/pyprlandd/internal/state"
)

// CorePluginName is the built-in "pyprland" plugin, loaded implicitly
// alongside the user's configured plugin list (spec.md §4.6) and run
// in-band by internal/dispatcher rather than queued (spec.md §4.5).
const CorePluginName = "pyprland"

// ReloadReason distinguishes the first load from a config hot-reload
// (spec.md §3's Plugin lifecycle: on_reload(reason∈{INIT,RELOAD})).
type ReloadReason int

const (
	ReasonInit ReloadReason = iota
	ReasonReload
)

// CommandFunc handles one control-socket command. A non-empty string
// return is appended to the OK response body (spec.md §4.5).
type CommandFunc func(ctx context.Context, args []string) (string, error)

// EventFunc handles one compositor event. Fire-and-forget (spec.md §4.5).
type EventFunc func(ctx context.Context, payload string)

// Command pairs a handler with the static description spec.md §3's command
// registry would otherwise mine from a docstring's first line
// (`"<a|b|c> [name] Short description\n\nDetail…"`). Design Note §9 turns
// that runtime reflection into an explicit, compile-time field set.
type Command struct {
	Func CommandFunc

	// RequiredArg and OptionalArg mirror the docstring's "<a|b|c>"/"[name]"
	// segments; empty string means the segment is absent.
	RequiredArg string
	OptionalArg string

	Short string // one-line description, shown by the "help" built-in.
	Full  string // extended description, shown by the "doc" built-in.
}

// Plugin is the schema-aware, async-reload plugin interface spec.md §9's
// Open Question resolves on (the "later version" of the original's
// plugins/interface.py — this codebase keeps only this one).
type Plugin interface {
	Name() string

	// Environments lists the state.Environment values this plugin
	// supports; nil/empty means "every environment".
	Environments() []state.Environment

	Init(ctx context.Context) error
	LoadConfig(view *schema.View) error
	OnReload(ctx context.Context, reason ReloadReason) error
	Exit(ctx context.Context) error

	Commands() map[string]Command
	Events() map[string]EventFunc
}

// Base provides the shared/backend/state wiring every plugin embeds,
// grounded on the teacher's internal/systemd.SystemD, which embeds
// *config.Config and exposes it to every method instead of threading it
// through call signatures.
type Base struct {
	PluginName string
	State      *state.SharedState
	Backend    backend.Backend // a *backendproxy.Proxy in production
	Config     *schema.View
}

func (b *Base) Name() string { return b.PluginName }

// Environments defaults to "all environments"; plugins with a real
// restriction override it.
func (b *Base) Environments() []state.Environment { return nil }

// bindBase wires the name/shared-state/backend a Host assigns at load time.
// Unexported: only Host (same package) calls it, via the bindBase helper
// below, so a Plugin embedding *Base picks this up for free.
func (b *Base) bindBase(name string, s *state.SharedState, back backend.Backend) {
	b.PluginName = name
	b.State = s
	b.Backend = back
}

// bindBase assigns name/state/backend into p's embedded Base, if present.
// Plugins that don't embed Base (none in this tree do) simply skip wiring.
func bindBase(p Plugin, name string, s *state.SharedState, back backend.Backend) {
	if setter, ok := p.(interface {
		bindBase(string, *state.SharedState, backend.Backend)
	}); ok {
		setter.bindBase(name, s, back)
	}
}
