// Package core implements the built-in "pyprland" plugin: the handful of
// commands that must reply synchronously (version, dumpjson, help, reload,
// compgen, doc, exit) and the focus/monitor event handlers that keep
// internal/state.SharedState current (spec.md §3: "mutated by: the
// built-in core plugin").
//
// Grounded on the teacher's internal/systemd.SystemD as "the one component
// that owns process-wide state and exposes a handful of named operations
// over it" — generalized from managed OS processes to the daemon's own
// control-plane commands.
package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/Nomadcxx/pyprlandd/internal/pluginhost"
	"github.com/Nomadcxx/pyprlandd/internal/schema"
)

// Registry is the minimal view core needs of internal/commands.Registry,
// narrowed to avoid an import cycle (commands.Build takes the loaded
// plugin set, which includes this one).
type Registry interface {
	Help() string
	Compgen(prefix string) []string
	Doc(name string) (string, bool)
}

// Deps are the daemon-level operations core's built-ins delegate to.
type Deps struct {
	Version    string
	Reload     func(ctx context.Context) error
	Shutdown   func()
	ConfigJSON func() ([]byte, error)
	Registry   func() Registry // lazily resolved: built after every plugin loads
}

// Plugin is the built-in "pyprland" core plugin (spec.md §4.5's in-band
// plugin).
type Plugin struct {
	pluginhost.Base
	deps Deps
}

func New(deps Deps) *Plugin {
	return &Plugin{deps: deps}
}

func (p *Plugin) Init(ctx context.Context) error                               { return nil }
func (p *Plugin) LoadConfig(v *schema.View) error                              { return nil }
func (p *Plugin) OnReload(ctx context.Context, r pluginhost.ReloadReason) error { return nil }
func (p *Plugin) Exit(ctx context.Context) error                               { return nil }

func (p *Plugin) Commands() map[string]pluginhost.Command {
	return map[string]pluginhost.Command{
		"version":  {Func: p.runVersion, Short: "Show the version."},
		"dumpjson": {Func: p.runDumpJSON, Short: "Dump the configuration in JSON format."},
		"help":     {Func: p.runHelp, Short: "Show this help."},
		"reload":   {Func: p.runReload, Short: "Load the configuration (new plugins will be added & config updated)."},
		"compgen":  {Func: p.runCompgen, OptionalArg: "prefix", Short: "List matching command names."},
		"doc":      {Func: p.runDoc, RequiredArg: "command", Short: "Show full documentation for a command."},
		"exit":     {Func: p.runExit, Short: "Exit the daemon."},
	}
}

func (p *Plugin) Events() map[string]pluginhost.EventFunc {
	return map[string]pluginhost.EventFunc{
		"event_activewindow":   p.onActiveWindow,
		"event_activewindowv2": p.onActiveWindowV2,
		"event_workspace":      p.onWorkspace,
		"event_focusedmon":     p.onFocusedMon,
		"event_monitoraddedv2": p.onMonitorAdded,
		"event_monitorremoved": p.onMonitorRemoved,
	}
}

func (p *Plugin) runVersion(ctx context.Context, args []string) (string, error) {
	return p.deps.Version, nil
}

func (p *Plugin) runDumpJSON(ctx context.Context, args []string) (string, error) {
	if p.deps.ConfigJSON == nil {
		return "{}", nil
	}
	raw, err := p.deps.ConfigJSON()
	if err != nil {
		return "", fmt.Errorf("dumpjson: %w", err)
	}
	return string(raw), nil
}

func (p *Plugin) runHelp(ctx context.Context, args []string) (string, error) {
	if p.deps.Registry == nil {
		return "", nil
	}
	return p.deps.Registry().Help(), nil
}

func (p *Plugin) runReload(ctx context.Context, args []string) (string, error) {
	if p.deps.Reload == nil {
		return "", nil
	}
	if err := p.deps.Reload(ctx); err != nil {
		return "", fmt.Errorf("reload: %w", err)
	}
	return "", nil
}

func (p *Plugin) runCompgen(ctx context.Context, args []string) (string, error) {
	prefix := ""
	if len(args) > 0 {
		prefix = args[0]
	}
	if p.deps.Registry == nil {
		return "", nil
	}
	return strings.Join(p.deps.Registry().Compgen(prefix), "\n"), nil
}

func (p *Plugin) runDoc(ctx context.Context, args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("doc: missing required <command> argument")
	}
	if p.deps.Registry == nil {
		return "", fmt.Errorf("doc: no command registry available")
	}
	doc, ok := p.deps.Registry().Doc(args[0])
	if !ok {
		return "", fmt.Errorf("doc: unknown command %q", args[0])
	}
	return doc, nil
}

func (p *Plugin) runExit(ctx context.Context, args []string) (string, error) {
	if p.deps.Shutdown != nil {
		p.deps.Shutdown()
	}
	return "", nil
}

// onActiveWindow handles the legacy (non-v2) event: payload is
// "CLASS,TITLE" with no address, so it is a no-op; the authoritative
// active-window update comes from activewindowv2.
func (p *Plugin) onActiveWindow(ctx context.Context, payload string) {}

// onActiveWindowV2 implements spec.md §8 Scenario 1: payload is a bare hex
// address, stored "0x"-prefixed.
func (p *Plugin) onActiveWindowV2(ctx context.Context, payload string) {
	if payload == "" {
		_ = p.State.SetActiveWindow("")
		return
	}
	_ = p.State.SetActiveWindow("0x" + payload)
}

// onWorkspace handles "workspace>>NAME".
func (p *Plugin) onWorkspace(ctx context.Context, payload string) {
	p.State.SetActiveWorkspace(payload)
}

// onFocusedMon handles "focusedmon>>MONITOR,WORKSPACE".
func (p *Plugin) onFocusedMon(ctx context.Context, payload string) {
	parts := strings.SplitN(payload, ",", 2)
	if len(parts) == 0 || parts[0] == "" {
		return
	}
	if err := p.State.SetActiveMonitor(parts[0]); err != nil {
		// The monitor list hasn't caught up with this event yet; ignore,
		// the next monitoraddedv2/GetMonitors refresh will reconcile it.
		return
	}
	if len(parts) == 2 {
		p.State.SetActiveWorkspace(parts[1])
	}
}

// onMonitorAdded handles "monitoraddedv2>>ID,NAME,DESCRIPTION" by
// appending NAME to the monitor list if absent.
func (p *Plugin) onMonitorAdded(ctx context.Context, payload string) {
	parts := strings.Split(payload, ",")
	if len(parts) < 2 {
		return
	}
	name := parts[1]
	current := p.State.Monitors()
	for _, m := range current {
		if m == name {
			return
		}
	}
	p.State.SetMonitors(append(current, name))
}

// onMonitorRemoved handles "monitorremoved>>NAME" by dropping it from the
// monitor list.
func (p *Plugin) onMonitorRemoved(ctx context.Context, payload string) {
	current := p.State.Monitors()
	out := make([]string, 0, len(current))
	for _, m := range current {
		if m != payload {
			out = append(out, m)
		}
	}
	p.State.SetMonitors(out)
}
