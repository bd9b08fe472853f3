// Package shiftmonitors implements the "shift_monitors" glue plugin
// (SPEC_FULL.md §4): rotates the active workspace assignment across
// monitors by a relative offset.
package shiftmonitors

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Nomadcxx/pyprlandd/internal/pluginhost"
	"github.com/Nomadcxx/pyprlandd/internal/schema"
)

const PluginName = "shift_monitors"

type Plugin struct {
	pluginhost.Base
}

func New() *Plugin { return &Plugin{} }

func (p *Plugin) Init(ctx context.Context) error                               { return nil }
func (p *Plugin) LoadConfig(v *schema.View) error                              { return nil }
func (p *Plugin) OnReload(ctx context.Context, r pluginhost.ReloadReason) error { return nil }
func (p *Plugin) Exit(ctx context.Context) error                               { return nil }

func (p *Plugin) Commands() map[string]pluginhost.Command {
	return map[string]pluginhost.Command{
		"shift_monitors": {Func: p.runShiftMonitors, RequiredArg: "+1|-1", Short: "Swap workspaces between monitors in a rotation."},
	}
}

func (p *Plugin) Events() map[string]pluginhost.EventFunc { return nil }

// runShiftMonitors rotates state.monitors' workspace assignment by the
// given relative offset ("+1" or "-1"), moving each monitor's active
// workspace onto the next (or previous) monitor in the ring.
func (p *Plugin) runShiftMonitors(ctx context.Context, args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("shift_monitors: missing required +1|-1 argument")
	}
	offset, err := strconv.Atoi(args[0])
	if err != nil || (offset != 1 && offset != -1) {
		return "", fmt.Errorf("shift_monitors: argument must be +1 or -1, got %q", args[0])
	}

	monitors := p.State.ActiveMonitors()
	n := len(monitors)
	if n < 2 {
		return "", nil
	}

	workspaces := make([]string, n)
	for i, name := range monitors {
		ws, err := p.workspaceOf(ctx, name)
		if err != nil {
			return "", err
		}
		workspaces[i] = ws
	}

	cmds := make([]string, 0, n)
	for i, name := range monitors {
		src := ((i-offset)%n + n) % n
		cmds = append(cmds, fmt.Sprintf("moveworkspacetomonitor %s %s", workspaces[src], name))
	}
	return "", p.Backend.ExecuteBatch(ctx, cmds)
}

func (p *Plugin) workspaceOf(ctx context.Context, monitor string) (string, error) {
	monitors, err := p.Backend.GetMonitors(ctx, false)
	if err != nil {
		return "", fmt.Errorf("shift_monitors: get_monitors: %w", err)
	}
	for _, m := range monitors {
		if m.Name == monitor {
			return m.ActiveWorkspace.Name, nil
		}
	}
	return "", fmt.Errorf("shift_monitors: monitor %q not found", monitor)
}
