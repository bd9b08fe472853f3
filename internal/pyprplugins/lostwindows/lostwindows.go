// Package lostwindows implements the "lost_windows" glue plugin
// (SPEC_FULL.md §4): finds floating clients parked on a workspace that no
// longer maps to a live monitor and moves them back onto the active one.
package lostwindows

import (
	"context"
	"fmt"

	"github.com/Nomadcxx/pyprlandd/internal/backend"
	"github.com/Nomadcxx/pyprlandd/internal/pluginhost"
	"github.com/Nomadcxx/pyprlandd/internal/schema"
)

const PluginName = "lost_windows"

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
		"attract_lost": {Func: p.runAttractLost, Short: "Bring back floating windows stranded on a disconnected monitor's workspace."},
	}
}

func (p *Plugin) Events() map[string]pluginhost.EventFunc { return nil }

func (p *Plugin) runAttractLost(ctx context.Context, args []string) (string, error) {
	clients, err := p.Backend.GetClients(ctx, backend.ClientFilter{})
	if err != nil {
		return "", fmt.Errorf("lost_windows: get_clients: %w", err)
	}
	monitors, err := p.Backend.GetMonitors(ctx, false)
	if err != nil {
		return "", fmt.Errorf("lost_windows: get_monitors: %w", err)
	}

	liveWorkspace := map[string]bool{}
	for _, m := range monitors {
		liveWorkspace[m.ActiveWorkspace.Name] = true
	}
	active := p.State.ActiveWorkspace()

	var moved int
	var cmds []string
	for _, c := range clients {
		if !c.Floating || liveWorkspace[c.Workspace.Name] {
			continue
		}
		cmds = append(cmds, fmt.Sprintf("movetoworkspace %s,address:%s", active, c.Address))
		moved++
	}
	if len(cmds) == 0 {
		return "", nil
	}
	if err := p.Backend.ExecuteBatch(ctx, cmds); err != nil {
		return "", fmt.Errorf("lost_windows: execute_batch: %w", err)
	}
	return fmt.Sprintf("moved %d window(s) back", moved), nil
}
