// Package wsfollowfocus implements the "workspaces_follow_focus" glue
// plugin (SPEC_FULL.md §4): moving to the next/previous workspace that
// isn't already displayed on another monitor, so workspace switches never
// land on an already-visible workspace.
package wsfollowfocus

import (
	"context"
	"fmt"

	"github.com/Nomadcxx/pyprlandd/internal/pluginhost"
	"github.com/Nomadcxx/pyprlandd/internal/schema"
)

const PluginName = "workspaces_follow_focus"

type Plugin struct {
	pluginhost.Base
	maxWorkspaces int
}

func New() *Plugin { return &Plugin{maxWorkspaces: 10} }

func (p *Plugin) Init(ctx context.Context) error { return nil }

func (p *Plugin) LoadConfig(v *schema.View) error {
	p.maxWorkspaces = v.GetInt("max_workspaces", 10)
	return nil
}

func (p *Plugin) OnReload(ctx context.Context, r pluginhost.ReloadReason) error { return nil }
func (p *Plugin) Exit(ctx context.Context) error                               { return nil }

func (p *Plugin) Commands() map[string]pluginhost.Command {
	return map[string]pluginhost.Command{
		"change_workspace": {Func: p.runChangeWorkspace, RequiredArg: "+1|-1", Short: "Move to the next/previous workspace not already shown elsewhere."},
	}
}

func (p *Plugin) Events() map[string]pluginhost.EventFunc { return nil }

func (p *Plugin) runChangeWorkspace(ctx context.Context, args []string) (string, error) {
	if len(args) == 0 || (args[0] != "+1" && args[0] != "-1") {
		return "", fmt.Errorf("workspaces_follow_focus: argument must be +1 or -1")
	}
	delta := 1
	if args[0] == "-1" {
		delta = -1
	}

	monitors, err := p.Backend.GetMonitors(ctx, false)
	if err != nil {
		return "", fmt.Errorf("workspaces_follow_focus: get_monitors: %w", err)
	}
	shown := map[int]bool{}
	current := 1
	for _, m := range monitors {
		shown[m.ActiveWorkspace.ID] = true
		if m.Focused {
			current = m.ActiveWorkspace.ID
		}
	}

	next := current
	for i := 0; i < p.maxWorkspaces; i++ {
		next += delta
		if next < 1 {
			next = p.maxWorkspaces
		} else if next > p.maxWorkspaces {
			next = 1
		}
		if !shown[next] {
			break
		}
	}

	return "", p.Backend.Execute(ctx, fmt.Sprintf("workspace %d", next), "dispatch", false)
}
