// Package dpms implements the "toggle_dpms" glue plugin (SPEC_FULL.md §4):
// toggles display power via a batched dpms command.
package dpms

import (
	"context"

	"github.com/Nomadcxx/pyprlandd/internal/pluginhost"
	"github.com/Nomadcxx/pyprlandd/internal/schema"
)

const PluginName = "toggle_dpms"

type Plugin struct {
	pluginhost.Base
	on bool
}

func New() *Plugin { return &Plugin{on: true} }

func (p *Plugin) Init(ctx context.Context) error                               { return nil }
func (p *Plugin) LoadConfig(v *schema.View) error                              { return nil }
func (p *Plugin) OnReload(ctx context.Context, r pluginhost.ReloadReason) error { return nil }
func (p *Plugin) Exit(ctx context.Context) error                               { return nil }

func (p *Plugin) Commands() map[string]pluginhost.Command {
	return map[string]pluginhost.Command{
		"toggle_dpms": {Func: p.runToggleDPMS, Short: "Toggle all monitors' DPMS state."},
	}
}

func (p *Plugin) Events() map[string]pluginhost.EventFunc { return nil }

func (p *Plugin) runToggleDPMS(ctx context.Context, args []string) (string, error) {
	p.on = !p.on
	state := "on"
	if !p.on {
		state = "off"
	}
	return "", p.Backend.ExecuteBatch(ctx, []string{"dpms " + state})
}
