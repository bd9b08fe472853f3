// Package magnify implements the "magnify" glue plugin (SPEC_FULL.md §4):
// a single command that sets the compositor's cursor zoom factor.
package magnify

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Nomadcxx/pyprlandd/internal/pluginhost"
	"github.com/Nomadcxx/pyprlandd/internal/schema"
)

const PluginName = "magnify"

type Plugin struct {
	pluginhost.Base
	factor  float64 // configured default
	applied float64 // currently applied zoom; 1 means "not zoomed"
}

func New() *Plugin { return &Plugin{factor: 2, applied: 1} }

func (p *Plugin) Init(ctx context.Context) error { return nil }

func (p *Plugin) LoadConfig(v *schema.View) error {
	p.factor = v.GetFloat("factor", 2)
	return nil
}

func (p *Plugin) OnReload(ctx context.Context, reason pluginhost.ReloadReason) error { return nil }
func (p *Plugin) Exit(ctx context.Context) error                                    { return nil }

func (p *Plugin) Commands() map[string]pluginhost.Command {
	return map[string]pluginhost.Command{
		"zoom": {Func: p.runZoom, OptionalArg: "factor", Short: "Zoom the cursor in or toggle zoom off."},
	}
}

func (p *Plugin) Events() map[string]pluginhost.EventFunc { return nil }

// runZoom implements spec.md §8 Scenario 2: sets misc:cursor_zoom_factor to
// the configured factor, or toggles back to 1 on a second call, or to an
// explicit factor argument when given.
func (p *Plugin) runZoom(ctx context.Context, args []string) (string, error) {
	factor := p.factor
	switch {
	case len(args) > 0 && args[0] != "":
		f, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return "", fmt.Errorf("magnify: invalid factor %q: %w", args[0], err)
		}
		factor = f
	case p.applied != 1:
		factor = 1
	}
	p.applied = factor
	return "", p.Backend.Execute(ctx, fmt.Sprintf("misc:cursor_zoom_factor %v", factor), "keyword", true)
}
