// Package expose implements the "expose" glue plugin (SPEC_FULL.md §4): an
// overview-toggle dispatch command plus window-open/close bookkeeping so
// the overview's client count stays current.
package expose

import (
	"context"
	"sync/atomic"

	"github.com/Nomadcxx/pyprlandd/internal/pluginhost"
	"github.com/Nomadcxx/pyprlandd/internal/schema"
)

const PluginName = "expose"

type Plugin struct {
	pluginhost.Base
	windowCount int32
}

func New() *Plugin { return &Plugin{} }

func (p *Plugin) Init(ctx context.Context) error                               { return nil }
func (p *Plugin) LoadConfig(v *schema.View) error                              { return nil }
func (p *Plugin) OnReload(ctx context.Context, r pluginhost.ReloadReason) error { return nil }
func (p *Plugin) Exit(ctx context.Context) error                               { return nil }

func (p *Plugin) Commands() map[string]pluginhost.Command {
	return map[string]pluginhost.Command{
		"expose": {Func: p.runExpose, Short: "Toggle the window overview."},
	}
}

func (p *Plugin) Events() map[string]pluginhost.EventFunc {
	return map[string]pluginhost.EventFunc{
		"event_openwindow":  p.onOpenWindow,
		"event_closewindow": p.onCloseWindow,
	}
}

func (p *Plugin) runExpose(ctx context.Context, args []string) (string, error) {
	return "", p.Backend.Execute(ctx, "expose", "dispatch", true)
}

// onOpenWindow/onCloseWindow just keep a live window count; the overview
// dispatch itself is entirely the compositor's concern.
func (p *Plugin) onOpenWindow(ctx context.Context, payload string) {
	atomic.AddInt32(&p.windowCount, 1)
}

func (p *Plugin) onCloseWindow(ctx context.Context, payload string) {
	atomic.AddInt32(&p.windowCount, -1)
}
