package scratchpad

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Nomadcxx/pyprlandd/internal/backend"
	"github.com/Nomadcxx/pyprlandd/internal/pluginhost"
	"github.com/Nomadcxx/pyprlandd/internal/schema"
)

// PluginName is the config section / plugin-list entry this plugin binds
// to ("scratchpads", one sub-table per uid).
const PluginName = "scratchpads"

// Plugin wraps Manager as a pluginhost.Plugin (spec.md §4.7).
type Plugin struct {
	pluginhost.Base
	mgr *Manager
}

func New() *Plugin {
	return &Plugin{}
}

type logged interface{ Logger() zerolog.Logger }

func (p *Plugin) Init(ctx context.Context) error {
	log := zerolog.Nop()
	if l, ok := p.Base.Backend.(logged); ok {
		log = l.Logger()
	}
	p.mgr = NewManager(log, p.Base.Backend)
	return nil
}

// LoadConfig registers every configured scratchpad uid (spec.md §4.6's
// load_config -> schema validation, generalized here to also resolve
// per-monitor overrides against the currently active monitor).
func (p *Plugin) LoadConfig(v *schema.View) error {
	monitor := p.Base.State.ActiveMonitor()
	for _, uid := range v.Keys() {
		sub := v.Sub(uid)
		cfg, err := LoadConfigForMonitor(sub, monitor)
		if err != nil {
			return fmt.Errorf("scratchpad %q: %w", uid, err)
		}
		if _, err := p.mgr.Configure(context.Background(), uid, cfg); err != nil {
			return err
		}
	}
	return nil
}

func (p *Plugin) OnReload(ctx context.Context, reason pluginhost.ReloadReason) error {
	if reason == pluginhost.ReasonReload {
		p.mgr.ReinstallRules(ctx)
	}
	return nil
}

func (p *Plugin) Exit(ctx context.Context) error { return nil }

func (p *Plugin) Commands() map[string]pluginhost.Command {
	return map[string]pluginhost.Command{
		"toggle": {Func: p.runToggle, RequiredArg: "scratchpad", Short: "Toggle visibility of a scratchpad."},
		"show":   {Func: p.runShow, RequiredArg: "scratchpad", Short: "Show a scratchpad."},
		"hide":   {Func: p.runHide, RequiredArg: "scratchpad", Short: "Hide a scratchpad."},
	}
}

func (p *Plugin) Events() map[string]pluginhost.EventFunc {
	return map[string]pluginhost.EventFunc{
		"event_openwindow":     p.onOpenWindow,
		"event_closewindow":    p.onCloseWindow,
		"event_activewindowv2": p.onActiveWindowV2,
		"event_monitorremoved": p.onMonitorRemoved,
	}
}

func (p *Plugin) uidArg(args []string) (string, error) {
	if len(args) == 0 || args[0] == "" {
		return "", fmt.Errorf("scratchpad: missing required <scratchpad> argument")
	}
	return args[0], nil
}

func (p *Plugin) runToggle(ctx context.Context, args []string) (string, error) {
	uid, err := p.uidArg(args)
	if err != nil {
		return "", err
	}
	return "", p.mgr.Toggle(ctx, uid, p.Base.State.ActiveWorkspace(), p.Base.State.ActiveWindow())
}

func (p *Plugin) runShow(ctx context.Context, args []string) (string, error) {
	uid, err := p.uidArg(args)
	if err != nil {
		return "", err
	}
	return "", p.mgr.Show(ctx, uid, p.Base.State.ActiveWorkspace(), p.Base.State.ActiveWindow())
}

func (p *Plugin) runHide(ctx context.Context, args []string) (string, error) {
	uid, err := p.uidArg(args)
	if err != nil {
		return "", err
	}
	return "", p.mgr.Hide(ctx, uid)
}

// onOpenWindow payload is "ADDRESS,WORKSPACE,CLASS,TITLE" (Hyprland
// openwindow event shape).
func (p *Plugin) onOpenWindow(ctx context.Context, payload string) {
	parts := strings.SplitN(payload, ",", 4)
	if len(parts) < 3 {
		return
	}
	client := clientFromOpenWindow(parts)
	p.mgr.OnWindowOpened(ctx, client)
}

// onCloseWindow payload is the bare closed window's address.
func (p *Plugin) onCloseWindow(ctx context.Context, payload string) {
	p.mgr.OnWindowClosed(ctx, "0x"+payload)
}

func (p *Plugin) onActiveWindowV2(ctx context.Context, payload string) {
	if payload == "" {
		return
	}
	p.mgr.ScheduleHysteresisHide(ctx, "0x"+payload)
}

func (p *Plugin) onMonitorRemoved(ctx context.Context, payload string) {
	p.mgr.OnMonitorRemoved(ctx, payload)
}

// clientFromOpenWindow builds the minimal backend.ClientInfo needed for
// match purposes from an "openwindow" event's comma-separated fields
// (ADDRESS,WORKSPACE,CLASS,TITLE) — Hyprland's event address has no "0x"
// prefix, matching backend.Hyprland.ParseEvent's payload convention.
func clientFromOpenWindow(parts []string) backend.ClientInfo {
	c := backend.ClientInfo{Address: "0x" + parts[0]}
	if len(parts) > 1 {
		c.Workspace.Name = parts[1]
	}
	if len(parts) > 2 {
		c.Class = parts[2]
	}
	if len(parts) > 3 {
		c.Title = parts[3]
	}
	return c
}
