// Package monitors implements the "monitors" glue plugin (SPEC_FULL.md
// §4): the layout resolver's plugin wrapper, driven on startup, monitor
// add/remove, and compositor config-reload events (spec.md §4.8).
package monitors

import (
	"context"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nomadcxx/pyprlandd/internal/backend"
	"github.com/Nomadcxx/pyprlandd/internal/layout"
	"github.com/Nomadcxx/pyprlandd/internal/pluginhost"
	"github.com/Nomadcxx/pyprlandd/internal/schema"
)

const PluginName = "monitors"

// settleDelay lets the compositor finish enumerating a newly added
// monitor before the resolver reads its geometry (spec.md §4.8).
const settleDelay = 500 * time.Millisecond

// debounceWindow suppresses the resolver's own config-reload from
// re-triggering itself (spec.md §4.8's "ignore-window" debouncer).
const debounceWindow = 1 * time.Second

// reservedKeys are top-level config fields that are not placement patterns.
var reservedKeys = map[string]bool{"unknown": true}

type Plugin struct {
	pluginhost.Base

	log      zerolog.Logger
	resolver *layout.Resolver
	entries  []layout.Entry
	unknown  string

	mu           sync.Mutex
	lastApply    time.Time
	relayoutOnce bool
}

func New() *Plugin { return &Plugin{} }

func (p *Plugin) Init(ctx context.Context) error {
	log := zerolog.Nop()
	if l, ok := p.Base.Backend.(interface{ Logger() zerolog.Logger }); ok {
		log = l.Logger()
	}
	p.log = log
	p.resolver = layout.NewResolver(log, p.Base.Backend)
	return nil
}

// LoadConfig parses the user's `<pattern> -> {...}` mapping into
// layout.Entry values (spec.md §4.8's input shape).
func (p *Plugin) LoadConfig(v *schema.View) error {
	unknown := v.GetString("unknown", "")
	var entries []layout.Entry
	for _, pattern := range v.Keys() {
		if reservedKeys[pattern] {
			continue
		}
		sub := v.Sub(pattern)
		e := layout.Entry{
			Pattern:    pattern,
			Resolution: sub.GetString("resolution", ""),
			Rate:       sub.GetFloat("rate", 0),
			Scale:      sub.GetFloat("scale", 0),
			Transform:  sub.GetInt("transform", 0),
		}
		for _, d := range sub.GetList("disables") {
			if s, ok := d.(string); ok {
				e.Disables = append(e.Disables, s)
			}
		}
		for _, key := range sub.Keys() {
			if rule, ok := layout.ParseRuleKey(key); ok {
				rule.Targets = targetsOf(sub, key)
				e.Rule = rule
				e.HasRule = true
				break
			}
		}
		entries = append(entries, e)
	}
	p.mu.Lock()
	p.entries = entries
	p.unknown = unknown
	p.mu.Unlock()
	return nil
}

func targetsOf(v *schema.View, key string) []string {
	switch val := v.Get(key, nil).(type) {
	case string:
		return []string{val}
	case []any:
		out := make([]string, 0, len(val))
		for _, x := range val {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func (p *Plugin) OnReload(ctx context.Context, reason pluginhost.ReloadReason) error {
	if !p.relayoutOnce {
		p.relayoutOnce = true
		_, err := p.relayout(ctx)
		return err
	}
	return nil
}

func (p *Plugin) Exit(ctx context.Context) error { return nil }

func (p *Plugin) Commands() map[string]pluginhost.Command {
	return map[string]pluginhost.Command{
		"relayout": {Func: p.runRelayout, Short: "Re-resolve and apply the monitor layout."},
	}
}

func (p *Plugin) Events() map[string]pluginhost.EventFunc {
	return map[string]pluginhost.EventFunc{
		"event_monitoraddedv2": p.onMonitorAdded,
		"event_monitorremoved": p.onMonitorRemoved,
		"event_configreloaded": p.onConfigReloaded,
		"niri_outputschanged":  p.onOutputsChanged,
	}
}

func (p *Plugin) runRelayout(ctx context.Context, args []string) (string, error) {
	_, err := p.relayout(ctx)
	return "", err
}

// onMonitorAdded relayouts for the newly attached monitor; if no placement
// rule applies to it, it falls back to spawning the "unknown" command via a
// shell (spec.md §8 Scenario 4).
func (p *Plugin) onMonitorAdded(ctx context.Context, payload string) {
	time.Sleep(settleDelay)
	matched, err := p.relayout(ctx)
	if err != nil || matched {
		return
	}
	p.mu.Lock()
	cmd := p.unknown
	p.mu.Unlock()
	if cmd == "" {
		return
	}
	go func() {
		c := exec.CommandContext(context.Background(), "sh", "-c", cmd)
		if err := c.Run(); err != nil {
			p.log.Warn().Err(err).Str("command", cmd).Msg("monitors: unknown-monitor command failed")
		}
	}()
}

func (p *Plugin) onMonitorRemoved(ctx context.Context, payload string) {
	_, _ = p.relayout(ctx)
}

func (p *Plugin) onConfigReloaded(ctx context.Context, payload string) {
	if p.withinDebounce() {
		return
	}
	_, _ = p.relayout(ctx)
}

func (p *Plugin) onOutputsChanged(ctx context.Context, payload string) {
	_, _ = p.relayout(ctx)
}

func (p *Plugin) withinDebounce() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return time.Since(p.lastApply) < debounceWindow
}

// relayout recomputes and applies the monitor layout. Its bool result
// reports whether any configured pattern matched a monitor currently
// present — false tells onMonitorAdded to fall back to the "unknown"
// command (spec.md §8 Scenario 4).
func (p *Plugin) relayout(ctx context.Context) (bool, error) {
	p.mu.Lock()
	entries := append([]layout.Entry(nil), p.entries...)
	p.mu.Unlock()
	if len(entries) == 0 {
		return false, nil
	}

	plan, err := p.resolver.Resolve(ctx, entries)
	if err != nil {
		return false, err
	}
	if !plan.Matched {
		return false, nil
	}
	for _, name := range plan.ToDisable {
		p.State.DisableMonitor(name)
	}
	if len(plan.Warnings) > 0 {
		_ = backend.NotifyError(ctx, p.Backend, strings.Join(plan.Warnings, "; "))
	}

	p.mu.Lock()
	p.lastApply = time.Now()
	p.mu.Unlock()

	return true, p.resolver.Apply(ctx, entries, plan)
}
