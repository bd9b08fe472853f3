// Package backendproxy implements the per-plugin façade over the shared
// backend.Backend (spec.md §4.4): "Every plugin receives its own proxy
// wrapping the one shared backend, so log lines from backend operations
// carry the plugin's logger name. The proxy is the only thing plugins see."
//
// Grounded on the teacher's internal/systemd/systemd.go, which wraps
// *config.Config and logs around every operation with log.Printf; here the
// wrapped thing is backend.Backend and the logger is a zerolog sub-logger
// instead of a package-global stdlib logger.
package backendproxy

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Nomadcxx/pyprlandd/internal/backend"
)

// Proxy wraps a shared backend.Backend, attaching a plugin-scoped logger to
// every call. It implements backend.Backend itself so plugins can use it as
// a drop-in backend with no special-casing.
type Proxy struct {
	inner backend.Backend
	log   zerolog.Logger
}

func New(inner backend.Backend, log zerolog.Logger) *Proxy {
	return &Proxy{inner: inner, log: log}
}

func (p *Proxy) Name() string            { return p.inner.Name() }
func (p *Proxy) EventSocketPath() string { return p.inner.EventSocketPath() }

func (p *Proxy) GetClients(ctx context.Context, filter backend.ClientFilter) ([]backend.ClientInfo, error) {
	clients, err := p.inner.GetClients(ctx, filter)
	if err != nil {
		p.log.Debug().Err(err).Msg("backend: get_clients failed")
	}
	return clients, err
}

func (p *Proxy) GetMonitors(ctx context.Context, includeDisabled bool) ([]backend.MonitorInfo, error) {
	monitors, err := p.inner.GetMonitors(ctx, includeDisabled)
	if err != nil {
		p.log.Debug().Err(err).Msg("backend: get_monitors failed")
	}
	return monitors, err
}

func (p *Proxy) Execute(ctx context.Context, command string, baseCommand string, weak bool) error {
	err := p.inner.Execute(ctx, command, baseCommand, weak)
	if err != nil {
		ev := p.log.Error()
		if weak {
			ev = p.log.Warn()
		}
		ev.Err(err).Str("command", command).Str("base", baseCommand).Msg("backend: execute failed")
	} else {
		p.log.Debug().Str("command", command).Str("base", baseCommand).Msg("backend: execute ok")
	}
	return err
}

func (p *Proxy) ExecuteJSON(ctx context.Context, command string) ([]byte, error) {
	raw, err := p.inner.ExecuteJSON(ctx, command)
	if err != nil {
		p.log.Error().Err(err).Str("command", command).Msg("backend: execute_json failed")
	}
	return raw, err
}

func (p *Proxy) ExecuteBatch(ctx context.Context, commands []string) error {
	err := p.inner.ExecuteBatch(ctx, commands)
	if err != nil {
		p.log.Error().Err(err).Int("count", len(commands)).Msg("backend: execute_batch failed")
	} else {
		p.log.Debug().Int("count", len(commands)).Msg("backend: execute_batch ok")
	}
	return err
}

func (p *Proxy) Notify(ctx context.Context, message string, durationMS int, color backend.Color) error {
	err := p.inner.Notify(ctx, message, durationMS, color)
	if err != nil {
		p.log.Warn().Err(err).Msg("backend: notify failed")
	}
	return err
}

func (p *Proxy) ParseEvent(raw string) (string, string, bool) {
	return p.inner.ParseEvent(raw)
}

// Logger exposes the plugin-scoped logger so the plugin can log
// non-backend messages through the same sink (matching spec.md §3's
// Plugin.logger field).
func (p *Proxy) Logger() zerolog.Logger { return p.log }

var _ backend.Backend = (*Proxy)(nil)
