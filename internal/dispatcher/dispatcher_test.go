package dispatcher

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nomadcxx/pyprlandd/internal/backend"
	"github.com/Nomadcxx/pyprlandd/internal/pluginhost"
	"github.com/Nomadcxx/pyprlandd/internal/pyprconf"
	"github.com/Nomadcxx/pyprlandd/internal/schema"
	"github.com/Nomadcxx/pyprlandd/internal/state"
)

type fakeBackend struct{}

func (fakeBackend) Name() string { return "fake" }
func (fakeBackend) GetClients(ctx context.Context, f backend.ClientFilter) ([]backend.ClientInfo, error) {
	return nil, nil
}
func (fakeBackend) GetMonitors(ctx context.Context, includeDisabled bool) ([]backend.MonitorInfo, error) {
	return nil, nil
}
func (fakeBackend) Execute(ctx context.Context, command, baseCommand string, weak bool) error {
	return nil
}
func (fakeBackend) ExecuteJSON(ctx context.Context, command string) ([]byte, error) { return nil, nil }
func (fakeBackend) ExecuteBatch(ctx context.Context, commands []string) error       { return nil }
func (fakeBackend) Notify(ctx context.Context, message string, durationMS int, color backend.Color) error {
	return nil
}
func (fakeBackend) ParseEvent(raw string) (string, string, bool) { return "", "", false }
func (fakeBackend) EventSocketPath() string                      { return "" }

type fakePlugin struct {
	pluginhost.Base
	events   map[string]pluginhost.EventFunc
	commands map[string]pluginhost.Command
}

func (p *fakePlugin) Init(ctx context.Context) error                               { return nil }
func (p *fakePlugin) LoadConfig(v *schema.View) error                              { return nil }
func (p *fakePlugin) OnReload(ctx context.Context, r pluginhost.ReloadReason) error { return nil }
func (p *fakePlugin) Exit(ctx context.Context) error                               { return nil }
func (p *fakePlugin) Commands() map[string]pluginhost.Command                      { return p.commands }
func (p *fakePlugin) Events() map[string]pluginhost.EventFunc                      { return p.events }

func newTestHost(t *testing.T, echoEvents *int32, echoCommands map[string]pluginhost.Command) (*pluginhost.Host, *Dispatcher) {
	t.Helper()
	log := zerolog.Nop()
	shared := state.New(state.EnvHyprland)

	registry := map[string]pluginhost.Factory{
		"pyprland": func() pluginhost.Plugin {
			return &fakePlugin{
				events: map[string]pluginhost.EventFunc{},
				commands: map[string]pluginhost.Command{
					"version": {Func: func(ctx context.Context, args []string) (string, error) { return "1.0.0", nil }},
				},
			}
		},
		"echo": func() pluginhost.Plugin {
			return &fakePlugin{
				events: map[string]pluginhost.EventFunc{
					"event_activewindowv2": func(ctx context.Context, payload string) {
						atomic.AddInt32(echoEvents, 1)
					},
				},
				commands: echoCommands,
			}
		},
	}

	host := pluginhost.NewHost(log, shared, fakeBackend{}, registry, nil)
	doc := &pyprconf.Document{Sections: map[string]map[string]any{
		"pyprland": {"plugins": []any{"echo"}},
		"echo":     {},
	}}
	if err := host.LoadAll(context.Background(), doc, state.EnvHyprland); err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}

	d := New(log, host, shared, fakeBackend{}, false)
	for name, p := range host.Loaded() {
		d.StartPlugin(context.Background(), name, p)
	}
	return host, d
}

func TestDispatchEventDeduplicatesRepeatedFocus(t *testing.T) {
	var count int32
	_, d := newTestHost(t, &count, nil)

	d.DispatchEvent(context.Background(), "event_activewindowv2", "abcdef1234567890")
	d.DispatchEvent(context.Background(), "event_activewindowv2", "abcdef1234567890")
	time.Sleep(50 * time.Millisecond)

	if got := atomic.LoadInt32(&count); got != 1 {
		t.Errorf("handler invoked %d times, want 1 (second call should be deduplicated)", got)
	}
}

func TestDispatchEventDistinctPayloadsBothRun(t *testing.T) {
	var count int32
	_, d := newTestHost(t, &count, nil)

	d.DispatchEvent(context.Background(), "event_activewindowv2", "aaaaaaaaaaaaaaaa")
	d.DispatchEvent(context.Background(), "event_activewindowv2", "bbbbbbbbbbbbbbbb")
	time.Sleep(50 * time.Millisecond)

	if got := atomic.LoadInt32(&count); got != 2 {
		t.Errorf("handler invoked %d times, want 2", got)
	}
}

func TestDispatchCommandRoutesToOwningPlugin(t *testing.T) {
	var count int32
	commands := map[string]pluginhost.Command{
		"echo": {Func: func(ctx context.Context, args []string) (string, error) { return "pong", nil }},
	}
	_, d := newTestHost(t, &count, commands)

	body, err := d.DispatchCommand(context.Background(), "echo", nil)
	if err != nil {
		t.Fatalf("DispatchCommand() error = %v", err)
	}
	if body != "pong" {
		t.Errorf("DispatchCommand() body = %q, want pong", body)
	}
}

func TestDispatchCommandCoreRunsInBand(t *testing.T) {
	var count int32
	_, d := newTestHost(t, &count, nil)

	body, err := d.DispatchCommand(context.Background(), "version", nil)
	if err != nil {
		t.Fatalf("DispatchCommand() error = %v", err)
	}
	if body != "1.0.0" {
		t.Errorf("DispatchCommand() body = %q, want 1.0.0", body)
	}
}

func TestDispatchCommandUnknownReturnsError(t *testing.T) {
	var count int32
	_, d := newTestHost(t, &count, nil)

	if _, err := d.DispatchCommand(context.Background(), "does-not-exist", nil); err == nil {
		t.Fatal("DispatchCommand() expected error for unknown command")
	}
}
