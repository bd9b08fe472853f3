package lostwindows

import (
	"context"
	"testing"

	"github.com/Nomadcxx/pyprlandd/internal/backend"
	"github.com/Nomadcxx/pyprlandd/internal/state"
)

type fakeBackend struct {
	clients  []backend.ClientInfo
	monitors []backend.MonitorInfo
	batches  [][]string
}

func (f *fakeBackend) Name() string { return "fake" }
func (f *fakeBackend) GetClients(ctx context.Context, filter backend.ClientFilter) ([]backend.ClientInfo, error) {
	return f.clients, nil
}
func (f *fakeBackend) GetMonitors(ctx context.Context, includeDisabled bool) ([]backend.MonitorInfo, error) {
	return f.monitors, nil
}
func (f *fakeBackend) Execute(ctx context.Context, command, baseCommand string, weak bool) error {
	return nil
}
func (f *fakeBackend) ExecuteJSON(ctx context.Context, command string) ([]byte, error) { return nil, nil }
func (f *fakeBackend) ExecuteBatch(ctx context.Context, commands []string) error {
	f.batches = append(f.batches, commands)
	return nil
}
func (f *fakeBackend) Notify(ctx context.Context, message string, durationMS int, color backend.Color) error {
	return nil
}
func (f *fakeBackend) ParseEvent(raw string) (string, string, bool) { return "", "", false }
func (f *fakeBackend) EventSocketPath() string                      { return "" }

func newTestPlugin() (*Plugin, *fakeBackend) {
	p := New()
	back := &fakeBackend{}
	p.Backend = back
	p.State = state.New(state.EnvHyprland)
	return p, back
}

func TestAttractLostMovesStrandedFloating(t *testing.T) {
	p, back := newTestPlugin()
	p.State.SetMonitors([]string{"DP-1"})
	_ = p.State.SetActiveMonitor("DP-1")
	p.State.SetActiveWorkspace("1")

	back.monitors = []backend.MonitorInfo{
		{Name: "DP-1", ActiveWorkspace: backend.WorkspaceRef{Name: "1"}},
	}
	back.clients = []backend.ClientInfo{
		{Address: "0xaaa", Floating: true, Workspace: backend.WorkspaceRef{Name: "7"}},
		{Address: "0xbbb", Floating: true, Workspace: backend.WorkspaceRef{Name: "1"}},
		{Address: "0xccc", Floating: false, Workspace: backend.WorkspaceRef{Name: "9"}},
	}

	msg, err := p.runAttractLost(context.Background(), nil)
	if err != nil {
		t.Fatalf("runAttractLost: %v", err)
	}
	if len(back.batches) != 1 || len(back.batches[0]) != 1 {
		t.Fatalf("batches = %v, want one batch with one move command", back.batches)
	}
	if back.batches[0][0] != "movetoworkspace 1,address:0xaaa" {
		t.Errorf("command = %q, want move of 0xaaa only", back.batches[0][0])
	}
	if msg == "" {
		t.Error("want a non-empty summary message")
	}
}

func TestAttractLostNoopWhenNothingStranded(t *testing.T) {
	p, back := newTestPlugin()
	back.monitors = []backend.MonitorInfo{{Name: "DP-1", ActiveWorkspace: backend.WorkspaceRef{Name: "1"}}}
	back.clients = []backend.ClientInfo{{Address: "0xaaa", Floating: true, Workspace: backend.WorkspaceRef{Name: "1"}}}

	if _, err := p.runAttractLost(context.Background(), nil); err != nil {
		t.Fatalf("runAttractLost: %v", err)
	}
	if len(back.batches) != 0 {
		t.Errorf("batches = %v, want none", back.batches)
	}
}
