package wsfollowfocus

import (
	"context"
	"testing"

	"github.com/Nomadcxx/pyprlandd/internal/backend"
)

type fakeBackend struct {
	monitors []backend.MonitorInfo
	execs    []string
}

func (f *fakeBackend) Name() string { return "fake" }
func (f *fakeBackend) GetClients(ctx context.Context, filter backend.ClientFilter) ([]backend.ClientInfo, error) {
	return nil, nil
}
func (f *fakeBackend) GetMonitors(ctx context.Context, includeDisabled bool) ([]backend.MonitorInfo, error) {
	return f.monitors, nil
}
func (f *fakeBackend) Execute(ctx context.Context, command, baseCommand string, weak bool) error {
	f.execs = append(f.execs, command)
	return nil
}
func (f *fakeBackend) ExecuteJSON(ctx context.Context, command string) ([]byte, error) { return nil, nil }
func (f *fakeBackend) ExecuteBatch(ctx context.Context, commands []string) error       { return nil }
func (f *fakeBackend) Notify(ctx context.Context, message string, durationMS int, color backend.Color) error {
	return nil
}
func (f *fakeBackend) ParseEvent(raw string) (string, string, bool) { return "", "", false }
func (f *fakeBackend) EventSocketPath() string                      { return "" }

func newTestPlugin() (*Plugin, *fakeBackend) {
	p := New()
	back := &fakeBackend{}
	p.Backend = back
	return p, back
}

func TestChangeWorkspaceRejectsBadArg(t *testing.T) {
	p, _ := newTestPlugin()
	if _, err := p.runChangeWorkspace(context.Background(), []string{"2"}); err == nil {
		t.Error("want error for non +1/-1 argument")
	}
}

func TestChangeWorkspaceSkipsAlreadyShown(t *testing.T) {
	p, back := newTestPlugin()
	back.monitors = []backend.MonitorInfo{
		{Name: "DP-1", Focused: true, ActiveWorkspace: backend.WorkspaceRef{ID: 1}},
		{Name: "HDMI-A-1", ActiveWorkspace: backend.WorkspaceRef{ID: 2}},
	}
	if _, err := p.runChangeWorkspace(context.Background(), []string{"+1"}); err != nil {
		t.Fatalf("runChangeWorkspace: %v", err)
	}
	if len(back.execs) != 1 || back.execs[0] != "workspace 3" {
		t.Fatalf("execs = %v, want [workspace 3] (2 already shown)", back.execs)
	}
}

func TestChangeWorkspaceWrapsAtBound(t *testing.T) {
	p, back := newTestPlugin()
	p.maxWorkspaces = 3
	back.monitors = []backend.MonitorInfo{
		{Name: "DP-1", Focused: true, ActiveWorkspace: backend.WorkspaceRef{ID: 3}},
	}
	if _, err := p.runChangeWorkspace(context.Background(), []string{"+1"}); err != nil {
		t.Fatalf("runChangeWorkspace: %v", err)
	}
	if len(back.execs) != 1 || back.execs[0] != "workspace 1" {
		t.Fatalf("execs = %v, want [workspace 1] (wraps from 3)", back.execs)
	}
}
