package core

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Nomadcxx/pyprlandd/internal/backendproxy"
	"github.com/Nomadcxx/pyprlandd/internal/state"
)

type fakeRegistry struct {
	help    string
	compgen []string
	docs    map[string]string
}

func (f *fakeRegistry) Help() string { return f.help }
func (f *fakeRegistry) Compgen(prefix string) []string { return f.compgen }
func (f *fakeRegistry) Doc(name string) (string, bool) {
	d, ok := f.docs[name]
	return d, ok
}

func newTestPlugin(t *testing.T, deps Deps) *Plugin {
	t.Helper()
	p := New(deps)
	s := state.New(state.EnvHyprland)
	log := zerolog.Nop()
	proxy := backendproxy.New(nil, log)
	p.PluginName = "pyprland"
	p.State = s
	p.Backend = proxy
	return p
}

func TestActiveWindowV2PrependsHexPrefix(t *testing.T) {
	p := newTestPlugin(t, Deps{})
	p.onActiveWindowV2(context.Background(), "abcdef1234567890")

	got := p.State.ActiveWindow()
	want := "0xabcdef1234567890"
	if got != want {
		t.Errorf("ActiveWindow() = %q, want %q", got, want)
	}
}

func TestActiveWindowV2EmptyPayloadClears(t *testing.T) {
	p := newTestPlugin(t, Deps{})
	_ = p.State.SetActiveWindow("0xabcdef1234567890")
	p.onActiveWindowV2(context.Background(), "")

	if got := p.State.ActiveWindow(); got != "" {
		t.Errorf("ActiveWindow() = %q, want empty", got)
	}
}

func TestFocusedMonUpdatesMonitorAndWorkspace(t *testing.T) {
	p := newTestPlugin(t, Deps{})
	p.State.SetMonitors([]string{"DP-1", "HDMI-A-1"})

	p.onFocusedMon(context.Background(), "HDMI-A-1,3")

	if got := p.State.ActiveMonitor(); got != "HDMI-A-1" {
		t.Errorf("ActiveMonitor() = %q, want HDMI-A-1", got)
	}
	if got := p.State.ActiveWorkspace(); got != "3" {
		t.Errorf("ActiveWorkspace() = %q, want 3", got)
	}
}

func TestFocusedMonIgnoresUnknownMonitor(t *testing.T) {
	p := newTestPlugin(t, Deps{})
	p.State.SetMonitors([]string{"DP-1"})

	p.onFocusedMon(context.Background(), "ghost,1")

	if got := p.State.ActiveMonitor(); got != "unknown" {
		t.Errorf("ActiveMonitor() = %q, want unknown (unaffected)", got)
	}
}

func TestMonitorAddedAndRemoved(t *testing.T) {
	p := newTestPlugin(t, Deps{})
	p.State.SetMonitors([]string{"DP-1"})

	p.onMonitorAdded(context.Background(), "1,HDMI-A-1,Some Monitor")
	got := p.State.Monitors()
	if len(got) != 2 || got[1] != "HDMI-A-1" {
		t.Errorf("Monitors() = %v, want [DP-1 HDMI-A-1]", got)
	}

	p.onMonitorRemoved(context.Background(), "DP-1")
	got = p.State.Monitors()
	if len(got) != 1 || got[0] != "HDMI-A-1" {
		t.Errorf("Monitors() = %v, want [HDMI-A-1]", got)
	}
}

func TestVersionCommand(t *testing.T) {
	p := newTestPlugin(t, Deps{Version: "1.2.3"})
	got, err := p.runVersion(context.Background(), nil)
	if err != nil {
		t.Fatalf("runVersion: %v", err)
	}
	if got != "1.2.3" {
		t.Errorf("runVersion() = %q, want 1.2.3", got)
	}
}

func TestHelpCommandDelegatesToRegistry(t *testing.T) {
	reg := &fakeRegistry{help: "foo  do foo [magnify]"}
	p := newTestPlugin(t, Deps{Registry: func() Registry { return reg }})

	got, err := p.runHelp(context.Background(), nil)
	if err != nil {
		t.Fatalf("runHelp: %v", err)
	}
	if got != reg.help {
		t.Errorf("runHelp() = %q, want %q", got, reg.help)
	}
}

func TestDocCommandRequiresArgument(t *testing.T) {
	p := newTestPlugin(t, Deps{Registry: func() Registry { return &fakeRegistry{} }})
	if _, err := p.runDoc(context.Background(), nil); err == nil {
		t.Error("runDoc() with no args: want error, got nil")
	}
}

func TestDocCommandReturnsRegistryEntry(t *testing.T) {
	reg := &fakeRegistry{docs: map[string]string{"foo": "foo <arg>\ndo foo"}}
	p := newTestPlugin(t, Deps{Registry: func() Registry { return reg }})

	got, err := p.runDoc(context.Background(), []string{"foo"})
	if err != nil {
		t.Fatalf("runDoc: %v", err)
	}
	if got != reg.docs["foo"] {
		t.Errorf("runDoc() = %q, want %q", got, reg.docs["foo"])
	}
}

func TestExitCommandCallsShutdown(t *testing.T) {
	called := false
	p := newTestPlugin(t, Deps{Shutdown: func() { called = true }})
	if _, err := p.runExit(context.Background(), nil); err != nil {
		t.Fatalf("runExit: %v", err)
	}
	if !called {
		t.Error("runExit() did not call Shutdown")
	}
}

func TestReloadCommandPropagatesError(t *testing.T) {
	p := newTestPlugin(t, Deps{Reload: func(ctx context.Context) error { return context.Canceled }})
	if _, err := p.runReload(context.Background(), nil); err == nil {
		t.Error("runReload() want error, got nil")
	}
}
