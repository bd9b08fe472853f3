package monitors

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nomadcxx/pyprlandd/internal/backend"
	"github.com/Nomadcxx/pyprlandd/internal/layout"
	"github.com/Nomadcxx/pyprlandd/internal/schema"
	"github.com/Nomadcxx/pyprlandd/internal/state"
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
	back := &fakeBackend{
		monitors: []backend.MonitorInfo{
			{Name: "DP-1", Width: 1920, Height: 1080, X: 0, Y: 0},
			{Name: "HDMI-A-1", Width: 1920, Height: 1080, X: 0, Y: 0},
		},
	}
	p.Backend = back
	p.State = state.New(state.EnvHyprland)
	_ = p.Init(context.Background())
	return p, back
}

func TestLoadConfigParsesRuleAndDisables(t *testing.T) {
	p, _ := newTestPlugin()
	raw := map[string]any{
		"DP-1": map[string]any{
			"resolution": "1920x1080",
			"scale":      1.0,
		},
		"HDMI-A-1": map[string]any{
			"rightOf": "DP-1",
		},
	}
	v := schema.NewView(nil, raw, zerolog.Nop())
	if err := p.LoadConfig(v); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(p.entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(p.entries))
	}
	var foundRule bool
	for _, e := range p.entries {
		if e.Pattern == "HDMI-A-1" {
			if !e.HasRule || e.Rule.Direction != layout.DirRight {
				t.Errorf("HDMI-A-1 entry missing rightOf rule: %+v", e)
			}
			foundRule = true
		}
	}
	if !foundRule {
		t.Fatal("HDMI-A-1 entry not found")
	}
}

func TestRunRelayoutAppliesPlacements(t *testing.T) {
	p, back := newTestPlugin()
	raw := map[string]any{
		"DP-1":     map[string]any{},
		"HDMI-A-1": map[string]any{"rightOf": "DP-1"},
	}
	v := schema.NewView(nil, raw, zerolog.Nop())
	if err := p.LoadConfig(v); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if _, err := p.runRelayout(context.Background(), nil); err != nil {
		t.Fatalf("runRelayout: %v", err)
	}
	if len(back.execs) != 2 {
		t.Fatalf("execs = %v, want two monitor keyword commands", back.execs)
	}
}

func TestRelayoutNoopWithoutEntries(t *testing.T) {
	p, back := newTestPlugin()
	if _, err := p.relayout(context.Background()); err != nil {
		t.Fatalf("relayout: %v", err)
	}
	if len(back.execs) != 0 {
		t.Errorf("execs = %v, want none without configured entries", back.execs)
	}
}

func TestRelayoutReportsUnmatchedWhenNoPatternResolves(t *testing.T) {
	p, back := newTestPlugin()
	raw := map[string]any{"DOES-NOT-EXIST": map[string]any{"resolution": "1920x1080"}}
	v := schema.NewView(nil, raw, zerolog.Nop())
	if err := p.LoadConfig(v); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	matched, err := p.relayout(context.Background())
	if err != nil {
		t.Fatalf("relayout: %v", err)
	}
	if matched {
		t.Error("relayout reported matched=true for a pattern that resolves to no present monitor")
	}
	if len(back.execs) != 0 {
		t.Errorf("execs = %v, want none when nothing matched", back.execs)
	}
}

func TestOnMonitorAddedRunsUnknownCommandWhenNothingMatches(t *testing.T) {
	p, _ := newTestPlugin()
	dir := t.TempDir()
	marker := dir + "/ran"
	raw := map[string]any{
		"DOES-NOT-EXIST": map[string]any{"resolution": "1920x1080"},
		"unknown":        "touch " + marker,
	}
	v := schema.NewView(nil, raw, zerolog.Nop())
	if err := p.LoadConfig(v); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	p.onMonitorAdded(context.Background(), "HDMI-A-1")
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := os.Stat(marker); err == nil {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("unknown command never ran")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
