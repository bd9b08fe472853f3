package systemnotifier

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nomadcxx/pyprlandd/internal/backend"
	"github.com/Nomadcxx/pyprlandd/internal/schema"
)

type notifyCall struct {
	message string
	color   backend.Color
}

type fakeBackend struct {
	mu       sync.Mutex
	notifies []notifyCall
}

func (f *fakeBackend) Name() string { return "fake" }
func (f *fakeBackend) GetClients(ctx context.Context, filter backend.ClientFilter) ([]backend.ClientInfo, error) {
	return nil, nil
}
func (f *fakeBackend) GetMonitors(ctx context.Context, includeDisabled bool) ([]backend.MonitorInfo, error) {
	return nil, nil
}
func (f *fakeBackend) Execute(ctx context.Context, command, baseCommand string, weak bool) error {
	return nil
}
func (f *fakeBackend) ExecuteJSON(ctx context.Context, command string) ([]byte, error) { return nil, nil }
func (f *fakeBackend) ExecuteBatch(ctx context.Context, commands []string) error       { return nil }
func (f *fakeBackend) Notify(ctx context.Context, message string, durationMS int, color backend.Color) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifies = append(f.notifies, notifyCall{message: message, color: color})
	return nil
}
func (f *fakeBackend) ParseEvent(raw string) (string, string, bool) { return "", "", false }
func (f *fakeBackend) EventSocketPath() string                      { return "" }

func (f *fakeBackend) calls() []notifyCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notifyCall(nil), f.notifies...)
}

func newTestPlugin() (*Plugin, *fakeBackend) {
	p := New()
	back := &fakeBackend{}
	p.Backend = back
	_ = p.Init(context.Background())
	return p, back
}

func TestParseSedFilterConvertsBackreferences(t *testing.T) {
	pattern, replacement, ok := parseSedFilter(`s/.*Process \d+ \((.*)\) of .* dumped core\./\1 dumped core/`)
	if !ok {
		t.Fatal("parseSedFilter: want ok")
	}
	if pattern == "" {
		t.Error("parseSedFilter: empty pattern half")
	}
	if replacement != "$1 dumped core" {
		t.Errorf("replacement = %q, want %q", replacement, "$1 dumped core")
	}
}

func TestParseSedFilterRejectsNonSedString(t *testing.T) {
	if _, _, ok := parseSedFilter("not a sed filter"); ok {
		t.Error("parseSedFilter: want not-ok for a non s/// string")
	}
}

func TestParseHexColor(t *testing.T) {
	c, ok := parseHexColor("#00aa00")
	if !ok {
		t.Fatal("parseHexColor: want ok")
	}
	if c.R != 0x00 || c.G != 0xaa || c.B != 0x00 || c.A != 0xff {
		t.Errorf("color = %+v, want R=0 G=aa B=0 A=ff", c)
	}
	if _, ok := parseHexColor("#zzzzzz"); ok {
		t.Error("parseHexColor: want not-ok for invalid hex digits")
	}
	if _, ok := parseHexColor("#abc"); ok {
		t.Error("parseHexColor: want not-ok for a short string")
	}
}

func TestLoadConfigKeepsBuiltinJournalParser(t *testing.T) {
	p, _ := newTestPlugin()
	v := schema.NewView(nil, map[string]any{}, zerolog.Nop())
	if err := p.LoadConfig(v); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(p.rules["journal"]) != len(builtinRuleSpecs) {
		t.Fatalf("journal rules = %d, want %d", len(p.rules["journal"]), len(builtinRuleSpecs))
	}
}

func TestLoadConfigParsesCustomParserAndSources(t *testing.T) {
	p, _ := newTestPlugin()
	raw := map[string]any{
		"default_color": "#112233",
		"parsers": map[string]any{
			"custom": []any{
				map[string]any{"pattern": "^boom$", "color": "#ff0000", "duration": 5.0},
			},
		},
		"sources": []any{
			map[string]any{"command": "journalctl -f", "parser": "journal"},
			map[string]any{"command": "dmesg -w", "parser": []any{"journal", "custom"}},
		},
	}
	v := schema.NewView(nil, raw, zerolog.Nop())
	if err := p.LoadConfig(v); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(p.rules["custom"]) != 1 {
		t.Fatalf("custom rules = %d, want 1", len(p.rules["custom"]))
	}
	if p.rules["custom"][0].Duration != 5*time.Second {
		t.Errorf("custom rule duration = %v, want 5s", p.rules["custom"][0].Duration)
	}
	if len(p.sources) != 2 {
		t.Fatalf("sources = %d, want 2", len(p.sources))
	}
	if p.sources[1].Command != "dmesg -w" || len(p.sources[1].Parsers) != 2 {
		t.Errorf("sources[1] = %+v, want command dmesg -w with 2 parsers", p.sources[1])
	}
}

func TestHandleLineMatchesBuiltinRuleAndNotifies(t *testing.T) {
	p, back := newTestPlugin()
	v := schema.NewView(nil, map[string]any{}, zerolog.Nop())
	if err := p.LoadConfig(v); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	p.handleLine(context.Background(), "eth0: Link UP", []string{"journal"})
	calls := back.calls()
	if len(calls) != 1 {
		t.Fatalf("notify calls = %d, want 1", len(calls))
	}
	if calls[0].message != "eth0 is active" {
		t.Errorf("message = %q, want %q", calls[0].message, "eth0 is active")
	}
}

func TestHandleLineIgnoresNonMatchingLine(t *testing.T) {
	p, back := newTestPlugin()
	v := schema.NewView(nil, map[string]any{}, zerolog.Nop())
	if err := p.LoadConfig(v); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	p.handleLine(context.Background(), "nothing interesting happened", []string{"journal"})
	if len(back.calls()) != 0 {
		t.Error("handleLine notified for a line matching no rule")
	}
}

func TestOnReloadRunsSourceAndExitStopsIt(t *testing.T) {
	p, back := newTestPlugin()
	raw := map[string]any{
		"sources": []any{
			map[string]any{"command": "echo 'eth0: Link UP'", "parser": "journal"},
		},
	}
	v := schema.NewView(nil, raw, zerolog.Nop())
	if err := p.LoadConfig(v); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if err := p.OnReload(context.Background(), 0); err != nil {
		t.Fatalf("OnReload: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(back.calls()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("source never produced a notification")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := p.Exit(context.Background()); err != nil {
		t.Fatalf("Exit: %v", err)
	}
}
