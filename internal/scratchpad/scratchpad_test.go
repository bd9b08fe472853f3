package scratchpad

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nomadcxx/pyprlandd/internal/backend"
	"github.com/Nomadcxx/pyprlandd/internal/schema"
)

func NewTestView(raw map[string]any) *schema.View {
	return schema.NewView(nil, raw, zerolog.Nop())
}

type fakeBackend struct {
	mu      sync.Mutex
	clients []backend.ClientInfo
	batches [][]string
	execs   []string
}

func (f *fakeBackend) Name() string { return "fake" }
func (f *fakeBackend) GetClients(ctx context.Context, filter backend.ClientFilter) ([]backend.ClientInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]backend.ClientInfo, len(f.clients))
	copy(out, f.clients)
	return out, nil
}
func (f *fakeBackend) GetMonitors(ctx context.Context, includeDisabled bool) ([]backend.MonitorInfo, error) {
	return []backend.MonitorInfo{{Name: "DP-1", Focused: true}}, nil
}
func (f *fakeBackend) Execute(ctx context.Context, command, baseCommand string, weak bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execs = append(f.execs, command)
	return nil
}
func (f *fakeBackend) ExecuteJSON(ctx context.Context, command string) ([]byte, error) { return nil, nil }
func (f *fakeBackend) ExecuteBatch(ctx context.Context, commands []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, commands)
	return nil
}
func (f *fakeBackend) Notify(ctx context.Context, message string, durationMS int, color backend.Color) error {
	return nil
}
func (f *fakeBackend) ParseEvent(raw string) (string, string, bool) { return "", "", false }
func (f *fakeBackend) EventSocketPath() string                      { return "" }

func (f *fakeBackend) setClients(c []backend.ClientInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clients = c
}

func TestConfigureRejectsDuplicateClass(t *testing.T) {
	back := &fakeBackend{}
	m := NewManager(zerolog.Nop(), back)

	cfg := Config{Command: "", MatchField: MatchClass, MatchValue: "term", Lazy: true}
	if _, err := m.Configure(context.Background(), "term1", cfg); err != nil {
		t.Fatalf("first Configure: %v", err)
	}
	if _, err := m.Configure(context.Background(), "term2", cfg); err == nil {
		t.Error("Configure with duplicate class: want error, got nil")
	}
}

func TestMatchesClassExact(t *testing.T) {
	cfg := Config{MatchField: MatchClass, MatchValue: "term"}
	if !cfg.Matches(backend.ClientInfo{Class: "term"}) {
		t.Error("Matches() = false, want true for exact class match")
	}
	if cfg.Matches(backend.ClientInfo{Class: "other"}) {
		t.Error("Matches() = true, want false for non-matching class")
	}
}

func TestMatchesRegex(t *testing.T) {
	v := NewTestView(map[string]any{"match": "class", "class": "re:^term.*"})
	cfg, err := LoadConfig(v)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.Matches(backend.ClientInfo{Class: "terminal-42"}) {
		t.Error("Matches() = false, want true for regex match")
	}
}

func TestSpawnAndMatchByPID(t *testing.T) {
	back := &fakeBackend{}
	m := NewManager(zerolog.Nop(), back)

	cfg := Config{Command: "true", MatchField: MatchClass, MatchValue: "unused", ProcessTracking: true}
	sc, err := m.Configure(context.Background(), "t1", cfg)
	if err != nil {
		t.Fatalf("Configure: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sc.pid != 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	sc.mu.Lock()
	pid := sc.pid
	sc.mu.Unlock()
	if pid == 0 {
		t.Fatal("scratchpad process never recorded a pid")
	}

	back.setClients([]backend.ClientInfo{{Address: "0xabc", PID: pid, Class: "unused"}})

	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sc.Address() != "" {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if sc.Address() != "0xabc" {
		t.Errorf("Address() = %q, want 0xabc", sc.Address())
	}
	if sc.State() != StateHidden {
		t.Errorf("State() = %v, want HIDDEN", sc.State())
	}
}

func TestShowAndHideTransitions(t *testing.T) {
	back := &fakeBackend{}
	m := NewManager(zerolog.Nop(), back)
	cfg := Config{Command: "", MatchField: MatchClass, MatchValue: "x", Lazy: true}
	sc, _ := m.Configure(context.Background(), "s1", cfg)
	m.onMatched(context.Background(), sc, backend.ClientInfo{Address: "0xdead"})

	if err := m.Show(context.Background(), "s1", "1", "0xfocused"); err != nil {
		t.Fatalf("Show: %v", err)
	}
	if !sc.Visible() {
		t.Error("Visible() = false after Show")
	}
	if sc.Monitor() != "DP-1" {
		t.Errorf("Monitor() = %q, want DP-1", sc.Monitor())
	}

	if err := m.Hide(context.Background(), "s1"); err != nil {
		t.Fatalf("Hide: %v", err)
	}
	if sc.Visible() {
		t.Error("Visible() = true after Hide")
	}
}

func TestToggleFlipsVisibility(t *testing.T) {
	back := &fakeBackend{}
	m := NewManager(zerolog.Nop(), back)
	cfg := Config{MatchField: MatchClass, MatchValue: "x", Lazy: true}
	sc, _ := m.Configure(context.Background(), "s1", cfg)
	m.onMatched(context.Background(), sc, backend.ClientInfo{Address: "0xdead"})

	if err := m.Toggle(context.Background(), "s1", "1", ""); err != nil {
		t.Fatalf("Toggle (show): %v", err)
	}
	if !sc.Visible() {
		t.Fatal("Visible() = false after first Toggle")
	}
	if err := m.Toggle(context.Background(), "s1", "1", ""); err != nil {
		t.Fatalf("Toggle (hide): %v", err)
	}
	if sc.Visible() {
		t.Fatal("Visible() = true after second Toggle")
	}
}

func TestMultiWindowTrackingMovesExtrasTogether(t *testing.T) {
	back := &fakeBackend{}
	m := NewManager(zerolog.Nop(), back)
	cfg := Config{MatchField: MatchClass, MatchValue: "multi", Multi: true, Lazy: true}
	sc, _ := m.Configure(context.Background(), "m1", cfg)
	m.onMatched(context.Background(), sc, backend.ClientInfo{Address: "0xprimary", Class: "multi"})

	m.OnWindowOpened(context.Background(), backend.ClientInfo{Address: "0xextra", Class: "multi"})

	extras := sc.ExtraAddrs()
	if len(extras) != 1 || extras[0] != "0xextra" {
		t.Errorf("ExtraAddrs() = %v, want [0xextra]", extras)
	}

	if err := m.Show(context.Background(), "m1", "1", ""); err != nil {
		t.Fatalf("Show: %v", err)
	}
	back.mu.Lock()
	defer back.mu.Unlock()
	found := false
	for _, batch := range back.batches {
		for _, cmd := range batch {
			if cmd == "movetoworkspace 1,address:0xextra" {
				found = true
			}
		}
	}
	if !found {
		t.Errorf("Show batch did not move the extra window: %v", back.batches)
	}
}

func TestOnWindowClosedResetsPrimary(t *testing.T) {
	back := &fakeBackend{}
	m := NewManager(zerolog.Nop(), back)
	cfg := Config{MatchField: MatchClass, MatchValue: "x", Lazy: true}
	sc, _ := m.Configure(context.Background(), "s1", cfg)
	m.onMatched(context.Background(), sc, backend.ClientInfo{Address: "0xdead"})

	m.OnWindowClosed(context.Background(), "0xdead")

	if sc.Address() != "" {
		t.Errorf("Address() = %q, want empty after close", sc.Address())
	}
	if _, ok := m.ByAddress("0xdead"); ok {
		t.Error("ByAddress(\"0xdead\") still resolves after close")
	}
}

func TestOnMonitorRemovedAutoHides(t *testing.T) {
	back := &fakeBackend{}
	m := NewManager(zerolog.Nop(), back)
	cfg := Config{MatchField: MatchClass, MatchValue: "x", Lazy: true}
	sc, _ := m.Configure(context.Background(), "s1", cfg)
	m.onMatched(context.Background(), sc, backend.ClientInfo{Address: "0xdead"})
	_ = m.Show(context.Background(), "s1", "1", "")

	m.OnMonitorRemoved(context.Background(), "DP-1")

	if sc.Visible() {
		t.Error("Visible() = true after its monitor was removed")
	}
}
