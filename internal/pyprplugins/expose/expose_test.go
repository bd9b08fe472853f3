package expose

import (
	"context"
	"testing"

	"github.com/Nomadcxx/pyprlandd/internal/backend"
)

type fakeBackend struct {
	execs []string
}

func (f *fakeBackend) Name() string { return "fake" }
func (f *fakeBackend) GetClients(ctx context.Context, filter backend.ClientFilter) ([]backend.ClientInfo, error) {
	return nil, nil
}
func (f *fakeBackend) GetMonitors(ctx context.Context, includeDisabled bool) ([]backend.MonitorInfo, error) {
	return nil, nil
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

func TestRunExposeDispatches(t *testing.T) {
	p := New()
	back := &fakeBackend{}
	p.Backend = back

	if _, err := p.runExpose(context.Background(), nil); err != nil {
		t.Fatalf("runExpose: %v", err)
	}
	if len(back.execs) != 1 || back.execs[0] != "expose" {
		t.Fatalf("execs = %v, want [expose]", back.execs)
	}
}

func TestWindowCountTracksOpenAndClose(t *testing.T) {
	p := New()
	p.onOpenWindow(context.Background(), "0xdeadbeef,1,class,title")
	p.onOpenWindow(context.Background(), "0xfeedface,1,class,title")
	if p.windowCount != 2 {
		t.Fatalf("windowCount = %d, want 2", p.windowCount)
	}
	p.onCloseWindow(context.Background(), "0xdeadbeef")
	if p.windowCount != 1 {
		t.Fatalf("windowCount = %d, want 1", p.windowCount)
	}
}
