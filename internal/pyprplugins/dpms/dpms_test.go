package dpms

import (
	"context"
	"testing"

	"github.com/Nomadcxx/pyprlandd/internal/backend"
)

type fakeBackend struct {
	batches [][]string
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
func (f *fakeBackend) ExecuteBatch(ctx context.Context, commands []string) error {
	f.batches = append(f.batches, commands)
	return nil
}
func (f *fakeBackend) Notify(ctx context.Context, message string, durationMS int, color backend.Color) error {
	return nil
}
func (f *fakeBackend) ParseEvent(raw string) (string, string, bool) { return "", "", false }
func (f *fakeBackend) EventSocketPath() string                      { return "" }

func TestToggleDPMSFlipsState(t *testing.T) {
	p := New()
	back := &fakeBackend{}
	p.Backend = back

	if _, err := p.runToggleDPMS(context.Background(), nil); err != nil {
		t.Fatalf("runToggleDPMS: %v", err)
	}
	if len(back.batches) != 1 || back.batches[0][0] != "dpms off" {
		t.Fatalf("batches = %v, want [[dpms off]]", back.batches)
	}

	if _, err := p.runToggleDPMS(context.Background(), nil); err != nil {
		t.Fatalf("runToggleDPMS: %v", err)
	}
	if len(back.batches) != 2 || back.batches[1][0] != "dpms on" {
		t.Fatalf("batches = %v, want second entry [dpms on]", back.batches)
	}
}
