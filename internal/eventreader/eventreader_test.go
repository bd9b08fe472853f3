package eventreader

import (
	"bufio"
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nomadcxx/pyprlandd/internal/backend"
)

// openingBackend is a minimal backend.Backend plus the OpenEventStream
// method eventreader looks for, backed by an in-memory pipe so tests don't
// touch real sockets.
type openingBackend struct {
	w    *io.PipeWriter
	r    *io.PipeReader
	opens int
}

func newOpeningBackend() *openingBackend {
	r, w := io.Pipe()
	return &openingBackend{w: w, r: r}
}

func (b *openingBackend) Name() string { return "fake" }
func (b *openingBackend) GetClients(ctx context.Context, f backend.ClientFilter) ([]backend.ClientInfo, error) {
	return nil, nil
}
func (b *openingBackend) GetMonitors(ctx context.Context, includeDisabled bool) ([]backend.MonitorInfo, error) {
	return nil, nil
}
func (b *openingBackend) Execute(ctx context.Context, command, baseCommand string, weak bool) error {
	return nil
}
func (b *openingBackend) ExecuteJSON(ctx context.Context, command string) ([]byte, error) {
	return nil, nil
}
func (b *openingBackend) ExecuteBatch(ctx context.Context, commands []string) error { return nil }
func (b *openingBackend) Notify(ctx context.Context, message string, durationMS int, color backend.Color) error {
	return nil
}
func (b *openingBackend) EventSocketPath() string { return "fake" }

func (b *openingBackend) ParseEvent(raw string) (string, string, bool) {
	return "event_" + raw, raw, true
}

func (b *openingBackend) OpenEventStream(ctx context.Context) (*bufio.Scanner, func() error, error) {
	b.opens++
	sc := bufio.NewScanner(b.r)
	return sc, func() error { return nil }, nil
}

func TestRunFeedsParsedEventsInOrder(t *testing.T) {
	b := newOpeningBackend()
	r := New(zerolog.Nop(), b, 10*time.Millisecond, 3)

	var got []string
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, func(handler, payload string) {
			got = append(got, handler+":"+payload)
		})
		close(done)
	}()

	b.w.Write([]byte("foo\nbar\n"))
	time.Sleep(50 * time.Millisecond)
	cancel()
	b.w.Close()
	<-done

	if len(got) != 2 || got[0] != "event_foo:foo" || got[1] != "event_bar:bar" {
		t.Errorf("got %v, want [event_foo:foo event_bar:bar]", got)
	}
}

func TestRunWithoutEventStreamReturnsImmediately(t *testing.T) {
	back := fallbackOnlyBackend{}
	r := New(zerolog.Nop(), back, time.Millisecond, 1)

	done := make(chan struct{})
	go func() {
		r.Run(context.Background(), func(string, string) {})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run() did not return for a backend without an event stream")
	}
}

// fallbackOnlyBackend implements backend.Backend but not the OpenEventStream
// opener interface, like backend.WaylandFallback/X11Fallback.
type fallbackOnlyBackend struct{}

func (fallbackOnlyBackend) Name() string { return "fallback" }
func (fallbackOnlyBackend) GetClients(ctx context.Context, f backend.ClientFilter) ([]backend.ClientInfo, error) {
	return nil, nil
}
func (fallbackOnlyBackend) GetMonitors(ctx context.Context, includeDisabled bool) ([]backend.MonitorInfo, error) {
	return nil, nil
}
func (fallbackOnlyBackend) Execute(ctx context.Context, command, baseCommand string, weak bool) error {
	return nil
}
func (fallbackOnlyBackend) ExecuteJSON(ctx context.Context, command string) ([]byte, error) {
	return nil, nil
}
func (fallbackOnlyBackend) ExecuteBatch(ctx context.Context, commands []string) error { return nil }
func (fallbackOnlyBackend) Notify(ctx context.Context, message string, durationMS int, color backend.Color) error {
	return nil
}
func (fallbackOnlyBackend) ParseEvent(raw string) (string, string, bool) { return "", "", false }
func (fallbackOnlyBackend) EventSocketPath() string                     { return "" }
