// Package eventreader reads one line per compositor event, tolerating
// reconnect, and hands each parsed (handler, payload) pair to a sink
// (spec.md §4.1 step 3, §4.9 I, §5).
//
// Grounded on pkg/idle/idle.go's readCommandOutput/monitor-goroutine
// pattern: a bufio.Scanner loop over a long-lived stream, reconnecting
// with a fixed delay instead of giving up, reported through zerolog the
// way the teacher reports through the stdlib log package.
package eventreader

import (
	"bufio"
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nomadcxx/pyprlandd/internal/backend"
)

// opener is satisfied by backend.Hyprland and backend.Niri: both expose a
// long-lived, line-delimited event stream. The wlr-randr/xrandr fallback
// backends don't implement it, so Run logs once and returns without events.
type opener interface {
	OpenEventStream(ctx context.Context) (*bufio.Scanner, func() error, error)
}

// Sink receives one parsed event at a time, in strict arrival order
// (spec.md §5's ordering guarantee).
type Sink func(handler, payload string)

// Reader owns the reconnect loop over a backend's event stream.
type Reader struct {
	log        zerolog.Logger
	back       backend.Backend
	retryDelay time.Duration
	maxRetries int
}

// New constructs a Reader. maxRetries bounds the initial connection
// attempts (spec.md §4.1: "retrying up to N times with a fixed delay —
// continue without events if exhausted"); once connected, reconnects after
// a drop are unbounded, since a running daemon should keep trying for as
// long as the compositor might come back.
func New(log zerolog.Logger, back backend.Backend, retryDelay time.Duration, maxRetries int) *Reader {
	return &Reader{log: log, back: back, retryDelay: retryDelay, maxRetries: maxRetries}
}

// Run blocks, feeding parsed events to sink until ctx is cancelled. It
// never returns an error for "no event stream available" (a fallback
// backend, or exhausted initial retries) — spec.md §4.1 says the daemon
// continues without events in that case.
func (r *Reader) Run(ctx context.Context, sink Sink) {
	op, ok := r.back.(opener)
	if !ok {
		r.log.Info().Str("backend", r.back.Name()).Msg("backend has no event stream; running without events")
		return
	}

	attempt := 0
	connected := false
	for {
		if ctx.Err() != nil {
			return
		}

		sc, closeFn, err := op.OpenEventStream(ctx)
		if err != nil {
			attempt++
			r.log.Warn().Err(err).Int("attempt", attempt).Msg("event stream connect failed")
			if !connected && attempt > r.maxRetries {
				r.log.Error().Msg("event stream exhausted retries; continuing without events")
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(r.retryDelay):
			}
			continue
		}

		attempt = 0
		connected = true
		r.scanUntilDisconnect(ctx, sc, sink)
		closeFn()

		if ctx.Err() != nil {
			return
		}
		r.log.Warn().Msg("event stream disconnected; reconnecting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(r.retryDelay):
		}
	}
}

func (r *Reader) scanUntilDisconnect(ctx context.Context, sc *bufio.Scanner, sink Sink) {
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := sc.Text()
		handler, payload, ok := r.back.ParseEvent(line)
		if !ok {
			continue
		}
		sink(handler, payload)
	}
}
