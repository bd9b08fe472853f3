// Package dispatcher converts event-stream lines and control-socket commands
// into per-plugin handler invocations, per spec.md §4.5: one FIFO queue and
// one serial runner goroutine per plugin, a global per-task timeout, and
// deduplication of the compositor's repeated focus events.
//
// Grounded on the teacher's (*Daemon).eventLoop select-over-channels shape
// in cmd/daemon/main.go, generalized from "one daemon, a handful of timer/
// idle channels" to "one queue+runner goroutine per loaded plugin".
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nomadcxx/pyprlandd/internal/backend"
	"github.com/Nomadcxx/pyprlandd/internal/pluginhost"
	"github.com/Nomadcxx/pyprlandd/internal/pyprerrors"
	"github.com/Nomadcxx/pyprlandd/internal/state"
)

// GlobalTaskTimeout bounds every queued command/event handler invocation
// (spec.md §5).
const GlobalTaskTimeout = 5 * time.Second

// queueDepth is the FIFO buffer per plugin; the runner drains it strictly
// in order so a full buffer only ever backs up an unusually slow plugin.
const queueDepth = 256

// CorePluginName re-exports pluginhost.CorePluginName for callers that only
// import this package.
const CorePluginName = pluginhost.CorePluginName

// dedupHandlers are skipped if (handler, payload) repeats the previous call
// for that handler, per spec.md §4.5 (tames Hyprland re-emitting focus
// events).
var dedupHandlers = map[string]bool{
	"event_activewindow":   true,
	"event_activewindowv2": true,
}

type eventJob struct {
	handler string
	payload string
}

type commandJob struct {
	handler string
	args    []string
	result  chan<- cmdResult
}

type cmdResult struct {
	body string
	err  error
}

// Dispatcher owns the per-plugin queues and runner goroutines.
type Dispatcher struct {
	log    zerolog.Logger
	host   *pluginhost.Host
	shared *state.SharedState
	back   backend.Backend
	strict bool

	mu       sync.Mutex
	queues   map[string]chan any
	lastCall map[string]string // handler -> last payload/args seen, for dedup

	// coreMu is write-locked while the in-band core plugin executes a
	// handler, and read-locked by every other plugin's runner around each
	// task; this realizes spec.md §5's "other plugin runners pause
	// briefly while the core plugin mutates shared state".
	coreMu sync.RWMutex
}

// New constructs a Dispatcher. strict mirrors PYPRLAND_STRICT_ERRORS and
// only affects the in-band core plugin's commands: in strict mode a failing
// core built-in's error is returned to the caller without being logged or
// notified; otherwise it is logged, notified, and then returned. Queued
// plugins' command errors are logged, notified, and returned in either mode.
func New(log zerolog.Logger, host *pluginhost.Host, shared *state.SharedState, back backend.Backend, strict bool) *Dispatcher {
	return &Dispatcher{
		log:      log,
		host:     host,
		shared:   shared,
		back:     back,
		strict:   strict,
		queues:   map[string]chan any{},
		lastCall: map[string]string{},
	}
}

// StartPlugin allocates a queue and runner goroutine for a freshly loaded
// non-core plugin. Idempotent.
func (d *Dispatcher) StartPlugin(ctx context.Context, name string, p pluginhost.Plugin) {
	if name == CorePluginName {
		return
	}
	d.mu.Lock()
	if _, ok := d.queues[name]; ok {
		d.mu.Unlock()
		return
	}
	q := make(chan any, queueDepth)
	d.queues[name] = q
	d.mu.Unlock()

	go d.runPlugin(ctx, name, p, q)
}

// StopPlugin sends the poison value terminating a plugin's runner, per
// spec.md §4.6's unload-on-reload and §8 Invariant 1.
func (d *Dispatcher) StopPlugin(name string) {
	d.mu.Lock()
	q, ok := d.queues[name]
	if ok {
		delete(d.queues, name)
	}
	d.mu.Unlock()
	if ok {
		q <- nil // poison value
	}
}

func (d *Dispatcher) runPlugin(ctx context.Context, name string, p pluginhost.Plugin, q chan any) {
	for job := range q {
		if job == nil { // poison value: terminate (§8 Invariant 1)
			return
		}

		d.coreMu.RLock()
		switch j := job.(type) {
		case eventJob:
			d.runEventJob(ctx, name, p, j)
		case commandJob:
			d.runCommandJob(ctx, name, p, j)
		}
		d.coreMu.RUnlock()
	}
}

func (d *Dispatcher) runEventJob(ctx context.Context, plugin string, p pluginhost.Plugin, j eventJob) {
	handler, ok := p.Events()[j.handler]
	if !ok {
		return
	}
	taskCtx, cancel := context.WithTimeout(ctx, GlobalTaskTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		handler(taskCtx, j.payload)
	}()
	select {
	case <-done:
	case <-taskCtx.Done():
		d.reportHandlerTimeout(plugin, j.handler)
	}
}

func (d *Dispatcher) runCommandJob(ctx context.Context, plugin string, p pluginhost.Plugin, j commandJob) {
	cmd, ok := p.Commands()[j.handler]
	if !ok {
		j.result <- cmdResult{err: fmt.Errorf("plugin %q has no command %q", plugin, j.handler)}
		return
	}
	taskCtx, cancel := context.WithTimeout(ctx, GlobalTaskTimeout)
	defer cancel()

	type out struct {
		body string
		err  error
	}
	done := make(chan out, 1)
	go func() {
		body, err := cmd.Func(taskCtx, j.args)
		done <- out{body, err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			err := pyprerrors.NewPlugin(pyprerrors.KindHandlerError, plugin, o.err)
			d.reportHandlerError(plugin, j.handler, err)
			j.result <- cmdResult{err: err}
			return
		}
		j.result <- cmdResult{body: o.body}
	case <-taskCtx.Done():
		d.reportHandlerTimeout(plugin, j.handler)
		j.result <- cmdResult{err: pyprerrors.NewPlugin(pyprerrors.KindHandlerTimeout, plugin,
			fmt.Errorf("%s::%s timed out", plugin, j.handler))}
	}
}

func (d *Dispatcher) reportHandlerTimeout(plugin, handler string) {
	d.log.Warn().Str("plugin", plugin).Str("handler", handler).Msg("handler timed out")
	backend.NotifyError(context.Background(), d.back, fmt.Sprintf("%s::%s timed out", plugin, handler))
}

func (d *Dispatcher) reportHandlerError(plugin, handler string, err error) {
	d.log.Error().Err(err).Str("plugin", plugin).Str("handler", handler).Msg("handler error")
	backend.NotifyError(context.Background(), d.back, err.Error())
}

// shouldDedup reports whether (handler, payload) repeats the previous
// invocation of a deduplicated handler (spec.md §4.5, §8 Invariant 5).
func (d *Dispatcher) shouldDedup(handler, payload string) bool {
	if !dedupHandlers[handler] {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lastCall[handler] == payload {
		return true
	}
	d.lastCall[handler] = payload
	return false
}

// DispatchEvent fans an event line out to every loaded plugin declaring a
// matching handler, fire-and-forget, in compositor-arrival order (spec.md
// §4.5, §5). The in-band core plugin runs synchronously first; queued
// plugins enqueue without blocking the caller.
func (d *Dispatcher) DispatchEvent(ctx context.Context, handler, payload string) {
	if d.shouldDedup(handler, payload) {
		return
	}

	loaded := d.host.Loaded()
	if core, ok := loaded[CorePluginName]; ok {
		if fn, ok := core.Events()[handler]; ok {
			d.coreMu.Lock()
			taskCtx, cancel := context.WithTimeout(ctx, GlobalTaskTimeout)
			fn(taskCtx, payload)
			cancel()
			d.coreMu.Unlock()
		}
	}

	for name, p := range loaded {
		if name == CorePluginName {
			continue
		}
		d.mu.Lock()
		q, ok := d.queues[name]
		d.mu.Unlock()
		if !ok {
			continue
		}
		if _, has := p.Events()[handler]; !has {
			continue
		}
		select {
		case q <- eventJob{handler: handler, payload: payload}:
		default:
			d.log.Warn().Str("plugin", name).Str("handler", handler).Msg("event queue full, dropping")
		}
	}
}

// DispatchCommand routes a control-socket command to the one loaded plugin
// declaring it, awaiting completion bounded by GlobalTaskTimeout (spec.md
// §4.5). The core plugin's built-ins run in-band and synchronously.
func (d *Dispatcher) DispatchCommand(ctx context.Context, name string, args []string) (string, error) {
	loaded := d.host.Loaded()

	if core, ok := loaded[CorePluginName]; ok {
		if cmd, ok := core.Commands()[name]; ok {
			d.coreMu.Lock()
			defer d.coreMu.Unlock()
			taskCtx, cancel := context.WithTimeout(ctx, GlobalTaskTimeout)
			defer cancel()
			body, err := cmd.Func(taskCtx, args)
			if err != nil {
				wrapped := pyprerrors.NewPlugin(pyprerrors.KindHandlerError, CorePluginName, err)
				if d.strict {
					return "", wrapped
				}
				d.reportHandlerError(CorePluginName, name, wrapped)
				return "", wrapped
			}
			return body, nil
		}
	}

	for pluginName, p := range loaded {
		if pluginName == CorePluginName {
			continue
		}
		if _, ok := p.Commands()[name]; !ok {
			continue
		}
		d.mu.Lock()
		q, ok := d.queues[pluginName]
		d.mu.Unlock()
		if !ok {
			continue
		}
		result := make(chan cmdResult, 1)
		q <- commandJob{handler: name, args: args, result: result}
		select {
		case r := <-result:
			return r.body, r.err
		case <-ctx.Done():
			return "", pyprerrors.New(pyprerrors.KindHandlerTimeout, ctx.Err())
		}
	}

	return "", fmt.Errorf("unknown command %q", name)
}
