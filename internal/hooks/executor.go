package hooks

import (
	"context"
	"fmt"
	"time"
)

// Executor runs chain and notification hooks against a Registry,
// recording per-plugin, per-hook statistics as it goes.
type Executor struct {
	registry *Registry
	stats    *Stats
	timeout  time.Duration
}

// NewExecutor builds an Executor with the default per-invocation timeout.
func NewExecutor(registry *Registry, stats *Stats) *Executor {
	return &Executor{registry: registry, stats: stats, timeout: DefaultTimeout}
}

// WithTimeout returns a copy of e using the given per-invocation timeout,
// primarily for tests that need to exercise the timeout path quickly.
func (e *Executor) WithTimeout(d time.Duration) *Executor {
	clone := *e
	clone.timeout = d
	return &clone
}

// RunChain invokes every handler registered under name, in
// priority-descending, registration-order tie-break sequence (the order
// Snapshot already returns them in), feeding each handler's Continue
// value forward as the next handler's input. A Stop or Error outcome
// halts the chain immediately and is returned as-is. A handler that
// panics or exceeds the per-invocation timeout is reported as an Error
// outcome and halts the chain the same way: the handlers after it are
// not run.
func (e *Executor) RunChain(ctx context.Context, name Name, initial any) Result {
	value := initial
	for _, reg := range e.registry.Snapshot(name) {
		result, timedOut := e.invoke(ctx, reg, name, value)
		switch result.Outcome {
		case Stop, Error:
			return result
		default:
			value = result.Value
		}
		_ = timedOut
	}
	return ContinueResult(value)
}

// RunNotify fires every handler registered under name concurrently and
// does not wait for or propagate their results beyond statistics; it
// returns once all handlers have been dispatched, not once they've
// completed, matching the fire-and-forget semantics of a notification
// hook.
func (e *Executor) RunNotify(ctx context.Context, name Name, value any) {
	for _, reg := range e.registry.Snapshot(name) {
		reg := reg
		go func() {
			e.invoke(ctx, reg, name, value)
		}()
	}
}

// invoke runs a single handler with the executor's timeout budget,
// recovering from panics and converting both panics and deadline
// overruns into an Error Result, and records statistics for the
// (plugin, hook) pair.
func (e *Executor) invoke(ctx context.Context, reg Registration, name Name, value any) (Result, bool) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	resultCh := make(chan Result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultCh <- ErrorResult(fmt.Errorf("hooks: handler for %s panicked: %v", name, r))
			}
		}()
		resultCh <- reg.Handler(ctx, value)
	}()

	select {
	case result := <-resultCh:
		e.stats.record(reg.PluginID, name, time.Since(start), result.Outcome, false)
		return result, false
	case <-ctx.Done():
		e.stats.record(reg.PluginID, name, time.Since(start), Error, true)
		return ErrorResult(fmt.Errorf("hooks: handler for %s timed out after %s", name, e.timeout)), true
	}
}
