package hooks

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestRunChainOrdersByPriorityThenRegistration(t *testing.T) {
	registry := NewRegistry(NewStats())
	var order []string
	var mu sync.Mutex
	record := func(label string) Handler {
		return func(ctx context.Context, value any) Result {
			mu.Lock()
			order = append(order, label)
			mu.Unlock()
			return ContinueResult(value)
		}
	}

	registry.Register(RequestPre, "low", 1, record("low"))
	registry.Register(RequestPre, "high", 10, record("high"))
	registry.Register(RequestPre, "mid-a", 5, record("mid-a"))
	registry.Register(RequestPre, "mid-b", 5, record("mid-b"))

	exec := NewExecutor(registry, NewStats())
	exec.RunChain(context.Background(), RequestPre, nil)

	want := []string{"high", "mid-a", "mid-b", "low"}
	if len(order) != len(want) {
		t.Fatalf("got order %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got order %v, want %v", order, want)
		}
	}
}

func TestRunChainStopsOnStopOutcome(t *testing.T) {
	registry := NewRegistry(NewStats())
	called := false
	registry.Register(RequestPre, "first", 10, func(ctx context.Context, value any) Result {
		return StopResult("stopped-early")
	})
	registry.Register(RequestPre, "second", 1, func(ctx context.Context, value any) Result {
		called = true
		return ContinueResult(value)
	})

	exec := NewExecutor(registry, NewStats())
	result := exec.RunChain(context.Background(), RequestPre, nil)

	if result.Outcome != Stop {
		t.Fatalf("expected Stop outcome, got %v", result.Outcome)
	}
	if called {
		t.Fatal("expected chain to halt before the second handler")
	}
}

func TestRunChainTimesOutSlowHandler(t *testing.T) {
	registry := NewRegistry(NewStats())
	registry.Register(RequestPre, "slow", 10, func(ctx context.Context, value any) Result {
		<-ctx.Done()
		return ContinueResult(value)
	})

	stats := NewStats()
	exec := NewExecutor(registry, stats).WithTimeout(10 * time.Millisecond)
	result := exec.RunChain(context.Background(), RequestPre, nil)

	if result.Outcome != Error {
		t.Fatalf("expected Error outcome on timeout, got %v", result.Outcome)
	}

	snap := stats.Snapshot()
	if len(snap) != 1 || snap[0].Timeouts != 1 {
		t.Fatalf("expected one recorded timeout, got %+v", snap)
	}
}

func TestRunChainRecoversFromPanic(t *testing.T) {
	registry := NewRegistry(NewStats())
	registry.Register(RequestPre, "panicker", 10, func(ctx context.Context, value any) Result {
		panic("boom")
	})

	exec := NewExecutor(registry, NewStats())
	result := exec.RunChain(context.Background(), RequestPre, nil)

	if result.Outcome != Error {
		t.Fatalf("expected panic to surface as Error, got %v", result.Outcome)
	}
}

func TestRunNotifyDispatchesWithoutBlockingOnSlowHandlers(t *testing.T) {
	registry := NewRegistry(NewStats())
	release := make(chan struct{})
	registry.Register(CacheSet, "slow", 0, func(ctx context.Context, value any) Result {
		<-release
		return ContinueResult(nil)
	})

	exec := NewExecutor(registry, NewStats())

	done := make(chan struct{})
	go func() {
		exec.RunNotify(context.Background(), CacheSet, "entry")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunNotify blocked on a slow handler")
	}
	close(release)
}

func TestUnregisterPluginRemovesAcrossHooks(t *testing.T) {
	registry := NewRegistry(NewStats())
	registry.Register(RequestPre, "p1", 0, func(ctx context.Context, value any) Result {
		return ContinueResult(value)
	})
	registry.Register(ResponsePost, "p1", 0, func(ctx context.Context, value any) Result {
		return ContinueResult(value)
	})

	registry.UnregisterPlugin("p1")

	if len(registry.Snapshot(RequestPre)) != 0 || len(registry.Snapshot(ResponsePost)) != 0 {
		t.Fatal("expected all registrations for p1 to be removed")
	}
}
