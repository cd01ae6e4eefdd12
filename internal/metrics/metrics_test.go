package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestCountersConcurrentIncrement(t *testing.T) {
	c := New(time.Now())

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.IncRequests()
			c.AddBandwidth(10, 5)
		}()
	}
	wg.Wait()

	snap := c.Snap(time.Now())
	if snap.Requests.Total != 100 {
		t.Fatalf("expected 100 requests, got %d", snap.Requests.Total)
	}
	if snap.Bandwidth.In != 1000 || snap.Bandwidth.Out != 500 {
		t.Fatalf("unexpected bandwidth: %+v", snap.Bandwidth)
	}
	if snap.Bandwidth.Saved != 500 {
		t.Fatalf("expected saved=500, got %d", snap.Bandwidth.Saved)
	}
}

func TestBandwidthSavedCanBeNegative(t *testing.T) {
	c := New(time.Now())
	c.AddBandwidth(100, 300) // polyfills enlarged the payload
	snap := c.Snap(time.Now())
	if snap.Bandwidth.Saved != -200 {
		t.Fatalf("expected negative saved bytes, got %d", snap.Bandwidth.Saved)
	}
}
