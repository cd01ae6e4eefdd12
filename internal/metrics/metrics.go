// Package metrics holds the proxy's process-wide counters: monotonic
// increments, safe under concurrent writers. Kept
// dependency-free (no Prometheus client is exercised anywhere in the
// retrieved corpus for a counter set this small — see DESIGN.md) in favor
// of a handful of atomics and a JSON-serializable snapshot, matching the
// teacher's own lightweight-by-default posture.
package metrics

import (
	"sync/atomic"
	"time"
)

// Counters is the process-wide metrics carrier. It is owned by the proxy
// root (see internal/server) and passed down by reference; there is no
// package-level global state.
type Counters struct {
	requestsTotal  atomic.Int64
	blockedTotal   atomic.Int64
	cacheHits      atomic.Int64
	cacheMisses    atomic.Int64
	upstreamErrors atomic.Int64
	hookTimeouts   atomic.Int64
	hookErrors     atomic.Int64

	bytesIn  atomic.Int64
	bytesOut atomic.Int64

	transformJS    atomic.Int64
	transformCSS   atomic.Int64
	transformHTML  atomic.Int64
	transformImage atomic.Int64
	transformFail  atomic.Int64

	startedAt time.Time
}

// New returns a Counters carrier with its start time stamped to now.
func New(now time.Time) *Counters {
	return &Counters{startedAt: now}
}

func (c *Counters) IncRequests()      { c.requestsTotal.Add(1) }
func (c *Counters) IncBlocked()       { c.blockedTotal.Add(1) }
func (c *Counters) IncCacheHit()      { c.cacheHits.Add(1) }
func (c *Counters) IncCacheMiss()     { c.cacheMisses.Add(1) }
func (c *Counters) IncUpstreamError() { c.upstreamErrors.Add(1) }
func (c *Counters) IncHookTimeout()   { c.hookTimeouts.Add(1) }
func (c *Counters) IncHookError()     { c.hookErrors.Add(1) }
func (c *Counters) IncTransformFail() { c.transformFail.Add(1) }

// AddBandwidth records bytes read from upstream (in) and bytes written to
// the client (out) for one request. out may legitimately exceed in when
// polyfills enlarge the payload.
func (c *Counters) AddBandwidth(in, out int64) {
	c.bytesIn.Add(in)
	c.bytesOut.Add(out)
}

// IncTransform records a successful transform by classified kind.
func (c *Counters) IncTransform(kind string) {
	switch kind {
	case "js":
		c.transformJS.Add(1)
	case "css":
		c.transformCSS.Add(1)
	case "html":
		c.transformHTML.Add(1)
	case "image_webp", "image_avif":
		c.transformImage.Add(1)
	}
}

// Snapshot is a point-in-time, JSON-serializable view of all counters.
type Snapshot struct {
	UptimeSeconds float64 `json:"uptimeSeconds"`

	Requests struct {
		Total   int64 `json:"total"`
		Blocked int64 `json:"blocked"`
	} `json:"requests"`

	Cache struct {
		Hits   int64 `json:"hits"`
		Misses int64 `json:"misses"`
	} `json:"cache"`

	Bandwidth struct {
		In    int64 `json:"in"`
		Out   int64 `json:"out"`
		Saved int64 `json:"saved"`
	} `json:"bandwidth"`

	Transforms struct {
		JS      int64 `json:"js"`
		CSS     int64 `json:"css"`
		HTML    int64 `json:"html"`
		Image   int64 `json:"image"`
		Failed  int64 `json:"failed"`
	} `json:"transforms"`

	Errors struct {
		Upstream     int64 `json:"upstream"`
		HookTimeouts int64 `json:"hookTimeouts"`
		HookErrors   int64 `json:"hookErrors"`
	} `json:"errors"`
}

// Snap renders the current counter values.
func (c *Counters) Snap(now time.Time) Snapshot {
	var s Snapshot
	s.UptimeSeconds = now.Sub(c.startedAt).Seconds()
	s.Requests.Total = c.requestsTotal.Load()
	s.Requests.Blocked = c.blockedTotal.Load()
	s.Cache.Hits = c.cacheHits.Load()
	s.Cache.Misses = c.cacheMisses.Load()
	s.Bandwidth.In = c.bytesIn.Load()
	s.Bandwidth.Out = c.bytesOut.Load()
	s.Bandwidth.Saved = s.Bandwidth.In - s.Bandwidth.Out
	s.Transforms.JS = c.transformJS.Load()
	s.Transforms.CSS = c.transformCSS.Load()
	s.Transforms.HTML = c.transformHTML.Load()
	s.Transforms.Image = c.transformImage.Load()
	s.Transforms.Failed = c.transformFail.Load()
	s.Errors.Upstream = c.upstreamErrors.Load()
	s.Errors.HookTimeouts = c.hookTimeouts.Load()
	s.Errors.HookErrors = c.hookErrors.Load()
	return s
}
