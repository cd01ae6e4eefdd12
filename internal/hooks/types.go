// Package hooks implements the Plugin Hook Executor: a priority-ordered,
// per-hook-name interceptor chain with timeouts and per-plugin statistics
// (spec.md §4.7). The chain-vs-notification split mirrors the distinction
// the Language Server Protocol draws between requests (caller blocks for a
// typed response, handlers run in a defined order) and notifications
// (fire-and-forget) — see teemuteemu-caddy-language-server's
// tliron/glsp-based protocol.Handler table, whose fixed per-method
// registration is the structural ancestor of the per-hook-name
// registration here, generalized to a plugin-extensible slice since the
// hook set is not fixed at compile time the way an LSP method table is.
package hooks

import (
	"context"
	"time"
)

// Name is one of the closed set of hook names a plugin may register
// against.
type Name string

const (
	RequestPre       Name = "request:pre"
	ResponsePost     Name = "response:post"
	TransformPre     Name = "transform:pre"
	TransformPost    Name = "transform:post"
	FilterDecision   Name = "filter:decision"
	ConfigResolution Name = "config:resolution"
	CacheGet         Name = "cache:get"
	CacheSet         Name = "cache:set"
	DomainLifecycle  Name = "domain:lifecycle"
	MetricsRecord    Name = "metrics:record"
)

// chainHooks run sequentially and may short-circuit or mutate request
// state; notificationHooks are fire-and-forget observers. cache:get has
// no documented category in spec.md §4.7 (only cache:set, metrics:record,
// and domain:lifecycle are named as notification hooks); it is treated as
// a notification here since, like cache:set, it only ever observes a
// lifecycle step that has already decided its own outcome — see
// DESIGN.md.
var chainHooks = map[Name]bool{
	RequestPre:       true,
	ResponsePost:     true,
	TransformPre:     true,
	TransformPost:    true,
	FilterDecision:   true,
	ConfigResolution: true,
}

// IsChain reports whether name runs as a sequential, state-affecting
// chain (true) or a parallel, fire-and-forget notification (false).
func IsChain(name Name) bool {
	return chainHooks[name]
}

// Outcome tags a Handler's result, modeling the dynamic-typed
// continue/stop/error variant from the original source as an explicit Go
// sum type (spec.md §9 design note).
type Outcome int

const (
	Continue Outcome = iota
	Stop
	Error
)

// Result is what a single Handler invocation produces.
type Result struct {
	Outcome Outcome
	Value   any   // set for Continue and Stop
	Err     error // set for Error
}

// ContinueResult builds a Continue outcome, optionally carrying a value to
// merge into the chain's accumulating result.
func ContinueResult(value any) Result { return Result{Outcome: Continue, Value: value} }

// StopResult builds a Stop outcome that halts the chain and yields value.
func StopResult(value any) Result { return Result{Outcome: Stop, Value: value} }

// ErrorResult builds an Error outcome that halts a chain hook (converted
// to a 502 by the lifecycle controller) or is recorded and discarded for a
// notification hook.
func ErrorResult(err error) Result { return Result{Outcome: Error, Err: err} }

// Handler is a single plugin's registered callback for one hook name. It
// receives the accumulated value so far (request/response/config state,
// depending on the hook) and returns its Result.
type Handler func(ctx context.Context, value any) Result

// Registration binds a Handler to the plugin that owns it and the
// priority it was registered at.
type Registration struct {
	PluginID string
	Handler  Handler
	Priority int
	// seq breaks priority ties by registration order (earlier wins).
	seq int
}

// DefaultTimeout is the per-invocation budget from spec.md §4.7.
const DefaultTimeout = 5 * time.Second
