// Package lifecycle implements the Request Lifecycle Controller: the
// ordered sequence of steps (spec.md §5) that turns an intercepted
// request into a response, wiring together config resolution, the
// filter, the hook executor, the upstream fetch engine, and the
// transformation cache.
package lifecycle

import "errors"

// Sentinel error kinds distinguishable with errors.Is, covering every
// failure class spec.md §7 requires a distinct response/log treatment
// for.
var (
	ErrUpstreamTimeout     = errors.New("lifecycle: upstream request timed out")
	ErrUpstreamUnreachable = errors.New("lifecycle: upstream unreachable")
	ErrDecompression       = errors.New("lifecycle: failed to decompress upstream body")
	ErrBodyTooLarge        = errors.New("lifecycle: upstream body exceeded size cap")
	ErrTransform           = errors.New("lifecycle: content transformation failed")
	ErrCacheIO             = errors.New("lifecycle: cache read/write failed")
	ErrHookTimeout         = errors.New("lifecycle: hook invocation timed out")
	ErrHookException       = errors.New("lifecycle: hook invocation returned an error")
	ErrPluginLifecycle     = errors.New("lifecycle: illegal plugin state transition")
	ErrTLSHandshake        = errors.New("lifecycle: TLS handshake with client failed")
	ErrValidation          = errors.New("lifecycle: request failed validation")
)
