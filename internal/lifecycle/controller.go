package lifecycle

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/revamp-proxy/revamp/internal/cache"
	"github.com/revamp-proxy/revamp/internal/config"
	"github.com/revamp-proxy/revamp/internal/contenttype"
	"github.com/revamp-proxy/revamp/internal/filter"
	"github.com/revamp-proxy/revamp/internal/fingerprint"
	"github.com/revamp-proxy/revamp/internal/hooks"
	"github.com/revamp-proxy/revamp/internal/metrics"
	"github.com/revamp-proxy/revamp/internal/transform"
	"github.com/revamp-proxy/revamp/internal/upstream"
)

// Controller runs the Request Lifecycle: config resolution, the
// built-in filter plus the filter:decision hook, a cache lookup, the
// upstream fetch plus transformation on a miss, and the response:post
// hook, in that order (spec.md §5). Mounting the internal API and
// recognizing which connections need MITM at all happen one layer up,
// in the frontends that call Handle — only the fetch-and-transform
// pipeline for an already-accepted proxied request lives here.
type Controller struct {
	Resolver   *config.Resolver
	Filter     *filter.Decision
	Hooks      *hooks.Executor
	Upstream   *upstream.Client
	Transforms transform.Set
	Cache      *cache.Store
	Metrics    *metrics.Counters

	// sf single-flights the upstream fetch and transform (not just the
	// cache write) per cache key, so concurrent requests for the same URL
	// never run the fetch or the transformer more than once (spec.md
	// §4.5).
	sf singleflight.Group
}

// Handle runs the full lifecycle for one proxied request and returns
// the response to write back to the client.
func (c *Controller) Handle(ctx context.Context, method, targetURL string, header http.Header, clientIP, hostname string) (*Response, error) {
	c.Metrics.IncRequests()

	reqCtx := RequestContext{
		RequestID: uuid.NewString(),
		ClientIP:  clientIP,
		Method:    method,
		URL:       targetURL,
		Header:    header,
		StartedAt: time.Now(),
	}

	// Resolver.Resolve already runs the config:resolution hook chain
	// internally (see internal/config.Resolver.Hooks, wired by the server
	// root to this same Executor) so the effective config below has
	// already had any plugin overrides folded in.
	cfg, err := c.Resolver.Resolve(ctx, clientIP, hostname)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	reqCtx.Config = cfg

	if blocked, resp := c.runFilter(ctx, &reqCtx); blocked {
		return resp, nil
	}

	if result := c.Hooks.RunChain(ctx, hooks.RequestPre, reqCtx); result.Outcome == hooks.Stop {
		return responseFromHookValue(result.Value), nil
	} else if result.Outcome == hooks.Error {
		c.Metrics.IncHookError()
		return nil, fmt.Errorf("%w: %v", ErrHookException, result.Err)
	} else if rc, ok := result.Value.(RequestContext); ok {
		reqCtx = rc
	}

	clientFingerprint := fingerprint.Client(clientIP, reqCtx.Config)

	respCtx, err := c.fetchAndTransform(ctx, reqCtx, clientFingerprint)
	if err != nil {
		c.Metrics.IncUpstreamError()
		return nil, err
	}

	if result := c.Hooks.RunChain(ctx, hooks.ResponsePost, *respCtx); result.Outcome == hooks.Continue {
		if rc, ok := result.Value.(ResponseContext); ok {
			respCtx = &rc
		}
	}

	c.Hooks.RunNotify(ctx, hooks.MetricsRecord, *respCtx)
	c.Metrics.AddBandwidth(0, int64(len(respCtx.Body)))

	return &Response{StatusCode: respCtx.StatusCode, Header: respCtx.Header, Body: respCtx.Body}, nil
}

// runFilter consults the built-in ad/tracking blocklist, then the
// filter:decision chain hook (which may override the built-in verdict),
// and builds the blocked response if the request should not reach the
// origin.
func (c *Controller) runFilter(ctx context.Context, reqCtx *RequestContext) (bool, *Response) {
	verdict, matched := c.Filter.Evaluate(reqCtx.URL, reqCtx.Config.RemoveAds, reqCtx.Config.RemoveTracking)

	result := c.Hooks.RunChain(ctx, hooks.FilterDecision, verdict)
	if result.Outcome == hooks.Continue {
		if v, ok := result.Value.(filter.Verdict); ok {
			verdict = v
			matched = true
		}
	}

	if !matched || verdict == filter.Allow {
		return false, nil
	}

	c.Metrics.IncBlocked()
	if verdict == filter.BlockNoContent {
		return true, &Response{StatusCode: http.StatusNoContent, Header: http.Header{}}
	}
	return true, &Response{StatusCode: http.StatusOK, Header: http.Header{"Content-Length": []string{"0"}}}
}

// fetchAndTransform looks up the transformation cache, and on a miss,
// fetches from upstream and runs the content through the appropriate
// transformer.
func (c *Controller) fetchAndTransform(ctx context.Context, reqCtx RequestContext, clientFingerprint string) (*ResponseContext, error) {
	// The real content type isn't known until upstream responds, but
	// classifying from the URL alone is deterministic for a given URL, so
	// computing it once here and reusing it for both the lookup below and
	// the store at the end keeps the two from ever diverging.
	classified := contenttype.Classify("", reqCtx.URL)
	key := fingerprint.CacheKey(reqCtx.URL, classified, clientFingerprint)

	if entry, ok := c.Cache.Get(ctx, key); ok {
		c.Metrics.IncCacheHit()
		c.Hooks.RunNotify(ctx, hooks.CacheGet, entry)
		return &ResponseContext{
			Request:     reqCtx,
			StatusCode:  http.StatusOK,
			Header:      http.Header{"Content-Type": []string{entry.ContentType}},
			Body:        entry.Body,
			FromCache:   true,
			Transformed: true,
		}, nil
	}
	c.Metrics.IncCacheMiss()
	c.Hooks.RunNotify(ctx, hooks.CacheGet, nil)

	// The fetch and the transform both happen inside sf.Do, so a second
	// caller for the same key awaits the first's result instead of
	// running its own upstream fetch and transformation (spec.md §4.5).
	v, err, shared := c.sf.Do(key, func() (any, error) {
		respCtx, err := c.fetchTransformOnce(ctx, reqCtx)
		if err != nil {
			return nil, err
		}
		// Only the caller that ran the fetch stores the result, so a
		// transformation shared by several requests is stored and
		// counted once.
		if reqCtx.Config.CacheEnabled && respCtx.Transformed {
			c.Cache.Put(ctx, key, cache.Entry{ContentType: respCtx.Header.Get("Content-Type"), Body: respCtx.Body})
			c.Hooks.RunNotify(ctx, hooks.CacheSet, key)
			c.Metrics.IncTransform(respCtx.ContentType.String())
		}
		return respCtx, nil
	})
	if err != nil {
		return nil, err
	}
	respCtx := v.(*ResponseContext)

	if shared {
		// Keep this caller's own request metadata and an independent
		// header map rather than the leader's, so later mutation (hooks,
		// response writing) can't race across the goroutines that shared
		// this result.
		clone := *respCtx
		clone.Request = reqCtx
		clone.Header = respCtx.Header.Clone()
		respCtx = &clone
	}

	return respCtx, nil
}

// fetchTransformOnce performs one upstream fetch and, if the response
// warrants it, one transformation. Every caller reaches it through
// c.sf.Do, so at most one of these runs at a time per cache key.
func (c *Controller) fetchTransformOnce(ctx context.Context, reqCtx RequestContext) (*ResponseContext, error) {
	transformable := reqCtx.Config.TransformJs || reqCtx.Config.TransformCss || reqCtx.Config.TransformHtml
	result, err := c.Upstream.Fetch(ctx, reqCtx.Method, reqCtx.URL, reqCtx.Header, transformable)
	if err != nil {
		return nil, err
	}
	c.Metrics.AddBandwidth(int64(len(result.Body)), 0)

	respCtx := &ResponseContext{
		Request:     reqCtx,
		StatusCode:  result.StatusCode,
		Header:      result.Header,
		Body:        result.Body,
		ContentType: result.ContentType,
	}

	if result.IsRedirect {
		// Redirects are never cached or transformed (spec.md §4.5/§4.6):
		// the Location header is origin-relative state that would be
		// wrong to serve from a content-addressed cache entry.
		return respCtx, nil
	}

	if !shouldTransform(result.ContentType, reqCtx.Config) {
		return respCtx, nil
	}

	c.Hooks.RunChain(ctx, hooks.TransformPre, *respCtx)

	transformed, err := c.transform(ctx, result.ContentType, reqCtx, result.Body)
	if err != nil {
		c.Metrics.IncTransformFail()
		return nil, fmt.Errorf("%w: %v", ErrTransform, err)
	}
	respCtx.Body = transformed.Body
	respCtx.Transformed = transformed.Transformed
	if transformed.Transformed {
		respCtx.Header.Set("Content-Type", transformed.ContentType)
	}

	c.Hooks.RunChain(ctx, hooks.TransformPost, *respCtx)

	return respCtx, nil
}

func (c *Controller) transform(ctx context.Context, ct contenttype.Type, reqCtx RequestContext, body []byte) (transform.Result, error) {
	req := transform.Request{URL: reqCtx.URL, ContentType: ct, Body: body, Config: reqCtx.Config}

	if t := c.Transforms.For(ct); t != nil {
		return t.Transform(ctx, req)
	}
	if t := c.Transforms.ImageFor(ct); t != nil {
		return t.Transform(ctx, req)
	}
	return transform.Result{Body: body, ContentType: ct.String()}, nil
}

func shouldTransform(ct contenttype.Type, cfg config.Config) bool {
	switch ct {
	case contenttype.JS:
		return cfg.TransformJs
	case contenttype.CSS:
		return cfg.TransformCss
	case contenttype.HTML:
		return cfg.TransformHtml
	case contenttype.ImageWebP, contenttype.ImageAVIF:
		return true
	default:
		return false
	}
}

func responseFromHookValue(value any) *Response {
	if resp, ok := value.(*Response); ok {
		return resp
	}
	if resp, ok := value.(Response); ok {
		return &resp
	}
	return &Response{StatusCode: http.StatusOK, Header: http.Header{}}
}
