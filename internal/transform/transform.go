// Package transform defines the contract boundary between the fetch
// engine and the content transformers that rewrite JS/CSS/HTML for
// legacy-browser compatibility and decode modern image formats
// (spec.md §4.4). The actual rewriting logic (polyfill injection, ES
// module bundling, WebP/AVIF re-encoding) is treated as an external
// concern reachable through these interfaces; this package ships
// passthrough default implementations so the rest of the system
// compiles and tests against a real, if inert, transformer.
package transform

import (
	"context"

	"github.com/revamp-proxy/revamp/internal/config"
	"github.com/revamp-proxy/revamp/internal/contenttype"
)

// Request carries everything a transformer needs to decide how to
// rewrite a response body.
type Request struct {
	URL         string
	ContentType contenttype.Type
	Body        []byte
	Config      config.Config
}

// Result is a transformer's output: the (possibly rewritten) body plus
// the content-type header it should now be served under. The controller
// applies ContentType only when Transformed is true; the passthrough
// transformers leave it as the classification tag (for example "js").
type Result struct {
	Body        []byte
	ContentType string
	Transformed bool
}

// TextTransformer rewrites textual content (JS, CSS, or HTML).
type TextTransformer interface {
	Transform(ctx context.Context, req Request) (Result, error)
}

// ImageTransformer re-encodes a legacy-incompatible image format (WebP,
// AVIF) into one Safari 9/iOS 9 can decode.
type ImageTransformer interface {
	Transform(ctx context.Context, req Request) (Result, error)
}

// Set bundles the transformers the fetch engine dispatches to, one per
// contenttype.Type that IsTransformable reports true for.
type Set struct {
	JS        TextTransformer
	CSS       TextTransformer
	HTML      TextTransformer
	ImageWebP ImageTransformer
	ImageAVIF ImageTransformer
}

// Passthrough returns a Set whose transformers all no-op: the body is
// returned unchanged and Transformed is false. This is the default
// wired up when no external transformer plugin is configured.
func Passthrough() Set {
	return Set{
		JS:        passthroughText{},
		CSS:       passthroughText{},
		HTML:      passthroughText{},
		ImageWebP: passthroughImage{},
		ImageAVIF: passthroughImage{},
	}
}

// For returns the transformer in s responsible for ct, or nil if ct
// isn't a transformable type.
func (s Set) For(ct contenttype.Type) TextTransformer {
	switch ct {
	case contenttype.JS:
		return s.JS
	case contenttype.CSS:
		return s.CSS
	case contenttype.HTML:
		return s.HTML
	default:
		return nil
	}
}

// ImageFor returns the image transformer in s responsible for ct, or
// nil if ct isn't a legacy-incompatible image type.
func (s Set) ImageFor(ct contenttype.Type) ImageTransformer {
	switch ct {
	case contenttype.ImageWebP:
		return s.ImageWebP
	case contenttype.ImageAVIF:
		return s.ImageAVIF
	default:
		return nil
	}
}

type passthroughText struct{}

func (passthroughText) Transform(ctx context.Context, req Request) (Result, error) {
	return Result{Body: req.Body, ContentType: req.ContentType.String(), Transformed: false}, nil
}

type passthroughImage struct{}

func (passthroughImage) Transform(ctx context.Context, req Request) (Result, error) {
	return Result{Body: req.Body, ContentType: req.ContentType.String(), Transformed: false}, nil
}
