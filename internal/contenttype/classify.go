// Package contenttype classifies upstream responses into the tagged
// variant the rest of the proxy dispatches on: js, css, html, one of the
// legacy-incompatible image formats, or other.
package contenttype

import (
	"mime"
	"strings"
)

// Type is the classified content type. The zero value is Other.
type Type int

const (
	Other Type = iota
	JS
	CSS
	HTML
	ImageWebP
	ImageAVIF
)

func (t Type) String() string {
	switch t {
	case JS:
		return "js"
	case CSS:
		return "css"
	case HTML:
		return "html"
	case ImageWebP:
		return "image_webp"
	case ImageAVIF:
		return "image_avif"
	default:
		return "other"
	}
}

// jsMimes and friends are checked before any URL-suffix fallback; the
// first hit wins per spec.
var jsMimes = []string{
	"application/javascript",
	"application/x-javascript",
	"text/javascript",
	"application/ecmascript",
	"module",
}

var cssMimes = []string{"text/css"}
var htmlMimes = []string{"text/html", "application/xhtml+xml"}

// Classify determines the ContentType from a MIME Content-Type header
// value, falling back to the URL path suffix when the header is absent,
// generic, or unrecognized. The first match wins.
func Classify(contentTypeHeader, urlPath string) Type {
	if ct := classifyMime(contentTypeHeader); ct != Other {
		return ct
	}
	return classifySuffix(urlPath)
}

func classifyMime(header string) Type {
	if header == "" {
		return Other
	}
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		// Not parseable as a structured media type; fall through to a
		// raw substring check since some upstreams send malformed headers.
		mediaType = strings.ToLower(header)
	}
	for _, m := range jsMimes {
		if strings.Contains(mediaType, m) {
			return JS
		}
	}
	for _, m := range cssMimes {
		if strings.Contains(mediaType, m) {
			return CSS
		}
	}
	for _, m := range htmlMimes {
		if strings.Contains(mediaType, m) {
			return HTML
		}
	}
	switch {
	case strings.Contains(mediaType, "image/webp"):
		return ImageWebP
	case strings.Contains(mediaType, "image/avif"):
		return ImageAVIF
	}
	return Other
}

func classifySuffix(urlPath string) Type {
	path := urlPath
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	switch {
	case strings.HasSuffix(path, ".js"), strings.HasSuffix(path, ".mjs"), strings.HasSuffix(path, ".cjs"):
		return JS
	case strings.HasSuffix(path, ".css"):
		return CSS
	case strings.HasSuffix(path, ".html"), strings.HasSuffix(path, ".htm"):
		return HTML
	case strings.HasSuffix(path, ".webp"):
		return ImageWebP
	case strings.HasSuffix(path, ".avif"):
		return ImageAVIF
	default:
		return Other
	}
}

// IsText reports whether t is one of the text transform targets
// (js, css, html).
func IsText(t Type) bool {
	return t == JS || t == CSS || t == HTML
}

// IsLegacyIncompatibleImage reports whether t is an image format that
// Safari 9 / iOS 9 class browsers cannot decode natively.
func IsLegacyIncompatibleImage(t Type) bool {
	return t == ImageWebP || t == ImageAVIF
}

// IsTransformable reports whether t is ever subject to transformation,
// independent of the active target/config (the config-gated decision is
// shouldTransform in internal/lifecycle).
func IsTransformable(t Type) bool {
	return IsText(t) || IsLegacyIncompatibleImage(t)
}
