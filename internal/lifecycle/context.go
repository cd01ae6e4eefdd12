package lifecycle

import (
	"net/http"
	"time"

	"github.com/revamp-proxy/revamp/internal/config"
	"github.com/revamp-proxy/revamp/internal/contenttype"
)

// RequestContext is the accumulating value threaded through the
// request:pre chain hook.
type RequestContext struct {
	RequestID string
	ClientIP  string
	Method    string
	URL       string
	Header    http.Header
	Config    config.Config
	StartedAt time.Time
}

// ResponseContext is the accumulating value threaded through the
// transform:pre, transform:post and response:post chain hooks and the
// metrics:record notification.
type ResponseContext struct {
	Request     RequestContext
	StatusCode  int
	Header      http.Header
	Body        []byte
	ContentType contenttype.Type
	FromCache   bool
	Blocked     bool
	Transformed bool
}

// Response is what the Controller hands back to the frontend that
// invoked it, ready to be written to the client connection.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}
