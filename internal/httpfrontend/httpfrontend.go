// Package httpfrontend implements the plain HTTP proxy frontend
// (spec.md §4.2): CONNECT tunnels (the same MITM/splice policy as the
// SOCKS5 frontend) and absolute-form requests forwarded straight into
// the lifecycle controller.
package httpfrontend

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/revamp-proxy/revamp/internal/certauthority"
	"github.com/revamp-proxy/revamp/internal/config"
	"github.com/revamp-proxy/revamp/internal/connectbridge"
	"github.com/revamp-proxy/revamp/internal/lifecycle"
	"github.com/revamp-proxy/revamp/internal/metrics"
	"github.com/revamp-proxy/revamp/internal/mitm"
)

// proxyOnlyHeaders extends the upstream fetch engine's hop-by-hop set
// with the two headers that only ever appear on proxy-bound requests
// and must never reach the origin.
var proxyOnlyHeaders = []string{"Proxy-Connection", "Proxy-Authorization"}

// Server is a net/http-free HTTP proxy listener: it owns raw
// connections directly so it can hijack into a CONNECT tunnel, the same
// way the SOCKS5 frontend does.
type Server struct {
	Listener    net.Listener
	Resolver    *config.Resolver
	CertFactory *certauthority.Factory
	Controller  *lifecycle.Controller
	Metrics     *metrics.Counters
	SelfHost    string
	SelfPort    int
	InternalAPI http.Handler
}

// Serve accepts connections until ctx is canceled.
func (s *Server) Serve(ctx context.Context) error {
	for {
		conn, err := s.Listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go s.handle(ctx, conn)
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)

	req, err := http.ReadRequest(reader)
	if err != nil {
		return
	}

	if req.Method == http.MethodConnect {
		s.handleConnect(ctx, conn, reader, req)
		return
	}

	s.handleAbsoluteForm(ctx, conn, req)
}

// handleConnect dials req.Host, replies 200 Connection Established, and
// then applies the same MITM-or-splice policy as the SOCKS5 frontend.
func (s *Server) handleConnect(ctx context.Context, conn net.Conn, reader *bufio.Reader, req *http.Request) {
	host, portStr, err := net.SplitHostPort(req.Host)
	if err != nil {
		host, portStr = req.Host, "443"
	}
	port, _ := strconv.Atoi(portStr)

	if host == s.SelfHost && (port == s.SelfPort || s.SelfPort == 0) && s.InternalAPI != nil {
		io.WriteString(conn, "HTTP/1.1 200 Connection Established\r\n\r\n")
		s.InternalAPI.ServeHTTP(&hijackedResponseWriter{conn: conn}, req)
		return
	}

	clientIP, _, _ := net.SplitHostPort(conn.RemoteAddr().String())

	dialed, err := net.Dial("tcp", net.JoinHostPort(host, portStr))
	if err != nil {
		io.WriteString(conn, "HTTP/1.1 502 Bad Gateway\r\n\r\n")
		return
	}
	defer dialed.Close()

	if _, err := io.WriteString(conn, "HTTP/1.1 200 Connection Established\r\n\r\n"); err != nil {
		return
	}

	if port == 443 {
		cfg, err := s.Resolver.Resolve(ctx, clientIP, host)
		if err == nil && mitm.ShouldIntercept(port, cfg) {
			tlsConn, innerReq, ok := connectbridge.TerminateAndReadRequest(conn, reader, s.CertFactory, host)
			if ok {
				defer tlsConn.Close()
				resp, err := s.Controller.Handle(ctx, innerReq.Method, "https://"+host+innerReq.RequestURI, innerReq.Header, clientIP, host)
				if err != nil {
					connectbridge.WriteError(tlsConn, err)
					return
				}
				connectbridge.WriteResponse(tlsConn, resp)
				return
			}
		}
	}

	splice(conn, dialed, s.Metrics)
}

// handleAbsoluteForm forwards an absolute-form plain HTTP request
// directly into the lifecycle controller, stripping proxy-only headers
// first.
func (s *Server) handleAbsoluteForm(ctx context.Context, conn net.Conn, req *http.Request) {
	if isSelfRequest(req, s.SelfHost, s.SelfPort) && s.InternalAPI != nil {
		s.InternalAPI.ServeHTTP(&hijackedResponseWriter{conn: conn}, req)
		return
	}

	for _, h := range proxyOnlyHeaders {
		req.Header.Del(h)
	}

	clientIP, _, _ := net.SplitHostPort(conn.RemoteAddr().String())
	targetURL := req.URL.String()
	if !req.URL.IsAbs() {
		targetURL = "http://" + req.Host + req.URL.RequestURI()
	}

	resp, err := s.Controller.Handle(ctx, req.Method, targetURL, req.Header, clientIP, req.URL.Hostname())
	if err != nil {
		connectbridge.WriteError(conn, err)
		return
	}
	connectbridge.WriteResponse(conn, resp)
}

// ServeOne reads a single HTTP request off reader and serves it against
// handler, writing the response directly to conn. It lets the SOCKS5
// frontend reuse the same internal-API adapter as the absolute-form path
// here, after a CONNECT to the proxy's own self host/port.
func ServeOne(conn net.Conn, reader *bufio.Reader, handler http.Handler) error {
	req, err := http.ReadRequest(reader)
	if err != nil {
		return err
	}
	handler.ServeHTTP(&hijackedResponseWriter{conn: conn}, req)
	return nil
}

// isSelfRequest reports whether req.Host names the proxy itself and its
// path falls under the internal API's reserved prefix.
func isSelfRequest(req *http.Request, selfHost string, selfPort int) bool {
	host, portStr, err := net.SplitHostPort(req.Host)
	if err != nil {
		host = req.Host
	}
	port, _ := strconv.Atoi(portStr)
	if host != selfHost {
		return false
	}
	if selfPort != 0 && port != selfPort && portStr != "" {
		return false
	}
	return strings.HasPrefix(req.URL.Path, "/__revamp__/")
}

func splice(a, b net.Conn, m *metrics.Counters) {
	done := make(chan int64, 2)
	go func() {
		n, _ := io.Copy(b, a)
		done <- n
	}()
	go func() {
		n, _ := io.Copy(a, b)
		done <- n
	}()
	up := <-done
	down := <-done
	m.AddBandwidth(up, down)
}

// hijackedResponseWriter adapts a raw net.Conn to http.ResponseWriter so
// the internal API's http.Handler can be invoked directly against a
// CONNECT-established or self-addressed tunnel without a second net/http
// server loop.
type hijackedResponseWriter struct {
	conn        net.Conn
	header      http.Header
	wroteHeader bool
}

func (w *hijackedResponseWriter) Header() http.Header {
	if w.header == nil {
		w.header = http.Header{}
	}
	return w.header
}

func (w *hijackedResponseWriter) Write(p []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.conn.Write(p)
}

func (w *hijackedResponseWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.Header().Set("Connection", "close")
	fmt.Fprintf(w.conn, "HTTP/1.1 %d %s\r\n", status, http.StatusText(status))
	w.Header().Write(w.conn)
	io.WriteString(w.conn, "\r\n")
}
