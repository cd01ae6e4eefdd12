package connectbridge

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"testing"

	"github.com/revamp-proxy/revamp/internal/lifecycle"
)

func TestWriteErrorMapsUpstreamTimeoutTo504(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	go WriteError(server, fmt.Errorf("wrap: %w", lifecycle.ErrUpstreamTimeout))

	resp, err := http.ReadResponse(bufio.NewReader(client), nil)
	if err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}
	if resp.StatusCode != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d", resp.StatusCode)
	}
}

func TestWriteErrorDefaultsToBadGateway(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	go WriteError(server, lifecycle.ErrBodyTooLarge)

	resp, err := http.ReadResponse(bufio.NewReader(client), nil)
	if err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
}
