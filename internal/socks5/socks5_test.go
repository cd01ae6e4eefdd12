package socks5

import (
	"bufio"
	"net"
	"testing"
)

func TestHandshakeAcceptsNoAuthMethod(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	s := &Server{}
	go func() {
		client.Write([]byte{version5, 1, methodNoAuth})
	}()

	reader := bufio.NewReader(server)
	if err := s.handshake(server, reader); err != nil {
		t.Fatalf("handshake: %v", err)
	}
}

func TestHandshakeRejectsWhenNoAuthNotOffered(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	s := &Server{}
	go func() {
		client.Write([]byte{version5, 1, 0x02}) // username/password only
	}()

	reader := bufio.NewReader(server)
	if err := s.handshake(server, reader); err == nil {
		t.Fatal("expected handshake to fail when client doesn't offer no-auth")
	}
}

func TestReadRequestRejectsNonConnectCommand(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	s := &Server{}
	go func() {
		client.Write([]byte{version5, cmdUDPAssociate, 0x00, atypIPv4, 0, 0, 0, 0, 0, 0})
	}()

	reader := bufio.NewReader(server)
	go func() {
		buf := make([]byte, 10)
		client.Read(buf)
	}()
	if _, _, err := s.readRequest(server, reader); err == nil {
		t.Fatal("expected an error for UDP ASSOCIATE")
	}
}

func TestReadRequestParsesDomainAddress(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	s := &Server{}
	go func() {
		domain := "example.com"
		msg := []byte{version5, cmdConnect, 0x00, atypDomain, byte(len(domain))}
		msg = append(msg, domain...)
		msg = append(msg, 0x01, 0xBB) // port 443
		client.Write(msg)
	}()

	reader := bufio.NewReader(server)
	host, port, err := s.readRequest(server, reader)
	if err != nil {
		t.Fatalf("readRequest: %v", err)
	}
	if host != "example.com" || port != 443 {
		t.Fatalf("got host=%q port=%d, want example.com/443", host, port)
	}
}
