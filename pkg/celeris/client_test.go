package celeris

import (
	"context"
	"testing"
)

func TestNewClient(t *testing.T) {
	client := NewClient(ClientConfig{Addr: "example.com:443"})

	if client == nil {
		t.Fatal("Expected non-nil client")
	}
	if client.config.Addr != "example.com:443" {
		t.Errorf("Expected addr example.com:443, got %s", client.config.Addr)
	}
}

func TestClient_Handler(t *testing.T) {
	client := NewClient(ClientConfig{Addr: "example.com:443"})
	handler := HandlerFunc(func(ctx *Context) error { return nil })

	result := client.Handler(handler)

	if result != client {
		t.Error("Expected Handler to return client for chaining")
	}
	if client.handler == nil {
		t.Error("Expected handler to be set")
	}
}

func TestClient_ConnectRequiresHandler(t *testing.T) {
	client := NewClient(ClientConfig{Addr: "example.com:443"})

	_, err := client.Connect(context.Background())
	if err == nil {
		t.Fatal("expected an error when no handler is set")
	}
}

func TestClient_ConnectRejectsInvalidAddr(t *testing.T) {
	client := NewClient(ClientConfig{Addr: "not-a-valid-addr"}).
		Handler(HandlerFunc(func(ctx *Context) error { return nil }))

	_, err := client.Connect(context.Background())
	if err == nil {
		t.Fatal("expected an error for an address without a port")
	}
}

func TestParseHostPort(t *testing.T) {
	host, port, err := parseHostPort("example.com:8443")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if host != "example.com" || port != 8443 {
		t.Fatalf("expected example.com:8443, got %s:%d", host, port)
	}
}

func TestParseHostPort_InvalidPort(t *testing.T) {
	_, _, err := parseHostPort("example.com:notaport")
	if err == nil {
		t.Fatal("expected an error for a non-numeric port")
	}
}
