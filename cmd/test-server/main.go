// Package main provides a test server for HTTP/2 conformance testing with Celeris.
package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"log"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/celeris-http/celeris/pkg/celeris"
)

func main() {
	router := celeris.NewRouter()

	// Register basic routes for conformance testing
	router.GET("/", func(ctx *celeris.Context) error {
		return ctx.String(200, "hello")
	})

	router.GET("/ping", func(ctx *celeris.Context) error {
		return ctx.JSON(200, map[string]string{"message": "pong"})
	})

	router.GET("/users/123", func(ctx *celeris.Context) error {
		return ctx.JSON(200, map[string]string{"id": "123"})
	})

	router.POST("/echo", func(ctx *celeris.Context) error {
		// Read body to avoid flow control stall if h2spec sends data
		_, _ = ctx.BodyBytes()
		return ctx.String(200, "echo")
	})

	tlsConfig, err := selfSignedH2Config()
	if err != nil {
		log.Fatalf("failed to build TLS config: %v", err)
	}

	config := celeris.DefaultConfig()
	config.Addr = ":18081"
	// h2spec negotiates HTTP/2 over TLS; NextProtos advertising only "h2"
	// keeps this listener HTTP/2-only, matching the conformance suite's
	// expectations.
	config.TLSConfig = tlsConfig
	// Set concurrency limit for h2spec
	config.MaxConcurrentStreams = 100

	server := celeris.New(config)

	fmt.Println("Test server running on :18081 (HTTP/2 only)")

	// Start server in a goroutine
	go func() {
		if err := server.ListenAndServe(router); err != nil {
			log.Fatal(err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
}

// selfSignedH2Config builds an ephemeral, localhost-only certificate whose
// ALPN NextProtos is exactly ["h2"].
func selfSignedH2Config() (*tls.Config, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, err
	}

	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: "localhost"},
		DNSNames:              []string{"localhost"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}

	cert := tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  key,
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{"h2"},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
