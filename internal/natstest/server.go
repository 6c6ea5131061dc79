// Package natstest provides test helpers: an embedded nats-server and an
// in-memory loopback dialer.
package natstest

import (
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// ServerOption adjusts the embedded server before it starts.
type ServerOption func(*server.Options)

// WithUserPassword requires clients to authenticate with user and password.
func WithUserPassword(user, password string) ServerOption {
	return func(o *server.Options) {
		o.Username = user
		o.Password = password
	}
}

// WithToken requires clients to authenticate with token.
func WithToken(token string) ServerOption {
	return func(o *server.Options) {
		o.Authorization = token
	}
}

// Start runs a nats-server on a random loopback port and returns its client
// URL. The server is shut down when the test finishes.
func Start(t testing.TB, opts ...ServerOption) (string, *server.Server) {
	t.Helper()

	serverOpts := &server.Options{
		Host:   "127.0.0.1",
		Port:   server.RANDOM_PORT,
		NoLog:  true,
		NoSigs: true,
	}
	for _, opt := range opts {
		opt(serverOpts)
	}

	srv, err := server.NewServer(serverOpts)
	if err != nil {
		t.Fatalf("new nats server: %v", err)
	}
	go srv.Start()
	if !srv.ReadyForConnections(5 * time.Second) {
		srv.Shutdown()
		t.Fatalf("nats server did not become ready")
	}
	t.Cleanup(func() {
		srv.Shutdown()
		srv.WaitForShutdown()
	})
	return srv.ClientURL(), srv
}
