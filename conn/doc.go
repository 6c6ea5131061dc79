// Package conn implements the raw and encoded connection handles on top of
// github.com/nats-io/nats.go.
//
// Handles are built without I/O by New and NewEncoded and become usable after a
// successful Connect. The transport is reached through the Dialer interface so
// tests can substitute an in-memory loopback.
package conn
