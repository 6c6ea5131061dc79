// Package options resolves connection targets into a canonical Options value.
//
// Options are built from Default, a URL string and explicit overrides:
//
//	opts, err := options.Resolve(options.Default(), "nats://u:p@a:4222, nats://b:4222", false)
//
// A comma separated URL contributes every host to Servers in order. The first
// segment carrying user-info supplies the connection-wide Credentials; later
// segments only add endpoints. Resolution is pure: base values are cloned and the
// defaults are rebuilt on every call, so concurrent callers never share mutable state.
//
// Every malformed input is reported as a *ConfigurationError before any network
// I/O happens.
package options
