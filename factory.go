package natsconn

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/timzifer/natsconn/conn"
	"github.com/timzifer/natsconn/options"
	"github.com/timzifer/natsconn/runtime/connections"
	"github.com/timzifer/natsconn/telemetry"
)

// Factory establishes connections. The zero value is not usable; construct one
// with NewFactory. A Factory holds no per-connection state and may be shared.
type Factory struct {
	dialer    conn.Dialer
	logger    zerolog.Logger
	telemetry telemetry.Collector
}

// FactoryOption customises a Factory.
type FactoryOption func(*Factory)

// WithDialer replaces the nats.go dialer used by every connection.
func WithDialer(d conn.Dialer) FactoryOption {
	return func(f *Factory) {
		if d != nil {
			f.dialer = d
		}
	}
}

// WithLogger sets the logger handed to connections.
func WithLogger(logger zerolog.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithTelemetry records establishment attempts and connection events.
func WithTelemetry(collector telemetry.Collector) FactoryOption {
	return func(f *Factory) {
		if collector != nil {
			f.telemetry = collector
		}
	}
}

// NewFactory returns a factory dialing with nats.go unless overridden.
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{
		dialer:    conn.NATSDialer{},
		logger:    zerolog.Nop(),
		telemetry: telemetry.Noop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

func (f *Factory) connOptions() []conn.Option {
	return []conn.Option{
		conn.WithDialer(f.dialer),
		conn.WithLogger(f.logger),
		conn.WithTelemetry(f.telemetry),
	}
}

// Establish resolves src, builds the connection variant and connects it. The
// returned handle is a *conn.Conn for VariantRaw and a *conn.EncodedConn for
// VariantEncoded.
func (f *Factory) Establish(variant Variant, src Source) (connections.Handle, error) {
	switch variant {
	case VariantRaw:
		c, err := establish(f, variant, src, f.buildRaw)
		if err != nil {
			return nil, err
		}
		return c, nil
	case VariantEncoded:
		ec, err := establish(f, variant, src, f.buildEncoded)
		if err != nil {
			return nil, err
		}
		return ec, nil
	default:
		return nil, fmt.Errorf("natsconn: unknown variant %d", int(variant))
	}
}

func (f *Factory) buildRaw(opts options.Options) (*conn.Conn, error) {
	return conn.New(opts, f.connOptions()...), nil
}

func (f *Factory) buildEncoded(opts options.Options) (*conn.EncodedConn, error) {
	return conn.NewEncoded(opts, f.connOptions()...)
}

// establish is shared by every entry point. Errors are returned as produced:
// resolution and construction fail before any I/O, and a failed handshake
// yields no handle.
func establish[H connections.Handle](f *Factory, variant Variant, src Source, build func(options.Options) (H, error)) (H, error) {
	var zero H

	opts, err := src.Resolve()
	if err != nil {
		return zero, err
	}
	handle, err := build(opts)
	if err != nil {
		return zero, err
	}

	f.telemetry.IncConnectAttempt(variant.String())
	start := time.Now()
	if err := handle.Connect(); err != nil {
		f.telemetry.ObserveConnect(variant.String(), telemetry.OutcomeFailure, time.Since(start))
		return zero, err
	}
	took := time.Since(start)
	f.telemetry.ObserveConnect(variant.String(), telemetry.OutcomeSuccess, took)

	f.logger.Debug().
		Str("variant", variant.String()).
		Str("source", src.String()).
		Strs("servers", opts.Servers).
		Dur("took", took).
		Msg("nats connection established")
	return handle, nil
}

// Connect connects a raw connection with the default options.
func (f *Factory) Connect() (*conn.Conn, error) {
	return establish(f, VariantRaw, DefaultSource(), f.buildRaw)
}

// ConnectURL connects a raw connection to the servers listed in url.
func (f *Factory) ConnectURL(url string) (*conn.Conn, error) {
	return establish(f, VariantRaw, URLSource(url), f.buildRaw)
}

// ConnectSecureURL is ConnectURL with TLS forced on.
func (f *Factory) ConnectSecureURL(url string) (*conn.Conn, error) {
	return establish(f, VariantRaw, SecureURLSource(url), f.buildRaw)
}

// ConnectOptions connects a raw connection with opts.
func (f *Factory) ConnectOptions(opts options.Options) (*conn.Conn, error) {
	return establish(f, VariantRaw, OptionsSource(opts), f.buildRaw)
}

// ConnectEncoded connects an encoded connection with the default options.
func (f *Factory) ConnectEncoded() (*conn.EncodedConn, error) {
	return establish(f, VariantEncoded, DefaultSource(), f.buildEncoded)
}

// ConnectEncodedURL connects an encoded connection to the servers listed in url.
func (f *Factory) ConnectEncodedURL(url string) (*conn.EncodedConn, error) {
	return establish(f, VariantEncoded, URLSource(url), f.buildEncoded)
}

// ConnectEncodedSecureURL is ConnectEncodedURL with TLS forced on.
func (f *Factory) ConnectEncodedSecureURL(url string) (*conn.EncodedConn, error) {
	return establish(f, VariantEncoded, SecureURLSource(url), f.buildEncoded)
}

// ConnectEncodedOptions connects an encoded connection with opts.
func (f *Factory) ConnectEncodedOptions(opts options.Options) (*conn.EncodedConn, error) {
	return establish(f, VariantEncoded, OptionsSource(opts), f.buildEncoded)
}

var defaultFactory = NewFactory()

// GetDefaultOptions returns a fresh copy of the default options.
func GetDefaultOptions() options.Options {
	return options.Default()
}

// Connect connects a raw connection to url with the default factory. An empty
// url uses the default server.
func Connect(url string) (*conn.Conn, error) {
	return defaultFactory.ConnectURL(url)
}

// ConnectEncoded connects an encoded connection to url with the default factory.
func ConnectEncoded(url string) (*conn.EncodedConn, error) {
	return defaultFactory.ConnectEncodedURL(url)
}
