package conn

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/timzifer/natsconn/encoders"
	"github.com/timzifer/natsconn/options"
	"github.com/timzifer/natsconn/runtime/connections"
	"github.com/timzifer/natsconn/telemetry"
)

// Lifecycle event names reported to telemetry.
const (
	EventDisconnected = "disconnected"
	EventReconnected  = "reconnected"
	EventClosed       = "closed"
	EventAsyncError   = "async_error"
)

type settings struct {
	dialer    Dialer
	logger    zerolog.Logger
	telemetry telemetry.Collector
	encoder   encoders.Encoder
}

// Option customises how a connection is built.
type Option func(*settings)

// WithDialer replaces the nats.go dialer, mainly for tests.
func WithDialer(d Dialer) Option {
	return func(s *settings) {
		if d != nil {
			s.dialer = d
		}
	}
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithTelemetry reports lifecycle events to collector.
func WithTelemetry(collector telemetry.Collector) Option {
	return func(s *settings) {
		if collector != nil {
			s.telemetry = collector
		}
	}
}

// WithEncoder overrides the encoder selected by Options.Encoder. Only encoded
// connections use it.
func WithEncoder(enc encoders.Encoder) Option {
	return func(s *settings) {
		s.encoder = enc
	}
}

func newSettings(opts []Option) settings {
	s := settings{
		dialer:    NATSDialer{},
		logger:    zerolog.Nop(),
		telemetry: telemetry.Noop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}

// Conn is a raw connection exposing byte level publish/subscribe.
type Conn struct {
	opts      options.Options
	dialer    Dialer
	logger    zerolog.Logger
	telemetry telemetry.Collector

	mu        sync.RWMutex
	state     connections.State
	transport Transport
}

var _ connections.Handle = (*Conn)(nil)

// New constructs a connection for opts without performing any network I/O.
func New(opts options.Options, settings ...Option) *Conn {
	s := newSettings(settings)
	return &Conn{
		opts:      opts.Clone(),
		dialer:    s.dialer,
		logger:    s.logger,
		telemetry: s.telemetry,
		state:     connections.StateCreated,
	}
}

// Connect performs the handshake. It may only be called once; on failure the
// returned error is a *ConnectionError and the connection stays unusable. If
// Close ran during the handshake the new transport is closed and Connect
// returns ErrNotConnected.
func (c *Conn) Connect() error {
	c.mu.Lock()
	if c.state != connections.StateCreated {
		c.mu.Unlock()
		return ErrConnectCalled
	}
	c.state = connections.StateConnecting
	c.mu.Unlock()

	transport, err := c.dialer.Dial(c.opts, c.events())

	c.mu.Lock()
	if c.state == connections.StateClosed {
		c.mu.Unlock()
		if err != nil {
			return &ConnectionError{Servers: append([]string(nil), c.opts.Servers...), Err: err}
		}
		if transport != nil {
			transport.Close()
		}
		return ErrNotConnected
	}
	defer c.mu.Unlock()
	if err != nil {
		c.state = connections.StateFailed
		return &ConnectionError{Servers: append([]string(nil), c.opts.Servers...), Err: err}
	}
	c.transport = transport
	c.state = connections.StateReady
	return nil
}

// State reports the lifecycle state.
func (c *Conn) State() connections.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Options returns a copy of the options the connection was built from.
func (c *Conn) Options() options.Options {
	return c.opts.Clone()
}

// IsConnected reports whether the transport currently has a live server session.
func (c *Conn) IsConnected() bool {
	t, err := c.ready()
	return err == nil && t.IsConnected()
}

// ConnectedURL returns the server the transport is attached to, credentials redacted.
func (c *Conn) ConnectedURL() string {
	t, err := c.ready()
	if err != nil {
		return ""
	}
	return t.ConnectedURL()
}

// Publish sends data to subject.
func (c *Conn) Publish(subject string, data []byte) error {
	return c.PublishRequest(subject, "", data)
}

// PublishRequest sends data to subject with reply as the reply subject.
func (c *Conn) PublishRequest(subject, reply string, data []byte) error {
	t, err := c.ready()
	if err != nil {
		return err
	}
	return t.Publish(subject, reply, data)
}

// Subscribe registers handler for subject.
func (c *Conn) Subscribe(subject string, handler MsgHandler) (Subscription, error) {
	return c.QueueSubscribe(subject, "", handler)
}

// QueueSubscribe registers handler for subject as a member of queue group queue.
func (c *Conn) QueueSubscribe(subject, queue string, handler MsgHandler) (Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	t, err := c.ready()
	if err != nil {
		return nil, err
	}
	return t.Subscribe(subject, queue, handler)
}

// Request publishes data and waits up to timeout for a single reply.
func (c *Conn) Request(subject string, data []byte, timeout time.Duration) (*Msg, error) {
	t, err := c.ready()
	if err != nil {
		return nil, err
	}
	return t.Request(subject, data, timeout)
}

// Flush round-trips to the server so every buffered publish has been processed.
func (c *Conn) Flush(timeout time.Duration) error {
	t, err := c.ready()
	if err != nil {
		return err
	}
	return t.Flush(timeout)
}

// RTT measures the round trip time to the connected server.
func (c *Conn) RTT() (time.Duration, error) {
	t, err := c.ready()
	if err != nil {
		return 0, err
	}
	return t.RTT()
}

// Close releases the transport. Closing while Connect is in flight makes Connect
// discard the transport it dials; on a connection that never started or failed
// Close is a no-op.
func (c *Conn) Close() error {
	c.mu.Lock()
	transport := c.transport
	c.transport = nil
	switch c.state {
	case connections.StateReady, connections.StateConnecting:
		c.state = connections.StateClosed
	}
	c.mu.Unlock()
	if transport != nil {
		transport.Close()
	}
	return nil
}

func (c *Conn) ready() (Transport, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != connections.StateReady || c.transport == nil {
		return nil, ErrNotConnected
	}
	return c.transport, nil
}

func (c *Conn) events() Events {
	return Events{
		Disconnected: func(err error) {
			c.telemetry.IncConnectionEvent(EventDisconnected)
			c.logger.Warn().Err(err).Msg("nats: connection lost")
			if c.opts.DisconnectedHandler != nil {
				c.opts.DisconnectedHandler(err)
			}
		},
		Reconnected: func(url string) {
			c.telemetry.IncConnectionEvent(EventReconnected)
			c.logger.Info().Str("server", url).Msg("nats: reconnected")
			if c.opts.ReconnectedHandler != nil {
				c.opts.ReconnectedHandler(url)
			}
		},
		Closed: func() {
			c.telemetry.IncConnectionEvent(EventClosed)
			c.logger.Debug().Msg("nats: connection closed")
			if c.opts.ClosedHandler != nil {
				c.opts.ClosedHandler()
			}
		},
		AsyncError: c.asyncError,
	}
}

func (c *Conn) asyncError(subject string, err error) {
	c.telemetry.IncConnectionEvent(EventAsyncError)
	c.logger.Error().Err(err).Str("subject", subject).Msg("nats: async error")
	if c.opts.AsyncErrorHandler != nil {
		c.opts.AsyncErrorHandler(subject, err)
	}
}
