package conn

import (
	"fmt"
	"time"

	"github.com/timzifer/natsconn/encoders"
	"github.com/timzifer/natsconn/options"
	"github.com/timzifer/natsconn/runtime/connections"
)

// EncodedConn wraps a Conn and converts values with an encoder on every publish
// and delivery.
type EncodedConn struct {
	conn    *Conn
	encoder encoders.Encoder
}

var _ connections.Handle = (*EncodedConn)(nil)

// NewEncoded constructs an encoded connection for opts without performing any
// network I/O. The encoder is taken from WithEncoder, or looked up by
// opts.Encoder in the encoders registry.
func NewEncoded(opts options.Options, settings ...Option) (*EncodedConn, error) {
	s := newSettings(settings)
	enc := s.encoder
	if enc == nil {
		var err error
		enc, err = encoders.Lookup(opts.Encoder)
		if err != nil {
			return nil, &options.ConfigurationError{Input: opts.Encoder, Reason: "unknown encoder", Err: err}
		}
	}
	return &EncodedConn{conn: New(opts, settings...), encoder: enc}, nil
}

// Connect performs the handshake of the underlying connection.
func (c *EncodedConn) Connect() error { return c.conn.Connect() }

// Close releases the underlying connection.
func (c *EncodedConn) Close() error { return c.conn.Close() }

// State reports the lifecycle state of the underlying connection.
func (c *EncodedConn) State() connections.State { return c.conn.State() }

// Conn exposes the raw connection.
func (c *EncodedConn) Conn() *Conn { return c.conn }

// Encoder returns the codec in use.
func (c *EncodedConn) Encoder() encoders.Encoder { return c.encoder }

// Flush waits until the server processed every buffered publish.
func (c *EncodedConn) Flush(timeout time.Duration) error { return c.conn.Flush(timeout) }

// Publish encodes v and sends it to subject.
func (c *EncodedConn) Publish(subject string, v any) error {
	return c.PublishRequest(subject, "", v)
}

// PublishRequest encodes v and sends it to subject with reply as the reply subject.
func (c *EncodedConn) PublishRequest(subject, reply string, v any) error {
	data, err := c.encoder.Encode(subject, v)
	if err != nil {
		return fmt.Errorf("conn: encode %s: %w", subject, err)
	}
	return c.conn.PublishRequest(subject, reply, data)
}

// Handler receives decoded deliveries. msg carries the raw message for replies
// and headers.
type Handler[T any] func(msg *Msg, value T)

// Subscribe decodes every delivery on subject into T before calling handler.
// Payloads that fail to decode are reported to the async error handler and dropped.
func Subscribe[T any](c *EncodedConn, subject string, handler Handler[T]) (Subscription, error) {
	return QueueSubscribe(c, subject, "", handler)
}

// QueueSubscribe is Subscribe as a member of queue group queue.
func QueueSubscribe[T any](c *EncodedConn, subject, queue string, handler Handler[T]) (Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	return c.conn.QueueSubscribe(subject, queue, func(msg *Msg) {
		var value T
		if err := c.encoder.Decode(msg.Subject, msg.Data, &value); err != nil {
			c.conn.asyncError(msg.Subject, fmt.Errorf("conn: decode %s: %w", msg.Subject, err))
			return
		}
		handler(msg, value)
	})
}

// Request encodes req, waits up to timeout for a reply and decodes it into Resp.
func Request[Resp any](c *EncodedConn, subject string, req any, timeout time.Duration) (Resp, error) {
	var resp Resp
	data, err := c.encoder.Encode(subject, req)
	if err != nil {
		return resp, fmt.Errorf("conn: encode %s: %w", subject, err)
	}
	msg, err := c.conn.Request(subject, data, timeout)
	if err != nil {
		return resp, err
	}
	if err := c.encoder.Decode(msg.Subject, msg.Data, &resp); err != nil {
		return resp, fmt.Errorf("conn: decode reply on %s: %w", subject, err)
	}
	return resp, nil
}

// Respond encodes v and publishes it to msg's reply subject.
func (c *EncodedConn) Respond(msg *Msg, v any) error {
	if msg == nil || msg.Reply == "" {
		return ErrNoReply
	}
	data, err := c.encoder.Encode(msg.Reply, v)
	if err != nil {
		return fmt.Errorf("conn: encode %s: %w", msg.Reply, err)
	}
	return msg.Respond(data)
}
