package conn

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/timzifer/natsconn/options"
)

// NATSDialer connects with github.com/nats-io/nats.go.
type NATSDialer struct{}

// Dial builds nats.Options from opts and performs the connect handshake.
func (NATSDialer) Dial(opts options.Options, events Events) (Transport, error) {
	natsOpts, err := buildNATSOptions(opts, events)
	if err != nil {
		return nil, err
	}
	nc, err := natsOpts.Connect()
	if err != nil {
		return nil, err
	}
	return &natsTransport{nc: nc}, nil
}

func buildNATSOptions(opts options.Options, events Events) (nats.Options, error) {
	natsOpts := nats.GetDefaultOptions()
	natsOpts.Url = ""
	natsOpts.Servers = append([]string(nil), opts.Servers...)
	natsOpts.NoRandomize = opts.NoRandomize
	natsOpts.Name = opts.Name
	natsOpts.Verbose = opts.Verbose
	natsOpts.Pedantic = opts.Pedantic
	natsOpts.AllowReconnect = opts.AllowReconnect
	natsOpts.MaxReconnect = opts.MaxReconnect
	natsOpts.ReconnectWait = opts.ReconnectWait
	natsOpts.Timeout = opts.Timeout
	natsOpts.PingInterval = opts.PingInterval
	natsOpts.MaxPingsOut = opts.MaxPingsOut
	natsOpts.ReconnectBufSize = opts.ReconnectBufSize
	natsOpts.SubChanLen = opts.SubChanLen

	if creds := opts.Credentials; creds != nil {
		natsOpts.User = creds.Username
		natsOpts.Password = creds.Password
		natsOpts.Token = creds.Token
	}

	if opts.Secure {
		tlsConfig, err := options.BuildTLSConfig(opts.TLS)
		if err != nil {
			return nats.Options{}, &options.ConfigurationError{Input: "tls", Reason: "invalid tls settings", Err: err}
		}
		natsOpts.Secure = true
		natsOpts.TLSConfig = tlsConfig
	}

	if events.Disconnected != nil {
		natsOpts.DisconnectedErrCB = func(_ *nats.Conn, err error) {
			events.Disconnected(err)
		}
	}
	if events.Reconnected != nil {
		natsOpts.ReconnectedCB = func(nc *nats.Conn) {
			events.Reconnected(nc.ConnectedUrlRedacted())
		}
	}
	if events.Closed != nil {
		natsOpts.ClosedCB = func(*nats.Conn) {
			events.Closed()
		}
	}
	if events.AsyncError != nil {
		natsOpts.AsyncErrorCB = func(_ *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			events.AsyncError(subject, err)
		}
	}
	return natsOpts, nil
}

type natsTransport struct {
	nc *nats.Conn
}

func (t *natsTransport) Publish(subject, reply string, data []byte) error {
	if reply == "" {
		return t.nc.Publish(subject, data)
	}
	return t.nc.PublishRequest(subject, reply, data)
}

func (t *natsTransport) Subscribe(subject, queue string, handler MsgHandler) (Subscription, error) {
	cb := func(m *nats.Msg) {
		handler(fromNATS(m))
	}
	var (
		sub *nats.Subscription
		err error
	)
	if queue == "" {
		sub, err = t.nc.Subscribe(subject, cb)
	} else {
		sub, err = t.nc.QueueSubscribe(subject, queue, cb)
	}
	if err != nil {
		return nil, err
	}
	return natsSubscription{sub: sub}, nil
}

func (t *natsTransport) Request(subject string, data []byte, timeout time.Duration) (*Msg, error) {
	m, err := t.nc.Request(subject, data, timeout)
	if err != nil {
		return nil, err
	}
	return fromNATS(m), nil
}

func (t *natsTransport) Flush(timeout time.Duration) error {
	if timeout <= 0 {
		return t.nc.Flush()
	}
	return t.nc.FlushTimeout(timeout)
}

func (t *natsTransport) RTT() (time.Duration, error) {
	return t.nc.RTT()
}

func (t *natsTransport) ConnectedURL() string {
	return t.nc.ConnectedUrlRedacted()
}

func (t *natsTransport) IsConnected() bool {
	return t.nc.IsConnected()
}

func (t *natsTransport) Close() {
	t.nc.Close()
}

func fromNATS(m *nats.Msg) *Msg {
	var header map[string][]string
	if len(m.Header) > 0 {
		header = map[string][]string(m.Header)
	}
	return NewMsg(m.Subject, m.Reply, m.Data, header, m.Respond)
}

type natsSubscription struct {
	sub *nats.Subscription
}

func (s natsSubscription) Subject() string { return s.sub.Subject }
func (s natsSubscription) Queue() string   { return s.sub.Queue }

func (s natsSubscription) Unsubscribe() error {
	if err := s.sub.Unsubscribe(); err != nil {
		return fmt.Errorf("conn: unsubscribe %s: %w", s.sub.Subject, err)
	}
	return nil
}
