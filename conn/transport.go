package conn

import (
	"time"

	"github.com/timzifer/natsconn/options"
)

// Msg is a message delivered to a subscription handler.
type Msg struct {
	Subject string
	Reply   string
	Data    []byte
	Header  map[string][]string

	respond func(data []byte) error
}

// NewMsg builds a message whose Respond publishes through respond. Transports use it
// to hand deliveries to handlers.
func NewMsg(subject, reply string, data []byte, header map[string][]string, respond func([]byte) error) *Msg {
	return &Msg{Subject: subject, Reply: reply, Data: data, Header: header, respond: respond}
}

// Respond publishes data to the message's reply subject.
func (m *Msg) Respond(data []byte) error {
	if m == nil || m.Reply == "" || m.respond == nil {
		return ErrNoReply
	}
	return m.respond(data)
}

// MsgHandler processes deliveries of a subscription.
type MsgHandler func(msg *Msg)

// Subscription is an active interest in a subject.
type Subscription interface {
	Subject() string
	Queue() string
	Unsubscribe() error
}

// Transport is a connected session with a server. It is produced by a Dialer once the
// handshake succeeded.
type Transport interface {
	Publish(subject, reply string, data []byte) error
	Subscribe(subject, queue string, handler MsgHandler) (Subscription, error)
	Request(subject string, data []byte, timeout time.Duration) (*Msg, error)
	Flush(timeout time.Duration) error
	RTT() (time.Duration, error)
	ConnectedURL() string
	IsConnected() bool
	Close()
}

// Events receives lifecycle notifications from a transport after the handshake.
type Events struct {
	Disconnected func(err error)
	Reconnected  func(url string)
	Closed       func()
	AsyncError   func(subject string, err error)
}

// Dialer performs the handshake for resolved options. A failed Dial must not leave
// anything open.
type Dialer interface {
	Dial(opts options.Options, events Events) (Transport, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(opts options.Options, events Events) (Transport, error)

func (f DialerFunc) Dial(opts options.Options, events Events) (Transport, error) {
	return f(opts, events)
}
