package natstest

import (
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/timzifer/natsconn/conn"
	"github.com/timzifer/natsconn/options"
)

// Loopback is an in-memory conn.Dialer. Every transport it hands out shares a
// single subject space, so a publish on one connection reaches subscribers on
// all of them. It records what it was asked to dial.
type Loopback struct {
	// Err, when set, is returned by Dial instead of a transport.
	Err error

	dials atomic.Int64

	mu      sync.Mutex
	dialed  []options.Options
	events  []conn.Events
	subs    map[int64]*loopbackSub
	nextSub int64
	inbox   int64
}

// NewLoopback returns a loopback dialer that accepts every dial.
func NewLoopback() *Loopback {
	return &Loopback{subs: make(map[int64]*loopbackSub)}
}

// Failing returns a loopback dialer whose Dial always fails with err.
func Failing(err error) *Loopback {
	l := NewLoopback()
	l.Err = err
	return l
}

// Dial implements conn.Dialer.
func (l *Loopback) Dial(opts options.Options, events conn.Events) (conn.Transport, error) {
	l.dials.Add(1)
	l.mu.Lock()
	l.dialed = append(l.dialed, opts.Clone())
	l.events = append(l.events, events)
	l.mu.Unlock()
	if l.Err != nil {
		return nil, l.Err
	}
	url := ""
	if len(opts.Servers) > 0 {
		url = opts.Servers[0]
	}
	return &loopbackTransport{bus: l, url: url, events: events}, nil
}

// Dials reports how many times Dial was called.
func (l *Loopback) Dials() int {
	return int(l.dials.Load())
}

// Dialed returns the options passed to every Dial call in order.
func (l *Loopback) Dialed() []options.Options {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]options.Options, len(l.dialed))
	copy(out, l.dialed)
	return out
}

// LastDialed returns the options of the most recent Dial call.
func (l *Loopback) LastDialed() (options.Options, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.dialed) == 0 {
		return options.Options{}, false
	}
	return l.dialed[len(l.dialed)-1], true
}

// Disconnect fires the disconnected callback of every dialed transport.
func (l *Loopback) Disconnect(err error) {
	for _, ev := range l.snapshotEvents() {
		if ev.Disconnected != nil {
			ev.Disconnected(err)
		}
	}
}

// Reconnect fires the reconnected callback of every dialed transport.
func (l *Loopback) Reconnect(url string) {
	for _, ev := range l.snapshotEvents() {
		if ev.Reconnected != nil {
			ev.Reconnected(url)
		}
	}
}

func (l *Loopback) snapshotEvents() []conn.Events {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]conn.Events(nil), l.events...)
}

func (l *Loopback) subscribe(subject, queue string, handler conn.MsgHandler) *loopbackSub {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextSub++
	sub := &loopbackSub{bus: l, id: l.nextSub, subject: subject, queue: queue, handler: handler}
	l.subs[sub.id] = sub
	return sub
}

func (l *Loopback) unsubscribe(id int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.subs[id]; !ok {
		return false
	}
	delete(l.subs, id)
	return true
}

func (l *Loopback) newInbox() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inbox++
	return "_INBOX.loopback." + strconv.FormatInt(l.inbox, 10)
}

// deliver calls matching handlers synchronously. One member per queue group
// receives the message.
func (l *Loopback) deliver(subject, reply string, data []byte) {
	l.mu.Lock()
	var targets []*loopbackSub
	queues := make(map[string]bool)
	for id := int64(1); id <= l.nextSub; id++ {
		sub, ok := l.subs[id]
		if !ok || !MatchSubject(sub.subject, subject) {
			continue
		}
		if sub.queue != "" {
			if queues[sub.queue] {
				continue
			}
			queues[sub.queue] = true
		}
		targets = append(targets, sub)
	}
	l.mu.Unlock()

	for _, sub := range targets {
		payload := append([]byte(nil), data...)
		respond := func(resp []byte) error {
			l.deliver(reply, "", resp)
			return nil
		}
		sub.handler(conn.NewMsg(subject, reply, payload, nil, respond))
	}
}

type loopbackTransport struct {
	bus    *Loopback
	url    string
	events conn.Events
	closed atomic.Bool
}

func (t *loopbackTransport) Publish(subject, reply string, data []byte) error {
	if t.closed.Load() {
		return nats.ErrConnectionClosed
	}
	if subject == "" {
		return nats.ErrBadSubject
	}
	t.bus.deliver(subject, reply, data)
	return nil
}

func (t *loopbackTransport) Subscribe(subject, queue string, handler conn.MsgHandler) (conn.Subscription, error) {
	if t.closed.Load() {
		return nil, nats.ErrConnectionClosed
	}
	if subject == "" {
		return nil, nats.ErrBadSubject
	}
	return t.bus.subscribe(subject, queue, handler), nil
}

func (t *loopbackTransport) Request(subject string, data []byte, timeout time.Duration) (*conn.Msg, error) {
	if t.closed.Load() {
		return nil, nats.ErrConnectionClosed
	}
	inbox := t.bus.newInbox()
	replies := make(chan *conn.Msg, 1)
	sub := t.bus.subscribe(inbox, "", func(msg *conn.Msg) {
		select {
		case replies <- msg:
		default:
		}
	})
	defer t.bus.unsubscribe(sub.id)

	t.bus.deliver(subject, inbox, data)

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case msg := <-replies:
		return msg, nil
	case <-timer.C:
		return nil, nats.ErrTimeout
	}
}

func (t *loopbackTransport) Flush(time.Duration) error {
	if t.closed.Load() {
		return nats.ErrConnectionClosed
	}
	return nil
}

func (t *loopbackTransport) RTT() (time.Duration, error) {
	if t.closed.Load() {
		return 0, nats.ErrConnectionClosed
	}
	return time.Microsecond, nil
}

func (t *loopbackTransport) ConnectedURL() string {
	if t.closed.Load() {
		return ""
	}
	return t.url
}

func (t *loopbackTransport) IsConnected() bool {
	return !t.closed.Load()
}

func (t *loopbackTransport) Close() {
	if t.closed.Swap(true) {
		return
	}
	if t.events.Closed != nil {
		t.events.Closed()
	}
}

type loopbackSub struct {
	bus     *Loopback
	id      int64
	subject string
	queue   string
	handler conn.MsgHandler
}

func (s *loopbackSub) Subject() string { return s.subject }
func (s *loopbackSub) Queue() string   { return s.queue }

func (s *loopbackSub) Unsubscribe() error {
	if !s.bus.unsubscribe(s.id) {
		return nats.ErrBadSubscription
	}
	return nil
}

// ErrRejected is a stand-in handshake failure for tests that do not care about
// the concrete transport error.
var ErrRejected = errors.New("natstest: handshake rejected")

// MatchSubject reports whether subject matches pattern using NATS token
// wildcards: "*" matches one token, a trailing ">" matches one or more.
func MatchSubject(pattern, subject string) bool {
	pt := strings.Split(pattern, ".")
	st := strings.Split(subject, ".")
	for i, token := range pt {
		if token == ">" {
			return i == len(pt)-1 && len(st) > i
		}
		if i >= len(st) {
			return false
		}
		if token != "*" && token != st[i] {
			return false
		}
	}
	return len(pt) == len(st)
}
