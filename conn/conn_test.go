package conn_test

import (
	"bytes"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/timzifer/natsconn/conn"
	"github.com/timzifer/natsconn/internal/natstest"
	"github.com/timzifer/natsconn/options"
	"github.com/timzifer/natsconn/runtime/connections"
)

func TestNewPerformsNoIO(t *testing.T) {
	dialer := natstest.NewLoopback()
	c := conn.New(options.Default(), conn.WithDialer(dialer))

	require.Equal(t, connections.StateCreated, c.State())
	require.Zero(t, dialer.Dials())
	require.ErrorIs(t, c.Publish("a", nil), conn.ErrNotConnected)
	require.NoError(t, c.Close())
	require.Equal(t, connections.StateCreated, c.State())
}

func TestConnectTransitionsToReady(t *testing.T) {
	dialer := natstest.NewLoopback()
	opts := options.Default()
	opts.Name = "svc"
	c := conn.New(opts, conn.WithDialer(dialer))

	require.NoError(t, c.Connect())
	require.Equal(t, connections.StateReady, c.State())
	require.True(t, c.IsConnected())
	require.Equal(t, options.DefaultURL, c.ConnectedURL())

	dialed, ok := dialer.LastDialed()
	require.True(t, ok)
	require.Equal(t, "svc", dialed.Name)

	require.ErrorIs(t, c.Connect(), conn.ErrConnectCalled)
	require.Equal(t, 1, dialer.Dials())

	require.NoError(t, c.Close())
	require.Equal(t, connections.StateClosed, c.State())
	require.ErrorIs(t, c.Publish("a", nil), conn.ErrNotConnected)
}

func TestConnectFailureKeepsTransportError(t *testing.T) {
	c := conn.New(options.Default(), conn.WithDialer(natstest.Failing(natstest.ErrRejected)))

	err := c.Connect()
	require.Error(t, err)
	require.ErrorIs(t, err, natstest.ErrRejected)

	var connErr *conn.ConnectionError
	require.True(t, errors.As(err, &connErr))
	require.Equal(t, []string{options.DefaultURL}, connErr.Servers)
	require.Same(t, natstest.ErrRejected, connErr.Err)

	require.Equal(t, connections.StateFailed, c.State())
	require.NoError(t, c.Close())
	require.Equal(t, connections.StateFailed, c.State())
}

// gatedDialer blocks every Dial until release is closed.
func gatedDialer(next conn.Dialer) (conn.Dialer, <-chan struct{}, chan<- struct{}) {
	started := make(chan struct{})
	release := make(chan struct{})
	dialer := conn.DialerFunc(func(opts options.Options, events conn.Events) (conn.Transport, error) {
		close(started)
		<-release
		return next.Dial(opts, events)
	})
	return dialer, started, release
}

func TestCloseDuringConnectReleasesTransport(t *testing.T) {
	dialer, started, release := gatedDialer(natstest.NewLoopback())

	var closed atomic.Bool
	opts := options.Default()
	opts.ClosedHandler = func() { closed.Store(true) }
	c := conn.New(opts, conn.WithDialer(dialer))

	result := make(chan error, 1)
	go func() { result <- c.Connect() }()

	<-started
	require.Equal(t, connections.StateConnecting, c.State())
	require.NoError(t, c.Close())
	require.Equal(t, connections.StateClosed, c.State())
	close(release)

	select {
	case err := <-result:
		require.ErrorIs(t, err, conn.ErrNotConnected)
	case <-time.After(2 * time.Second):
		t.Fatal("connect did not return")
	}
	require.True(t, closed.Load(), "dialed transport must be closed")
	require.Equal(t, connections.StateClosed, c.State())
	require.False(t, c.IsConnected())
	require.ErrorIs(t, c.Publish("a", nil), conn.ErrNotConnected)
}

func TestCloseDuringFailedConnectStaysClosed(t *testing.T) {
	dialer, started, release := gatedDialer(natstest.Failing(natstest.ErrRejected))
	c := conn.New(options.Default(), conn.WithDialer(dialer))

	result := make(chan error, 1)
	go func() { result <- c.Connect() }()

	<-started
	require.NoError(t, c.Close())
	close(release)

	err := <-result
	require.ErrorIs(t, err, natstest.ErrRejected)
	var connErr *conn.ConnectionError
	require.True(t, errors.As(err, &connErr))
	require.Equal(t, connections.StateClosed, c.State())
}

func TestOptionsAreCopied(t *testing.T) {
	opts := options.Default()
	c := conn.New(opts, conn.WithDialer(natstest.NewLoopback()))
	opts.Servers[0] = "nats://mutated:1"

	require.Equal(t, []string{options.DefaultURL}, c.Options().Servers)
}

func TestPublishSubscribeRoundTrip(t *testing.T) {
	c := conn.New(options.Default(), conn.WithDialer(natstest.NewLoopback()))
	require.NoError(t, c.Connect())
	t.Cleanup(func() { _ = c.Close() })

	var got []string
	sub, err := c.Subscribe("events.*", func(msg *conn.Msg) {
		got = append(got, msg.Subject+"="+string(msg.Data))
	})
	require.NoError(t, err)
	require.Equal(t, "events.*", sub.Subject())

	require.NoError(t, c.Publish("events.a", []byte("1")))
	require.NoError(t, c.Publish("other", []byte("2")))
	require.NoError(t, sub.Unsubscribe())
	require.NoError(t, c.Publish("events.b", []byte("3")))

	require.Equal(t, []string{"events.a=1"}, got)

	_, err = c.Subscribe("x", nil)
	require.ErrorIs(t, err, conn.ErrNilHandler)
}

func TestRequestReply(t *testing.T) {
	c := conn.New(options.Default(), conn.WithDialer(natstest.NewLoopback()))
	require.NoError(t, c.Connect())
	t.Cleanup(func() { _ = c.Close() })

	_, err := c.Subscribe("ping", func(msg *conn.Msg) {
		_ = msg.Respond([]byte("pong"))
	})
	require.NoError(t, err)

	reply, err := c.Request("ping", nil, time.Second)
	require.NoError(t, err)
	require.Equal(t, "pong", string(reply.Data))

	rtt, err := c.RTT()
	require.NoError(t, err)
	require.Positive(t, rtt)
	require.NoError(t, c.Flush(time.Second))
}

func TestMsgRespondWithoutReply(t *testing.T) {
	msg := conn.NewMsg("a", "", nil, nil, nil)
	require.ErrorIs(t, msg.Respond([]byte("x")), conn.ErrNoReply)
}

func TestLifecycleEventsReachHandlersAndLog(t *testing.T) {
	var buf bytes.Buffer
	dialer := natstest.NewLoopback()

	var (
		disconnected error
		reconnected  string
		closed       bool
	)
	opts := options.Default()
	opts.DisconnectedHandler = func(err error) { disconnected = err }
	opts.ReconnectedHandler = func(url string) { reconnected = url }
	opts.ClosedHandler = func() { closed = true }

	c := conn.New(opts, conn.WithDialer(dialer), conn.WithLogger(zerolog.New(&buf)))
	require.NoError(t, c.Connect())

	dialer.Disconnect(nats.ErrConnectionClosed)
	dialer.Reconnect("nats://localhost:4222")
	require.NoError(t, c.Close())

	require.ErrorIs(t, disconnected, nats.ErrConnectionClosed)
	require.Equal(t, "nats://localhost:4222", reconnected)
	require.True(t, closed)
	require.Contains(t, buf.String(), "nats: connection lost")
	require.Contains(t, buf.String(), "nats: reconnected")
}
