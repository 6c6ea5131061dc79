package natstest

import (
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"

	"github.com/timzifer/natsconn/conn"
	"github.com/timzifer/natsconn/options"
)

func TestMatchSubject(t *testing.T) {
	cases := []struct {
		pattern, subject string
		want             bool
	}{
		{"a.b", "a.b", true},
		{"a.b", "a.c", false},
		{"a.*", "a.b", true},
		{"a.*", "a.b.c", false},
		{"a.>", "a.b.c", true},
		{"a.>", "a", false},
		{">", "x", true},
		{"*.b", "a.b", true},
		{"a.b.c", "a.b", false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, MatchSubject(tc.pattern, tc.subject), "%s ~ %s", tc.pattern, tc.subject)
	}
}

func TestLoopbackRecordsDials(t *testing.T) {
	l := NewLoopback()
	opts := options.Default()
	opts.Name = "recorded"

	transport, err := l.Dial(opts, conn.Events{})
	require.NoError(t, err)
	require.NotNil(t, transport)
	require.Equal(t, 1, l.Dials())

	last, ok := l.LastDialed()
	require.True(t, ok)
	require.Equal(t, "recorded", last.Name)
	require.Equal(t, options.DefaultURL, transport.ConnectedURL())
}

func TestLoopbackFailingDialer(t *testing.T) {
	l := Failing(ErrRejected)
	transport, err := l.Dial(options.Default(), conn.Events{})
	require.ErrorIs(t, err, ErrRejected)
	require.Nil(t, transport)
	require.Equal(t, 1, l.Dials())
}

func TestLoopbackQueueGroupsDeliverOnce(t *testing.T) {
	l := NewLoopback()
	transport, err := l.Dial(options.Default(), conn.Events{})
	require.NoError(t, err)

	var got int
	for i := 0; i < 3; i++ {
		_, err := transport.Subscribe("jobs", "workers", func(*conn.Msg) { got++ })
		require.NoError(t, err)
	}
	require.NoError(t, transport.Publish("jobs", "", []byte("x")))
	require.Equal(t, 1, got)
}

func TestLoopbackRequestReply(t *testing.T) {
	l := NewLoopback()
	transport, err := l.Dial(options.Default(), conn.Events{})
	require.NoError(t, err)

	_, err = transport.Subscribe("echo", "", func(msg *conn.Msg) {
		require.NoError(t, msg.Respond(append([]byte("re:"), msg.Data...)))
	})
	require.NoError(t, err)

	reply, err := transport.Request("echo", []byte("hi"), time.Second)
	require.NoError(t, err)
	require.Equal(t, "re:hi", string(reply.Data))

	_, err = transport.Request("nobody", nil, 10*time.Millisecond)
	require.ErrorIs(t, err, nats.ErrTimeout)
}

func TestLoopbackCloseFiresClosedOnce(t *testing.T) {
	l := NewLoopback()
	var closed int
	transport, err := l.Dial(options.Default(), conn.Events{Closed: func() { closed++ }})
	require.NoError(t, err)

	transport.Close()
	transport.Close()
	require.Equal(t, 1, closed)
	require.False(t, transport.IsConnected())
	require.ErrorIs(t, transport.Publish("a", "", nil), nats.ErrConnectionClosed)
}
