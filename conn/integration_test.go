package conn_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"

	"github.com/timzifer/natsconn/conn"
	"github.com/timzifer/natsconn/encoders"
	"github.com/timzifer/natsconn/internal/natstest"
	"github.com/timzifer/natsconn/options"
	"github.com/timzifer/natsconn/runtime/connections"
)

func resolved(t *testing.T, url string) options.Options {
	t.Helper()
	opts, err := options.Resolve(options.Default(), url, false)
	require.NoError(t, err)
	opts.Timeout = time.Second
	return opts
}

func TestNATSRawPublishSubscribe(t *testing.T) {
	url, _ := natstest.Start(t)

	c := conn.New(resolved(t, url))
	require.NoError(t, c.Connect())
	t.Cleanup(func() { _ = c.Close() })
	require.True(t, c.IsConnected())

	received := make(chan string, 1)
	_, err := c.Subscribe("greet", func(msg *conn.Msg) {
		received <- string(msg.Data)
	})
	require.NoError(t, err)
	require.NoError(t, c.Flush(time.Second))

	require.NoError(t, c.Publish("greet", []byte("hello")))
	select {
	case got := <-received:
		require.Equal(t, "hello", got)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestNATSEncodedRequest(t *testing.T) {
	url, _ := natstest.Start(t)

	opts := resolved(t, url)
	opts.Encoder = encoders.JSON
	ec, err := conn.NewEncoded(opts)
	require.NoError(t, err)
	require.NoError(t, ec.Connect())
	t.Cleanup(func() { _ = ec.Close() })

	_, err = conn.Subscribe(ec, "sum", func(msg *conn.Msg, values []int) {
		total := 0
		for _, v := range values {
			total += v
		}
		_ = ec.Respond(msg, total)
	})
	require.NoError(t, err)
	require.NoError(t, ec.Flush(time.Second))

	total, err := conn.Request[int](ec, "sum", []int{1, 2, 3}, 2*time.Second)
	require.NoError(t, err)
	require.Equal(t, 6, total)
}

func TestNATSAuthorizationFailure(t *testing.T) {
	url, _ := natstest.Start(t, natstest.WithUserPassword("alice", "secret"))

	opts := resolved(t, url)
	opts.Credentials = &options.Credentials{Username: "alice", Password: "wrong"}
	c := conn.New(opts)

	err := c.Connect()
	require.Error(t, err)
	require.True(t, errors.Is(err, nats.ErrAuthorization), "got %v", err)
	require.Equal(t, connections.StateFailed, c.State())
}

func TestNATSCredentialsFromURL(t *testing.T) {
	_, srv := natstest.Start(t, natstest.WithUserPassword("alice", "secret"))

	opts, err := options.Resolve(options.Default(), "nats://alice:secret@"+srv.Addr().String(), false)
	require.NoError(t, err)

	c := conn.New(opts)
	require.NoError(t, c.Connect())
	t.Cleanup(func() { _ = c.Close() })
	require.NotContains(t, c.ConnectedURL(), "secret")
}

func TestNATSNoServers(t *testing.T) {
	opts := resolved(t, "nats://127.0.0.1:1")
	c := conn.New(opts)

	err := c.Connect()
	require.Error(t, err)
	var connErr *conn.ConnectionError
	require.True(t, errors.As(err, &connErr))
	require.Equal(t, []string{"nats://127.0.0.1:1"}, connErr.Servers)
	require.Equal(t, connections.StateFailed, c.State())
}

func TestNATSClosedHandler(t *testing.T) {
	url, _ := natstest.Start(t)

	var wg sync.WaitGroup
	wg.Add(1)
	opts := resolved(t, url)
	opts.ClosedHandler = wg.Done

	c := conn.New(opts)
	require.NoError(t, c.Connect())
	require.NoError(t, c.Close())

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("closed handler not called")
	}
	require.Equal(t, connections.StateClosed, c.State())
}
