package conn

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConnectCalled is returned when Connect is invoked more than once.
	ErrConnectCalled = errors.New("conn: connect already called")
	// ErrNotConnected is returned by operations on a handle that is not ready.
	ErrNotConnected = errors.New("conn: not connected")
	// ErrNoReply is returned by Msg.Respond for messages without a reply subject.
	ErrNoReply = errors.New("conn: message has no reply subject")
	// ErrNilHandler is returned when subscribing without a handler.
	ErrNilHandler = errors.New("conn: nil message handler")
)

// ConnectionError reports a failed handshake. Err is the transport's error, so
// errors.Is keeps matching nats.ErrAuthorization, nats.ErrNoServers and friends.
type ConnectionError struct {
	Servers []string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("conn: connect to %s: %v", strings.Join(e.Servers, ","), e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
