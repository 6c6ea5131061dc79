package connections

// State describes where a connection handle is in its lifecycle.
type State int32

const (
	// StateCreated is the state of a freshly constructed handle; no I/O happened yet.
	StateCreated State = iota
	// StateConnecting is held while the handshake runs.
	StateConnecting
	// StateReady means the handshake completed and the handle may be used.
	StateReady
	// StateFailed is terminal; the handshake failed and the handle must be discarded.
	StateFailed
	// StateClosed is terminal; the owner released the connection.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Handle is the contract shared by every connection variant.
//
// Connect performs the synchronous handshake and may only be called once. It
// either leaves the handle in StateReady or returns an error and leaves it in
// StateFailed with no resources held. Close releases the underlying transport and
// is safe to call on handles that never connected. A Close that overlaps Connect
// moves the handle to StateClosed and Connect releases whatever it dialed.
type Handle interface {
	Connect() error
	Close() error
	State() State
}
