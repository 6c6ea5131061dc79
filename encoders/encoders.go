// Package encoders provides the pluggable value codecs used by encoded connections.
package encoders

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

const (
	JSON     = "json"
	Gob      = "gob"
	Default  = "default"
	Protobuf = "protobuf"
)

var (
	// ErrUnknownEncoder is returned by Lookup for names that were never registered.
	ErrUnknownEncoder = errors.New("encoders: unknown encoder")
	// ErrUnsupportedType is returned when an encoder cannot handle a Go type.
	ErrUnsupportedType = errors.New("encoders: unsupported value type")
)

// Encoder converts values to message payloads and back.
//
// Implementations must be safe for concurrent use; a single encoder instance is
// shared by every subscription of a connection.
type Encoder interface {
	Encode(subject string, v any) ([]byte, error)
	Decode(subject string, data []byte, vPtr any) error
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Encoder{
		JSON:     JSONEncoder{},
		Gob:      GobEncoder{},
		Default:  DefaultEncoder{},
		Protobuf: ProtobufEncoder{},
	}
)

// Register makes an encoder available under name, replacing any previous entry.
func Register(name string, enc Encoder) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return fmt.Errorf("encoders: name must not be empty")
	}
	if enc == nil {
		return fmt.Errorf("encoders: encoder %s is nil", name)
	}
	registryMu.Lock()
	registry[name] = enc
	registryMu.Unlock()
	return nil
}

// Lookup returns the encoder registered under name.
func Lookup(name string) (Encoder, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	registryMu.RLock()
	enc, ok := registry[key]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoder, name)
	}
	return enc, nil
}

// Names lists the registered encoder names in sorted order.
func Names() []string {
	registryMu.RLock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	registryMu.RUnlock()
	sort.Strings(names)
	return names
}
