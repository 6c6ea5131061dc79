package options

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration matches every *ConfigurationError via errors.Is.
var ErrInvalidConfiguration = errors.New("natsconn: invalid configuration")

// ConfigurationError reports malformed URL or options input. It is always detected
// before any network I/O and is fixed by correcting the input.
type ConfigurationError struct {
	// Input is the offending URL segment or option name.
	Input  string
	Reason string
	Err    error
}

func configError(input, reason string, err error) *ConfigurationError {
	return &ConfigurationError{Input: input, Reason: reason, Err: err}
}

func (e *ConfigurationError) Error() string {
	msg := "natsconn: invalid configuration"
	if e.Input != "" {
		msg = fmt.Sprintf("%s %q", msg, e.Input)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrInvalidConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}
