package stream

import (
	"errors"
	"fmt"
)

// ErrSourceConsumed is returned when a pipeline backed by a single-pass
// source (From, FromChannel) is iterated a second time.
var ErrSourceConsumed = errors.New("source already consumed: single-pass sources support one iteration")

// ItemError wraps a user-function failure with the position of the input
// item that caused it. Index is zero-based within the stage's input.
type ItemError struct {
	Index int64
	Stage string
	Err   error
}

func (e *ItemError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("stage %s: item %d: %v", e.Stage, e.Index, e.Err)
	}
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

// ConfigError reports invalid stage configuration. It is surfaced at the
// first evaluation step, never from inside a worker.
type ConfigError struct {
	Stage string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("stage %s: invalid configuration: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("invalid configuration: %v", e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
