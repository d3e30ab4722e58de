// Package storage defines the error vocabulary shared by the session and
// history store implementations.
package storage

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound reports that the referenced session does not exist.
// Implementations return it for absent rows only; ownership and lifecycle
// checks happen above the store.
var ErrSessionNotFound = errors.New("session not found")

// IOError wraps a failure of the underlying persistence layer. Callers
// must treat it as "the exchange was not saved", never as empty history.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// WrapIO annotates err as a storage I/O failure, passing sentinel errors
// through untouched.
func WrapIO(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrSessionNotFound) {
		return err
	}
	return &IOError{Op: op, Err: err}
}
