package database

import (
	"errors"
	"fmt"
)

var (
	// ErrTransient marks store failures (unreachable, timeout, failed commit)
	// that may succeed if the whole fact is retried.
	ErrTransient = errors.New("transient store error")

	// ErrCloseConflict is returned when another writer already set exit_time.
	ErrCloseConflict = errors.New("session already closed")

	// ErrSessionNotFound is returned when no session exists for a batch.
	ErrSessionNotFound = errors.New("session not found")
)

// StoreError wraps a driver error raised by a store operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrTransient
}

// Wrap returns a StoreError for op, or nil when err is nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
