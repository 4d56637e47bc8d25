package orm

import (
	"errors"
	"fmt"
)

var (
	// ErrRecordNotFound is returned by Find when no row matches the key.
	ErrRecordNotFound = errors.New("orm: record not found")
	// ErrNotPersisted is returned when an operation needs a saved record.
	ErrNotPersisted = errors.New("orm: record not persisted")
	// ErrAlreadyPersisted is returned by Create for a record that already has a key.
	ErrAlreadyPersisted = errors.New("orm: record already persisted")
)

// RecordInvalidError wraps a validation failure raised by a strict save.
type RecordInvalidError struct {
	Table string
	Err   error
}

func (e *RecordInvalidError) Error() string {
	return fmt.Sprintf("orm: %s invalid: %v", e.Table, e.Err)
}

func (e *RecordInvalidError) Unwrap() error { return e.Err }
