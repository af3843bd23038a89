package storage

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by lookups that address a specific record id which
// must exist. Empty day queries and absent settings are not errors.
var ErrNotFound = errors.New("record not found")

// ValidationError reports malformed input to a mutating call. It is never
// retried automatically.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// StorageError wraps an underlying persistence failure. The caller decides
// whether to retry; the store never swallows these.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// PurgeConsistencyError means a batch delete could not complete atomically.
// It is surfaced distinctly from StorageError because purge is idempotent and
// safe to re-run.
type PurgeConsistencyError struct {
	Cutoff time.Time
	Err    error
}

func (e *PurgeConsistencyError) Error() string {
	return fmt.Sprintf("purge before %s did not complete atomically: %v",
		e.Cutoff.Format("2006-01-02"), e.Err)
}

func (e *PurgeConsistencyError) Unwrap() error { return e.Err }
