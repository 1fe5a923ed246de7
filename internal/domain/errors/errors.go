package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyClaimed = errors.New("already claimed")
	ErrNotClaimable   = errors.New("order not claimable")
	ErrNotClaimOwner  = errors.New("not the claiming seller")
	ErrUnauthorized   = errors.New("not an active seller")
	ErrInvalidPackage = errors.New("invalid package")
	ErrQueueFull      = errors.New("notification queue full")
)

// TooManyActiveError signals the per-seller concurrent claim cap was hit.
type TooManyActiveError struct {
	Count int
	Limit int
}

func (e TooManyActiveError) Error() string {
	return fmt.Sprintf("seller already holds %d of %d allowed active orders", e.Count, e.Limit)
}

// StorageError marks transient storage failures the caller may retry.
type StorageError struct {
	Err error
}

func (e StorageError) Error() string {
	return fmt.Sprintf("storage: %v", e.Err)
}

func (e StorageError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the error is a transient storage fault.
func IsRetryable(err error) bool {
	var se StorageError
	return errors.As(err, &se)
}
