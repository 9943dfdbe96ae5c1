package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates an unknown item, job, user or transaction.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates a missing field or non-positive quantity.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInsufficientStock indicates a stock-out would drive stock negative.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidTransition indicates an illegal state change, e.g. completing
	// a canceled job or reverting a paid achievement.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrLocked indicates a mutation against a job that is no longer ongoing.
	ErrLocked = errors.New("locked")
	// ErrStorageFailure indicates the underlying transaction aborted.
	ErrStorageFailure = errors.New("storage failure")
)

// InsufficientStockError identifies the offending line of a rejected
// stock-out so the caller can render a precise message.
type InsufficientStockError struct {
	ItemID    int64
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %d: requested %d, available %d", e.ItemID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// Invalidf wraps ErrInvalidInput with a formatted detail.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidInput}, args...)...)
}
