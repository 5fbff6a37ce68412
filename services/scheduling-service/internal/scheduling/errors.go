package scheduling

import (
	"errors"

	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/storage"
)

// Sentinel errors returned by the engine. Handlers map these onto HTTP
// status codes; everything else is treated as an internal error.
var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("invalid request")
	ErrConflict          = errors.New("time slot already taken")
	ErrPolicyViolation   = errors.New("cancellation policy violation")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrStoreUnavailable  = errors.New("store temporarily unavailable")
)

// Retryable reports whether the caller may safely retry the operation.
func Retryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// classifyStoreErr folds driver-level failures into the engine's error
// taxonomy. Serialization failures surface as retryable; an exclusion
// constraint hit means a concurrent booking won the slot.
func classifyStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case storage.IsNotFound(err):
		return ErrNotFound
	case storage.IsConflict(err):
		return ErrConflict
	case storage.IsRetryable(err):
		return ErrStoreUnavailable
	}
	return err
}
