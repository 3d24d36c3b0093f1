package store

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"

	"smartattendance/internal/apperr"
)

// DefaultTimeout bounds a single store operation when the backend is not configured otherwise.
const DefaultTimeout = 5 * time.Second

// Classify passes sentinel errors through and turns driver errors into
// Timeout or Unavailable, keeping the driver error (with stack) as the cause.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicate) || errors.Is(err, ErrNotPending) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return pkgerrors.Wrap(err, op)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(apperr.CodeTimeout, "record store timed out", pkgerrors.Wrap(err, op))
	}
	return apperr.Wrap(apperr.CodeUnavailable, "record store unavailable", pkgerrors.Wrap(err, op))
}

// OpContext derives the per-operation context used by the backends.
func OpContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
