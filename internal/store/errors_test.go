package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"smartattendance/internal/apperr"
)

func TestClassify(t *testing.T) {
	assert.NoError(t, Classify("op", nil))
	assert.ErrorIs(t, Classify("op", ErrNotFound), ErrNotFound)
	assert.ErrorIs(t, Classify("op", fmt.Errorf("wrapped: %w", ErrNotPending)), ErrNotPending)

	timeout := Classify("find", context.DeadlineExceeded)
	assert.True(t, apperr.Is(timeout, apperr.CodeTimeout))
	assert.ErrorIs(t, timeout, context.DeadlineExceeded)

	down := Classify("find", errors.New("connection refused"))
	assert.True(t, apperr.Is(down, apperr.CodeUnavailable))
	assert.Equal(t, "internal server error", apperr.Body(down).Message)

	canceled := Classify("find", context.Canceled)
	assert.ErrorIs(t, canceled, context.Canceled)
	assert.False(t, apperr.IsDomain(canceled))
}

func TestOpContextDefaultsTimeout(t *testing.T) {
	ctx, cancel := OpContext(context.Background(), 0)
	defer cancel()
	deadline, ok := ctx.Deadline()
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(DefaultTimeout), deadline, time.Second)
}
