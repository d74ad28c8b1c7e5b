package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneKeepsIdentity(t *testing.T) {
	err := Clone(ErrCapacityReached, "workshop is full")
	assert.True(t, errors.Is(err, ErrCapacityReached))
	assert.False(t, errors.Is(err, ErrConflict))
	assert.Equal(t, "workshop is full", err.Message)
	assert.Equal(t, "capacity reached", ErrCapacityReached.Message)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := FromError(cause)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.ErrorIs(t, err, cause)

	typed := Wrap(cause, ErrValidation.Code, ErrValidation.Status, "bad")
	assert.Same(t, typed, FromError(fmt.Errorf("ctx: %w", typed)))
}

func TestWithDetails(t *testing.T) {
	err := WithDetails(ErrValidation, map[string]string{"rating": "max"})
	assert.NotNil(t, err.Details)
	assert.Nil(t, ErrValidation.Details)
}
