package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneKeepsIdentity(t *testing.T) {
	err := Clone(ErrInvalidState, "approval has already been reviewed")
	assert.True(t, errors.Is(err, ErrInvalidState))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.Equal(t, "approval has already been reviewed", err.Message)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	err := FromError(fmt.Errorf("boom"))
	assert.Equal(t, ErrInternal.Code, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)

	typed := Clone(ErrConflict, "dup")
	assert.Same(t, typed, FromError(fmt.Errorf("ctx: %w", typed)))
}
