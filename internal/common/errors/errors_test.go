package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCodeThroughWrapping(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := fmt.Errorf("list topics: %w", NewPersistenceError("list topics", cause))

	assert.True(t, HasCode(err, ErrCodePersistence))
	assert.False(t, HasCode(err, ErrCodeNotFound))
	assert.ErrorIs(t, err, cause)

	appErr, ok := AsAppError(err)
	require.True(t, ok)
	assert.True(t, appErr.IsInternal())
	assert.Equal(t, "list topics", appErr.Details["operation"])

	_, ok = AsAppError(cause)
	assert.False(t, ok)
	assert.False(t, HasCode(nil, ErrCodeInternal))
}

func TestNewSkipsOwnFramesInStack(t *testing.T) {
	err := NewForbiddenError("admins only")
	require.NotEmpty(t, err.Stack)
	assert.NotContains(t, err.Stack[0], "internal/common/errors.New")
	assert.True(t, err.IsUnauthorized())
}
