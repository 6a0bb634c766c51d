package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/userdeck/userdeck/pkg/types"
)

func TestUserdeckError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(types.ErrorTypeValidation, ErrCodeValidation, "test error")
		assert.Equal(t, types.ErrorTypeValidation, err.Type)
		assert.Equal(t, ErrCodeValidation, err.Code)
		assert.Contains(t, err.Error(), "test error")
	})

	t.Run("Unwrap", func(t *testing.T) {
		cause := fmt.Errorf("connection refused")
		err := NewWithCause(types.ErrorTypeExternal, ErrCodeRemoteError, "remote call failed", cause)
		assert.True(t, errors.Is(err, cause))
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("WithDetail", func(t *testing.T) {
		err := NewNotFoundError("record").WithDetail("id", "42")
		assert.Equal(t, "42", err.Details["id"])
		assert.Equal(t, "record", err.Details["resource"])
	})
}

func TestConstructors(t *testing.T) {
	t.Run("EmptySelection", func(t *testing.T) {
		err := NewEmptySelectionError()
		assert.Equal(t, ErrCodeEmptySelection, err.Code)
		assert.Equal(t, types.ErrorTypeValidation, err.Type)
	})

	t.Run("DeleteFailed", func(t *testing.T) {
		cause := fmt.Errorf("504")
		err := NewDeleteFailedError("7", cause)
		assert.Equal(t, ErrCodeDeleteFailed, err.Code)
		assert.Equal(t, "7", err.Details["record_id"])
		assert.True(t, errors.Is(err, cause))
	})

	t.Run("SlotCorrupted", func(t *testing.T) {
		err := NewSlotCorruptedError(fmt.Errorf("bad json"))
		assert.Equal(t, ErrCodeSlotCorrupted, err.Code)
		assert.Equal(t, types.ErrorTypeInternal, err.Type)
	})
}

func TestGetUserdeckError(t *testing.T) {
	udErr := NewValidationError("bad input")
	assert.Equal(t, udErr, GetUserdeckError(udErr))
	assert.Nil(t, GetUserdeckError(fmt.Errorf("plain")))
	assert.True(t, IsUserdeckError(udErr))
	assert.False(t, IsUserdeckError(fmt.Errorf("plain")))
}

func TestErrorList(t *testing.T) {
	list := NewErrorList()
	assert.False(t, list.HasErrors())
	assert.NoError(t, list.ToError())

	list.Add(NewDeleteFailedError("1", fmt.Errorf("timeout")))
	list.Add(NewDeleteFailedError("2", fmt.Errorf("refused")))

	require.True(t, list.HasErrors())
	err := list.ToError()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record 1")
	assert.Contains(t, err.Error(), "record 2")
}
