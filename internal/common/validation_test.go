package common

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator(t *testing.T) {
	empty := ""
	long := "abcdefghijk"
	neg := -1

	v := NewValidator().
		Field("name", &empty, Required).
		Field("note", long, MaxLength(10)).
		Field("kind", "BOGUS", OneOf("LAB", "MEDICATION")).
		Field("refills", &neg, NonNegative).
		Field("id", "not-a-uuid", UUID)

	require.True(t, v.HasErrors())
	assert.Len(t, v.Errors(), 5)

	err := ValidateAndReturnError(v)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "VALIDATION_ERROR", ErrorCode(err))
}

func TestValidator_Passes(t *testing.T) {
	name := "Lisinopril"
	var refills *int

	v := NewValidator().
		Field("name", &name, Required, MaxLength(64)).
		Field("kind", "", OneOf("LAB")).
		Field("refills", refills, NonNegative).
		Field("workers", 3, Positive).
		Field("id", "6ba7b810-9dad-11d1-80b4-00c04fd430c8", UUID)

	assert.False(t, v.HasErrors())
	assert.NoError(t, v.Error())
	assert.NoError(t, ValidateAndReturnError(v))
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, WrapError(nil, "ctx"))
	err := WrapError(NotFoundError("proposal x"), "load")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "NOT_FOUND", ErrorCode(err))
	assert.Equal(t, "", ErrorCode(errors.New("plain")))
}
