package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_ErrorMessage(t *testing.T) {
	assert.Equal(t, "something broke", Server("something broke").Error())

	wrapped := Wrap(errors.New("dial tcp: refused"), ErrCodeNetwork, "post /auth/login failed")
	assert.Equal(t, "post /auth/login failed: dial tcp: refused", wrapped.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	wrapped := Wrap(cause, ErrCodeTimeout, "request timed out")

	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, cause, errors.Unwrap(wrapped))
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeServer, "ignored"))
	assert.Nil(t, Wrapf(nil, ErrCodeServer, "ignored %d", 1))
}

func TestCodePredicates(t *testing.T) {
	cases := []struct {
		err   error
		check func(error) bool
		code  ErrorCode
	}{
		{Unauthorized("no"), IsUnauthorized, ErrCodeUnauthorized},
		{Validation("bad"), IsValidation, ErrCodeValidation},
		{Server("oops"), IsServer, ErrCodeServer},
		{Timeout("slow"), IsTimeout, ErrCodeTimeout},
		{Network("down"), IsNetwork, ErrCodeNetwork},
		{Internal("bug"), IsInternal, ErrCodeInternal},
		{Wrap(errors.New("x"), ErrCodeCanceled, "stopped"), IsCanceled, ErrCodeCanceled},
	}

	for _, tc := range cases {
		assert.True(t, tc.check(tc.err), "predicate for %s", tc.code)
		assert.Equal(t, tc.code, GetCode(tc.err))
	}
}

func TestPredicates_ThroughWrapping(t *testing.T) {
	inner := Unauthorized("token rejected")
	outer := fmt.Errorf("fetch current user: %w", inner)

	assert.True(t, IsUnauthorized(outer))
	assert.False(t, IsServer(outer))
	assert.Equal(t, ErrCodeUnauthorized, GetCode(outer))
}

func TestGetCode_NonAppError(t *testing.T) {
	assert.Equal(t, ErrorCode(""), GetCode(errors.New("plain")))
	assert.Equal(t, ErrorCode(""), GetCode(nil))
}

func TestValidationField(t *testing.T) {
	err := ValidationField("email", "email is required")

	require.True(t, IsValidation(err))
	assert.Equal(t, "email", GetField(err))
	assert.Equal(t, "email is required", err.Error())

	assert.Empty(t, GetField(Server("no field")))
	assert.Empty(t, GetField(errors.New("plain")))
}

func TestFormattedConstructors(t *testing.T) {
	assert.Equal(t, "user 42 not allowed", Unauthorizedf("user %d not allowed", 42).Error())
	assert.Equal(t, "bad value 7", Validationf("bad value %d", 7).Error())
	assert.Equal(t, "upstream 503", Serverf("upstream %d", 503).Error())
	assert.Equal(t, "state 9 invalid", Internalf("state %d invalid", 9).Error())
}
