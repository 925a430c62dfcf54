package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidInput, "lengths differ")

	assert.Equal(t, ErrCodeInvalidInput, err.Code)
	assert.Equal(t, "[100] lengths differ", err.Error())
	assert.Nil(t, err.Cause)
}

func TestNewf(t *testing.T) {
	err := Newf(ErrCodeDataNotFound, "no bars cached for %s", "BTC")

	assert.Equal(t, "[200] no bars cached for BTC", err.Error())
}

func TestWrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(ErrCodeQueryFailed, "failed to read bars", cause)

	assert.Equal(t, "[201] failed to read bars: connection refused", err.Error())
	assert.Equal(t, cause, stderrors.Unwrap(err))
}

func TestWrapf(t *testing.T) {
	cause := stderrors.New("timeout")
	err := Wrapf(ErrCodeFetchFailed, cause, "fetch %s failed", "bitcoin")

	assert.Equal(t, "[700] fetch bitcoin failed: timeout", err.Error())
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeInvalidCapital, GetCode(New(ErrCodeInvalidCapital, "x")))
	assert.Equal(t, ErrCodeUnknown, GetCode(stderrors.New("plain")))
	assert.Equal(t, ErrCodeUnknown, GetCode(nil))
}

func TestGetCodeWrappedInStdError(t *testing.T) {
	inner := New(ErrCodeLengthMismatch, "x")
	outer := fmt.Errorf("outer: %w", inner)

	assert.Equal(t, ErrCodeLengthMismatch, GetCode(outer))
	assert.True(t, HasCode(outer, ErrCodeLengthMismatch))
}

func TestIsInvalidInput(t *testing.T) {
	assert.True(t, IsInvalidInput(New(ErrCodeInvalidInput, "x")))
	assert.True(t, IsInvalidInput(New(ErrCodeInvalidCapital, "x")))
	assert.False(t, IsInvalidInput(New(ErrCodeDataNotFound, "x")))
	assert.False(t, IsInvalidInput(stderrors.New("plain")))
}
