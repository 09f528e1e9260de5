package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	err := New(ErrorTypeConfig, "slice start and index are mutually exclusive")
	assert.Equal(t, "config: slice start and index are mutually exclusive", err.Error())

	wrapped := Wrap(fmt.Errorf("permission denied"), ErrorTypeIO, "failed to open input")
	assert.Equal(t, "io: failed to open input: permission denied", wrapped.Error())
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeIO, "ignored"))
	assert.Nil(t, Wrapf(nil, ErrorTypeIO, "ignored %d", 1))
}

func TestUnwrapChain(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Wrap(cause, ErrorTypeIO, "failed to flush output")

	assert.True(t, stderrors.Is(err, cause))
}

func TestIsType(t *testing.T) {
	err := New(ErrorTypeOrder, "input is not sorted")

	assert.True(t, IsType(err, ErrorTypeOrder))
	assert.False(t, IsType(err, ErrorTypeData))
	assert.False(t, IsType(fmt.Errorf("plain"), ErrorTypeOrder))
	assert.False(t, IsType(nil, ErrorTypeOrder))

	// Type checks see through plain wrapping.
	wrapped := fmt.Errorf("outer: %w", err)
	assert.True(t, IsType(wrapped, ErrorTypeOrder))
}

func TestDetails(t *testing.T) {
	err := Newf(ErrorTypeResource, "record %d out of range", 9).
		WithDetail("requested", uint64(9)).
		WithDetail("count", uint64(3))

	assert.Equal(t, uint64(9), err.Detail("requested"))
	assert.Equal(t, uint64(3), err.Detail("count"))
	assert.Nil(t, err.Detail("missing"))

	var e *Error
	require.ErrorAs(t, fmt.Errorf("outer: %w", err), &e)
	assert.Equal(t, uint64(9), e.Detail("requested"))
}
