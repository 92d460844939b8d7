package mcperrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_HasNoCause(t *testing.T) {
	err := New(CodeFileNotFound, "file not found")

	require.NotNil(t, err)
	assert.Equal(t, CodeFileNotFound, err.Code)
	assert.Nil(t, err.Cause)
	assert.Equal(t, "file-not-found: file not found", err.Error())
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := errors.New("disk read failed")

	err := Wrap(CodeReadError, "could not read chunk", cause)

	require.NotNil(t, err)
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.Equal(t, "read-error: could not read chunk: disk read failed", err.Error())
}

func TestWrap_NilCauseBehavesLikeNew(t *testing.T) {
	err := Wrap(CodeInternal, "oops", nil)

	assert.Nil(t, err.Cause)
	assert.Equal(t, "internal: oops", err.Error())
}

func TestIs_MatchesByCode(t *testing.T) {
	err1 := New(CodeIndexNotFound, "index A missing")
	err2 := New(CodeIndexNotFound, "index B missing")

	assert.True(t, errors.Is(err1, err2))
}

func TestIs_DoesNotMatchDifferentCodes(t *testing.T) {
	err1 := New(CodeIndexNotFound, "missing")
	err2 := New(CodeDocsIndexNotFound, "missing")

	assert.False(t, errors.Is(err1, err2))
}

func TestWithDetail_ChainsAndAccumulates(t *testing.T) {
	err := New(CodeInvalidQuery, "bad query").
		WithDetail("query", "").
		WithDetail("reason", "empty")

	assert.Equal(t, "", err.Details["query"])
	assert.Equal(t, "empty", err.Details["reason"])
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		code Code
		want bool
	}{
		{CodeTimeout, true},
		{CodeDiskFull, true},
		{CodeIndexNotFound, false},
		{CodeInternal, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := New(tt.code, "msg")
			assert.Equal(t, tt.want, err.Retryable())
		})
	}
}

func TestCodeOf(t *testing.T) {
	wrapped := Wrap(CodeDimensionMismatch, "bad dims", errors.New("inner"))

	assert.Equal(t, CodeDimensionMismatch, CodeOf(wrapped))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain error")))
	assert.Equal(t, CodeInternal, CodeOf(nil))
}
