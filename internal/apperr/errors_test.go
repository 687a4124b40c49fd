package apperr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Unwrap_PreservesOriginalError(t *testing.T) {
	originalErr := errors.New("original error")

	err := New(ErrCodeFileNotFound, "file not found: test.txt", originalErr)

	require.NotNil(t, err)
	assert.Equal(t, originalErr, errors.Unwrap(err))
	assert.True(t, errors.Is(err, originalErr))
}

func TestError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "config error",
			code:     ErrCodeInvalidThreshold,
			message:  "threshold out of range",
			expected: "[ERR_103_INVALID_THRESHOLD] threshold out of range",
		},
		{
			name:     "io error",
			code:     ErrCodeFileNotFound,
			message:  "file.rs not found",
			expected: "[ERR_201_FILE_NOT_FOUND] file.rs not found",
		},
		{
			name:     "external error",
			code:     ErrCodeEmbedderHTTP,
			message:  "embedder request failed",
			expected: "[ERR_501_EMBEDDER_HTTP] embedder request failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestError_Is_MatchesByCode(t *testing.T) {
	a := New(ErrCodeDimensionMismatch, "mismatch", nil)
	b := New(ErrCodeDimensionMismatch, "different message", nil)
	c := New(ErrCodeLSPTimeout, "timeout", nil)

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestCategoryAndSeverityFromCode(t *testing.T) {
	cases := []struct {
		code     string
		category Category
	}{
		{ErrCodeUnsupportedLanguage, CategoryConfig},
		{ErrCodeFileNotFound, CategoryIO},
		{ErrCodeLSPTimeout, CategoryProtocol},
		{ErrCodeDimensionMismatch, CategoryData},
		{ErrCodeEmbedderHTTP, CategoryExternal},
	}
	for _, tc := range cases {
		err := New(tc.code, "msg", nil)
		assert.Equal(t, tc.category, err.Category, tc.code)
	}

	assert.True(t, IsRetryable(New(ErrCodeEmbedderHTTP, "x", nil)))
	assert.False(t, IsRetryable(New(ErrCodeDimensionMismatch, "x", nil)))
	assert.True(t, IsFatal(New(ErrCodeConfigInvalid, "x", nil)))
}

func TestWrap_NilErrorReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestWithDetailAndSuggestion(t *testing.T) {
	err := New(ErrCodeMissingLSPServer, "rust-analyzer not found", nil).
		WithDetail("language", "rust").
		WithSuggestion("install rust-analyzer and ensure it is on PATH")

	assert.Equal(t, "rust", err.Details["language"])
	assert.Contains(t, err.Suggestion, "rust-analyzer")
}
