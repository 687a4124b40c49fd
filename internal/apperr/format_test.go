package apperr

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForCLI_IncludesMessageHintAndCode(t *testing.T) {
	err := New(ErrCodeMissingLSPServer, "rust-analyzer not found on PATH", nil).
		WithSuggestion("install rust-analyzer and ensure it is on PATH")

	out := FormatForCLI(err)

	assert.Contains(t, out, "Error: rust-analyzer not found on PATH")
	assert.Contains(t, out, "Hint: install rust-analyzer")
	assert.Contains(t, out, ErrCodeMissingLSPServer)
}

func TestFormatForCLI_WrapsPlainErrors(t *testing.T) {
	out := FormatForCLI(errors.New("something broke"))

	assert.Contains(t, out, "Error: something broke")
	assert.Contains(t, out, ErrCodeInternal)
}

func TestFormatForCLI_NilErrorIsEmpty(t *testing.T) {
	assert.Empty(t, FormatForCLI(nil))
}

func TestFormatJSON_RoundTripsStructuredFields(t *testing.T) {
	err := New(ErrCodeEmbedderHTTP, "embed request failed", errors.New("connection refused")).
		WithDetail("url", "http://localhost:11434")

	data, jerr := FormatJSON(err)
	require.NoError(t, jerr)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, ErrCodeEmbedderHTTP, parsed["code"])
	assert.Equal(t, "embed request failed", parsed["message"])
	assert.Equal(t, "connection refused", parsed["cause"])
	assert.Equal(t, true, parsed["retryable"])
}

func TestFormatForLog_FlattensDetails(t *testing.T) {
	err := New(ErrCodeDimensionMismatch, "vector length does not match index dimensions", nil).
		WithDetail("expected", "1024").
		WithDetail("got", "768")

	attrs := FormatForLog(err)

	assert.Equal(t, ErrCodeDimensionMismatch, attrs["error_code"])
	assert.Equal(t, "1024", attrs["detail_expected"])
	assert.Equal(t, "768", attrs["detail_got"])
}
