package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := &Error{Type: ErrorTypeAuth, Message: "no credential cookie", Code: 0}
	assert.Equal(t, "auth error (code 0): no credential cookie", err.Error())
}

func TestConstructors(t *testing.T) {
	authErr := NewAuthError("failed to extract %s token", "z_at")
	assert.Equal(t, ErrorTypeAuth, authErr.Type)
	assert.Contains(t, authErr.Message, "z_at")

	decodeErr := NewTokenDecodeError("bad payload segment")
	assert.Equal(t, ErrorTypeTokenDecode, decodeErr.Type)

	netErr := NewNetworkError("connection refused")
	assert.Equal(t, ErrorTypeNetwork, netErr.Type)

	parseErr := NewParsingError("unexpected feed shape")
	assert.Equal(t, ErrorTypeParsing, parseErr.Type)
}

func TestErrorsAs(t *testing.T) {
	var typed *Error
	err := error(NewAuthError("boom"))
	assert.True(t, errors.As(err, &typed))
	assert.Equal(t, ErrorTypeAuth, typed.Type)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrorTypeNetwork))
	assert.True(t, IsRetryable(ErrorTypeServerError))
	assert.True(t, IsRetryable(ErrorTypeRateLimit))
	assert.False(t, IsRetryable(ErrorTypeAuth))
	assert.False(t, IsRetryable(ErrorTypeTokenDecode))
	assert.False(t, IsRetryable(ErrorTypeParsing))
	assert.False(t, IsRetryable(ErrorTypeUnknown))
}

func TestIsRetryableStatusCode(t *testing.T) {
	assert.True(t, IsRetryableStatusCode(0))
	assert.True(t, IsRetryableStatusCode(429))
	assert.True(t, IsRetryableStatusCode(502))
	assert.False(t, IsRetryableStatusCode(401))
	assert.False(t, IsRetryableStatusCode(404))
	assert.False(t, IsRetryableStatusCode(200))
}
