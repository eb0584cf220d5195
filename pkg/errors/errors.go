package errors

import "fmt"

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeTokenDecode ErrorType = "token_decode"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents a pipeline error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

// NewAuthError creates an authentication error. Authentication failures
// are fatal to the run: no credential means no session.
func NewAuthError(format string, args ...interface{}) *Error {
	return &Error{
		Type:    ErrorTypeAuth,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewTokenDecodeError creates a token decode error. These are non-fatal:
// the raw token is still usable even when its claims are unreadable.
func NewTokenDecodeError(format string, args ...interface{}) *Error {
	return &Error{
		Type:    ErrorTypeTokenDecode,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewNetworkError creates a network error
func NewNetworkError(format string, args ...interface{}) *Error {
	return &Error{
		Type:    ErrorTypeNetwork,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewParsingError creates a parsing error
func NewParsingError(format string, args ...interface{}) *Error {
	return &Error{
		Type:    ErrorTypeParsing,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	case ErrorTypeAuth, ErrorTypeTokenDecode, ErrorTypeNotFound, ErrorTypeParsing:
		return false
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429: // Too Many Requests
		return true
	case 500, 502, 503, 504: // Server errors
		return true
	case 401, 403, 404: // Client errors that won't change
		return false
	default:
		return statusCode >= 500 // Retry all 5xx errors
	}
}
