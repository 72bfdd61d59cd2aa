package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrAuth              ErrorCode = "AUTH_ERROR"
	ErrNotFound          ErrorCode = "NOT_FOUND"
	ErrTransientNetwork  ErrorCode = "TRANSIENT_NETWORK"
	ErrMalformedResponse ErrorCode = "MALFORMED_RESPONSE"
	ErrMissingKey        ErrorCode = "MISSING_KEY"
	ErrMissingValue      ErrorCode = "MISSING_VALUE"
	ErrSubmitFailure     ErrorCode = "SUBMIT_FAILURE"
	ErrConfig            ErrorCode = "CONFIG_ERROR"
)

// APIError is the error type every remote-call failure is normalized into.
// The code decides retry behavior; Details carries the upstream payload when
// one was readable.
type APIError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAPIError(code ErrorCode, message string, details interface{}) APIError {
	return APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// CodeOf extracts the ErrorCode from err, unwrapping as needed. Errors that
// are not APIErrors report ErrTransientNetwork: an unclassified failure from
// the network layer is assumed to be momentary rather than fatal.
func CodeOf(err error) ErrorCode {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ErrTransientNetwork
}

// IsRetryable reports whether err qualifies for another attempt under the
// retry policy. Only transient network faults and malformed responses
// qualify; auth failures, 404s, and data-quality errors never do.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case ErrTransientNetwork, ErrMalformedResponse:
		return true
	default:
		return false
	}
}

// FromStatus classifies a non-200 HTTP status into the error taxonomy:
// 404 is NotFound, 401/403 are auth errors, everything else is transient.
func FromStatus(status int, message string, details interface{}) APIError {
	switch {
	case status == http.StatusNotFound:
		return NewAPIError(ErrNotFound, message, details)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewAPIError(ErrAuth, message, details)
	default:
		return NewAPIError(ErrTransientNetwork, fmt.Sprintf("HTTP %d: %s", status, message), details)
	}
}
