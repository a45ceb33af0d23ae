package carrier

import (
	"errors"
	"fmt"
)

// Error represents an error from the shipping-label provider.
type Error struct {
	Carrier    string
	Code       string
	Message    string
	StatusCode int
	Retryable  bool
	Cause      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error (%s): %s: %v", e.Carrier, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error (%s): %s", e.Carrier, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for Error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Diagnostics extracts the raw response metadata carried by the error.
func (e *Error) Diagnostics() Diagnostics {
	return Diagnostics{HTTPStatus: e.StatusCode, ErrorCode: e.Code}
}

// NewError creates a new carrier Error.
func NewError(carrier, code, message string) *Error {
	return &Error{
		Carrier: carrier,
		Code:    code,
		Message: message,
	}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// WithStatusCode adds an HTTP status code to the error.
func (e *Error) WithStatusCode(code int) *Error {
	e.StatusCode = code
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// Sentinel errors for common carrier scenarios.
var (
	// ErrInvalidAddress indicates the address is invalid or incomplete.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrServiceUnavailable indicates the provider is temporarily unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrRateNotFound indicates the rate id was not found or has expired.
	ErrRateNotFound = errors.New("rate not found")

	// ErrShipmentNotFound indicates the shipment id was not found.
	ErrShipmentNotFound = errors.New("shipment not found")

	// ErrLabelNotAvailable indicates the label is not yet available.
	ErrLabelNotAvailable = errors.New("label not available")

	// ErrAuthenticationFailed indicates provider authentication failed.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrRateLimitExceeded indicates the provider rate limit was exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrInvalidPackage indicates package dimensions or weight are invalid.
	ErrInvalidPackage = errors.New("invalid package")
)

// IsRetryable returns true if the error is retryable. The lifecycle never
// retries automatically; this informs the operator's manual retry decision.
func IsRetryable(err error) bool {
	var carrierErr *Error
	if errors.As(err, &carrierErr) {
		return carrierErr.Retryable
	}
	return errors.Is(err, ErrServiceUnavailable) || errors.Is(err, ErrRateLimitExceeded)
}

// DiagnosticsFrom pulls diagnostics out of any error returned by a Carrier,
// falling back to a zero value for plain transport errors.
func DiagnosticsFrom(err error) Diagnostics {
	var carrierErr *Error
	if errors.As(err, &carrierErr) {
		return carrierErr.Diagnostics()
	}
	return Diagnostics{}
}
