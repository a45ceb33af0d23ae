package carrier_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/packlane/labeld/pkg/carrier"
	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	err := carrier.NewError("swiftship", "RATE_EXPIRED", "rate no longer valid")
	assert.Equal(t, "swiftship error (RATE_EXPIRED): rate no longer valid", err.Error())

	withCause := carrier.NewError("swiftship", "HTTP_ERROR", "request failed").
		WithCause(errors.New("connection refused"))
	assert.Contains(t, withCause.Error(), "connection refused")
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := carrier.NewError("swiftship", "HTTP_ERROR", "request failed").WithCause(cause)

	assert.ErrorIs(t, err, cause)
	wrapped := fmt.Errorf("fetching rates: %w", err)
	assert.ErrorIs(t, wrapped, cause)
}

func TestError_MatchesByCode(t *testing.T) {
	a := carrier.NewError("swiftship", "RATE_EXPIRED", "one message")
	b := carrier.NewError("other", "RATE_EXPIRED", "different message")

	assert.ErrorIs(t, a, b)
	assert.NotErrorIs(t, a, carrier.NewError("swiftship", "OTHER", "x"))
}

func TestIsRetryable(t *testing.T) {
	retryable := carrier.NewError("swiftship", "SERVER_ERROR", "boom").WithRetryable(true)
	assert.True(t, carrier.IsRetryable(retryable))

	terminal := carrier.NewError("swiftship", "INVALID_ADDRESS", "bad postal code")
	assert.False(t, carrier.IsRetryable(terminal))

	// Wrapping must not hide the flag.
	assert.True(t, carrier.IsRetryable(fmt.Errorf("quoting: %w", retryable)))

	assert.True(t, carrier.IsRetryable(carrier.ErrServiceUnavailable))
	assert.True(t, carrier.IsRetryable(carrier.ErrRateLimitExceeded))
	assert.False(t, carrier.IsRetryable(errors.New("plain")))
}

func TestDiagnosticsFrom(t *testing.T) {
	err := carrier.NewError("swiftship", "RATE_EXPIRED", "expired").WithStatusCode(422)

	diag := carrier.DiagnosticsFrom(fmt.Errorf("buying: %w", err))
	assert.Equal(t, 422, diag.HTTPStatus)
	assert.Equal(t, "RATE_EXPIRED", diag.ErrorCode)

	assert.Equal(t, carrier.Diagnostics{}, carrier.DiagnosticsFrom(errors.New("plain")))
}
