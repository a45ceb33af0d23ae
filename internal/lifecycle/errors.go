package lifecycle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/packlane/labeld/pkg/carrier"
)

// Kind classifies lifecycle failures by what the operator can do about them.
type Kind string

const (
	// KindValidation: bad input, fixable by the caller. Never reaches the
	// carrier.
	KindValidation Kind = "validation"
	// KindPrecondition: a prerequisite step is missing (ship-from
	// incomplete, no quote selected, parcel already purchased or busy).
	KindPrecondition Kind = "precondition"
	// KindNoRates: the carrier was reachable but returned nothing usable.
	KindNoRates Kind = "no_rates"
	// KindCarrier: transport/HTTP failure or carrier-reported error code.
	KindCarrier Kind = "carrier"
	// KindTerminal: the carrier rejected the purchase or generation
	// outright; no automatic retry.
	KindTerminal Kind = "terminal"
)

// Error is a classified lifecycle failure. Missing lists incomplete
// ship-from fields; Diag carries raw carrier diagnostics when present.
type Error struct {
	Kind    Kind
	Message string
	Missing []string
	Diag    *carrier.Diagnostics
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if len(e.Missing) > 0 {
		msg += " (missing: " + strings.Join(e.Missing, ", ") + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

func newValidation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func newPrecondition(format string, args ...interface{}) *Error {
	return &Error{Kind: KindPrecondition, Message: fmt.Sprintf(format, args...)}
}

func newShipFromIncomplete(missing []string) *Error {
	return &Error{
		Kind:    KindPrecondition,
		Message: "ship-from profile is incomplete",
		Missing: missing,
	}
}

func newCarrierFailure(err error) *Error {
	diag := carrier.DiagnosticsFrom(err)
	return &Error{
		Kind:    KindCarrier,
		Message: "carrier call failed",
		Diag:    &diag,
		Cause:   err,
	}
}

// InvalidBody wraps a request decoding failure as a validation error.
func InvalidBody(err error) *Error {
	return &Error{Kind: KindValidation, Message: "invalid request body", Cause: err}
}

// ErrParcelBusy is returned when a second operation is attempted on a
// parcel that already has one in flight.
var ErrParcelBusy = &Error{
	Kind:    KindPrecondition,
	Message: "another operation is in flight for this parcel",
}

// KindOf returns the lifecycle kind of err, or the empty Kind for errors
// raised outside this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
