// Package carrier provides an abstraction layer for the external
// shipping-label provider.
package carrier

import (
	"context"
)

// Carrier defines the narrow contract the label lifecycle needs from the
// external rating/label-generation service. Every call is a single
// synchronous round trip: implementations must not retry or poll
// internally, because purchase requests are not safely idempotent.
type Carrier interface {
	// Name returns the provider identifier (e.g., "swiftship").
	Name() string

	// GetRates returns zero or more priced shipping offers for a parcel.
	GetRates(ctx context.Context, req *RateRequest) (*RateResult, error)

	// PurchaseLabel buys a label for a previously quoted rate. The result
	// is either a complete label or an async acknowledgment.
	PurchaseLabel(ctx context.Context, req *PurchaseRequest) (*PurchaseResult, error)

	// GetLabelStatus re-queries a pending label by its carrier shipment id.
	GetLabelStatus(ctx context.Context, req *StatusRequest) (*StatusResult, error)
}
