package swiftship

import (
	"context"
)

// APIClient defines the interface for Swiftship API operations.
// This abstraction allows for mock implementations during testing
// and real implementations in production.
type APIClient interface {
	// GetRates fetches shipping rates for one parcel
	GetRates(ctx context.Context, req *RatesRequest) (*RatesResponse, error)

	// BuyLabel purchases a label for a quoted rate
	BuyLabel(ctx context.Context, req *BuyRequest) (*LabelResponse, error)

	// GetLabel retrieves the current state of a label by shipment id
	GetLabel(ctx context.Context, shipmentID string) (*LabelResponse, error)
}

// ============================================================================
// API Request/Response Types (match Swiftship REST API v2 structure)
// ============================================================================

// RatesRequest represents a Swiftship rate request.
// POST /rates endpoint
type RatesRequest struct {
	Origin      Location `json:"origin"`
	Destination Location `json:"destination"`
	Package     Package  `json:"package"`
}

// Location represents origin or destination.
type Location struct {
	Name       string `json:"name,omitempty"`
	Company    string `json:"company,omitempty"`
	Address1   string `json:"address_1"`
	Address2   string `json:"address_2,omitempty"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"` // ISO 3166-1 alpha-2 code
	Phone      string `json:"phone,omitempty"`
}

// Package represents a single package. Dimensions are inches, weight lb.
type Package struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Weight float64 `json:"weight"`
}

// RatesResponse represents the Swiftship rate response.
type RatesResponse struct {
	RequestID string `json:"request_id"`
	Rates     []Rate `json:"rates"`
}

// Rate represents a single shipping rate option.
type Rate struct {
	ID             string  `json:"id"`
	CarrierCode    string  `json:"carrier_code"`
	CarrierName    string  `json:"carrier_name"`
	ServiceCode    string  `json:"service_code"`
	ServiceName    string  `json:"service_name"`
	TotalPrice     float64 `json:"total_price"`
	Currency       string  `json:"currency"`
	TransitDaysMin int     `json:"transit_days_min,omitempty"`
	TransitDaysMax int     `json:"transit_days_max,omitempty"`
}

// BuyRequest represents a Swiftship label purchase request.
// POST /labels endpoint
type BuyRequest struct {
	RateID string `json:"rate_id"`
	// UniqueID prevents duplicate purchases on resubmission. Max 128 chars.
	UniqueID string `json:"unique_id,omitempty"`
}

// LabelResponse represents a Swiftship label, complete or still generating.
// Returned by POST /labels and GET /labels/{shipment_id}.
type LabelResponse struct {
	ShipmentID     string  `json:"shipment_id"`
	Status         string  `json:"status"` // "processing", "ready", "failed"
	TrackingNumber string  `json:"tracking_number,omitempty"`
	LabelURL       string  `json:"label_url,omitempty"`
	TotalCharged   float64 `json:"total_charged,omitempty"`
	Currency       string  `json:"currency,omitempty"`
	FailureReason  string  `json:"failure_reason,omitempty"`
}

// APIError represents an error from the Swiftship API.
type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"` // Field-level errors
	// HTTPStatus is filled in by the HTTP client, not the wire payload.
	HTTPStatus int `json:"-"`
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Message
}
