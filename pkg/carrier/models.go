package carrier

// Address represents a ship-from or ship-to address.
type Address struct {
	Name        string
	Company     string
	Line1       string
	Line2       string
	City        string
	RegionCode  string // e.g., "CA", "NY"
	PostalCode  string
	CountryCode string // ISO 3166-1 alpha-2, e.g., "US", "CA"
	Phone       string
}

// Package represents the physical parcel being rated or shipped.
// Dimensions are inches, weight is pounds.
type Package struct {
	Length float64
	Width  float64
	Height float64
	Weight float64
}

// Money represents a monetary amount.
type Money struct {
	Amount   float64
	Currency string
}

// Rate represents a single priced shipping offer.
type Rate struct {
	RateID      string // opaque carrier identifier, required to purchase
	Carrier     string // e.g., "USPS", "UPS"
	ServiceName string // e.g., "Priority Mail"
	Price       Money
	EtaDaysMin  int // 0 when the carrier gave no estimate
	EtaDaysMax  int
}

// Diagnostics carries raw carrier response metadata, retained for
// operator troubleshooting regardless of outcome.
type Diagnostics struct {
	HTTPStatus int
	ErrorCode  string
}

// LabelOutcome is the normalized status of a purchased label.
type LabelOutcome string

const (
	// OutcomeReady means the label document is available now.
	OutcomeReady LabelOutcome = "ready"
	// OutcomeProcessing means the carrier accepted the purchase but is
	// still generating the label.
	OutcomeProcessing LabelOutcome = "processing"
	// OutcomeFailed means the carrier gave up on generating the label.
	OutcomeFailed LabelOutcome = "failed"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// RateRequest is the request for fetching shipping rates for one parcel.
type RateRequest struct {
	From    Address
	To      Address
	Package Package
}

// RateResult is the response from fetching rates. Diag is populated even
// when the call succeeds with zero rates.
type RateResult struct {
	Rates []Rate
	Diag  Diagnostics
}

// PurchaseRequest is the request for buying a label for a quoted rate.
type PurchaseRequest struct {
	RateID string
	// Reference is an idempotency hint passed through to the carrier.
	Reference string
}

// PurchaseResult is the response from buying a label. When Outcome is
// OutcomeProcessing only ShipmentID is set and the caller must poll.
// FailureReason is set when the carrier rejects the purchase in-band.
type PurchaseResult struct {
	Outcome        LabelOutcome
	ShipmentID     string // carrier-side shipment identifier
	TrackingNumber string
	LabelURL       string
	Cost           Money
	FailureReason  string
	Diag           Diagnostics
}

// StatusRequest is the polling request for a pending label.
type StatusRequest struct {
	ShipmentID string
}

// StatusResult is the polling response. FailureReason is the carrier's
// verbatim explanation when Outcome is OutcomeFailed.
type StatusResult struct {
	Outcome        LabelOutcome
	TrackingNumber string
	LabelURL       string
	Cost           Money
	FailureReason  string
	Diag           Diagnostics
}
