package store

import (
	"time"

	"github.com/google/uuid"
)

// Label state discriminator values persisted on a parcel row. The
// lifecycle package restores these into its tagged LabelState variant.
const (
	LabelStateNone      = "none"
	LabelStatePending   = "pending"
	LabelStateGenerated = "generated"
	LabelStateFailed    = "failed"
)

// Order is the minimal parent record a parcel hangs off. The order catalog
// itself is an external system; this table exists for referential integrity
// and as the source of the destination address.
type Order struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Reference      string    `gorm:"type:varchar(100);index"`
	RecipientName  string    `gorm:"type:varchar(255)"`
	RecipientPhone string    `gorm:"type:varchar(50)"`
	AddressLine1   string    `gorm:"type:varchar(255)"`
	AddressLine2   string    `gorm:"type:varchar(255)"`
	City           string    `gorm:"type:varchar(100)"`
	RegionCode     string    `gorm:"type:varchar(10)"`
	PostalCode     string    `gorm:"type:varchar(20)"`
	CountryCode    string    `gorm:"type:varchar(2)"`
	CreatedAt      time.Time
	Parcels        []Parcel `gorm:"constraint:OnDelete:CASCADE"`
}

// ShipFromProfile is the process-wide sender record. Exactly one row, id 1.
type ShipFromProfile struct {
	ID           uint   `gorm:"primaryKey"`
	Name         string `gorm:"type:varchar(255)"`
	Company      string `gorm:"type:varchar(255)"`
	AddressLine1 string `gorm:"type:varchar(255)"`
	AddressLine2 string `gorm:"type:varchar(255)"`
	City         string `gorm:"type:varchar(100)"`
	RegionCode   string `gorm:"type:varchar(10)"`
	PostalCode   string `gorm:"type:varchar(20)"`
	CountryCode  string `gorm:"type:varchar(2)"`
	Phone        string `gorm:"type:varchar(50)"`
	UpdatedAt    time.Time
}

// BoxPreset is a reusable named template of parcel dimensions. Presets may
// be edited or deleted independently of parcels that reference them;
// parcels resolve dimensions at quote/buy time.
type BoxPreset struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name          string    `gorm:"type:varchar(100);uniqueIndex"`
	Length        float64   `gorm:"type:decimal(10,2)"` // inches
	Width         float64   `gorm:"type:decimal(10,2)"`
	Height        float64   `gorm:"type:decimal(10,2)"`
	DefaultWeight *float64  `gorm:"type:decimal(10,2)"` // lb
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Parcel is one physical package of an order with its label lifecycle.
// Exactly one of BoxPresetID / custom dimensions is set. The Label* and
// flattened variant columns are only meaningful for the matching
// LabelState; the lifecycle package owns that mapping.
type Parcel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID     uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_order_parcel_index,priority:1"`
	ParcelIndex int       `gorm:"not null;uniqueIndex:idx_order_parcel_index,priority:2"`

	// Dimension source: preset reference or explicit custom dimensions
	BoxPresetID  *uuid.UUID `gorm:"type:uuid"`
	CustomLength *float64   `gorm:"type:decimal(10,2)"`
	CustomWidth  *float64   `gorm:"type:decimal(10,2)"`
	CustomHeight *float64   `gorm:"type:decimal(10,2)"`
	Weight       float64    `gorm:"type:decimal(10,2);not null"` // lb

	// Quote cache, replaced wholesale on every quote call
	Quotes          []ParcelQuote `gorm:"constraint:OnDelete:CASCADE"`
	SelectedRateID  *string       `gorm:"type:varchar(255)"`
	QuoteWarning    string        `gorm:"type:varchar(500)"`
	QuoteHTTPStatus int
	QuoteErrorCode  string `gorm:"type:varchar(100)"`

	// Label lifecycle
	LabelState         string `gorm:"type:varchar(20);not null;default:'none'"`
	ExternalShipmentID string `gorm:"type:varchar(255)"`
	TrackingNumber     string `gorm:"type:varchar(255)"`
	LabelURL           string `gorm:"type:varchar(500)"`
	LabelCostAmount    *float64
	LabelCostCurrency  string `gorm:"type:varchar(3)"`
	FailureReason      string `gorm:"type:varchar(500)"`
	CarrierName        string `gorm:"type:varchar(100)"`
	ServiceName        string `gorm:"type:varchar(100)"`
	PurchasedAt        *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ParcelQuote is one cached rate offer for a parcel.
type ParcelQuote struct {
	ID          uint      `gorm:"primaryKey"`
	ParcelID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Position    int       `gorm:"not null"`
	RateID      string    `gorm:"type:varchar(255);not null"`
	Carrier     string    `gorm:"type:varchar(100)"`
	ServiceName string    `gorm:"type:varchar(100)"`
	Amount      float64   `gorm:"type:decimal(10,2)"`
	Currency    string    `gorm:"type:varchar(3)"`
	EtaDaysMin  int
	EtaDaysMax  int
}
