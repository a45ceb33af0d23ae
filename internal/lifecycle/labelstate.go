package lifecycle

import (
	"fmt"

	"github.com/packlane/labeld/internal/store"
	"github.com/packlane/labeld/pkg/carrier"
)

// LabelState is the tagged variant of a parcel's label lifecycle. Modeling
// it as a sealed interface keeps illegal field combinations (a generated
// label without a document URL, a pending label without a shipment id)
// unrepresentable outside the storage layer.
type LabelState interface {
	// Name returns the store discriminator value.
	Name() string
	isLabelState()
}

// LabelNone: no purchase has happened. The only state permitting mutation
// and deletion.
type LabelNone struct{}

// LabelPending: purchase accepted, the carrier is still generating the
// label. ExternalID is the carrier-side shipment identifier to poll with.
type LabelPending struct {
	ExternalID string
}

// LabelGenerated: the label document is available. Terminal.
type LabelGenerated struct {
	TrackingNumber string
	LabelURL       string
	Cost           carrier.Money
}

// LabelFailed: the carrier gave up on generating the label. Terminal.
type LabelFailed struct {
	Reason string
}

func (LabelNone) Name() string      { return store.LabelStateNone }
func (LabelPending) Name() string   { return store.LabelStatePending }
func (LabelGenerated) Name() string { return store.LabelStateGenerated }
func (LabelFailed) Name() string    { return store.LabelStateFailed }

func (LabelNone) isLabelState()      {}
func (LabelPending) isLabelState()   {}
func (LabelGenerated) isLabelState() {}
func (LabelFailed) isLabelState()    {}

// stateOf restores the tagged variant from a parcel row. A row whose
// discriminator disagrees with its variant columns is corrupt and refused.
func stateOf(p *store.Parcel) (LabelState, error) {
	switch p.LabelState {
	case store.LabelStateNone, "":
		return LabelNone{}, nil
	case store.LabelStatePending:
		if p.ExternalShipmentID == "" {
			return nil, fmt.Errorf("parcel %s: pending label without a shipment id", p.ID)
		}
		return LabelPending{ExternalID: p.ExternalShipmentID}, nil
	case store.LabelStateGenerated:
		if p.LabelURL == "" {
			return nil, fmt.Errorf("parcel %s: generated label without a document URL", p.ID)
		}
		cost := carrier.Money{Currency: p.LabelCostCurrency}
		if p.LabelCostAmount != nil {
			cost.Amount = *p.LabelCostAmount
		}
		return LabelGenerated{
			TrackingNumber: p.TrackingNumber,
			LabelURL:       p.LabelURL,
			Cost:           cost,
		}, nil
	case store.LabelStateFailed:
		return LabelFailed{Reason: p.FailureReason}, nil
	default:
		return nil, fmt.Errorf("parcel %s: unknown label state %q", p.ID, p.LabelState)
	}
}

// applyState flattens the tagged variant back onto the parcel row,
// clearing columns that do not belong to the new state.
func applyState(p *store.Parcel, s LabelState) {
	p.LabelState = s.Name()

	switch st := s.(type) {
	case LabelNone:
		p.ExternalShipmentID = ""
		p.TrackingNumber = ""
		p.LabelURL = ""
		p.LabelCostAmount = nil
		p.LabelCostCurrency = ""
		p.FailureReason = ""
	case LabelPending:
		p.ExternalShipmentID = st.ExternalID
		p.TrackingNumber = ""
		p.LabelURL = ""
		p.LabelCostAmount = nil
		p.LabelCostCurrency = ""
		p.FailureReason = ""
	case LabelGenerated:
		p.TrackingNumber = st.TrackingNumber
		p.LabelURL = st.LabelURL
		amount := st.Cost.Amount
		p.LabelCostAmount = &amount
		p.LabelCostCurrency = st.Cost.Currency
		p.FailureReason = ""
	case LabelFailed:
		p.FailureReason = st.Reason
	}
}
