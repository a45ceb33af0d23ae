package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/packlane/labeld/internal/store"
	"github.com/packlane/labeld/pkg/carrier"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// PurchaseOutcome is the result of buying a label. Pending reports that
// the carrier is generating the label asynchronously and the caller must
// refresh later.
type PurchaseOutcome struct {
	Parcel  *store.Parcel
	Pending bool
}

// BuyLabel purchases a label for the parcel's selected (or explicitly
// passed) rate. Purchase is at-most-once: a second call on a purchased
// parcel fails without touching the carrier.
func (m *Manager) BuyLabel(ctx context.Context, orderID, parcelID uuid.UUID, rateID *string, draft *ParcelDraft) (*PurchaseOutcome, error) {
	if err := m.guard.acquire(parcelID); err != nil {
		return nil, err
	}
	defer m.guard.release(parcelID)

	started := time.Now()

	parcel, err := m.store.GetParcel(ctx, orderID, parcelID)
	if err != nil {
		return nil, err
	}

	// A cached no-rates warning must be cleared by a fresh successful
	// quote before purchase is allowed.
	if parcel.QuoteWarning != "" {
		return nil, newPrecondition("last quote attempt found no rates; quote again before buying")
	}

	if err := requireMutable(parcel); err != nil {
		return nil, err
	}

	if draft != nil {
		if err := m.applyPatch(ctx, parcel, *draft); err != nil {
			return nil, err
		}
		if err := m.store.SaveParcel(ctx, parcel); err != nil {
			return nil, err
		}
	}

	if _, err := m.requireShipFrom(ctx); err != nil {
		return nil, err
	}

	chosen, err := resolveRate(parcel, rateID)
	if err != nil {
		return nil, err
	}

	result, err := m.carrier.PurchaseLabel(ctx, &carrier.PurchaseRequest{
		RateID:    chosen.RateID,
		Reference: fmt.Sprintf("%s-%d", orderID, parcel.ParcelIndex),
	})
	if err != nil {
		m.metrics.RecordOperation("buy", "carrier_error", time.Since(started).Seconds())
		m.metrics.RecordCarrierError(m.carrier.Name(), carrier.DiagnosticsFrom(err).ErrorCode)
		return nil, newCarrierFailure(err)
	}

	now := time.Now().UTC()
	parcel.PurchasedAt = &now
	parcel.CarrierName = chosen.Carrier
	parcel.ServiceName = chosen.ServiceName
	parcel.SelectedRateID = &chosen.RateID

	outcome := &PurchaseOutcome{}

	switch result.Outcome {
	case carrier.OutcomeReady:
		applyState(parcel, LabelGenerated{
			TrackingNumber: result.TrackingNumber,
			LabelURL:       result.LabelURL,
			Cost:           result.Cost,
		})
		parcel.ExternalShipmentID = result.ShipmentID
	case carrier.OutcomeProcessing:
		applyState(parcel, LabelPending{ExternalID: result.ShipmentID})
		outcome.Pending = true
	case carrier.OutcomeFailed:
		// An in-band rejection: no label will ever exist for this attempt.
		m.metrics.RecordOperation("buy", "terminal", time.Since(started).Seconds())
		return nil, &Error{
			Kind:    KindTerminal,
			Message: result.FailureReason,
			Diag:    &result.Diag,
		}
	}

	if err := m.store.SaveParcel(ctx, parcel); err != nil {
		return nil, err
	}
	outcome.Parcel = parcel

	m.logger.Info("Label purchased",
		zap.String("order_id", orderID.String()),
		zap.String("parcel_id", parcelID.String()),
		zap.String("rate_id", chosen.RateID),
		zap.Bool("pending", outcome.Pending),
	)
	m.metrics.RecordOperation("buy", "ok", time.Since(started).Seconds())
	return outcome, nil
}

// resolveRate picks the rate to buy: the explicit argument wins, then the
// stored selection; either way it must resolve to a cached rate.
func resolveRate(p *store.Parcel, rateID *string) (*store.ParcelQuote, error) {
	wanted := rateID
	if wanted == nil {
		wanted = p.SelectedRateID
	}
	if wanted == nil {
		return nil, newPrecondition("no rate selected; quote and select a rate first")
	}

	quote, found := lo.Find(p.Quotes, func(q store.ParcelQuote) bool {
		return q.RateID == *wanted
	})
	if !found {
		return nil, newPrecondition("rate %s is not in the cached quote list; quote again", *wanted)
	}
	return &quote, nil
}
