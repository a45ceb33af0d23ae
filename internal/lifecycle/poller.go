package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/packlane/labeld/internal/store"
	"github.com/packlane/labeld/pkg/carrier"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RefreshStatus reports what a refresh attempt observed.
type RefreshStatus string

const (
	// RefreshReady: the label became available and the parcel is now
	// generated.
	RefreshReady RefreshStatus = "refreshed"
	// RefreshStillPending: the carrier is still generating; not an error,
	// poll again later.
	RefreshStillPending RefreshStatus = "still_pending"
	// RefreshFailed: the carrier reported a terminal failure.
	RefreshFailed RefreshStatus = "failed"
)

// RefreshOutcome is the result of one refresh attempt.
type RefreshOutcome struct {
	Parcel        *store.Parcel
	Status        RefreshStatus
	FailureReason string
}

// RefreshLabelStatus re-queries the carrier for a parcel whose label is
// still pending. It is idempotent: while the carrier keeps reporting
// pending, repeated calls change nothing.
func (m *Manager) RefreshLabelStatus(ctx context.Context, orderID, parcelID uuid.UUID) (*RefreshOutcome, error) {
	if err := m.guard.acquire(parcelID); err != nil {
		return nil, err
	}
	defer m.guard.release(parcelID)

	started := time.Now()

	parcel, err := m.store.GetParcel(ctx, orderID, parcelID)
	if err != nil {
		return nil, err
	}

	state, err := stateOf(parcel)
	if err != nil {
		return nil, err
	}
	pending, ok := state.(LabelPending)
	if !ok {
		return nil, newPrecondition("parcel %d has label state %q, not pending", parcel.ParcelIndex, state.Name())
	}

	result, err := m.carrier.GetLabelStatus(ctx, &carrier.StatusRequest{
		ShipmentID: pending.ExternalID,
	})
	if err != nil {
		m.metrics.RecordOperation("refresh", "carrier_error", time.Since(started).Seconds())
		m.metrics.RecordCarrierError(m.carrier.Name(), carrier.DiagnosticsFrom(err).ErrorCode)
		return nil, newCarrierFailure(err)
	}

	outcome := &RefreshOutcome{Parcel: parcel}

	switch result.Outcome {
	case carrier.OutcomeReady:
		applyState(parcel, LabelGenerated{
			TrackingNumber: result.TrackingNumber,
			LabelURL:       result.LabelURL,
			Cost:           result.Cost,
		})
		parcel.ExternalShipmentID = pending.ExternalID
		if err := m.store.SaveParcel(ctx, parcel); err != nil {
			return nil, err
		}
		outcome.Status = RefreshReady
	case carrier.OutcomeProcessing:
		// Expected transient state: reconcile nothing, report and return.
		outcome.Status = RefreshStillPending
	case carrier.OutcomeFailed:
		applyState(parcel, LabelFailed{Reason: result.FailureReason})
		if err := m.store.SaveParcel(ctx, parcel); err != nil {
			return nil, err
		}
		outcome.Status = RefreshFailed
		outcome.FailureReason = result.FailureReason
	}

	m.logger.Info("Label status refreshed",
		zap.String("order_id", orderID.String()),
		zap.String("parcel_id", parcelID.String()),
		zap.String("status", string(outcome.Status)),
	)
	m.metrics.RecordOperation("refresh", string(outcome.Status), time.Since(started).Seconds())
	return outcome, nil
}

// RefreshResult pairs a parcel with its refresh attempt's outcome.
type RefreshResult struct {
	ParcelID uuid.UUID
	Outcome  *RefreshOutcome
	Err      error
}

// RefreshPendingParcels refreshes every pending parcel of an order in
// parallel. Parcels are independent units of work; a failure on one never
// fails the batch.
func (m *Manager) RefreshPendingParcels(ctx context.Context, orderID uuid.UUID) ([]RefreshResult, error) {
	parcels, err := m.ListParcels(ctx, orderID)
	if err != nil {
		return nil, err
	}

	results := make([]RefreshResult, 0)
	mu := &sync.Mutex{}

	g, ctx := errgroup.WithContext(ctx)

	for _, p := range parcels {
		if p.LabelState != store.LabelStatePending {
			continue
		}
		parcelID := p.ID
		g.Go(func() error {
			outcome, err := m.RefreshLabelStatus(ctx, orderID, parcelID)
			mu.Lock()
			defer mu.Unlock()
			results = append(results, RefreshResult{
				ParcelID: parcelID,
				Outcome:  outcome,
				Err:      err,
			})
			return nil // Don't fail the group, continue with other parcels
		})
	}

	g.Wait()
	return results, nil
}
