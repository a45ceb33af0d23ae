package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/packlane/labeld/internal/store"
	"github.com/packlane/labeld/pkg/carrier"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// noRatesWarning is the human-readable soft-failure note cached on the
// parcel when the carrier returns zero rates. Its presence blocks purchase
// until a later quote succeeds.
const noRatesWarning = "No rates available for this parcel"

// QuoteOutcome is the result of a quoting attempt. Warning is set on the
// zero-rates soft failure; SelectionCleared reports that a previously
// selected rate vanished from the refreshed list.
type QuoteOutcome struct {
	Parcel           *store.Parcel
	Rates            []store.ParcelQuote
	Warning          string
	SelectionCleared bool
	Diag             carrier.Diagnostics
}

// GetQuotes persists any pending draft edits, verifies the ship-from
// profile, and fetches a fresh rate list from the carrier. The cached
// quote list is a cache, not a queue: every call replaces it wholesale.
func (m *Manager) GetQuotes(ctx context.Context, orderID, parcelID uuid.UUID, draft *ParcelDraft) (*QuoteOutcome, error) {
	if err := m.guard.acquire(parcelID); err != nil {
		return nil, err
	}
	defer m.guard.release(parcelID)

	started := time.Now()

	parcel, err := m.store.GetParcel(ctx, orderID, parcelID)
	if err != nil {
		return nil, err
	}
	if err := requireMutable(parcel); err != nil {
		return nil, err
	}

	// Persist pending draft edits before anything touches the network.
	if draft != nil {
		if err := m.applyPatch(ctx, parcel, *draft); err != nil {
			return nil, err
		}
		if err := m.store.SaveParcel(ctx, parcel); err != nil {
			return nil, err
		}
	}

	pkg, err := m.resolveDimensions(ctx, parcel)
	if err != nil {
		return nil, err
	}

	profile, err := m.requireShipFrom(ctx)
	if err != nil {
		return nil, err
	}

	order, err := m.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	result, err := m.carrier.GetRates(ctx, &carrier.RateRequest{
		From:    shipFromAddress(profile),
		To:      orderAddress(order),
		Package: pkg,
	})
	if err != nil {
		// Retain the diagnostics for the operator; everything else,
		// including the prior quote cache, stays as it was.
		diag := carrier.DiagnosticsFrom(err)
		parcel.QuoteHTTPStatus = diag.HTTPStatus
		parcel.QuoteErrorCode = diag.ErrorCode
		if saveErr := m.store.SaveParcel(ctx, parcel); saveErr != nil {
			m.logger.Error("Failed to persist quote diagnostics", zap.Error(saveErr))
		}
		m.metrics.RecordOperation("quote", "carrier_error", time.Since(started).Seconds())
		m.metrics.RecordCarrierError(m.carrier.Name(), diag.ErrorCode)
		return nil, newCarrierFailure(err)
	}

	outcome := &QuoteOutcome{Diag: result.Diag}

	parcel.QuoteHTTPStatus = result.Diag.HTTPStatus
	parcel.QuoteErrorCode = result.Diag.ErrorCode

	if len(result.Rates) == 0 {
		// Soft failure: clear the cache, record the warning, no hard error.
		if parcel.SelectedRateID != nil {
			parcel.SelectedRateID = nil
			outcome.SelectionCleared = true
		}
		parcel.QuoteWarning = noRatesWarning
		outcome.Warning = noRatesWarning

		if err := m.store.ReplaceQuotes(ctx, parcelID, nil); err != nil {
			return nil, err
		}
		if err := m.store.SaveParcel(ctx, parcel); err != nil {
			return nil, err
		}
		parcel.Quotes = nil
		outcome.Parcel = parcel

		m.logger.Warn("No rates available",
			zap.String("order_id", orderID.String()),
			zap.String("parcel_id", parcelID.String()),
			zap.Int("http_status", result.Diag.HTTPStatus),
		)
		m.metrics.RecordOperation("quote", "no_rates", time.Since(started).Seconds())
		return outcome, nil
	}

	quotes := make([]store.ParcelQuote, len(result.Rates))
	for i, r := range result.Rates {
		quotes[i] = store.ParcelQuote{
			RateID:      r.RateID,
			Carrier:     r.Carrier,
			ServiceName: r.ServiceName,
			Amount:      r.Price.Amount,
			Currency:    r.Price.Currency,
			EtaDaysMin:  r.EtaDaysMin,
			EtaDaysMax:  r.EtaDaysMax,
		}
	}

	// Preserve the previous selection only if it survives in the new list.
	if parcel.SelectedRateID != nil {
		stillThere := lo.ContainsBy(result.Rates, func(r carrier.Rate) bool {
			return r.RateID == *parcel.SelectedRateID
		})
		if !stillThere {
			parcel.SelectedRateID = nil
			outcome.SelectionCleared = true
		}
	}
	parcel.QuoteWarning = ""

	if err := m.store.ReplaceQuotes(ctx, parcelID, quotes); err != nil {
		return nil, err
	}
	if err := m.store.SaveParcel(ctx, parcel); err != nil {
		return nil, err
	}
	parcel.Quotes = quotes
	outcome.Parcel = parcel
	outcome.Rates = quotes

	m.logger.Info("Quotes refreshed",
		zap.String("order_id", orderID.String()),
		zap.String("parcel_id", parcelID.String()),
		zap.Int("rate_count", len(quotes)),
		zap.Bool("selection_cleared", outcome.SelectionCleared),
	)
	m.metrics.RecordOperation("quote", "ok", time.Since(started).Seconds())
	return outcome, nil
}
