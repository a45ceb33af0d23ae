package lifecycle

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/packlane/labeld/internal/store"
	"github.com/packlane/labeld/pkg/carrier"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// ParcelDraft carries the caller-supplied fields for creating or patching
// a parcel. Exactly one dimension source must end up populated: a box
// preset reference or explicit custom dimensions.
type ParcelDraft struct {
	BoxPresetID  *uuid.UUID
	CustomLength *float64
	CustomWidth  *float64
	CustomHeight *float64
	Weight       *float64
}

// CreateParcel adds a parcel to an order and returns the order's full
// updated parcel list. The parcel index is assigned as max existing + 1.
func (m *Manager) CreateParcel(ctx context.Context, orderID uuid.UUID, draft ParcelDraft) ([]store.Parcel, error) {
	if _, err := m.store.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}

	parcel := store.Parcel{
		OrderID:    orderID,
		LabelState: store.LabelStateNone,
	}

	switch {
	case draft.BoxPresetID != nil:
		preset, err := m.store.GetPreset(ctx, *draft.BoxPresetID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, newValidation("box preset %s does not exist", *draft.BoxPresetID)
			}
			return nil, err
		}
		if draft.CustomLength != nil || draft.CustomWidth != nil || draft.CustomHeight != nil {
			return nil, newValidation("a parcel uses either a box preset or custom dimensions, not both")
		}
		parcel.BoxPresetID = draft.BoxPresetID
		if draft.Weight != nil {
			parcel.Weight = *draft.Weight
		} else if preset.DefaultWeight != nil {
			parcel.Weight = *preset.DefaultWeight
		}
	case draft.CustomLength != nil && draft.CustomWidth != nil && draft.CustomHeight != nil:
		parcel.CustomLength = draft.CustomLength
		parcel.CustomWidth = draft.CustomWidth
		parcel.CustomHeight = draft.CustomHeight
		if draft.Weight != nil {
			parcel.Weight = *draft.Weight
		}
	default:
		return nil, newValidation("a parcel needs a box preset or all three custom dimensions")
	}

	if err := validateParcelRow(&parcel); err != nil {
		return nil, err
	}

	if err := m.store.CreateParcel(ctx, &parcel); err != nil {
		return nil, err
	}

	m.logger.Info("Parcel created",
		zap.String("order_id", orderID.String()),
		zap.String("parcel_id", parcel.ID.String()),
		zap.Int("parcel_index", parcel.ParcelIndex),
	)

	return m.store.ListParcels(ctx, orderID)
}

// UpdateParcel applies a patch to a parcel that has not been purchased.
// Switching dimension source clears the other source's fields.
func (m *Manager) UpdateParcel(ctx context.Context, orderID, parcelID uuid.UUID, patch ParcelDraft) (*store.Parcel, error) {
	if err := m.guard.acquire(parcelID); err != nil {
		return nil, err
	}
	defer m.guard.release(parcelID)

	parcel, err := m.store.GetParcel(ctx, orderID, parcelID)
	if err != nil {
		return nil, err
	}
	if err := requireMutable(parcel); err != nil {
		return nil, err
	}
	if err := m.applyPatch(ctx, parcel, patch); err != nil {
		return nil, err
	}
	if err := m.store.SaveParcel(ctx, parcel); err != nil {
		return nil, err
	}
	return parcel, nil
}

// DeleteParcel removes a parcel. Permitted only before purchase.
func (m *Manager) DeleteParcel(ctx context.Context, orderID, parcelID uuid.UUID) error {
	if err := m.guard.acquire(parcelID); err != nil {
		return err
	}
	defer m.guard.release(parcelID)

	parcel, err := m.store.GetParcel(ctx, orderID, parcelID)
	if err != nil {
		return err
	}
	if err := requireMutable(parcel); err != nil {
		return err
	}
	return m.store.DeleteParcel(ctx, orderID, parcelID)
}

// SelectQuote records which cached rate a later purchase should use. The
// rate id must be present in the parcel's cached quote list.
func (m *Manager) SelectQuote(ctx context.Context, orderID, parcelID uuid.UUID, rateID string) (*store.Parcel, error) {
	if err := m.guard.acquire(parcelID); err != nil {
		return nil, err
	}
	defer m.guard.release(parcelID)

	parcel, err := m.store.GetParcel(ctx, orderID, parcelID)
	if err != nil {
		return nil, err
	}
	if err := requireMutable(parcel); err != nil {
		return nil, err
	}

	_, found := lo.Find(parcel.Quotes, func(q store.ParcelQuote) bool {
		return q.RateID == rateID
	})
	if !found {
		return nil, newValidation("rate %s is not in the parcel's cached quote list", rateID)
	}

	parcel.SelectedRateID = &rateID
	if err := m.store.SaveParcel(ctx, parcel); err != nil {
		return nil, err
	}
	return parcel, nil
}

// requireMutable refuses mutation and deletion once a purchase has
// happened: after purchasedAt is set or the label is generated, the
// parcel's dimensions, weight, and existence are immutable.
func requireMutable(p *store.Parcel) error {
	state, err := stateOf(p)
	if err != nil {
		return err
	}
	if p.PurchasedAt != nil {
		return newPrecondition("parcel %d has already been purchased", p.ParcelIndex)
	}
	if _, ok := state.(LabelNone); !ok {
		return newPrecondition("parcel %d has label state %q", p.ParcelIndex, state.Name())
	}
	return nil
}

// applyPatch mutates the row in memory. Providing a preset id switches to
// preset mode and clears custom dimensions; providing any custom dimension
// switches to custom mode and clears the preset reference.
func (m *Manager) applyPatch(ctx context.Context, p *store.Parcel, patch ParcelDraft) error {
	switch {
	case patch.BoxPresetID != nil:
		if patch.CustomLength != nil || patch.CustomWidth != nil || patch.CustomHeight != nil {
			return newValidation("a parcel uses either a box preset or custom dimensions, not both")
		}
		if _, err := m.store.GetPreset(ctx, *patch.BoxPresetID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return newValidation("box preset %s does not exist", *patch.BoxPresetID)
			}
			return err
		}
		p.BoxPresetID = patch.BoxPresetID
		p.CustomLength = nil
		p.CustomWidth = nil
		p.CustomHeight = nil
	case patch.CustomLength != nil || patch.CustomWidth != nil || patch.CustomHeight != nil:
		if p.BoxPresetID != nil {
			// Switching modes: all three dimensions must be supplied.
			if patch.CustomLength == nil || patch.CustomWidth == nil || patch.CustomHeight == nil {
				return newValidation("switching to custom dimensions requires length, width, and height")
			}
			p.BoxPresetID = nil
		}
		if patch.CustomLength != nil {
			p.CustomLength = patch.CustomLength
		}
		if patch.CustomWidth != nil {
			p.CustomWidth = patch.CustomWidth
		}
		if patch.CustomHeight != nil {
			p.CustomHeight = patch.CustomHeight
		}
	}

	if patch.Weight != nil {
		p.Weight = *patch.Weight
	}

	return validateParcelRow(p)
}

// validateParcelRow enforces the structural invariants: exactly one
// dimension source, positive dimensions, positive weight.
func validateParcelRow(p *store.Parcel) error {
	hasPreset := p.BoxPresetID != nil
	hasCustom := p.CustomLength != nil || p.CustomWidth != nil || p.CustomHeight != nil

	if hasPreset && hasCustom {
		return newValidation("a parcel uses either a box preset or custom dimensions, not both")
	}
	if !hasPreset && !hasCustom {
		return newValidation("a parcel needs a box preset or custom dimensions")
	}
	if hasCustom {
		if p.CustomLength == nil || p.CustomWidth == nil || p.CustomHeight == nil {
			return newValidation("custom dimensions require length, width, and height")
		}
		if *p.CustomLength <= 0 || *p.CustomWidth <= 0 || *p.CustomHeight <= 0 {
			return newValidation("parcel dimensions must be positive")
		}
	}
	if p.Weight <= 0 {
		return newValidation("parcel weight must be positive")
	}
	return nil
}

// resolveDimensions produces the physical package for carrier calls,
// reading preset dimensions at call time so preset edits take effect and
// dangling references are caught.
func (m *Manager) resolveDimensions(ctx context.Context, p *store.Parcel) (carrier.Package, error) {
	pkg := carrier.Package{Weight: p.Weight}

	if p.BoxPresetID != nil {
		preset, err := m.store.GetPreset(ctx, *p.BoxPresetID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return pkg, newValidation("box preset %s no longer exists; update the parcel", *p.BoxPresetID)
			}
			return pkg, err
		}
		pkg.Length = preset.Length
		pkg.Width = preset.Width
		pkg.Height = preset.Height
		return pkg, nil
	}

	if p.CustomLength == nil || p.CustomWidth == nil || p.CustomHeight == nil {
		return pkg, newValidation("parcel is missing custom dimensions")
	}
	pkg.Length = *p.CustomLength
	pkg.Width = *p.CustomWidth
	pkg.Height = *p.CustomHeight
	return pkg, nil
}
