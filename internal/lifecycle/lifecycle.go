// Package lifecycle implements the shipment label lifecycle: parcel
// management, rate quoting, label purchase, and status polling, with the
// ordering and guard invariants enforced in one place.
package lifecycle

import (
	"context"

	"github.com/google/uuid"
	"github.com/packlane/labeld/internal/store"
	"github.com/packlane/labeld/internal/telemetry"
	"github.com/packlane/labeld/pkg/carrier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
)

// Manager is the façade over the label lifecycle. All operations on a
// parcel go through its per-parcel single-flight guard.
type Manager struct {
	store   *store.Store
	carrier carrier.Carrier
	logger  *otelzap.Logger
	metrics *telemetry.Metrics
	guard   *parcelGuard
}

// NewManager creates a lifecycle manager.
func NewManager(st *store.Store, c carrier.Carrier, logger *otelzap.Logger, metrics *telemetry.Metrics) *Manager {
	return &Manager{
		store:   st,
		carrier: c,
		logger:  logger,
		metrics: metrics,
		guard:   newParcelGuard(),
	}
}

// ============================================================================
// Orders (external collaborator; minimal surface for integration)
// ============================================================================

// CreateOrder registers an order so parcels can reference it and quoting
// has a destination address.
func (m *Manager) CreateOrder(ctx context.Context, order *store.Order) (*store.Order, error) {
	if order.AddressLine1 == "" || order.City == "" || order.PostalCode == "" || order.CountryCode == "" {
		return nil, newValidation("order destination address is incomplete")
	}
	if err := m.store.CreateOrder(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// ListParcels returns all parcels of an order in index order.
func (m *Manager) ListParcels(ctx context.Context, orderID uuid.UUID) ([]store.Parcel, error) {
	if _, err := m.store.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return m.store.ListParcels(ctx, orderID)
}

// ============================================================================
// Box presets
// ============================================================================

// ListPresets returns all box presets.
func (m *Manager) ListPresets(ctx context.Context) ([]store.BoxPreset, error) {
	return m.store.ListPresets(ctx)
}

// SavePreset validates and persists a box preset.
func (m *Manager) SavePreset(ctx context.Context, preset *store.BoxPreset) (*store.BoxPreset, error) {
	if preset.Name == "" {
		return nil, newValidation("preset name is required")
	}
	if preset.Length <= 0 || preset.Width <= 0 || preset.Height <= 0 {
		return nil, newValidation("preset dimensions must be positive")
	}
	if preset.DefaultWeight != nil && *preset.DefaultWeight <= 0 {
		return nil, newValidation("preset default weight must be positive")
	}
	if err := m.store.SavePreset(ctx, preset); err != nil {
		return nil, err
	}
	return preset, nil
}

// DeletePreset removes a box preset. Parcels that captured the reference
// are unaffected until their next quote attempt.
func (m *Manager) DeletePreset(ctx context.Context, id uuid.UUID) error {
	return m.store.DeletePreset(ctx, id)
}
