package lifecycle_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/packlane/labeld/internal/lifecycle"
	"github.com/packlane/labeld/internal/store"
	"github.com/packlane/labeld/internal/telemetry"
	"github.com/packlane/labeld/pkg/carrier"
	"github.com/packlane/labeld/pkg/carrier/mock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func newTestManager(t *testing.T) (*lifecycle.Manager, *store.Store, *mock.Client) {
	t.Helper()

	st, err := store.Open(store.Config{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String()),
	})
	require.NoError(t, err)
	require.NoError(t, st.Migrate())
	t.Cleanup(func() { st.Close() })

	mockCarrier := mock.New("swiftship")
	logger := otelzap.New(zap.NewNop())
	metrics := telemetry.NewMetricsWith(prometheus.NewRegistry())

	return lifecycle.NewManager(st, mockCarrier, logger, metrics), st, mockCarrier
}

func saveCompleteShipFrom(t *testing.T, m *lifecycle.Manager) {
	t.Helper()

	_, err := m.SaveShipFrom(context.Background(), &store.ShipFromProfile{
		Name:         "Packlane Warehouse",
		AddressLine1: "100 Distribution Way",
		City:         "Reno",
		RegionCode:   "NV",
		PostalCode:   "89502",
		CountryCode:  "US",
	})
	require.NoError(t, err)
}

func createTestOrder(t *testing.T, m *lifecycle.Manager) *store.Order {
	t.Helper()

	order, err := m.CreateOrder(context.Background(), &store.Order{
		Reference:     "ORD-1001",
		RecipientName: "Dana Customer",
		AddressLine1:  "42 Elm St",
		City:          "Portland",
		RegionCode:    "OR",
		PostalCode:    "97201",
		CountryCode:   "US",
	})
	require.NoError(t, err)
	return order
}

func f64(v float64) *float64 { return &v }

func createCustomParcel(t *testing.T, m *lifecycle.Manager, orderID uuid.UUID) *store.Parcel {
	t.Helper()

	parcels, err := m.CreateParcel(context.Background(), orderID, lifecycle.ParcelDraft{
		CustomLength: f64(12),
		CustomWidth:  f64(9),
		CustomHeight: f64(4),
		Weight:       f64(2.5),
	})
	require.NoError(t, err)
	return &parcels[len(parcels)-1]
}

// fixedRates makes the mock return stable rate ids so selection survival
// across quote calls can be asserted.
func fixedRates(mockCarrier *mock.Client, rates ...carrier.Rate) {
	mockCarrier.OnGetRates = func(ctx context.Context, req *carrier.RateRequest) (*carrier.RateResult, error) {
		return &carrier.RateResult{
			Rates: rates,
			Diag:  carrier.Diagnostics{HTTPStatus: http.StatusOK},
		}, nil
	}
}

func uspsRate() carrier.Rate {
	return carrier.Rate{
		RateID:      "rate-usps-priority",
		Carrier:     "USPS",
		ServiceName: "Priority Mail",
		Price:       carrier.Money{Amount: 8.95, Currency: "USD"},
		EtaDaysMin:  1,
		EtaDaysMax:  3,
	}
}

func upsRate() carrier.Rate {
	return carrier.Rate{
		RateID:      "rate-ups-ground",
		Carrier:     "UPS",
		ServiceName: "UPS Ground",
		Price:       carrier.Money{Amount: 11.20, Currency: "USD"},
		EtaDaysMin:  2,
		EtaDaysMax:  5,
	}
}

func TestCreateOrder_RequiresDestination(t *testing.T) {
	m, _, _ := newTestManager(t)

	_, err := m.CreateOrder(context.Background(), &store.Order{Reference: "ORD-1"})

	require.Error(t, err)
	assert.Equal(t, lifecycle.KindValidation, lifecycle.KindOf(err))
}

func TestCreateParcel_RequiresDimensionSource(t *testing.T) {
	m, _, _ := newTestManager(t)
	order := createTestOrder(t, m)

	_, err := m.CreateParcel(context.Background(), order.ID, lifecycle.ParcelDraft{Weight: f64(2)})

	require.Error(t, err)
	assert.Equal(t, lifecycle.KindValidation, lifecycle.KindOf(err))
}

func TestCreateParcel_RejectsMixedSource(t *testing.T) {
	m, st, _ := newTestManager(t)
	order := createTestOrder(t, m)

	preset := &store.BoxPreset{Name: "Small Box", Length: 10, Width: 8, Height: 4}
	require.NoError(t, st.SavePreset(context.Background(), preset))

	_, err := m.CreateParcel(context.Background(), order.ID, lifecycle.ParcelDraft{
		BoxPresetID:  &preset.ID,
		CustomLength: f64(12),
		Weight:       f64(2),
	})

	require.Error(t, err)
	assert.Equal(t, lifecycle.KindValidation, lifecycle.KindOf(err))
}

func TestCreateParcel_PresetDefaultWeight(t *testing.T) {
	m, st, _ := newTestManager(t)
	order := createTestOrder(t, m)

	preset := &store.BoxPreset{Name: "Small Box", Length: 10, Width: 8, Height: 4, DefaultWeight: f64(1.5)}
	require.NoError(t, st.SavePreset(context.Background(), preset))

	parcels, err := m.CreateParcel(context.Background(), order.ID, lifecycle.ParcelDraft{
		BoxPresetID: &preset.ID,
	})

	require.NoError(t, err)
	require.Len(t, parcels, 1)
	assert.Equal(t, 1.5, parcels[0].Weight)
	assert.Equal(t, preset.ID, *parcels[0].BoxPresetID)
}

func TestCreateParcel_DanglingPreset(t *testing.T) {
	m, _, _ := newTestManager(t)
	order := createTestOrder(t, m)
	missing := uuid.New()

	_, err := m.CreateParcel(context.Background(), order.ID, lifecycle.ParcelDraft{
		BoxPresetID: &missing,
		Weight:      f64(2),
	})

	require.Error(t, err)
	assert.Equal(t, lifecycle.KindValidation, lifecycle.KindOf(err))
}

func TestCreateParcel_IndexesAreContiguous(t *testing.T) {
	m, _, _ := newTestManager(t)
	order := createTestOrder(t, m)

	var last []store.Parcel
	for i := 0; i < 3; i++ {
		parcels, err := m.CreateParcel(context.Background(), order.ID, lifecycle.ParcelDraft{
			CustomLength: f64(10), CustomWidth: f64(10), CustomHeight: f64(10), Weight: f64(1),
		})
		require.NoError(t, err)
		last = parcels
	}

	require.Len(t, last, 3)
	for i, p := range last {
		assert.Equal(t, i+1, p.ParcelIndex)
	}
}

func TestUpdateParcel_SwitchToCustomRequiresAllDims(t *testing.T) {
	m, st, _ := newTestManager(t)
	order := createTestOrder(t, m)

	preset := &store.BoxPreset{Name: "Small Box", Length: 10, Width: 8, Height: 4, DefaultWeight: f64(1)}
	require.NoError(t, st.SavePreset(context.Background(), preset))
	parcels, err := m.CreateParcel(context.Background(), order.ID, lifecycle.ParcelDraft{BoxPresetID: &preset.ID})
	require.NoError(t, err)
	parcel := parcels[0]

	_, err = m.UpdateParcel(context.Background(), order.ID, parcel.ID, lifecycle.ParcelDraft{
		CustomLength: f64(12),
	})
	require.Error(t, err)
	assert.Equal(t, lifecycle.KindValidation, lifecycle.KindOf(err))

	updated, err := m.UpdateParcel(context.Background(), order.ID, parcel.ID, lifecycle.ParcelDraft{
		CustomLength: f64(12), CustomWidth: f64(9), CustomHeight: f64(4),
	})
	require.NoError(t, err)
	assert.Nil(t, updated.BoxPresetID)
	assert.Equal(t, 12.0, *updated.CustomLength)
}

func TestUpdateParcel_SwitchToPresetClearsCustom(t *testing.T) {
	m, st, _ := newTestManager(t)
	order := createTestOrder(t, m)
	parcel := createCustomParcel(t, m, order.ID)

	preset := &store.BoxPreset{Name: "Medium Box", Length: 14, Width: 10, Height: 6}
	require.NoError(t, st.SavePreset(context.Background(), preset))

	updated, err := m.UpdateParcel(context.Background(), order.ID, parcel.ID, lifecycle.ParcelDraft{
		BoxPresetID: &preset.ID,
	})

	require.NoError(t, err)
	assert.Equal(t, preset.ID, *updated.BoxPresetID)
	assert.Nil(t, updated.CustomLength)
	assert.Nil(t, updated.CustomWidth)
	assert.Nil(t, updated.CustomHeight)
}

func TestSelectQuote_RequiresCachedRate(t *testing.T) {
	m, _, mockCarrier := newTestManager(t)
	saveCompleteShipFrom(t, m)
	fixedRates(mockCarrier, uspsRate(), upsRate())
	order := createTestOrder(t, m)
	parcel := createCustomParcel(t, m, order.ID)

	_, err := m.SelectQuote(context.Background(), order.ID, parcel.ID, "rate-nonexistent")
	require.Error(t, err)
	assert.Equal(t, lifecycle.KindValidation, lifecycle.KindOf(err))

	_, err = m.GetQuotes(context.Background(), order.ID, parcel.ID, nil)
	require.NoError(t, err)

	selected, err := m.SelectQuote(context.Background(), order.ID, parcel.ID, "rate-usps-priority")
	require.NoError(t, err)
	require.NotNil(t, selected.SelectedRateID)
	assert.Equal(t, "rate-usps-priority", *selected.SelectedRateID)
}

func TestSavePreset_Validation(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.SavePreset(ctx, &store.BoxPreset{Length: 10, Width: 8, Height: 4})
	assert.Equal(t, lifecycle.KindValidation, lifecycle.KindOf(err))

	_, err = m.SavePreset(ctx, &store.BoxPreset{Name: "Flat", Length: 10, Width: 8})
	assert.Equal(t, lifecycle.KindValidation, lifecycle.KindOf(err))

	_, err = m.SavePreset(ctx, &store.BoxPreset{Name: "Bad Weight", Length: 10, Width: 8, Height: 4, DefaultWeight: f64(-1)})
	assert.Equal(t, lifecycle.KindValidation, lifecycle.KindOf(err))

	preset, err := m.SavePreset(ctx, &store.BoxPreset{Name: "Small Box", Length: 10, Width: 8, Height: 4})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, preset.ID)
}

func TestSaveShipFrom_NormalizesCodes(t *testing.T) {
	m, _, _ := newTestManager(t)

	profile, err := m.SaveShipFrom(context.Background(), &store.ShipFromProfile{
		Name:        "Warehouse",
		RegionCode:  " nv ",
		CountryCode: "us",
	})

	require.NoError(t, err)
	assert.Equal(t, "NV", profile.RegionCode)
	assert.Equal(t, "US", profile.CountryCode)

	_, err = m.SaveShipFrom(context.Background(), &store.ShipFromProfile{CountryCode: "USA"})
	assert.Equal(t, lifecycle.KindValidation, lifecycle.KindOf(err))
}
