package swiftship_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/packlane/labeld/pkg/carrier"
	"github.com/packlane/labeld/pkg/carrier/swiftship"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func newTestClient(mockClient *swiftship.MockAPIClient) *swiftship.Client {
	logger := otelzap.New(zap.NewNop())
	return swiftship.NewWithAPIClient(
		swiftship.Config{},
		mockClient,
		logger,
		nil,
	)
}

func testRateRequest() *carrier.RateRequest {
	return &carrier.RateRequest{
		From: carrier.Address{
			Name:        "Warehouse",
			Line1:       "100 Distribution Way",
			City:        "Reno",
			RegionCode:  "NV",
			PostalCode:  "89502",
			CountryCode: "US",
		},
		To: carrier.Address{
			Name:        "Customer",
			Line1:       "42 Elm St",
			City:        "Portland",
			RegionCode:  "OR",
			PostalCode:  "97201",
			CountryCode: "US",
		},
		Package: carrier.Package{Length: 12, Width: 9, Height: 4, Weight: 2.5},
	}
}

func TestClient_GetRates_Success(t *testing.T) {
	mockAPI := swiftship.NewMockAPIClient()
	client := newTestClient(mockAPI)

	resp, err := client.GetRates(context.Background(), testRateRequest())

	require.NoError(t, err)
	assert.Len(t, resp.Rates, 2) // Mock returns 2 rates
	assert.Equal(t, "USPS", resp.Rates[0].Carrier)
	assert.Equal(t, 8.95, resp.Rates[0].Price.Amount)
	assert.Equal(t, "USD", resp.Rates[0].Price.Currency)
	assert.NotEmpty(t, resp.Rates[0].RateID)
}

func TestClient_GetRates_Empty(t *testing.T) {
	mockAPI := swiftship.NewMockAPIClient()
	mockAPI.OnGetRates = func(ctx context.Context, req *swiftship.RatesRequest) (*swiftship.RatesResponse, error) {
		return &swiftship.RatesResponse{RequestID: "ss-req-empty"}, nil
	}
	client := newTestClient(mockAPI)

	resp, err := client.GetRates(context.Background(), testRateRequest())

	require.NoError(t, err)
	assert.Empty(t, resp.Rates)
}

func TestClient_GetRates_APIError(t *testing.T) {
	mockAPI := swiftship.NewMockAPIClient()
	mockAPI.SimulateErrors = true
	client := newTestClient(mockAPI)

	_, err := client.GetRates(context.Background(), testRateRequest())

	require.Error(t, err)
	var carrierErr *carrier.Error
	require.ErrorAs(t, err, &carrierErr)
	assert.Equal(t, "swiftship", carrierErr.Carrier)
	assert.Equal(t, "MOCK_ERROR", carrierErr.Code)
	assert.Equal(t, 500, carrierErr.StatusCode)
	assert.True(t, carrier.IsRetryable(err))
}

func TestClient_PurchaseLabel_Ready(t *testing.T) {
	mockAPI := swiftship.NewMockAPIClient()
	client := newTestClient(mockAPI)

	resp, err := client.PurchaseLabel(context.Background(), &carrier.PurchaseRequest{
		RateID:    "rate-abc123",
		Reference: "order-1-parcel-1",
	})

	require.NoError(t, err)
	assert.Equal(t, carrier.OutcomeReady, resp.Outcome)
	assert.NotEmpty(t, resp.ShipmentID)
	assert.NotEmpty(t, resp.TrackingNumber)
	assert.NotEmpty(t, resp.LabelURL)
	assert.Equal(t, 8.95, resp.Cost.Amount)
}

func TestClient_PurchaseLabel_Processing(t *testing.T) {
	mockAPI := swiftship.NewMockAPIClient()
	mockAPI.OnBuyLabel = func(ctx context.Context, req *swiftship.BuyRequest) (*swiftship.LabelResponse, error) {
		return &swiftship.LabelResponse{ShipmentID: "ss-ship-async", Status: "processing"}, nil
	}
	client := newTestClient(mockAPI)

	resp, err := client.PurchaseLabel(context.Background(), &carrier.PurchaseRequest{RateID: "rate-abc123"})

	require.NoError(t, err)
	assert.Equal(t, carrier.OutcomeProcessing, resp.Outcome)
	assert.Equal(t, "ss-ship-async", resp.ShipmentID)
	assert.Empty(t, resp.TrackingNumber)
}

func TestClient_PurchaseLabel_FailedInBand(t *testing.T) {
	mockAPI := swiftship.NewMockAPIClient()
	mockAPI.OnBuyLabel = func(ctx context.Context, req *swiftship.BuyRequest) (*swiftship.LabelResponse, error) {
		return &swiftship.LabelResponse{
			ShipmentID:    "ss-ship-rejected",
			Status:        "failed",
			FailureReason: "rate expired",
		}, nil
	}
	client := newTestClient(mockAPI)

	resp, err := client.PurchaseLabel(context.Background(), &carrier.PurchaseRequest{RateID: "rate-old"})

	require.NoError(t, err)
	assert.Equal(t, carrier.OutcomeFailed, resp.Outcome)
	assert.Equal(t, "rate expired", resp.FailureReason)
}

func TestClient_GetLabelStatus(t *testing.T) {
	mockAPI := swiftship.NewMockAPIClient()
	client := newTestClient(mockAPI)

	resp, err := client.GetLabelStatus(context.Background(), &carrier.StatusRequest{ShipmentID: "ss-ship-1"})

	require.NoError(t, err)
	assert.Equal(t, carrier.OutcomeReady, resp.Outcome)
	assert.NotEmpty(t, resp.TrackingNumber)
	assert.Contains(t, resp.LabelURL, "ss-ship-1")
}

func TestClient_GetLabelStatus_StillProcessing(t *testing.T) {
	mockAPI := swiftship.NewMockAPIClient()
	mockAPI.OnGetLabel = func(ctx context.Context, shipmentID string) (*swiftship.LabelResponse, error) {
		return &swiftship.LabelResponse{ShipmentID: shipmentID, Status: "processing"}, nil
	}
	client := newTestClient(mockAPI)

	resp, err := client.GetLabelStatus(context.Background(), &carrier.StatusRequest{ShipmentID: "ss-ship-2"})

	require.NoError(t, err)
	assert.Equal(t, carrier.OutcomeProcessing, resp.Outcome)
}

// --- HTTP client against a stub server ---

func TestHTTPAPIClient_GetRates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rates", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"request_id": "ss-req-1",
			"rates": [
				{"id": "rate-1", "carrier_name": "USPS", "service_name": "Priority Mail",
				 "total_price": 8.95, "currency": "USD", "transit_days_min": 1, "transit_days_max": 3}
			]
		}`))
	}))
	defer srv.Close()

	client := swiftship.NewHTTPAPIClient(swiftship.HTTPAPIClientConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
	})

	resp, err := client.GetRates(context.Background(), &swiftship.RatesRequest{})

	require.NoError(t, err)
	require.Len(t, resp.Rates, 1)
	assert.Equal(t, "rate-1", resp.Rates[0].ID)
	assert.Equal(t, 8.95, resp.Rates[0].TotalPrice)
}

func TestHTTPAPIClient_BuyLabel_Accepted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/labels", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"shipment_id": "ss-ship-9"}`))
	}))
	defer srv.Close()

	client := swiftship.NewHTTPAPIClient(swiftship.HTTPAPIClientConfig{BaseURL: srv.URL})

	resp, err := client.BuyLabel(context.Background(), &swiftship.BuyRequest{RateID: "rate-1"})

	require.NoError(t, err)
	assert.Equal(t, "ss-ship-9", resp.ShipmentID)
	// 202 with no status field means generation is still in progress
	assert.Equal(t, "processing", resp.Status)
}

func TestHTTPAPIClient_ErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"code": "INVALID_ADDRESS", "message": "postal code does not match city"}`))
	}))
	defer srv.Close()

	client := swiftship.NewHTTPAPIClient(swiftship.HTTPAPIClientConfig{BaseURL: srv.URL})

	_, err := client.GetRates(context.Background(), &swiftship.RatesRequest{})

	require.Error(t, err)
	var apiErr *swiftship.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "INVALID_ADDRESS", apiErr.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.HTTPStatus)
}

func TestHTTPAPIClient_PlainErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "internal server error"}`))
	}))
	defer srv.Close()

	client := swiftship.NewHTTPAPIClient(swiftship.HTTPAPIClientConfig{BaseURL: srv.URL})

	_, err := client.GetLabel(context.Background(), "ss-ship-1")

	require.Error(t, err)
	var apiErr *swiftship.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "HTTP_500", apiErr.Code)
	assert.Equal(t, "internal server error", apiErr.Message)
}
