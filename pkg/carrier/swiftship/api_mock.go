package swiftship

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnGetRates func(ctx context.Context, req *RatesRequest) (*RatesResponse, error)
	OnBuyLabel func(ctx context.Context, req *BuyRequest) (*LabelResponse, error)
	OnGetLabel func(ctx context.Context, shipmentID string) (*LabelResponse, error)
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

// GetRates returns mock shipping rates.
func (m *MockAPIClient) GetRates(ctx context.Context, req *RatesRequest) (*RatesResponse, error) {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, &APIError{Code: "MOCK_ERROR", Message: "Simulated API error", HTTPStatus: 500}
	}

	if m.OnGetRates != nil {
		return m.OnGetRates(ctx, req)
	}

	requestID := "ss-req-" + uuid.New().String()[:8]

	return &RatesResponse{
		RequestID: requestID,
		Rates: []Rate{
			{
				ID:             "rate-" + uuid.New().String()[:8],
				CarrierCode:    "usps",
				CarrierName:    "USPS",
				ServiceCode:    "USPS_PRIORITY",
				ServiceName:    "Priority Mail",
				TotalPrice:     8.95,
				Currency:       "USD",
				TransitDaysMin: 1,
				TransitDaysMax: 3,
			},
			{
				ID:             "rate-" + uuid.New().String()[:8],
				CarrierCode:    "ups",
				CarrierName:    "UPS",
				ServiceCode:    "UPS_GROUND",
				ServiceName:    "UPS Ground",
				TotalPrice:     11.20,
				Currency:       "USD",
				TransitDaysMin: 2,
				TransitDaysMax: 5,
			},
		},
	}, nil
}

// BuyLabel purchases a mock label, ready immediately.
func (m *MockAPIClient) BuyLabel(ctx context.Context, req *BuyRequest) (*LabelResponse, error) {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, &APIError{Code: "MOCK_ERROR", Message: "Simulated API error", HTTPStatus: 500}
	}

	if m.OnBuyLabel != nil {
		return m.OnBuyLabel(ctx, req)
	}

	shipmentID := "ss-ship-" + uuid.New().String()[:8]
	trackingNumber := fmt.Sprintf("9400%d", 100000000000+time.Now().UnixNano()%900000000000)

	return &LabelResponse{
		ShipmentID:     shipmentID,
		Status:         "ready",
		TrackingNumber: trackingNumber,
		LabelURL:       fmt.Sprintf("https://api.swiftship.io/labels/%s/document.pdf", shipmentID),
		TotalCharged:   8.95,
		Currency:       "USD",
	}, nil
}

// GetLabel retrieves a mock label state.
func (m *MockAPIClient) GetLabel(ctx context.Context, shipmentID string) (*LabelResponse, error) {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, &APIError{Code: "MOCK_ERROR", Message: "Simulated API error", HTTPStatus: 500}
	}

	if m.OnGetLabel != nil {
		return m.OnGetLabel(ctx, shipmentID)
	}

	return &LabelResponse{
		ShipmentID:     shipmentID,
		Status:         "ready",
		TrackingNumber: "9400100000000000000000",
		LabelURL:       fmt.Sprintf("https://api.swiftship.io/labels/%s/document.pdf", shipmentID),
		TotalCharged:   8.95,
		Currency:       "USD",
	}, nil
}

var _ APIClient = (*MockAPIClient)(nil)
