// Package swiftship provides integration with the Swiftship label API.
package swiftship

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/packlane/labeld/pkg/carrier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const carrierName = "swiftship"

// Config holds Swiftship configuration.
type Config struct {
	APIKey  string
	BaseURL string
	UseMock bool // When true, uses mock API client
}

// Client is the Swiftship carrier client.
// It implements the carrier.Carrier interface and delegates
// API calls to the underlying APIClient (mock or HTTP).
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new Swiftship client.
// If cfg.UseMock is true, it uses a mock API client for testing.
// Otherwise, it uses the real HTTP API client.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Timeout: 30 * time.Second,
		})
	}

	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
	}
}

// NewWithAPIClient creates a new Swiftship client with a custom API client.
// This is useful for injecting mock clients in tests.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return carrierName
}

// GetRates returns shipping rates from Swiftship.
func (c *Client) GetRates(ctx context.Context, req *carrier.RateRequest) (*carrier.RateResult, error) {
	c.logger.Info("Getting Swiftship rates",
		zap.String("origin_city", req.From.City),
		zap.String("destination_city", req.To.City),
	)

	apiReq := &RatesRequest{
		Origin:      addressToLocation(req.From),
		Destination: addressToLocation(req.To),
		Package: Package{
			Length: req.Package.Length,
			Width:  req.Package.Width,
			Height: req.Package.Height,
			Weight: req.Package.Weight,
		},
	}

	apiResp, err := c.apiClient.GetRates(ctx, apiReq)
	if err != nil {
		c.logger.Error("Swiftship API error", zap.Error(err))
		return nil, toCarrierError(err)
	}

	return ratesResponseToResult(apiResp), nil
}

// PurchaseLabel buys a label for a quoted rate from Swiftship.
func (c *Client) PurchaseLabel(ctx context.Context, req *carrier.PurchaseRequest) (*carrier.PurchaseResult, error) {
	c.logger.Info("Purchasing Swiftship label",
		zap.String("rate_id", req.RateID),
	)

	// Unique id for idempotency on carrier side
	uniqueID := req.Reference
	if uniqueID == "" {
		uniqueID = uuid.New().String()
	}

	apiResp, err := c.apiClient.BuyLabel(ctx, &BuyRequest{
		RateID:   req.RateID,
		UniqueID: uniqueID,
	})
	if err != nil {
		c.logger.Error("Swiftship API error", zap.Error(err))
		return nil, toCarrierError(err)
	}

	return &carrier.PurchaseResult{
		Outcome:        mapOutcome(apiResp.Status),
		ShipmentID:     apiResp.ShipmentID,
		TrackingNumber: apiResp.TrackingNumber,
		LabelURL:       apiResp.LabelURL,
		Cost:           carrier.Money{Amount: apiResp.TotalCharged, Currency: apiResp.Currency},
		FailureReason:  apiResp.FailureReason,
		Diag:           carrier.Diagnostics{HTTPStatus: http.StatusOK},
	}, nil
}

// GetLabelStatus re-queries a pending label by shipment id.
func (c *Client) GetLabelStatus(ctx context.Context, req *carrier.StatusRequest) (*carrier.StatusResult, error) {
	c.logger.Info("Checking Swiftship label status",
		zap.String("shipment_id", req.ShipmentID),
	)

	apiResp, err := c.apiClient.GetLabel(ctx, req.ShipmentID)
	if err != nil {
		c.logger.Error("Swiftship API error", zap.Error(err))
		return nil, toCarrierError(err)
	}

	return &carrier.StatusResult{
		Outcome:        mapOutcome(apiResp.Status),
		TrackingNumber: apiResp.TrackingNumber,
		LabelURL:       apiResp.LabelURL,
		Cost:           carrier.Money{Amount: apiResp.TotalCharged, Currency: apiResp.Currency},
		FailureReason:  apiResp.FailureReason,
		Diag:           carrier.Diagnostics{HTTPStatus: http.StatusOK},
	}, nil
}

// ============================================================================
// Conversion helpers
// ============================================================================

func addressToLocation(addr carrier.Address) Location {
	return Location{
		Name:       addr.Name,
		Company:    addr.Company,
		Address1:   addr.Line1,
		Address2:   addr.Line2,
		City:       addr.City,
		Province:   addr.RegionCode,
		PostalCode: addr.PostalCode,
		Country:    addr.CountryCode,
		Phone:      addr.Phone,
	}
}

func ratesResponseToResult(resp *RatesResponse) *carrier.RateResult {
	rates := make([]carrier.Rate, len(resp.Rates))
	for i, r := range resp.Rates {
		rates[i] = carrier.Rate{
			RateID:      r.ID,
			Carrier:     r.CarrierName,
			ServiceName: r.ServiceName,
			Price:       carrier.Money{Amount: r.TotalPrice, Currency: r.Currency},
			EtaDaysMin:  r.TransitDaysMin,
			EtaDaysMax:  r.TransitDaysMax,
		}
	}

	return &carrier.RateResult{
		Rates: rates,
		Diag:  carrier.Diagnostics{HTTPStatus: http.StatusOK},
	}
}

func mapOutcome(status string) carrier.LabelOutcome {
	switch status {
	case "ready", "complete":
		return carrier.OutcomeReady
	case "failed", "error":
		return carrier.OutcomeFailed
	default:
		// "processing", "pending", anything unknown: still generating
		return carrier.OutcomeProcessing
	}
}

func toCarrierError(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		retryable := apiErr.HTTPStatus >= 500 || apiErr.HTTPStatus == http.StatusTooManyRequests
		return carrier.NewError(carrierName, apiErr.Code, apiErr.Message).
			WithStatusCode(apiErr.HTTPStatus).
			WithRetryable(retryable)
	}
	return carrier.NewError(carrierName, "TRANSPORT_ERROR", "request failed").WithCause(err)
}

// Ensure Client implements the Carrier interface
var _ carrier.Carrier = (*Client)(nil)
