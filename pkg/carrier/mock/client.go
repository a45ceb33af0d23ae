// Package mock provides a mock carrier implementation for testing.
package mock

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/packlane/labeld/pkg/carrier"
)

// Client is a mock carrier for testing. The On* hooks override individual
// operations; call counts are tracked so tests can assert that guard
// failures never reach the carrier.
type Client struct {
	name string

	OnGetRates       func(ctx context.Context, req *carrier.RateRequest) (*carrier.RateResult, error)
	OnPurchaseLabel  func(ctx context.Context, req *carrier.PurchaseRequest) (*carrier.PurchaseResult, error)
	OnGetLabelStatus func(ctx context.Context, req *carrier.StatusRequest) (*carrier.StatusResult, error)

	mu            sync.Mutex
	rateCalls     int
	purchaseCalls int
	statusCalls   int
}

// New creates a new mock carrier.
func New(name string) *Client {
	return &Client{name: name}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return c.name
}

// RateCalls returns how many times GetRates was invoked.
func (c *Client) RateCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rateCalls
}

// PurchaseCalls returns how many times PurchaseLabel was invoked.
func (c *Client) PurchaseCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.purchaseCalls
}

// StatusCalls returns how many times GetLabelStatus was invoked.
func (c *Client) StatusCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusCalls
}

// GetRates returns mock shipping rates.
func (c *Client) GetRates(ctx context.Context, req *carrier.RateRequest) (*carrier.RateResult, error) {
	c.mu.Lock()
	c.rateCalls++
	c.mu.Unlock()

	if c.OnGetRates != nil {
		return c.OnGetRates(ctx, req)
	}

	now := time.Now()
	return &carrier.RateResult{
		Rates: []carrier.Rate{
			{
				RateID:      fmt.Sprintf("%s-rate-ground-%d", c.name, now.UnixNano()),
				Carrier:     "UPS",
				ServiceName: "UPS Ground",
				Price:       carrier.Money{Amount: 11.20, Currency: "USD"},
				EtaDaysMin:  2,
				EtaDaysMax:  5,
			},
			{
				RateID:      fmt.Sprintf("%s-rate-priority-%d", c.name, now.UnixNano()),
				Carrier:     "USPS",
				ServiceName: "Priority Mail",
				Price:       carrier.Money{Amount: 8.95, Currency: "USD"},
				EtaDaysMin:  1,
				EtaDaysMax:  3,
			},
		},
		Diag: carrier.Diagnostics{HTTPStatus: http.StatusOK},
	}, nil
}

// PurchaseLabel buys a mock label, ready immediately.
func (c *Client) PurchaseLabel(ctx context.Context, req *carrier.PurchaseRequest) (*carrier.PurchaseResult, error) {
	c.mu.Lock()
	c.purchaseCalls++
	c.mu.Unlock()

	if c.OnPurchaseLabel != nil {
		return c.OnPurchaseLabel(ctx, req)
	}

	now := time.Now()
	shipmentID := fmt.Sprintf("%s-ship-%d", c.name, now.UnixNano())
	trackingNumber := fmt.Sprintf("1Z%d", now.UnixNano()%1000000000)

	return &carrier.PurchaseResult{
		Outcome:        carrier.OutcomeReady,
		ShipmentID:     shipmentID,
		TrackingNumber: trackingNumber,
		LabelURL:       fmt.Sprintf("https://labels.%s.mock/%s.pdf", c.name, shipmentID),
		Cost:           carrier.Money{Amount: 11.20, Currency: "USD"},
		Diag:           carrier.Diagnostics{HTTPStatus: http.StatusOK},
	}, nil
}

// GetLabelStatus returns a mock ready label.
func (c *Client) GetLabelStatus(ctx context.Context, req *carrier.StatusRequest) (*carrier.StatusResult, error) {
	c.mu.Lock()
	c.statusCalls++
	c.mu.Unlock()

	if c.OnGetLabelStatus != nil {
		return c.OnGetLabelStatus(ctx, req)
	}

	return &carrier.StatusResult{
		Outcome:        carrier.OutcomeReady,
		TrackingNumber: "1Z999999999",
		LabelURL:       fmt.Sprintf("https://labels.%s.mock/%s.pdf", c.name, req.ShipmentID),
		Cost:           carrier.Money{Amount: 11.20, Currency: "USD"},
		Diag:           carrier.Diagnostics{HTTPStatus: http.StatusOK},
	}, nil
}

var _ carrier.Carrier = (*Client)(nil)
