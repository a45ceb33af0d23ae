package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/packlane/labeld/internal/lifecycle"
	"github.com/packlane/labeld/internal/store"
	"github.com/packlane/labeld/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Server is the HTTP server for the label lifecycle service.
type Server struct {
	port    int
	manager *lifecycle.Manager
	store   *store.Store
	logger  *otelzap.Logger
	metrics *telemetry.Metrics
}

// Config holds server configuration.
type Config struct {
	Port int
}

// New creates a new server instance.
func New(cfg Config, manager *lifecycle.Manager, st *store.Store, logger *otelzap.Logger, metrics *telemetry.Metrics) *Server {
	return &Server{
		port:    cfg.Port,
		manager: manager,
		store:   st,
		logger:  logger,
		metrics: metrics,
	}
}

// Handler builds the route table. Exposed separately so tests can drive
// the mux without a listening socket.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/ship-from", s.handleGetShipFrom)
	mux.HandleFunc("PUT /api/ship-from", s.handleSaveShipFrom)

	mux.HandleFunc("GET /api/box-presets", s.handleListPresets)
	mux.HandleFunc("POST /api/box-presets", s.handleCreatePreset)
	mux.HandleFunc("PUT /api/box-presets/{presetID}", s.handleUpdatePreset)
	mux.HandleFunc("DELETE /api/box-presets/{presetID}", s.handleDeletePreset)

	mux.HandleFunc("POST /api/orders", s.handleCreateOrder)
	mux.HandleFunc("GET /api/orders/{orderID}/parcels", s.handleListParcels)
	mux.HandleFunc("POST /api/orders/{orderID}/parcels", s.handleCreateParcel)
	mux.HandleFunc("PATCH /api/orders/{orderID}/parcels/{parcelID}", s.handleUpdateParcel)
	mux.HandleFunc("DELETE /api/orders/{orderID}/parcels/{parcelID}", s.handleDeleteParcel)
	mux.HandleFunc("POST /api/orders/{orderID}/parcels/{parcelID}/quotes", s.handleGetQuotes)
	mux.HandleFunc("POST /api/orders/{orderID}/parcels/{parcelID}/select-rate", s.handleSelectRate)
	mux.HandleFunc("POST /api/orders/{orderID}/parcels/{parcelID}/purchase", s.handlePurchase)
	mux.HandleFunc("POST /api/orders/{orderID}/parcels/{parcelID}/refresh", s.handleRefresh)
	mux.HandleFunc("POST /api/orders/{orderID}/refresh-pending", s.handleRefreshPending)

	return mux
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.HealthCheck(); err != nil {
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
