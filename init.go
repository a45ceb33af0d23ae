package main

import (
	"context"

	"github.com/packlane/labeld/internal/config"
	"github.com/packlane/labeld/internal/store"
	"github.com/packlane/labeld/internal/telemetry"
	"github.com/packlane/labeld/pkg/carrier"
	"github.com/packlane/labeld/pkg/carrier/swiftship"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
)

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(level string) (*otelzap.Logger, error) {
	return telemetry.NewLogger(level)
}

func initTracer(ctx context.Context, cfg *config.Config) (trace.Tracer, func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		noop := func(context.Context) error { return nil }
		return telemetry.NoopTracer(cfg.ServiceName), noop, nil
	}
	return telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version)
}

func openStore(cfg *config.Config) (*store.Store, error) {
	st, err := store.Open(store.Config{
		Driver:       cfg.DatabaseDriver,
		DSN:          cfg.DatabaseDSN,
		MaxOpenConns: cfg.DatabaseMaxOpenConns,
		MaxIdleConns: cfg.DatabaseMaxIdleConns,
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

func initCarrier(cfg *config.Config, logger *otelzap.Logger, tracer trace.Tracer) carrier.Carrier {
	return swiftship.New(swiftship.Config{
		APIKey:  cfg.SwiftshipAPIKey,
		BaseURL: cfg.SwiftshipBaseURL,
		UseMock: cfg.SwiftshipUseMock,
	}, logger, tracer)
}
