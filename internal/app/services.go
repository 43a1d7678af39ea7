package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/docrender/internal/i18n"
	"github.com/odyssey-erp/docrender/internal/observability"
	"github.com/odyssey-erp/docrender/internal/platform/cache"
	"github.com/odyssey-erp/docrender/internal/platform/db"
	"github.com/odyssey-erp/docrender/internal/printing"
	"github.com/odyssey-erp/docrender/internal/printing/format"
	"github.com/odyssey-erp/docrender/internal/printing/images"
	"github.com/odyssey-erp/docrender/internal/printing/render"
	"github.com/odyssey-erp/docrender/internal/store"
	"github.com/odyssey-erp/docrender/report"
)

// Services is the wiring shared by the HTTP server and the worker.
type Services struct {
	Store    *store.Store
	Redis    *redis.Client
	Report   *report.Client
	Metrics  *observability.Metrics
	Printing *printing.Service

	closers []func() error
}

// NewServices opens the configured database, connects Redis and builds the
// printing service. Redis is optional: without it page counts are only shared
// between concurrent probes.
func NewServices(ctx context.Context, cfg *Config, logger *slog.Logger) (*Services, error) {
	s := &Services{Metrics: observability.NewMetrics()}

	handle, err := s.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s.Store = store.New(handle, logger)

	defaults, err := format.LoadDefaults(cfg.FormatDefaultsFile)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("app: format defaults: %w", err)
	}
	locales, err := i18n.NewBundle(cfg.DefaultLocale, cfg.LocalesDir)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("app: locales: %w", err)
	}

	if client, err := cache.New(ctx, cfg.RedisOptions()); err != nil {
		logger.Warn("redis unavailable, page counts not cached", slog.Any("error", err))
	} else {
		s.Redis = client
		s.closers = append(s.closers, client.Close)
	}

	s.Report = report.NewClient(cfg.GotenbergURL, report.Options{
		Timeout: cfg.GotenbergTimeout,
		Retries: cfg.GotenbergRetries,
	})
	pages := render.NewPageCache(s.Redis, cfg.PageCountCacheTTL, logger, s.Metrics)

	s.Printing = printing.NewService(printing.Dependencies{
		Documents:     s.Store,
		Finder:        s.Store,
		Formats:       format.NewResolver(s.Store, defaults, logger),
		Locales:       locales,
		Renderers:     render.NewFactory(s.Report, pages),
		Images: images.NewLoader(images.Options{
			BaseURL:  cfg.LogoBaseURL,
			Timeout:  cfg.LogoFetchTimeout,
			MaxBytes: cfg.LogoMaxBytes,
			TTL:      cfg.LogoCacheTTL,
		}, logger),
		Metrics:       s.Metrics,
		Logger:        logger,
		MoneyDecimals: cfg.MoneyDecimals,
		Locale:        cfg.DefaultLocale,
	})
	return s, nil
}

func (s *Services) openStore(ctx context.Context, cfg *Config) (store.Handle, error) {
	switch cfg.DBDriver {
	case DriverMySQL:
		conn, err := db.NewMySQL(ctx, cfg.MySQLDSN, cfg.DBMaxConns)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, conn.Close)
		return store.NewSQLHandle(conn), nil
	case DriverPostgres:
		pool, err := db.New(ctx, cfg.PGDSN, cfg.DBMaxConns)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() error { pool.Close(); return nil })
		return store.NewPgxHandle(pool), nil
	default:
		return nil, fmt.Errorf("app: unsupported driver %q", cfg.DBDriver)
	}
}

// Close releases connections in reverse order of opening.
func (s *Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
