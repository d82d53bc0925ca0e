package environment

import (
	"context"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"kitsura-miniapp/internal/config"
	"kitsura-miniapp/internal/infra/backend"
	"kitsura-miniapp/internal/infra/sqlite3"
	"kitsura-miniapp/internal/infra/wata"
	"kitsura-miniapp/internal/session"
)

type Clients struct {
	SQLiteDB *sqlx.DB
	// Steam and Goods share the vendor host but authenticate with different tokens.
	Steam *wata.Client
	Goods *wata.Client
}

func newClients(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Clients, error) {
	sqliteDB, err := provideSQLiteDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	steam, goods, err := provideVendor(cfg, logger)
	if err != nil {
		_ = sqliteDB.Close()
		return nil, err
	}

	return &Clients{
		SQLiteDB: sqliteDB,
		Steam:    steam,
		Goods:    goods,
	}, nil
}

func provideSQLiteDB(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	opts := []sqlite3.Option{
		sqlite3.WithDSN(cfg.DB.Path),
		sqlite3.WithMaxOpenConns(cfg.DB.MaxOpenConns),
		sqlite3.WithConnMaxLifetime(cfg.DB.MaxLifetime),
	}

	db, err := sqlite3.New(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	return db, nil
}

// NewBackendClient builds the mini-app backend client. Without initData, or with
// BACKEND_DEV set, requests are answered by the in-process mock.
func NewBackendClient(cfg config.Config, logger *slog.Logger, reg prometheus.Registerer) (*backend.Client, error) {
	metrics, err := backend.NewMetrics(reg)
	if err != nil {
		return nil, err
	}

	opts := []backend.Option{
		backend.WithBaseURL(cfg.Backend.BaseURL),
		backend.WithTimeout(cfg.Backend.Timeout),
		backend.WithRateLimit(cfg.Backend.RateLimit.RPS, cfg.Backend.RateLimit.Burst),
		backend.WithMetrics(metrics),
		backend.WithLogger(logger.WithGroup("backend")),
	}
	if cfg.Backend.UseMock() {
		logger.Info("Backend runs in dev mode, serving mock data")
		opts = append(opts, backend.WithTransport(backend.NewMockTransport()))
	}

	return backend.NewClient(session.Static(cfg.Backend.InitData), opts...), nil
}

func provideVendor(cfg config.Config, logger *slog.Logger) (*wata.Client, *wata.Client, error) {
	metrics, err := wata.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, nil, err
	}

	opts := []wata.Option{
		wata.WithBaseURL(cfg.Vendor.BaseURL),
		wata.WithTimeout(cfg.Vendor.Timeout),
		wata.WithMetrics(metrics),
		wata.WithLogger(logger.WithGroup("vendor")),
	}

	steam := wata.NewClient(cfg.Vendor.APIToken, opts...)
	goods := wata.NewClient(cfg.Vendor.DigitalGoodsToken, opts...)

	if !steam.Configured() {
		logger.Warn("VENDOR_API_TOKEN is not set, Steam top-ups run in mock mode")
	}
	if !goods.Configured() {
		logger.Warn("VENDOR_DIGITAL_GOODS_TOKEN is not set, voucher catalogue is unavailable")
	}

	return steam, goods, nil
}
