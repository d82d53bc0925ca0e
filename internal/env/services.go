package environment

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"kitsura-miniapp/internal/api"
	"kitsura-miniapp/internal/config"
	"kitsura-miniapp/internal/storage"
	"kitsura-miniapp/internal/stories/vendor"
	"kitsura-miniapp/internal/workers"
	"kitsura-miniapp/internal/workers/catalogrefresh"
	"kitsura-miniapp/internal/workers/healthcheck"
)

type Services struct {
	Vendor  *vendor.Service
	API     *api.Handler
	Health  *healthcheck.Worker
	Workers *workers.Manager
}

func newServices(ctx context.Context, clients *Clients, cfg *config.Config, logger *slog.Logger) (*Services, error) {
	var s Services

	storageImpl := storage.New(clients.SQLiteDB)
	if err := storageImpl.Migrate(ctx); err != nil {
		return nil, errors.Wrap(err, "migrate storage")
	}

	s.Vendor = vendor.NewService(
		clients.Steam,
		clients.Goods,
		storageImpl,
		logger.WithGroup("vendor"),
		vendor.WithCatalogueTTL(cfg.Catalog.TTL),
	)

	s.API = api.NewHandler(s.Vendor, logger.WithGroup("api"), api.WithPublicOrigin(cfg.API.PublicOrigin))

	s.Health = healthcheck.NewWorker(map[string]healthcheck.Probe{
		"sqlite": storageImpl.Ping,
	}, cfg.Health.Interval, logger.WithGroup("healthcheck"))

	jobs := []workers.Worker{s.Health}
	if len(cfg.Catalog.ServiceIDs) > 0 {
		jobs = append(jobs, catalogrefresh.NewWorker(
			s.Vendor,
			cfg.Catalog.ServiceIDs,
			cfg.Catalog.Schedule,
			logger.WithGroup("catalogrefresh"),
		))
	}
	s.Workers = workers.NewManager(logger.WithGroup("workers"), jobs...)

	return &s, nil
}
