package environment

import (
	"context"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sethvargo/go-envconfig"

	"kitsura-miniapp/internal/config"
)

type closer func()

type Env struct {
	Config   *config.Config
	Logger   *slog.Logger
	Servers  *Servers
	Clients  *Clients
	Services *Services

	Closers []closer
}

// LoadConfig reads .env when present and then the process environment.
func LoadConfig(ctx context.Context) (config.Config, error) {
	_ = godotenv.Load()

	var cfg config.Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return cfg, errors.Wrap(err, "env processing")
	}
	return cfg, nil
}

func Setup(ctx context.Context) (*Env, error) {
	cfg, err := LoadConfig(ctx)
	if err != nil {
		return nil, err
	}

	var e Env

	logger, err := initLogger(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "initLogger")
	}

	clients, err := newClients(ctx, cfg, logger)
	if err != nil {
		return nil, errors.Wrap(err, "newClients")
	}

	services, err := newServices(ctx, clients, &cfg, logger)
	if err != nil {
		_ = clients.SQLiteDB.Close()
		return nil, errors.Wrap(err, "newServices")
	}

	servers := newServers(ctx, cfg, logger, services)

	e.Servers = servers
	e.Config = &cfg
	e.Logger = logger
	e.Clients = clients
	e.Services = services
	e.Closers = []closer{
		func() {
			if err := clients.SQLiteDB.Close(); err != nil {
				logger.Error("Failed to close sqlite", "error", err)
			}
		},
	}

	return &e, nil
}

// Close runs the closers in reverse registration order.
func (e *Env) Close() {
	for i := len(e.Closers) - 1; i >= 0; i-- {
		e.Closers[i]()
	}
}
