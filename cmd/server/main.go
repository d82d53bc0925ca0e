package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"

	environment "kitsura-miniapp/internal/env"
)

func main() {
	ctx := context.Background()

	env, err := environment.Setup(ctx)
	if err != nil {
		log.Fatalf("Failed to setup environment: %v", err)
	}

	logger := env.Logger
	logger.Info("Starting kitsura-miniapp server")

	serve := func(name string, srv *http.Server) {
		if srv == nil {
			return
		}
		go func() {
			logger.Info("Starting "+name+" server", slog.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error(name+" server error", slog.Any("error", err))
			}
		}()
	}

	serve("observability", env.Servers.HTTP.Observability)
	serve("api", env.Servers.HTTP.API)

	if err := env.Services.Workers.Start(); err != nil {
		logger.Error("Failed to start workers", slog.Any("error", err))
		shutdown(env)
		return
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server started. Press Ctrl+C to stop.")
	<-quit

	logger.Info("Shutting down application...")
	env.Services.Workers.Stop()
	shutdown(env)
	logger.Info("Application stopped")
}

func shutdown(env *environment.Env) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), env.Config.ShutdownDuration)
	defer cancel()

	for name, srv := range map[string]*http.Server{
		"api":           env.Servers.HTTP.API,
		"observability": env.Servers.HTTP.Observability,
	} {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			env.Logger.Error("Server shutdown error", slog.String("server", name), slog.Any("error", err))
		}
	}

	env.Close()
}
