package environment

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kitsura-miniapp/internal/config"
	"kitsura-miniapp/internal/payload"
	"kitsura-miniapp/internal/stories/vendor"
)

var pprofHandlers = map[string]http.HandlerFunc{
	"/debug/pprof/":        pprof.Index,
	"/debug/pprof/cmdline": pprof.Cmdline,
	"/debug/pprof/profile": pprof.Profile,
	"/debug/pprof/symbol":  pprof.Symbol,
	"/debug/pprof/trace":   pprof.Trace,
}

func initObservability(
	_ context.Context,
	logger *slog.Logger,
	services *Services,
	cfg config.Config,
) *http.Server {
	mux := http.NewServeMux()

	for pattern, h := range pprofHandlers {
		mux.HandleFunc(pattern, h)
	}
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /livez", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, payload.Object{"status": "ok"})
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, _ *http.Request) {
		if services.Health.Ready() {
			writeJSON(w, http.StatusOK, payload.Object{"status": "ready"})
			return
		}

		down := services.Health.Down()
		logger.Warn("Readiness probe failed", "down", down)
		writeJSON(w, http.StatusServiceUnavailable, payload.Object{"status": "not_ready", "down": down})
	})

	// Operator view of the vendor order log.
	mux.HandleFunc("GET /debug/orders", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		criteria := vendor.OrderCriteria{
			Kind:   vendor.Kind(q.Get("kind")),
			Status: vendor.Status(q.Get("status")),
		}
		if limit, err := strconv.ParseUint(q.Get("limit"), 10, 64); err == nil {
			criteria.Limit = limit
		}

		orders, err := services.Vendor.RecentOrders(r.Context(), criteria)
		if err != nil {
			logger.Error("Failed to list vendor orders", "error", err)
			writeJSON(w, http.StatusInternalServerError, payload.Object{"error": err.Error()})
			return
		}

		items := make([]any, 0, len(orders))
		for _, o := range orders {
			items = append(items, payload.Object{
				"id":        o.ID,
				"kind":      string(o.Kind),
				"account":   o.Account,
				"voucherId": o.VoucherID,
				"netAmount": o.NetAmount,
				"amount":    o.Amount,
				"count":     o.Count,
				"status":    string(o.Status),
				"error":     o.Error,
				"createdAt": o.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		writeJSON(w, http.StatusOK, payload.Object{"orders": items})
	})

	return &http.Server{
		Handler:           mux,
		Addr:              cfg.Observability.ADDR(),
		ReadTimeout:       cfg.Observability.ReadTimeout,
		WriteTimeout:      cfg.Observability.WriteTimeout,
		IdleTimeout:       cfg.Observability.IdleTimeout,
		ReadHeaderTimeout: cfg.Observability.ReadTimeout,
	}
}

func writeJSON(w http.ResponseWriter, status int, body payload.Object) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload.Encode(body))
}
