package api

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"kitsura-miniapp/internal/payload"
	"kitsura-miniapp/internal/stories/vendor"
)

const maxRequestBody = 64 << 10

// Handler serves the vendor proxy endpoints.
type Handler struct {
	vendor       VendorService
	logger       *slog.Logger
	publicOrigin string
}

type Option func(*Handler)

// WithPublicOrigin fixes the origin used for payment redirects instead of
// deriving it from the request.
func WithPublicOrigin(origin string) Option {
	return func(h *Handler) {
		h.publicOrigin = strings.TrimRight(origin, "/")
	}
}

func NewHandler(v VendorService, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{vendor: v, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/steam/create", h.steamStatus)
	mux.HandleFunc("POST /api/steam/create", h.createSteamTopup)
	mux.HandleFunc("GET /api/vouchers/list", h.listVouchers)
	mux.HandleFunc("POST /api/vouchers/create", h.createVoucherOrder)
	mux.HandleFunc("GET /api/stats", h.stats)
	return h.logRequests(mux)
}

func (h *Handler) steamStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, payload.Object{
		"message": "Steam Topup API is running. Use POST to create an order.",
	})
}

func (h *Handler) createSteamTopup(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readObject(w, r)
	if !ok {
		return
	}

	res, err := h.vendor.CreateSteamTopup(r.Context(), vendor.SteamRequest{
		AccountName: body.Get("accountName"),
		Amount:      body.Get("amount"),
	}, h.origin(r))
	h.respond(w, r, res, err)
}

func (h *Handler) listVouchers(w http.ResponseWriter, r *http.Request) {
	res, err := h.vendor.ListVouchers(r.Context(), r.URL.Query().Get("serviceId"))
	h.respond(w, r, res, err)
}

func (h *Handler) createVoucherOrder(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readObject(w, r)
	if !ok {
		return
	}

	res, err := h.vendor.CreateVoucherOrder(r.Context(), vendor.VoucherRequest{
		VoucherID:   body.Get("voucherId"),
		Amount:      body.Get("amount"),
		Count:       body.Get("count"),
		Email:       body.Get("email"),
		Description: body.Get("description"),
	}, h.origin(r))
	h.respond(w, r, res, err)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	stats := h.vendor.Stats(r.Context())
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, payload.Object{"steamTopups": stats.SteamTopups})
}

func (h *Handler) readObject(w http.ResponseWriter, r *http.Request) (payload.Object, bool) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body")
		return nil, false
	}
	parsed, err := payload.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return nil, false
	}
	obj := payload.AsObject(parsed)
	if obj == nil {
		obj = payload.Object{}
	}
	return obj, true
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, res any, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, res)
		return
	}

	var vErr *vendor.Error
	if errors.As(err, &vErr) {
		writeError(w, vErr.Status, vErr.Message)
		return
	}
	h.logger.Error("Vendor proxy failed", "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "Internal Server Error")
}

// origin is scheme://host of the public site, honouring X-Forwarded-Proto.
func (h *Handler) origin(r *http.Request) string {
	if h.publicOrigin != "" {
		return h.publicOrigin
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	return scheme + "://" + r.Host
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		h.logger.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"request_id", requestID)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload.Encode(body))
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, payload.Object{"error": message})
}
