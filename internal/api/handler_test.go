package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"kitsura-miniapp/internal/infra/sqlite3"
	"kitsura-miniapp/internal/infra/wata"
	"kitsura-miniapp/internal/payload"
	"kitsura-miniapp/internal/storage"
	"kitsura-miniapp/internal/stories/vendor"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestHandler(t *testing.T, steamToken, goodsToken string, upstream http.HandlerFunc, opts ...Option) http.Handler {
	t.Helper()

	db, err := sqlite3.New(context.Background())
	if err != nil {
		t.Fatalf("sqlite3.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	store := storage.New(db)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	baseURL := wata.DefaultBaseURL
	if upstream != nil {
		srv := httptest.NewServer(upstream)
		t.Cleanup(srv.Close)
		baseURL = srv.URL
	}

	svc := vendor.NewService(
		wata.NewClient(steamToken, wata.WithBaseURL(baseURL), wata.WithLogger(discard)),
		wata.NewClient(goodsToken, wata.WithBaseURL(baseURL), wata.WithLogger(discard)),
		store,
		discard,
	)
	return NewHandler(svc, discard, opts...).Routes()
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, payload.Object) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, payload.ParseObject(rec.Body.Bytes())
}

func TestSteamCreateMockCountsTopups(t *testing.T) {
	h := newTestHandler(t, "", "", nil)

	rec, body := do(t, h, http.MethodPost, "/api/steam/create", `{"accountName":"gaben","amount":500}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if body.Get("mock") != true || body.Get("paymentLink") != "https://example.com/mock-payment" {
		t.Errorf("body = %s", rec.Body)
	}
	if body.Get("message") != "API Token not configured. This is a mock response." {
		t.Errorf("message = %v", body.Get("message"))
	}

	rec, body = do(t, h, http.MethodGet, "/api/stats", "")
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("Cache-Control = %q", rec.Header().Get("Cache-Control"))
	}
	if n, _ := payload.PositiveInt(body.Get("steamTopups")); n != vendor.DefaultSteamTopups+1 {
		t.Errorf("steamTopups = %v", body.Get("steamTopups"))
	}
}

func TestSteamCreateValidation(t *testing.T) {
	h := newTestHandler(t, "", "", nil)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{name: "missing amount", body: `{"accountName":"gaben"}`, wantStatus: http.StatusBadRequest, wantError: "Missing required fields"},
		{name: "empty account", body: `{"accountName":"","amount":1}`, wantStatus: http.StatusBadRequest, wantError: "Missing required fields"},
		{name: "not json", body: `accountName=gaben`, wantStatus: http.StatusBadRequest, wantError: "Invalid JSON body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := do(t, h, http.MethodPost, "/api/steam/create", tt.body)
			if rec.Code != tt.wantStatus || body.Get("error") != tt.wantError {
				t.Errorf("got %d %s, want %d %q", rec.Code, rec.Body, tt.wantStatus, tt.wantError)
			}
		})
	}
}

func TestSteamCreateForwardsOrder(t *testing.T) {
	var created payload.Object
	upstream := func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/steam/amount":
			_, _ = io.WriteString(w, `{"minPrice": 612}`)
		case "/api/v2/steam":
			raw, _ := io.ReadAll(r.Body)
			created = payload.ParseObject(raw)
			_, _ = io.WriteString(w, `{"paymentLink":"https://pay.wata/1"}`)
		default:
			http.NotFound(w, r)
		}
	}
	h := newTestHandler(t, "steam-token", "", upstream)

	req := httptest.NewRequest(http.MethodPost, "/api/steam/create", strings.NewReader(`{"accountName":"gaben","amount":"500"}`))
	req.Host = "kitsura.fun"
	req.Header.Set("X-Forwarded-Proto", "https")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "https://pay.wata/1") {
		t.Fatalf("response = %d %s", rec.Code, rec.Body)
	}
	if created.Get("successRedirectUrl") != "https://kitsura.fun/success" {
		t.Errorf("successRedirectUrl = %v", created.Get("successRedirectUrl"))
	}
	if n, _ := payload.PositiveInt(created.Get("amount")); n != 612 {
		t.Errorf("amount = %v", created.Get("amount"))
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID should be set")
	}
}

func TestVouchersList(t *testing.T) {
	upstream := func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("serviceId") == "denied" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = io.WriteString(w, `[{"id":1,"name":"Netflix 30 days"}]`)
	}

	t.Run("no token", func(t *testing.T) {
		rec, body := do(t, newTestHandler(t, "", "", upstream), http.MethodGet, "/api/vouchers/list?serviceId=5", "")
		if rec.Code != http.StatusInternalServerError || body.Get("error") != "WATA_DIGITAL_GOODS_TOKEN is not set" {
			t.Errorf("got %d %s", rec.Code, rec.Body)
		}
	})

	h := newTestHandler(t, "", "goods-token", upstream)

	t.Run("missing service id", func(t *testing.T) {
		rec, body := do(t, h, http.MethodGet, "/api/vouchers/list", "")
		if rec.Code != http.StatusBadRequest || body.Get("error") != "Missing serviceId" {
			t.Errorf("got %d %s", rec.Code, rec.Body)
		}
	})

	t.Run("upstream status", func(t *testing.T) {
		rec, body := do(t, h, http.MethodGet, "/api/vouchers/list?serviceId=denied", "")
		if rec.Code != http.StatusForbidden || body.Get("error") != "Failed to fetch vouchers" {
			t.Errorf("got %d %s", rec.Code, rec.Body)
		}
	})

	t.Run("ok", func(t *testing.T) {
		rec, _ := do(t, h, http.MethodGet, "/api/vouchers/list?serviceId=5", "")
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Netflix 30 days") {
			t.Errorf("got %d %s", rec.Code, rec.Body)
		}
	})
}

func TestVoucherCreate(t *testing.T) {
	var created payload.Object
	upstream := func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		created = payload.ParseObject(raw)
		_, _ = io.WriteString(w, `{"paymentLink":"https://pay.wata/2"}`)
	}
	h := newTestHandler(t, "", "goods-token", upstream, WithPublicOrigin("https://kitsura.fun/"))

	rec, body := do(t, h, http.MethodPost, "/api/vouchers/create", `{"voucherId":9,"amount":100,"count":1}`)
	if rec.Code != http.StatusBadRequest || body.Get("error") != "Missing required fields" {
		t.Errorf("missing email: got %d %s", rec.Code, rec.Body)
	}

	rec, _ = do(t, h, http.MethodPost, "/api/vouchers/create", `{"voucherId":9,"amount":100,"count":1,"email":"a@b.c"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d %s", rec.Code, rec.Body)
	}
	if created.Get("description") != "Voucher purchase 9" || created.Get("failRedirectUrl") != "https://kitsura.fun/fail" {
		t.Errorf("forwarded = %#v", created)
	}
	if id := payload.String(created.Get("orderId")); len(id) != 36 {
		t.Errorf("orderId = %q, want a uuid", id)
	}
}

func TestSteamStatusAndUnknownMethods(t *testing.T) {
	h := newTestHandler(t, "", "", nil)

	rec, body := do(t, h, http.MethodGet, "/api/steam/create", "")
	if rec.Code != http.StatusOK || body.Get("message") != "Steam Topup API is running. Use POST to create an order." {
		t.Errorf("got %d %s", rec.Code, rec.Body)
	}

	rec, _ = do(t, h, http.MethodDelete, "/api/stats", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE /api/stats = %d", rec.Code)
	}
}
