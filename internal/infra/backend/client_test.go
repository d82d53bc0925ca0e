package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"kitsura-miniapp/internal/payload"
	"kitsura-miniapp/internal/session"
)

func TestClientPostSendsInitData(t *testing.T) {
	var got payload.Object
	var requestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/miniapp/subscription" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		got = payload.ParseObject(body)
		requestID = r.Header.Get("X-Request-ID")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	metrics, err := NewMetrics(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	c := NewClient(session.Static("user=1"), WithBaseURL(srv.URL+"/miniapp/"), WithMetrics(metrics), WithRateLimit(100, 1))
	resp, err := c.Post(context.Background(), PathSubscription, payload.Object{"code": "X"})
	if err != nil {
		t.Fatalf("Post: %v", err)
	}

	if got.Get("initData") != "user=1" || got.Get("code") != "X" {
		t.Errorf("request body = %#v", got)
	}
	if requestID == "" {
		t.Error("missing X-Request-ID header")
	}
	if !resp.OK() || resp.Object().Get("ok") != true {
		t.Errorf("response = %+v", resp)
	}
}

func TestClientCallErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "html body degrades to status message",
			status:      http.StatusBadGateway,
			body:        "<html>bad gateway</html>",
			wantStatus:  http.StatusBadGateway,
			wantMessage: "Request failed (status 502)",
		},
		{
			name:        "success false on 200",
			status:      http.StatusOK,
			body:        `{"success":false,"message":"Not enough balance"}`,
			wantStatus:  http.StatusOK,
			wantMessage: "Not enough balance",
		},
		{
			name:        "unauthorized without body",
			status:      http.StatusUnauthorized,
			body:        "",
			wantStatus:  http.StatusUnauthorized,
			wantMessage: UnauthorizedMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(session.Static("x"), WithBaseURL(srv.URL))
			_, err := c.Call(context.Background(), PathPurchase, nil)

			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("Call() error = %v, want *Error", err)
			}
			if apiErr.Status != tt.wantStatus || apiErr.Message != tt.wantMessage {
				t.Errorf("Call() error = %+v", apiErr)
			}
		})
	}
}

func TestClientWithMockTransport(t *testing.T) {
	c := NewClient(session.Static(""), WithBaseURL("http://mock/miniapp"), WithTransport(NewMockTransport()))

	resp, err := c.Call(context.Background(), PathPurchaseOptions, nil)
	if err != nil {
		t.Fatalf("purchase options: %v", err)
	}
	if len(payload.AsList(resp.Object().Get("periods"))) != 4 {
		t.Errorf("expected 4 mock periods, got %#v", resp.Object().Get("periods"))
	}

	_, err = c.Call(context.Background(), PathRenewalOptions, nil)
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Errorf("renewal options error = %v, want 404 *Error", err)
	}

	resp, err = c.Call(context.Background(), PathPurchasePreview, payload.Object{
		"selection": payload.Object{"period_id": "3", "traffic_value": 100, "devices": 3},
	})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	total, _ := payload.PositiveInt(resp.Object().Obj("preview").Get("total_price_kopeks"))
	// 38000 + (5000 traffic + 5000 extra device) * 3 months
	if total != 68000 {
		t.Errorf("mock preview total = %d, want 68000", total)
	}
}
