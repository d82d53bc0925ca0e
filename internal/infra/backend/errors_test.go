package backend

import (
	"testing"

	"kitsura-miniapp/internal/payload"
)

func TestExtractError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     any
		fallback *Fallback
		want     Error
	}{
		{
			name:   "string detail",
			status: 400,
			body:   payload.Object{"detail": "Promo code expired"},
			want:   Error{Status: 400, Title: DefaultTitle, Message: "Promo code expired"},
		},
		{
			name:   "object detail fields are independent",
			status: 404,
			body: payload.Object{"detail": payload.Object{
				"title":        "Subscription Not Found",
				"code":         "no_subscription",
				"purchase_url": "kitsura.fun/buy",
			}},
			fallback: &Fallback{Title: "Subscription Not Found", Message: "Subscription not found"},
			want: Error{
				Status:      404,
				Title:       "Subscription Not Found",
				Message:     "Subscription not found",
				Code:        "no_subscription",
				PurchaseURL: "https://kitsura.fun/buy",
			},
		},
		{
			name:   "object detail without message uses top level message",
			status: 402,
			body: payload.Object{
				"detail":  payload.Object{"code": "insufficient_funds"},
				"message": "Balance too low",
			},
			want: Error{Status: 402, Title: DefaultTitle, Message: "Balance too low", Code: "insufficient_funds"},
		},
		{
			name:   "top level message and code",
			status: 500,
			body:   payload.Object{"message": "boom", "code": "internal", "purchaseUrl": "tg://resolve?domain=bot"},
			want:   Error{Status: 500, Title: DefaultTitle, Message: "boom", Code: "internal", PurchaseURL: "tg://resolve?domain=bot"},
		},
		{
			name:     "401 ignores fallback",
			status:   401,
			body:     nil,
			fallback: &Fallback{Title: "x", Message: "y"},
			want:     Error{Status: 401, Title: UnauthorizedTitle, Message: UnauthorizedMessage},
		},
		{
			name:   "non object body",
			status: 503,
			body:   []any{"x"},
			want:   Error{Status: 503, Title: DefaultTitle, Message: "Request failed (status 503)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractError(tt.status, tt.body, tt.fallback)
			if *got != tt.want {
				t.Errorf("ExtractError() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := map[string]string{
		"":                   "",
		"   ":                "",
		"example.com/pay":    "https://example.com/pay",
		" HTTP://x.io ":      "HTTP://x.io",
		"happ://add/abc":     "happ://add/abc",
		"ton://transfer/abc": "ton://transfer/abc",
	}
	for in, want := range tests {
		if got := NormalizeURL(in); got != want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", in, got, want)
		}
	}
}
