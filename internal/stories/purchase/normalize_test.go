package purchase

import (
	"testing"

	"kitsura-miniapp/internal/payload"
	"kitsura-miniapp/internal/stories/userdata"
)

func TestResolvePrice(t *testing.T) {
	tests := []struct {
		name      string
		values    []any
		labels    []any
		wantKnown bool
		wantValue int64
		wantLabel string
	}{
		{
			name:      "first coercible value wins",
			values:    []any{nil, "abc", 1000, 500},
			labels:    []any{"ignored"},
			wantKnown: true,
			wantValue: 1000,
			wantLabel: "10\u00a0₽",
		},
		{
			name:      "negative values are skipped",
			values:    []any{-5, payload.Number("200")},
			wantKnown: true,
			wantValue: 200,
			wantLabel: "2\u00a0₽",
		},
		{
			name:      "label only",
			values:    []any{nil, true},
			labels:    []any{"", "  ", "$10"},
			wantLabel: "$10",
		},
		{
			name: "nothing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolvePrice(tt.values, tt.labels, "RUB")
			if got.Known() != tt.wantKnown || got.Value() != tt.wantValue || got.Label != tt.wantLabel {
				t.Errorf("ResolvePrice() = %v/%d/%q, want %v/%d/%q",
					got.Known(), got.Value(), got.Label, tt.wantKnown, tt.wantValue, tt.wantLabel)
			}
		})
	}
}

func TestResolvePeriodID(t *testing.T) {
	tests := []struct {
		name   string
		period payload.Object
		want   string
	}{
		{name: "id", period: payload.Object{"id": 3, "code": "q"}, want: "3"},
		{name: "period_id before code", period: payload.Object{"period_id": "m1", "code": "q"}, want: "m1"},
		{name: "key", period: payload.Object{"key": "year"}, want: "year"},
		{name: "days fallback", period: payload.Object{"days": 30}, want: "days:30"},
		{name: "months fallback", period: payload.Object{"months": 2}, want: "days:60"},
		{name: "nothing", period: payload.Object{"label": "x"}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolvePeriodID(tt.period); got != tt.want {
				t.Errorf("ResolvePeriodID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeOptions(t *testing.T) {
	user := &userdata.UserData{BalanceCurrency: "USD"}
	raw := payload.Object{
		"data": payload.Object{
			"balance_kopeks": 5000,
			"periods": []any{
				payload.Object{"id": "m1", "months": 1, "final_price_kopeks": 1000, "price_kopeks": 2000, "is_best": true},
				payload.Object{
					"id":      "m3",
					"days":    90,
					"price":   2500,
					"traffic": payload.Object{"mode": "fixed", "current": 200},
					"servers": payload.Object{"options": []any{payload.Object{"uuid": "de", "name": "Germany"}}},
				},
				payload.Object{
					"id":      "m6",
					"months":  6,
					"price":   4500,
					"traffic": payload.Object{"mode": "fixed_with_topup", "default": 150},
				},
				payload.Object{"label": "broken"},
			},
			"traffic": payload.Object{
				"options": []any{
					payload.Object{"value": 50, "price_kopeks": 0},
					payload.Object{"value": 0, "price_kopeks": 300},
				},
				"default": 50,
			},
			"servers": payload.Object{
				"available": []any{
					payload.Object{"uuid": "nl", "title": "Netherlands"},
					payload.Object{"id": "fi", "is_available": false},
				},
				"min": 1,
			},
			"devices": payload.Object{"min": 1, "max": 5, "included": 2},
		},
	}

	opts := NormalizeOptions(raw, Context{User: user, Lang: "en"})
	if opts == nil {
		t.Fatal("NormalizeOptions returned nil")
	}

	if opts.Currency != "USD" {
		t.Errorf("Currency = %q, want USD", opts.Currency)
	}
	if opts.Balance.Value() != 5000 {
		t.Errorf("Balance = %d, want 5000", opts.Balance.Value())
	}
	if len(opts.Periods) != 3 {
		t.Fatalf("got %d periods, want 3", len(opts.Periods))
	}

	m1 := opts.Period("m1")
	if m1.Price.Value() != 1000 || m1.OriginalPrice.Value() != 2000 || !m1.Best {
		t.Errorf("m1 = %+v", m1)
	}
	if m1.Label != "1 months" || *m1.Days != 30 {
		t.Errorf("m1 label/days = %q/%d", m1.Label, *m1.Days)
	}
	if !m1.Traffic.Selectable || len(m1.Traffic.Options) != 2 {
		t.Errorf("m1 traffic = %+v", m1.Traffic)
	}
	if m1.Traffic.Options[0].Label != "50 GB" || !m1.Traffic.Options[0].Default {
		t.Errorf("first tier = %+v", m1.Traffic.Options[0])
	}
	if m1.Traffic.Options[1].Label != "Unlimited" {
		t.Errorf("unlimited tier label = %q", m1.Traffic.Options[1].Label)
	}
	if ids := m1.Servers.AvailableIDs(); len(ids) != 1 || ids[0] != "nl" {
		t.Errorf("m1 available servers = %v", ids)
	}
	if m1.Servers.Option("nl").Name != "Netherlands" {
		t.Errorf("server name = %q", m1.Servers.Option("nl").Name)
	}

	m3 := opts.Period("m3")
	if m3.Label != "3 months" {
		t.Errorf("m3 label = %q", m3.Label)
	}
	if m3.Traffic.Selectable || m3.Traffic.Fixed == nil || *m3.Traffic.Fixed != 200 {
		t.Errorf("m3 traffic should be fixed at 200: %+v", m3.Traffic)
	}
	if ids := m3.Servers.AvailableIDs(); len(ids) != 1 || ids[0] != "de" {
		t.Errorf("m3 override servers = %v", ids)
	}

	m6 := opts.Period("m6")
	if m6.Traffic.Selectable || m6.Traffic.Fixed == nil || *m6.Traffic.Fixed != 150 {
		t.Errorf("m6 topup traffic should be fixed at 150: %+v", m6.Traffic)
	}
	if m3.Servers.Min != 1 {
		t.Errorf("m3 should inherit base min, got %d", m3.Servers.Min)
	}
	if m3.Devices.Max != 5 || *m3.Devices.Included != 2 {
		t.Errorf("m3 devices = %+v", m3.Devices)
	}
}

func TestNormalizeTrafficModes(t *testing.T) {
	options := []any{
		payload.Object{"value": 50},
		payload.Object{"value": 100},
	}
	tests := []struct {
		name           string
		cfg            payload.Object
		wantSelectable bool
		wantFixed      *int64
	}{
		{
			name:           "selectable",
			cfg:            payload.Object{"mode": "selectable", "options": options},
			wantSelectable: true,
		},
		{
			name:      "fixed uses current",
			cfg:       payload.Object{"mode": "fixed", "options": options, "current": 200, "default": 50},
			wantFixed: int64Ptr(200),
		},
		{
			name:      "fixed with topup uses current",
			cfg:       payload.Object{"mode": "fixed_with_topup", "options": options, "current": 300},
			wantFixed: int64Ptr(300),
		},
		{
			name:      "fixed with topup falls back to default",
			cfg:       payload.Object{"mode": "fixed_with_topup", "options": options, "default": 150},
			wantFixed: int64Ptr(150),
		},
		{
			name: "selectable flag off",
			cfg:  payload.Object{"selectable": false, "options": options},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeTraffic(tt.cfg, "RUB", Context{Lang: "en"})
			if got.Selectable != tt.wantSelectable {
				t.Errorf("Selectable = %v, want %v", got.Selectable, tt.wantSelectable)
			}
			if deref(got.Fixed) != deref(tt.wantFixed) {
				t.Errorf("Fixed = %v, want %v", deref(got.Fixed), deref(tt.wantFixed))
			}
		})
	}
}

func TestNormalizeOptionsRejectsNonObjects(t *testing.T) {
	for _, raw := range []any{nil, "html", []any{1}} {
		if got := NormalizeOptions(raw, Context{}); got != nil {
			t.Errorf("NormalizeOptions(%#v) = %+v, want nil", raw, got)
		}
	}
}

func TestNormalizePreview(t *testing.T) {
	tests := []struct {
		name            string
		raw             payload.Object
		wantTotal       int64
		wantCanPurchase bool
		wantMissing     string
	}{
		{
			name: "nested preview without can_purchase",
			raw: payload.Object{"preview": payload.Object{
				"total_price_kopeks":    38000,
				"missing_amount_kopeks": 0,
			}},
			wantTotal:       38000,
			wantCanPurchase: true,
			wantMissing:     "0\u00a0₽",
		},
		{
			name: "missing amount blocks purchase",
			raw: payload.Object{"data": payload.Object{
				"finalPriceKopeks":    10000,
				"balanceNeededKopeks": 2500,
			}},
			wantTotal:       10000,
			wantCanPurchase: false,
			wantMissing:     "25\u00a0₽",
		},
		{
			name: "explicit flag wins",
			raw: payload.Object{
				"amount_kopeks":         500,
				"missing_amount_kopeks": 100,
				"can_purchase":          true,
			},
			wantTotal:       500,
			wantCanPurchase: true,
			wantMissing:     "1\u00a0₽",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NormalizePreview(tt.raw, nil, Context{})
			if p == nil {
				t.Fatal("NormalizePreview returned nil")
			}
			if p.Total.Value() != tt.wantTotal {
				t.Errorf("Total = %d, want %d", p.Total.Value(), tt.wantTotal)
			}
			if p.CanPurchase != tt.wantCanPurchase {
				t.Errorf("CanPurchase = %v, want %v", p.CanPurchase, tt.wantCanPurchase)
			}
			if p.Missing.Label != tt.wantMissing {
				t.Errorf("Missing = %q, want %q", p.Missing.Label, tt.wantMissing)
			}
		})
	}
}

func TestNormalizePreviewBreakdown(t *testing.T) {
	p := NormalizePreview(payload.Object{
		"breakdown": []any{
			payload.Object{"label": "Period", "value": 1000, "highlight": true},
			payload.Object{"title": "Traffic", "value_label": "+50 ₽"},
			payload.Object{},
			nil,
		},
		"discount_lines": []any{"Promo -10%", payload.Object{"label": "Loyalty"}, payload.Object{}},
		"status_message": "ok",
	}, nil, Context{})

	if len(p.Breakdown) != 2 {
		t.Fatalf("breakdown = %+v", p.Breakdown)
	}
	if p.Breakdown[0].Value != "1000" || !p.Breakdown[0].Highlight {
		t.Errorf("first line = %+v", p.Breakdown[0])
	}
	if p.Breakdown[1].Label != "Traffic" || p.Breakdown[1].Value != "+50 ₽" {
		t.Errorf("second line = %+v", p.Breakdown[1])
	}
	if len(p.DiscountLines) != 2 || p.DiscountLines[1] != "Loyalty" {
		t.Errorf("discount lines = %v", p.DiscountLines)
	}
	if p.StatusMessage != "ok" {
		t.Errorf("StatusMessage = %q", p.StatusMessage)
	}
}
