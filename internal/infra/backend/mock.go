package backend

import (
	"bytes"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/samber/lo"

	"kitsura-miniapp/internal/payload"
)

const mockBalanceKopeks = 150000

// MockTransport answers backend calls from in-memory fixtures. It backs dev
// mode, when the app is opened outside Telegram and there is no initData.
// Renewal endpoints reply 404 so callers exercise their purchase fallback.
type MockTransport struct {
	mu             sync.Mutex
	autopayEnabled bool
	autopayDays    int
	devices        []payload.Object
	promoUsed      map[string]bool
	servers        []string
	traffic        int64
	deviceLimit    int64
}

func NewMockTransport() *MockTransport {
	return &MockTransport{
		autopayEnabled: true,
		autopayDays:    3,
		devices: []payload.Object{
			{"hwid": "dev-1", "name": "iPhone 13", "platform": "ios", "last_seen": "2023-10-27T10:00:00Z"},
			{"hwid": "dev-2", "name": "Windows PC", "platform": "windows", "last_seen": "2023-10-26T15:30:00Z"},
		},
		promoUsed:   map[string]bool{},
		servers:     []string{"ru", "nl"},
		traffic:     100,
		deviceLimit: 2,
	}
}

type mockHandler func(m *MockTransport, req payload.Object) (int, payload.Object)

var mockRoutes = map[string]mockHandler{
	PathSubscription:    (*MockTransport).userData,
	PathPurchaseOptions: (*MockTransport).purchaseOptions,
	PathRenewalOptions:  notFound("Renewal options are not available"),
	PathPurchasePreview: (*MockTransport).preview,
	PathRenewalPreview:  notFound("Renewal preview is not available"),
	PathPurchase:        (*MockTransport).purchase,
	PathRenewal:         (*MockTransport).purchase,
	PathAutopay:         (*MockTransport).autopay,
	PathSettings:        (*MockTransport).settings,
	PathSettingsServers: (*MockTransport).updateServers,
	PathSettingsTraffic: (*MockTransport).updateTraffic,
	PathSettingsDevices: (*MockTransport).updateDevices,
	PathPromoActivate:   (*MockTransport).activatePromo,
	PathDevicesRemove:   (*MockTransport).removeDevice,
	PathReferralsList:   (*MockTransport).referrals,
}

// longest first so "/subscription/purchase/options" wins over "/subscription".
var mockPaths = func() []string {
	paths := lo.Keys(mockRoutes)
	sort.Slice(paths, func(i, j int) bool { return len(paths[i]) > len(paths[j]) })
	return paths
}()

func (m *MockTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(r.Body)
		_ = r.Body.Close()
		if err != nil {
			return nil, err
		}
	}
	req := payload.ParseObject(body)
	if req == nil {
		req = payload.Object{}
	}

	status, reply := http.StatusNotFound, payload.Object{"detail": "Not found"}
	for _, path := range mockPaths {
		if strings.HasSuffix(r.URL.Path, path) {
			m.mu.Lock()
			status, reply = mockRoutes[path](m, req)
			m.mu.Unlock()
			break
		}
	}

	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(payload.Encode(reply))),
		Request:    r,
	}, nil
}

func notFound(detail string) mockHandler {
	return func(*MockTransport, payload.Object) (int, payload.Object) {
		return http.StatusNotFound, payload.Object{"detail": detail}
	}
}

func (m *MockTransport) userData(payload.Object) (int, payload.Object) {
	return http.StatusOK, payload.Object{
		"user": payload.Object{
			"id":                         123456789,
			"username":                   "test_user",
			"first_name":                 "Test",
			"last_name":                  "User",
			"language_code":              "ru",
			"subscription_status":        "active",
			"subscription_actual_status": "active",
		},
		"subscription_id":          "sub-mock-1",
		"balance_kopeks":           mockBalanceKopeks,
		"balance_currency":         "RUB",
		"subscription_url":         "vless://uuid@1.2.3.4:443?security=reality&type=grpc#KitsuraVPN",
		"subscription_crypto_link": "https://example.com/crypto-config",
		"subscription_missing":     false,
		"expires_at":               "2030-01-01T00:00:00Z",
		"traffic_used_gb":          12.5,
		"traffic_limit_gb":         m.traffic,
		"connected_servers":        lo.ToAnySlice(m.servers),
		"connected_devices":        m.deviceList(),
		"autopay": payload.Object{
			"enabled":              m.autopayEnabled,
			"days_before":          m.autopayDays,
			"autopay_days_options": []int{1, 3, 7},
		},
		"trial_available":     false,
		"trial_duration_days": 3,
		"referral": payload.Object{
			"code":    "REF123",
			"link":    "https://t.me/bot?start=REF123",
			"percent": 10,
			"stats": payload.Object{
				"invited_count": 5,
				"earned_total":  50000,
				"earned_month":  15000,
				"balance":       20000,
			},
		},
		"happ": payload.Object{"link": "https://example.com/happ"},
	}
}

func (m *MockTransport) deviceList() []any {
	out := make([]any, 0, len(m.devices))
	for _, d := range m.devices {
		out = append(out, d)
	}
	return out
}

var mockPeriods = []payload.Object{
	{"id": 1, "months": 1, "price_kopeks": 13500, "final_price_kopeks": 13500, "discount_percent": 0, "label": "1 месяц"},
	{"id": 3, "months": 3, "price_kopeks": 38000, "final_price_kopeks": 38000, "discount_percent": 5, "label": "3 месяца"},
	{"id": 6, "months": 6, "price_kopeks": 74000, "final_price_kopeks": 74000, "discount_percent": 10, "label": "6 месяцев", "is_best": true},
	{"id": 12, "months": 12, "price_kopeks": 142000, "final_price_kopeks": 142000, "discount_percent": 15, "label": "1 год"},
}

var mockTrafficOptions = []payload.Object{
	{"value": 50, "price_kopeks": 0, "is_default": true},
	{"value": 100, "price_kopeks": 5000},
	{"value": 0, "price_kopeks": 15000},
}

var mockServerOptions = []payload.Object{
	{"uuid": "ru", "name": "Russia", "country_code": "RU", "price_kopeks": 0},
	{"uuid": "nl", "name": "Netherlands", "country_code": "NL", "price_kopeks": 0},
	{"uuid": "de", "name": "Germany", "country_code": "DE", "price_kopeks": 0},
	{"uuid": "us", "name": "USA", "country_code": "US", "price_kopeks": 0},
}

const (
	mockDevicesIncluded    = 2
	mockDevicePriceKopeks  = 5000
	mockDevicesMax         = 5
	mockServersMin         = 1
	mockServersMax         = 5
	mockDefaultTrafficTier = 50
)

func objects(list []payload.Object) []any {
	out := make([]any, 0, len(list))
	for _, o := range list {
		out = append(out, o)
	}
	return out
}

func (m *MockTransport) purchaseOptions(payload.Object) (int, payload.Object) {
	return http.StatusOK, payload.Object{
		"currency":       "RUB",
		"balance_kopeks": mockBalanceKopeks,
		"periods":        objects(mockPeriods),
		"traffic": payload.Object{
			"mode":    "selectable",
			"options": objects(mockTrafficOptions),
			"default": mockDefaultTrafficTier,
		},
		"servers": payload.Object{
			"available": objects(mockServerOptions),
			"min":       mockServersMin,
			"max":       mockServersMax,
		},
		"devices": payload.Object{
			"min":          1,
			"max":          mockDevicesMax,
			"included":     mockDevicesIncluded,
			"price_kopeks": mockDevicePriceKopeks,
		},
	}
}

func findByID(list []payload.Object, key string, id string) payload.Object {
	for _, o := range list {
		if payload.String(o.Get(key)) == id {
			return o
		}
	}
	return nil
}

func (m *MockTransport) preview(req payload.Object) (int, payload.Object) {
	sel := req.FirstObj("selection")
	if sel == nil {
		sel = req
	}

	period := findByID(mockPeriods, "id", sel.FirstString("period_id", "periodId"))
	if period == nil {
		return http.StatusBadRequest, payload.Object{"detail": "Unknown period"}
	}

	months := payload.PositiveIntOr(period.Get("months"), 1)
	total := payload.PositiveIntOr(period.Get("final_price_kopeks"), 0)
	original := payload.PositiveIntOr(period.Get("price_kopeks"), total)

	var addons int64
	if tier := findByID(mockTrafficOptions, "value", payload.String(sel.Coalesce("traffic_value", "traffic"))); tier != nil {
		addons += payload.PositiveIntOr(tier.Get("price_kopeks"), 0)
	}
	for _, id := range payload.AsList(sel.Get("servers")) {
		if server := findByID(mockServerOptions, "uuid", payload.String(id)); server != nil {
			addons += payload.PositiveIntOr(server.Get("price_kopeks"), 0)
		}
	}
	if devices := payload.PositiveIntOr(sel.Get("devices"), mockDevicesIncluded); devices > mockDevicesIncluded {
		addons += (devices - mockDevicesIncluded) * mockDevicePriceKopeks
	}
	total += addons * months
	original += addons * months

	missing := total - mockBalanceKopeks
	if missing < 0 {
		missing = 0
	}

	return http.StatusOK, payload.Object{
		"preview": payload.Object{
			"total_price_kopeks":     total,
			"original_price_kopeks":  original,
			"per_month_price_kopeks": total / months,
			"discount_percent":       period.Get("discount_percent"),
			"balance_kopeks":         mockBalanceKopeks,
			"missing_amount_kopeks":  missing,
			"can_purchase":           missing == 0,
			"breakdown": []any{
				payload.Object{"label": period.Get("label"), "value": period.Get("final_price_kopeks")},
			},
		},
	}
}

func (m *MockTransport) purchase(req payload.Object) (int, payload.Object) {
	sel := req.FirstObj("selection")
	if sel == nil || sel.FirstString("period_id", "periodId") == "" {
		return http.StatusBadRequest, payload.Object{"success": false, "message": "Period is required"}
	}
	return http.StatusOK, payload.Object{"success": true, "message": "Subscription purchased"}
}

func (m *MockTransport) autopay(req payload.Object) (int, payload.Object) {
	if enabled, ok := payload.BoolOpt(req.Get("enabled")); ok {
		m.autopayEnabled = enabled
	}
	if days, ok := payload.PositiveInt(req.Coalesce("days_before", "daysBefore")); ok && days > 0 {
		m.autopayDays = int(days)
	}
	return http.StatusOK, payload.Object{
		"success": true,
		"autopay": payload.Object{
			"enabled":              m.autopayEnabled,
			"days_before":          m.autopayDays,
			"autopay_days_options": []int{1, 3, 7},
		},
	}
}

func (m *MockTransport) settings(payload.Object) (int, payload.Object) {
	return http.StatusOK, payload.Object{
		"settings": payload.Object{
			"subscription_id": "sub-mock-1",
			"currency":        "RUB",
			"current": payload.Object{
				"servers":      lo.ToAnySlice(m.servers),
				"device_limit": m.deviceLimit,
			},
			"servers": payload.Object{
				"available": objects(mockServerOptions),
				"min":       mockServersMin,
				"max":       mockServersMax,
			},
			"traffic": payload.Object{
				"options":       objects(mockTrafficOptions),
				"current_value": m.traffic,
			},
			"devices": payload.Object{
				"current": m.deviceLimit,
				"min":     1,
				"max":     mockDevicesMax,
			},
		},
	}
}

func (m *MockTransport) updateServers(req payload.Object) (int, payload.Object) {
	servers := make([]string, 0)
	for _, v := range payload.AsList(req.Get("servers")) {
		if s := payload.String(v); s != "" {
			servers = append(servers, s)
		}
	}
	if len(servers) < mockServersMin {
		return http.StatusBadRequest, payload.Object{"detail": "Select at least one server"}
	}
	m.servers = servers
	return http.StatusOK, payload.Object{"success": true}
}

func (m *MockTransport) updateTraffic(req payload.Object) (int, payload.Object) {
	value, ok := payload.PositiveInt(req.Get("traffic"))
	if !ok {
		return http.StatusBadRequest, payload.Object{"detail": "Traffic value is required"}
	}
	m.traffic = value
	return http.StatusOK, payload.Object{"success": true}
}

func (m *MockTransport) updateDevices(req payload.Object) (int, payload.Object) {
	value, ok := payload.PositiveInt(req.Get("devices"))
	if !ok || value == 0 || value > mockDevicesMax {
		return http.StatusBadRequest, payload.Object{"detail": "Invalid device limit"}
	}
	m.deviceLimit = value
	return http.StatusOK, payload.Object{"success": true}
}

func (m *MockTransport) activatePromo(req payload.Object) (int, payload.Object) {
	code := strings.ToUpper(strings.TrimSpace(payload.String(req.Get("code"))))
	switch {
	case code == "":
		return http.StatusBadRequest, payload.Object{"detail": payload.Object{"message": "Promo code is required", "code": "empty_code"}}
	case m.promoUsed[code]:
		return http.StatusBadRequest, payload.Object{"detail": payload.Object{"message": "Promo code already used", "code": "already_used"}}
	}
	m.promoUsed[code] = true
	return http.StatusOK, payload.Object{"success": true, "message": "Promo code activated"}
}

func (m *MockTransport) removeDevice(req payload.Object) (int, payload.Object) {
	hwid := payload.String(req.Coalesce("hwid", "device_id"))
	before := len(m.devices)
	m.devices = lo.Filter(m.devices, func(d payload.Object, _ int) bool {
		return payload.String(d.Get("hwid")) != hwid
	})
	if len(m.devices) == before {
		return http.StatusNotFound, payload.Object{"success": false, "message": "Device not found"}
	}
	return http.StatusOK, payload.Object{"success": true}
}

func (m *MockTransport) referrals(payload.Object) (int, payload.Object) {
	return http.StatusOK, payload.Object{
		"referrals": []any{
			payload.Object{"id": 1001, "username": "friend_one", "joined_at": "2024-01-15T12:00:00Z", "earned_kopeks": 15000, "has_subscription": true},
			payload.Object{"id": 1002, "first_name": "Olga", "joined_at": "2024-02-01T09:30:00Z", "earned_kopeks": 0, "has_subscription": false},
		},
	}
}
