package purchase

import (
	"math"
	"strconv"
	"strings"

	"kitsura-miniapp/internal/localization"
	"kitsura-miniapp/internal/money"
	"kitsura-miniapp/internal/payload"
	"kitsura-miniapp/internal/stories/userdata"
)

// Context carries what normalizers may fall back on: the current user for
// currency and balance, and the localizer for generated labels.
type Context struct {
	User      *userdata.UserData
	Localizer Localizer
	Lang      string
}

func (c Context) text(key string, params map[string]interface{}) string {
	var l Localizer = c.Localizer
	if l == nil {
		l = localization.Default()
	}
	lang := c.Lang
	if lang == "" {
		lang = c.User.Language()
	}
	return l.Get(lang, key, params)
}

func (c Context) currency() string {
	if c.User == nil {
		return money.DefaultCurrency
	}
	return c.User.Currency()
}

// NormalizeOptions maps an options payload into Options, or nil when raw is
// not an object.
func NormalizeOptions(raw any, ctx Context) *Options {
	top := payload.AsObject(raw)
	if top == nil {
		return nil
	}
	root := top.FirstObj("data", "config")
	if root == nil {
		root = top
	}

	currency := money.NormalizeCurrency(firstNonEmpty(
		top.FirstString("currency"),
		root.FirstString("currency"),
		ctx.currency(),
	))

	balanceKopeks := payload.PositiveIntPtr(firstPresent(
		root.Coalesce("balance_kopeks", "balanceKopeks"),
		top.Coalesce("balance_kopeks", "balanceKopeks"),
	))
	if balanceKopeks == nil && ctx.User != nil {
		balanceKopeks = ctx.User.BalanceKopeks
	}
	balance := money.LabelOnly(firstNonEmpty(root.FirstString("balance_label"), top.FirstString("balance_label")))
	if balanceKopeks != nil {
		balance.Kopeks = balanceKopeks
		if balance.Label == "" {
			balance.Label = money.Format(*balanceKopeks, currency)
		}
	}

	baseTraffic := root.FirstObj("traffic", "traffic_options", "trafficOptions")
	baseServers := root.FirstObj("servers", "countries")
	baseDevices := root.FirstObj("devices", "device_options", "deviceOptions")

	rawPeriods := root.First("periods", "available_periods")
	if rawPeriods == nil {
		rawPeriods = root.Obj("options").Get("periods")
	}

	opts := &Options{
		Currency:         currency,
		Balance:          balance,
		Periods:          make([]Period, 0),
		Traffic:          normalizeTraffic(baseTraffic, currency, ctx),
		Servers:          normalizeServers(serversBase(baseServers), currency),
		Devices:          normalizeDevices(baseDevices, currency),
		DefaultSelection: root.FirstObj("selection", "defaultSelection", "defaults"),
		Summary:          firstObject(root.Obj("summary"), top.Obj("summary")),
		Promo:            root.First("promo", "discounts"),
		SubscriptionID: firstNonEmpty(
			root.FirstString("subscription_id", "subscriptionId"),
			top.FirstString("subscription_id", "subscriptionId"),
		),
		Raw: top,
	}

	for _, entry := range payload.AsList(rawPeriods) {
		obj := payload.AsObject(entry)
		if obj == nil {
			continue
		}
		period := normalizePeriod(obj, baseTraffic, baseServers, baseDevices, currency, ctx)
		if period.ID == "" {
			continue
		}
		opts.Periods = append(opts.Periods, period)
	}

	return opts
}

func normalizePeriod(obj, baseTraffic, baseServers, baseDevices payload.Object, currency string, ctx Context) Period {
	days := ResolvePeriodDays(obj)
	months := payload.IntPtr(obj.Coalesce("months", "period_months", "periodMonths", "period"))
	if months != nil && *months == 0 {
		months = nil
	}

	return Period{
		ID:     ResolvePeriodID(obj),
		Days:   days,
		Months: months,
		Label:  periodLabel(obj, months, days, ctx),
		Price: ResolvePrice(
			[]any{
				obj.Get("final_price_kopeks"), obj.Get("finalPriceKopeks"),
				obj.Get("total_price_kopeks"), obj.Get("totalPriceKopeks"),
				obj.Get("price_kopeks"), obj.Get("priceKopeks"),
				obj.Get("price"), obj.Get("cost_kopeks"), obj.Get("cost"),
			},
			[]any{
				obj.Get("final_price_label"), obj.Get("finalPriceLabel"),
				obj.Get("price_label"), obj.Get("priceLabel"),
			},
			currency,
		),
		OriginalPrice: ResolvePrice(
			[]any{
				obj.Get("original_price_kopeks"), obj.Get("originalPriceKopeks"),
				obj.Get("base_price_kopeks"), obj.Get("basePriceKopeks"),
			},
			[]any{obj.Get("original_price_label"), obj.Get("originalPriceLabel")},
			currency,
		),
		DiscountPercent: payload.IntPtr(obj.Coalesce("discount_percent", "discountPercent", "discount")),
		Best:            payload.Bool(obj.Coalesce("is_best", "isBest", "best_value", "bestValue", "is_popular", "isPopular", "recommended"), false),
		Description:     obj.FirstString("description", "subtitle"),
		Traffic: normalizeTraffic(
			mergeConfig(baseTraffic, obj.FirstObj("traffic", "traffic_options", "trafficOptions"), true),
			currency, ctx,
		),
		Servers: normalizeServers(
			mergeConfig(serversBase(baseServers), obj.FirstObj("servers", "countries"), true),
			currency,
		),
		Devices: normalizeDevices(
			mergeConfig(baseDevices, obj.FirstObj("devices", "device_options", "deviceOptions"), false),
			currency,
		),
		Raw: obj,
	}
}

// ResolvePeriodID applies id → period_id → periodId → code → key and falls
// back to "days:<N>". Empty when nothing identifies the period.
func ResolvePeriodID(period payload.Object) string {
	if period == nil {
		return ""
	}
	if v := period.Coalesce("id", "period_id", "periodId", "code", "key"); v != nil {
		return payload.String(v)
	}
	if days := ResolvePeriodDays(period); days != nil {
		return "days:" + strconv.Itoa(*days)
	}
	return ""
}

// ResolvePeriodDays reads the day fields first, then months times 30.
func ResolvePeriodDays(period payload.Object) *int {
	for _, field := range []string{"days", "period_days", "periodDays", "duration_days", "durationDays"} {
		if v := payload.IntPtr(period.Get(field)); v != nil {
			return v
		}
	}
	for _, field := range []string{"months", "period_months", "periodMonths", "period"} {
		if v := payload.IntPtr(period.Get(field)); v != nil && *v > 0 {
			days := *v * 30
			return &days
		}
	}
	return nil
}

func periodLabel(obj payload.Object, months, days *int, ctx Context) string {
	if s, ok := payload.NonBlank(obj.Get("label")); ok {
		return s
	}
	if s, ok := payload.NonBlank(obj.Get("title")); ok {
		return s
	}
	if months != nil {
		return ctx.text("period.months", map[string]interface{}{"months": *months})
	}
	if days != nil && *days > 0 {
		approx := int(math.Max(1, math.Round(float64(*days)/30)))
		return ctx.text("period.months", map[string]interface{}{"months": approx})
	}
	return ""
}

// ResolvePrice returns the first value source that coerces to a non-negative
// integer, labelled in currency. Otherwise the first non-blank label source
// is used with no numeric value.
func ResolvePrice(values, labels []any, currency string) money.Money {
	for _, v := range values {
		if kopeks, ok := payload.PositiveInt(v); ok {
			return money.FromKopeks(kopeks, currency)
		}
	}
	for _, l := range labels {
		if s, ok := payload.NonBlank(l); ok {
			return money.LabelOnly(s)
		}
	}
	return money.Money{}
}

// mergeConfig assigns override on top of base. A list under options or
// available in the override replaces the base list.
func mergeConfig(base, override payload.Object, withAvailable bool) payload.Object {
	if override == nil {
		return base
	}
	merged := payload.Merge(base, override)
	list := override.Get("options")
	if list == nil && withAvailable {
		list = override.Get("available")
	}
	if list != nil {
		merged["options"] = payload.AsList(list)
	}
	return merged
}

// The servers list may sit under options or available.
func serversBase(base payload.Object) payload.Object {
	if base == nil || base.Has("options") || !base.Has("available") {
		return base
	}
	out := payload.Merge(base, nil)
	out["options"] = payload.AsList(base.Get("available"))
	return out
}

func normalizeTraffic(cfg payload.Object, currency string, ctx Context) TrafficConfig {
	mode := strings.ToLower(cfg.FirstString("mode"))
	configDefault := payload.PositiveIntPtr(cfg.Get("default"))

	options := make([]TrafficOption, 0)
	for _, entry := range payload.AsList(cfg.First("options", "available")) {
		obj := payload.AsObject(entry)
		if obj == nil {
			if n, ok := payload.PositiveInt(entry); ok {
				options = append(options, TrafficOption{
					Value:     n,
					Label:     TrafficLabel(n, ctx),
					Available: true,
					Default:   configDefault != nil && *configDefault == n,
				})
			}
			continue
		}

		value, ok := trafficValue(obj.Coalesce("value", "traffic", "limit", "amount", "gigabytes", "gb", "id", "code"))
		if !ok {
			continue
		}
		label, hasLabel := payload.NonBlank(obj.Get("label"))
		if !hasLabel {
			label = TrafficLabel(value, ctx)
		}

		options = append(options, TrafficOption{
			Value: value,
			Label: label,
			Price: ResolvePrice(
				[]any{obj.Get("price_kopeks"), obj.Get("priceKopeks"), obj.Get("price")},
				[]any{obj.Get("price_label"), obj.Get("priceLabel")},
				currency,
			),
			Default: payload.Bool(obj.Coalesce("is_default", "isDefault", "default"), false) ||
				(configDefault != nil && *configDefault == value),
			Available: payload.Bool(obj.Coalesce("is_available", "available", "enabled"), true),
		})
	}

	cfgSelectable := payload.Bool(cfg.Get("selectable"), true)
	hasAvailable := false
	for _, o := range options {
		if o.Available {
			hasAvailable = true
			break
		}
	}

	return TrafficConfig{
		Mode:       mode,
		Selectable: cfgSelectable && mode != "fixed" && mode != "fixed_with_topup" && hasAvailable,
		Options:    options,
		Fixed:      payload.PositiveIntPtr(cfg.Coalesce("current", "default")),
		Hint:       cfg.FirstString("hint"),
	}
}

// trafficValue accepts signed numbers so that -1 style "unlimited" markers survive.
func trafficValue(v any) (int64, bool) {
	f, ok := payload.Float(v)
	if !ok {
		return 0, false
	}
	if _, isBool := v.(bool); isBool {
		return 0, false
	}
	return int64(f), true
}

// TrafficLabel renders a tier: "Unlimited" for zero or less, "<N> GB" otherwise.
func TrafficLabel(gb int64, ctx Context) string {
	if gb <= 0 {
		return ctx.text("traffic.unlimited", nil)
	}
	return ctx.text("traffic.limit", map[string]interface{}{"gb": gb})
}

func normalizeServers(cfg payload.Object, currency string) ServersConfig {
	options := make([]ServerOption, 0)
	for _, entry := range payload.AsList(cfg.Get("options")) {
		obj := payload.AsObject(entry)
		if obj == nil {
			if id, ok := payload.NonBlank(payload.String(entry)); ok {
				options = append(options, ServerOption{UUID: id, Name: id, Available: true})
			}
			continue
		}
		id := obj.FirstString("uuid", "id", "server_id", "serverId")
		if id == "" {
			continue
		}

		options = append(options, ServerOption{
			UUID: id,
			Name: firstNonEmpty(obj.FirstString("name", "title", "label", "location", "country"), id),
			Price: ResolvePrice(
				[]any{
					obj.Get("final_price_kopeks"), obj.Get("finalPriceKopeks"),
					obj.Get("total_price_kopeks"), obj.Get("totalPriceKopeks"),
					obj.Get("price_kopeks"), obj.Get("priceKopeks"),
					obj.Get("price"), obj.Get("cost_kopeks"), obj.Get("cost"),
				},
				[]any{obj.Get("price_label"), obj.Get("priceLabel")},
				currency,
			),
			OriginalPrice: ResolvePrice(
				[]any{
					obj.Get("original_price_kopeks"), obj.Get("originalPriceKopeks"),
					obj.Get("base_price_kopeks"), obj.Get("basePriceKopeks"),
				},
				[]any{obj.Get("original_price_label"), obj.Get("originalPriceLabel")},
				currency,
			),
			DiscountPercent: payload.IntPtr(obj.Coalesce("discount_percent", "discountPercent")),
			Available:       payload.Bool(obj.Coalesce("is_available", "available", "enabled", "selectable"), true),
			Description:     obj.FirstString("description"),
		})
	}

	return ServersConfig{
		Options:        options,
		Min:            int(payload.PositiveIntOr(cfg.Coalesce("min", "min_selectable", "minRequired"), 0)),
		Max:            int(payload.PositiveIntOr(cfg.Coalesce("max", "max_selectable", "maxAllowed"), 0)),
		SelectableFlag: payload.Bool(cfg.Get("selectable"), true),
		Defaults:       userdata.ServerIDs(cfg.First("selected", "default", "current", "preselected")),
		Hint:           cfg.FirstString("hint"),
	}
}

func normalizeDevices(cfg payload.Object, currency string) DevicesConfig {
	step := int(payload.PositiveIntOr(cfg.Get("step"), 1))
	if step == 0 {
		step = 1
	}
	return DevicesConfig{
		Min:      int(payload.PositiveIntOr(cfg.Coalesce("min", "minimum"), 0)),
		Max:      int(payload.PositiveIntOr(cfg.Coalesce("max", "maximum"), 0)),
		Step:     step,
		Current:  payload.IntPtr(cfg.Get("current")),
		Default:  payload.IntPtr(cfg.Get("default")),
		Included: payload.IntPtr(cfg.Get("included")),
		Base:     payload.IntPtr(cfg.Get("base")),
		Price: ResolvePrice(
			[]any{cfg.Get("price_kopeks"), cfg.Get("priceKopeks"), cfg.Get("price_per_device_kopeks")},
			[]any{cfg.Get("price_label"), cfg.Get("priceLabel")},
			currency,
		),
		Hint: cfg.FirstString("hint"),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPresent(values ...any) any {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func firstObject(objects ...payload.Object) payload.Object {
	for _, o := range objects {
		if o != nil {
			return o
		}
	}
	return nil
}
