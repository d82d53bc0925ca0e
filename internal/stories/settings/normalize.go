package settings

import (
	"sort"
	"strconv"

	"github.com/samber/lo"

	"kitsura-miniapp/internal/money"
	"kitsura-miniapp/internal/payload"
	"kitsura-miniapp/internal/stories/purchase"
	"kitsura-miniapp/internal/stories/userdata"
)

// Normalize maps a /subscription/settings payload. It returns nil when raw
// is not an object.
func Normalize(raw any, ctx purchase.Context) *Settings {
	top := payload.AsObject(raw)
	if top == nil {
		return nil
	}
	root := top.FirstObj("settings", "data")
	if root == nil {
		root = top
	}

	current := firstObj(root, "current", "subscription")
	serversInfo := firstObj(root, "servers", "countries")
	trafficInfo := firstObj(root, "traffic", "traffic_options", "trafficOptions")
	devicesInfo := firstObj(root, "devices", "device_options", "deviceOptions")

	currency := money.NormalizeCurrency(firstNonEmpty(
		root.FirstString("currency"),
		top.FirstString("currency"),
		ctx.User.Currency(),
	))

	var connected []string
	if v := firstPresent(
		current.First("servers", "connected_servers"),
		root.First("current_servers", "connected_servers"),
	); v != nil {
		connected = userdata.ServerIDs(v)
	} else if ctx.User != nil {
		connected = append(connected, ctx.User.ConnectedServers...)
	}
	sort.Strings(connected)

	trafficCurrent := trafficValue(trafficInfo.Coalesce("current_value", "currentValue", "current", "value"))

	s := &Settings{
		SubscriptionID: firstNonEmpty(
			root.FirstString("subscription_id", "subscriptionId"),
			top.FirstString("subscription_id", "subscriptionId"),
		),
		Currency: currency,
		Current: Current{
			Servers:      connected,
			TrafficLabel: current.FirstString("traffic_label", "trafficLabel"),
			DeviceLimit: payload.PositiveIntOr(
				firstPresent(current.Coalesce("device_limit", "deviceLimit"), devicesInfo.Get("current")), 0,
			),
		},
		Servers: Servers{
			Available: normalizeServers(
				firstPresent(
					serversInfo.First("available", "options"),
					root.First("available_servers", "available_squads"),
				),
				connected, currency,
			),
			Min:       payload.PositiveIntOr(serversInfo.Coalesce("min", "min_selectable"), 0),
			Max:       payload.PositiveIntOr(serversInfo.Coalesce("max", "max_selectable"), 0),
			CanUpdate: payload.Bool(serversInfo.Coalesce("can_update", "canUpdate"), true),
			Hint:      serversInfo.FirstString("hint"),
		},
		Traffic: Traffic{
			Options: normalizeTraffic(
				firstPresent(trafficInfo.First("options"), root.First("available_traffic", "traffic_options")),
				trafficCurrent, currency, ctx,
			),
			Current:   trafficCurrent,
			CanUpdate: payload.Bool(trafficInfo.Coalesce("can_update", "canUpdate"), true),
			Hint:      trafficInfo.FirstString("hint"),
		},
		Devices: Devices{
			Options: normalizeDevices(
				firstPresent(devicesInfo.First("options"), root.First("available_devices", "device_options")),
				payload.PositiveIntPtr(devicesInfo.Get("current")), currency,
			),
			Current:   payload.PositiveIntOr(devicesInfo.Coalesce("current", "current_value", "value"), 0),
			Min:       payload.PositiveIntOr(devicesInfo.Coalesce("min", "min_selectable"), 0),
			Max:       payload.PositiveIntOr(devicesInfo.Coalesce("max", "max_selectable"), 0),
			Step:      payload.PositiveIntOr(devicesInfo.Get("step"), 1),
			CanUpdate: payload.Bool(devicesInfo.Coalesce("can_update", "canUpdate"), true),
			Price: purchase.ResolvePrice(
				[]any{devicesInfo.Get("price_kopeks"), devicesInfo.Get("priceKopeks")},
				nil, currency,
			),
			Hint: devicesInfo.FirstString("hint"),
		},
		Raw: top,
	}

	if s.Current.TrafficLabel == "" && trafficCurrent != nil {
		s.Current.TrafficLabel = purchase.TrafficLabel(*trafficCurrent, ctx)
	}

	return s
}

func normalizeServers(v any, connected []string, currency string) []ServerOption {
	out := make([]ServerOption, 0)
	for _, entry := range payload.AsList(v) {
		obj := payload.AsObject(entry)
		if obj == nil {
			continue
		}
		id := obj.FirstString("uuid", "id", "server_id", "serverId")
		if id == "" {
			continue
		}
		out = append(out, ServerOption{
			UUID: id,
			Name: firstNonEmpty(obj.FirstString("name", "title", "label", "location", "country"), id),
			Price: purchase.ResolvePrice(
				[]any{obj.Coalesce("price_kopeks", "priceKopeks", "price", "cost")},
				[]any{obj.Get("price_label"), obj.Get("priceLabel")},
				currency,
			),
			DiscountPercent: payload.IntPtr(obj.Coalesce("discount_percent", "discountPercent", "discount")),
			Connected:       payload.Bool(obj.Coalesce("is_connected", "connected", "isSelected", "selected"), lo.Contains(connected, id)),
			Available:       payload.Bool(obj.Coalesce("is_available", "available", "enabled", "selectable"), true),
			DisabledReason:  obj.FirstString("disabled_reason", "reason"),
		})
	}
	return out
}

func normalizeTraffic(v any, current *int64, currency string, ctx purchase.Context) []TrafficOption {
	out := make([]TrafficOption, 0)
	for _, entry := range payload.AsList(v) {
		obj := payload.AsObject(entry)
		if obj == nil {
			continue
		}
		value := trafficValue(obj.Coalesce("value", "gb", "limit", "traffic_gb", "trafficGb"))
		if value == nil {
			continue
		}
		label := obj.FirstString("label", "title")
		if label == "" {
			label = purchase.TrafficLabel(*value, ctx)
		}

		out = append(out, TrafficOption{
			Value: *value,
			Label: label,
			Price: purchase.ResolvePrice(
				[]any{obj.Coalesce("price_kopeks", "priceKopeks", "price")},
				[]any{obj.Get("price_label"), obj.Get("priceLabel")},
				currency,
			),
			Current:   payload.Bool(obj.Coalesce("is_current", "current", "active"), current != nil && *current == *value),
			Available: payload.Bool(obj.Coalesce("is_available", "available", "enabled"), true),
		})
	}
	return out
}

func normalizeDevices(v any, current *int64, currency string) []DeviceOption {
	out := make([]DeviceOption, 0)
	for _, entry := range payload.AsList(v) {
		obj := payload.AsObject(entry)
		if obj == nil {
			continue
		}
		value, ok := payload.PositiveInt(obj.Coalesce("value", "count", "limit", "devices"))
		if !ok {
			continue
		}
		label := obj.FirstString("label", "title")
		if label == "" {
			label = strconv.FormatInt(value, 10)
		}

		out = append(out, DeviceOption{
			Value: value,
			Label: label,
			Price: purchase.ResolvePrice(
				[]any{obj.Coalesce("price_kopeks", "priceKopeks", "price")},
				[]any{obj.Get("price_label"), obj.Get("priceLabel")},
				currency,
			),
			Current:   payload.Bool(obj.Coalesce("is_current", "current", "active"), current != nil && *current == value),
			Available: payload.Bool(obj.Coalesce("is_available", "available", "enabled"), true),
		})
	}
	return out
}

// trafficValue keeps zero and negative values, which mean unlimited.
func trafficValue(v any) *int64 {
	if _, isBool := v.(bool); isBool {
		return nil
	}
	f, ok := payload.Float(v)
	if !ok {
		return nil
	}
	n := int64(f)
	return &n
}

func firstObj(o payload.Object, keys ...string) payload.Object {
	if obj := o.FirstObj(keys...); obj != nil {
		return obj
	}
	return payload.Object{}
}

func firstPresent(values ...any) any {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
