package purchase

import "kitsura-miniapp/internal/payload"

// BuildSelectionPayload writes every field under each alias the backend
// accepts. Absent values are omitted.
func BuildSelectionPayload(period *Period, sel Selection) payload.Object {
	out := payload.Object{}

	periodID := sel.PeriodID
	if period != nil && period.ID != "" {
		periodID = period.ID
	}
	if periodID != "" {
		setAll(out, periodID, "period_id", "periodId", "period_key", "periodKey", "period", "code")
	}

	if period != nil {
		if period.Days != nil {
			setAll(out, *period.Days, "period_days", "periodDays", "duration_days", "durationDays")
		}
		if period.Months != nil {
			setAll(out, *period.Months, "months", "period_months", "periodMonths")
		}
	}

	if sel.TrafficValue != nil {
		setAll(out, *sel.TrafficValue, "traffic_value", "traffic", "traffic_gb", "trafficGb", "limit")
	}

	if len(sel.Servers) > 0 {
		setAll(out, sel.Servers.Sorted(), "servers", "countries", "server_uuids", "serverUuids")
	}

	if sel.Devices > 0 {
		setAll(out, sel.Devices, "devices", "device_limit", "deviceLimit")
	}

	return out
}

func setAll(o payload.Object, v any, keys ...string) {
	for _, k := range keys {
		o[k] = v
	}
}

// RequestBody is the selection payload plus a nested copy under "selection"
// and the subscription id when known.
func RequestBody(period *Period, sel Selection, subscriptionID string) payload.Object {
	sp := BuildSelectionPayload(period, sel)
	body := payload.Merge(sp, nil)
	body["selection"] = sp
	if subscriptionID != "" {
		body["subscription_id"] = subscriptionID
		body["subscriptionId"] = subscriptionID
	}
	return body
}
