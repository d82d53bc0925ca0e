package userdata

import (
	"strings"

	"kitsura-miniapp/internal/infra/backend"
	"kitsura-miniapp/internal/money"
	"kitsura-miniapp/internal/payload"
)

// Normalize maps a /subscription payload into UserData. It returns nil when
// raw is not an object.
func Normalize(raw any) *UserData {
	root := payload.AsObject(raw)
	if root == nil {
		return nil
	}

	user := root.Obj("user")
	subscription := root.Obj("subscription")

	u := &UserData{
		User: User{
			ID:                       payload.PositiveIntOr(user.Coalesce("id", "telegram_id"), 0),
			Username:                 user.FirstString("username"),
			FirstName:                user.FirstString("first_name", "firstName"),
			LastName:                 user.FirstString("last_name", "lastName"),
			LanguageCode:             user.FirstString("language_code", "languageCode", "language"),
			SubscriptionStatus:       firstString(user, root, "subscription_status", "subscriptionStatus"),
			SubscriptionActualStatus: firstString(user, root, "subscription_actual_status", "subscriptionActualStatus"),
		},
		SubscriptionID: firstNonEmpty(
			root.FirstString("subscription_id", "subscriptionId"),
			subscription.FirstString("id", "subscription_id"),
		),
		BalanceKopeks:             payload.PositiveIntPtr(root.Coalesce("balance_kopeks", "balanceKopeks")),
		BalanceCurrency:           money.NormalizeCurrency(root.FirstString("balance_currency", "balanceCurrency", "currency")),
		SubscriptionURL:           root.FirstString("subscription_url", "subscriptionUrl"),
		SubscriptionCryptoLink:    root.FirstString("subscription_crypto_link", "subscriptionCryptoLink"),
		SubscriptionPurchaseURL:   backend.NormalizeURL(root.FirstString("subscription_purchase_url", "subscriptionPurchaseUrl")),
		SubscriptionMissing:       payload.Truthy(root.Coalesce("subscription_missing", "subscriptionMissing")),
		SubscriptionMissingReason: payload.String(root.Coalesce("subscription_missing_reason", "subscriptionMissingReason")),
		ExpiresAt:                 firstString(root, subscription, "expires_at", "expiresAt", "end_date"),
		TrafficLimitGB:            payload.PositiveIntPtr(root.Coalesce("traffic_limit_gb", "trafficLimitGb", "traffic_limit")),
		ConnectedServers:          ServerIDs(root.Coalesce("connected_servers", "connectedServers", "servers")),
		ConnectedDevices:          normalizeDevices(root.Coalesce("connected_devices", "connectedDevices", "devices")),
		TrialAvailable:            payload.Truthy(root.Coalesce("trial_available", "trialAvailable")),
		TrialDurationDays:         payload.IntPtr(root.Coalesce("trial_duration_days", "trialDurationDays")),
		Referral:                  normalizeReferral(root),
		Happ:                      normalizeHapp(root),
		Raw:                       root,
	}

	if used, ok := payload.Float(root.Coalesce("traffic_used_gb", "trafficUsedGb", "traffic_used")); ok && used > 0 {
		u.TrafficUsedGB = used
	}

	u.AutopaySources, u.Autopay = autopaySources(root)

	return u
}

func firstString(primary, secondary payload.Object, keys ...string) string {
	if s := primary.FirstString(keys...); s != "" {
		return s
	}
	return secondary.FirstString(keys...)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ServerIDs accepts plain ids or server objects carrying uuid/id/server_id.
func ServerIDs(v any) []string {
	ids := make([]string, 0)
	for _, entry := range payload.AsList(v) {
		if obj := payload.AsObject(entry); obj != nil {
			if id := obj.FirstString("uuid", "id", "server_id", "serverId"); id != "" {
				ids = append(ids, id)
			}
			continue
		}
		if id, ok := payload.NonBlank(payload.String(entry)); ok {
			ids = append(ids, strings.TrimSpace(id))
		}
	}
	return ids
}

func normalizeDevices(v any) []Device {
	devices := make([]Device, 0)
	for _, entry := range payload.AsList(v) {
		obj := payload.AsObject(entry)
		if obj == nil {
			continue
		}
		hwid := obj.FirstString("hwid", "id", "device_id", "deviceId")
		if hwid == "" {
			continue
		}
		devices = append(devices, Device{
			HWID:     hwid,
			Name:     firstNonEmpty(obj.FirstString("name", "device_name", "model"), hwid),
			Platform: obj.FirstString("platform", "os"),
			LastSeen: obj.FirstString("last_seen", "lastSeen", "last_active", "updated_at"),
		})
	}
	return devices
}

func normalizeReferral(root payload.Object) Referral {
	ref := root.Obj("referral")
	stats := ref.Obj("stats")

	return Referral{
		Link: firstNonEmpty(
			ref.FirstString("referral_link", "link", "url", "href"),
			root.FirstString("referral_link", "referralUrl", "referral_url"),
		),
		Code: firstNonEmpty(
			ref.FirstString("referral_code", "code"),
			root.FirstString("referral_code", "referralCode"),
		),
		Percent: payload.IntPtr(firstTruthy(
			ref.First("percent", "bonus_percent", "reward_percent", "rewardPercent"),
			root.First("referral_percent", "referralPercent"),
		)),
		FriendBonusPercent: payload.IntPtr(ref.First("friend_bonus_percent", "friendPercent", "friend_reward_percent")),
		Stats: ReferralStats{
			InvitedCount:      payload.PositiveIntOr(stats.Coalesce("invited_count", "invitedCount"), 0),
			EarnedTotalKopeks: payload.PositiveIntOr(stats.Coalesce("earned_total", "earnedTotal"), 0),
			EarnedMonthKopeks: payload.PositiveIntOr(stats.Coalesce("earned_month", "earnedMonth"), 0),
			BalanceKopeks:     payload.PositiveIntOr(stats.Coalesce("balance", "balance_kopeks"), 0),
		},
	}
}

func firstTruthy(values ...any) any {
	for _, v := range values {
		if payload.Truthy(v) {
			return v
		}
	}
	return nil
}

func normalizeHapp(root payload.Object) Happ {
	happ := root.Obj("happ")
	return Happ{
		Link: firstNonEmpty(
			payload.String(happ.Coalesce("link", "appLink", "url")),
			root.FirstString("happ_link", "happLink"),
		),
		CryptoLink: firstNonEmpty(
			payload.String(happ.Coalesce("cryptoLink", "crypto_link")),
			root.FirstString("happ_crypto_link", "happCryptoLink"),
		),
		RedirectLink: firstNonEmpty(
			payload.String(happ.Coalesce("cryptolinkRedirectLink", "cryptolink_redirect_link", "redirectLink", "redirect_link")),
			root.FirstString("happ_cryptolink_redirect_link", "happCryptolinkRedirectLink"),
		),
	}
}

// autopaySources collects every object that may carry autopay fields: the
// root when it has autopay_* keys, and the autopay/autopay_settings objects.
// The flag falls back to a boolean "autopay" field.
func autopaySources(root payload.Object) ([]payload.Object, bool) {
	sources := make([]payload.Object, 0, 3)

	for _, k := range root.Keys() {
		if strings.HasPrefix(k, "autopay_") || strings.HasPrefix(k, "default_autopay_") {
			sources = append(sources, root)
			break
		}
	}
	if obj := root.Obj("autopay"); obj != nil {
		sources = append(sources, obj)
	}
	if obj := root.FirstObj("autopay_settings", "autopaySettings"); obj != nil {
		sources = append(sources, obj)
	}

	enabled := payload.Bool(root.Get("autopay"), false)
	for _, src := range sources {
		if b, ok := payload.BoolOpt(src.Coalesce("autopay_enabled", "enabled", "is_enabled", "active")); ok {
			enabled = b
		}
	}

	return sources, enabled
}
