package backend

// Backend paths, relative to the configured base URL.
const (
	PathSubscription    = "/subscription"
	PathPurchaseOptions = "/subscription/purchase/options"
	PathRenewalOptions  = "/subscription/renewal/options"
	PathPurchasePreview = "/subscription/purchase/preview"
	PathRenewalPreview  = "/subscription/renewal/preview"
	PathPurchase        = "/subscription/purchase"
	PathRenewal         = "/subscription/renewal"
	PathAutopay         = "/subscription/autopay"
	PathSettings        = "/subscription/settings"
	PathSettingsServers = "/subscription/servers"
	PathSettingsTraffic = "/subscription/traffic"
	PathSettingsDevices = "/subscription/devices"
	PathPromoActivate   = "/promo-codes/activate"
	PathDevicesRemove   = "/devices/remove"
	PathReferralsList   = "/referrals/list"
)
