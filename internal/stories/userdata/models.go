package userdata

import "kitsura-miniapp/internal/payload"

type UserData struct {
	User                      User
	SubscriptionID            string
	BalanceKopeks             *int64
	BalanceCurrency           string
	SubscriptionURL           string
	SubscriptionCryptoLink    string
	SubscriptionPurchaseURL   string
	SubscriptionMissing       bool
	SubscriptionMissingReason string
	ExpiresAt                 string
	TrafficUsedGB             float64
	TrafficLimitGB            *int64
	ConnectedServers          []string
	ConnectedDevices          []Device
	TrialAvailable            bool
	TrialDurationDays         *int
	Referral                  Referral
	Happ                      Happ
	Autopay                   bool
	AutopaySources            []payload.Object
	Raw                       payload.Object
}

type User struct {
	ID                       int64
	Username                 string
	FirstName                string
	LastName                 string
	LanguageCode             string
	SubscriptionStatus       string
	SubscriptionActualStatus string
}

type Device struct {
	HWID     string
	Name     string
	Platform string
	LastSeen string
}

type Referral struct {
	Link               string
	Code               string
	Percent            *int
	FriendBonusPercent *int
	Stats              ReferralStats
}

type ReferralStats struct {
	InvitedCount      int64
	EarnedTotalKopeks int64
	EarnedMonthKopeks int64
	BalanceKopeks     int64
}

type Happ struct {
	Link         string
	CryptoLink   string
	RedirectLink string
}

// HasActiveSubscription prefers the actual status over the nominal one.
func (u *UserData) HasActiveSubscription() bool {
	if u == nil || u.SubscriptionMissing {
		return false
	}
	status := u.User.SubscriptionActualStatus
	if status == "" {
		status = u.User.SubscriptionStatus
	}
	return status == "active"
}

// Currency returns the balance currency, "RUB" for a nil receiver.
func (u *UserData) Currency() string {
	if u == nil || u.BalanceCurrency == "" {
		return "RUB"
	}
	return u.BalanceCurrency
}

func (u *UserData) Language() string {
	if u == nil {
		return ""
	}
	return u.User.LanguageCode
}
