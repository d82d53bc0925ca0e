package account

import (
	"kitsura-miniapp/internal/money"
)

// Referral is one invited user as listed by /referrals/list.
type Referral struct {
	ID              string
	Name            string
	JoinedAt        string
	Earned          money.Money
	HasSubscription bool
}

// PromoResult is what the backend reports after a successful activation.
type PromoResult struct {
	Message string
	Raw     any
}
