package account

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"kitsura-miniapp/internal/infra/backend"
	"kitsura-miniapp/internal/money"
	"kitsura-miniapp/internal/payload"
	"kitsura-miniapp/internal/stories/userdata"
)

var ErrEmptyCode = errors.New("promo code is empty")

type Service struct {
	backend   Backend
	localizer Localizer
	lang      string
	logger    *slog.Logger
}

func NewService(b Backend, localizer Localizer, lang string, logger *slog.Logger) *Service {
	return &Service{
		backend:   b,
		localizer: localizer,
		lang:      lang,
		logger:    logger,
	}
}

// ActivatePromoCode submits a trimmed, upper-cased code. The returned message
// is the backend's, or a localized confirmation when it sends none.
func (s *Service) ActivatePromoCode(ctx context.Context, code string) (*PromoResult, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrEmptyCode
	}

	resp, err := s.backend.CallWithFallback(ctx, backend.PathPromoActivate, payload.Object{"code": code}, s.fallback("errors.promo_failed"))
	if err != nil {
		s.logger.Info("Promo code rejected", "code", code, "error", err)
		return nil, err
	}

	body := resp.Object()
	if body != nil && body.Get("success") == false {
		return nil, backend.ExtractError(resp.Status, resp.Body, s.fallback("errors.promo_failed"))
	}

	message := body.FirstString("message", "detail")
	if message == "" {
		message = s.localizer.Get(s.lang, "promo.activated", nil)
	}
	s.logger.Info("Promo code activated", "code", code)

	return &PromoResult{Message: message, Raw: resp.Body}, nil
}

// RemoveDevice revokes the device with the given hardware id.
func (s *Service) RemoveDevice(ctx context.Context, hwid string) error {
	fields := payload.Object{"hwid": hwid, "device_id": hwid}
	resp, err := s.backend.CallWithFallback(ctx, backend.PathDevicesRemove, fields, s.fallback("errors.device_remove_failed"))
	if err != nil {
		s.logger.Warn("Device removal failed", "hwid", hwid, "error", err)
		return err
	}
	if body := resp.Object(); body != nil && body.Get("success") == false {
		return backend.ExtractError(resp.Status, resp.Body, s.fallback("errors.device_remove_failed"))
	}

	s.logger.Info("Device removed", "hwid", hwid)
	return nil
}

// ListReferrals loads the invited users. currency labels the earnings.
func (s *Service) ListReferrals(ctx context.Context, currency string) ([]Referral, error) {
	resp, err := s.backend.CallWithFallback(ctx, backend.PathReferralsList, nil, s.fallback("errors.referrals_failed"))
	if err != nil {
		return nil, errors.Wrap(err, "list referrals")
	}
	return NormalizeReferrals(resp.Body, currency), nil
}

func (s *Service) fallback(key string) *backend.Fallback {
	return &backend.Fallback{
		Title:   backend.DefaultTitle,
		Message: s.localizer.Get(s.lang, key, nil),
	}
}

// NormalizeReferrals accepts a bare list or an object holding it under
// referrals, items or data. Entries without an id or a name are dropped.
func NormalizeReferrals(raw any, currency string) []Referral {
	list := raw
	if obj := payload.AsObject(raw); obj != nil {
		list = obj.First("referrals", "items", "data")
	}

	out := make([]Referral, 0)
	for _, entry := range payload.AsList(list) {
		obj := payload.AsObject(entry)
		if obj == nil {
			continue
		}

		name := obj.FirstString("username", "name", "first_name", "firstName")
		if username := obj.FirstString("username"); username != "" && !strings.HasPrefix(username, "@") {
			name = "@" + username
		}
		id := obj.FirstString("id", "user_id", "userId", "telegram_id")
		if id == "" && name == "" {
			continue
		}

		earned := money.Money{}
		if kopeks, ok := payload.PositiveInt(obj.Coalesce("earned_kopeks", "earnedKopeks", "earned", "reward_kopeks")); ok {
			earned = money.FromKopeks(kopeks, currency)
		}

		out = append(out, Referral{
			ID:              id,
			Name:            name,
			JoinedAt:        obj.FirstString("joined_at", "joinedAt", "created_at", "createdAt"),
			Earned:          earned,
			HasSubscription: payload.Bool(obj.Coalesce("has_subscription", "hasSubscription", "is_active", "active"), false),
		})
	}
	return out
}

// ReferralLink prefers the link the backend sent and otherwise builds a
// t.me start link from the referral code. It returns "" when neither is known.
func ReferralLink(user *userdata.UserData, botName string) string {
	if user == nil {
		return ""
	}
	if link := backend.NormalizeURL(user.Referral.Link); link != "" {
		return link
	}

	code := strings.TrimSpace(user.Referral.Code)
	bot := strings.TrimPrefix(strings.TrimSpace(botName), "@")
	if code == "" || bot == "" {
		return ""
	}
	return fmt.Sprintf("https://t.me/%s?start=%s", bot, url.QueryEscape(code))
}
