package userdata

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pkg/errors"

	"kitsura-miniapp/internal/infra/backend"
)

// Service fetches and holds the current UserData snapshot.
type Service struct {
	backend   Backend
	localizer Localizer
	lang      string
	logger    *slog.Logger

	mu      sync.RWMutex
	current *UserData
}

func NewService(b Backend, localizer Localizer, lang string, logger *slog.Logger) *Service {
	return &Service{
		backend:   b,
		localizer: localizer,
		lang:      lang,
		logger:    logger,
	}
}

// Fetch loads UserData and replaces the snapshot wholesale. On failure the
// previous snapshot is kept and the *backend.Error is returned.
func (s *Service) Fetch(ctx context.Context) (*UserData, error) {
	fallback := &backend.Fallback{
		Title:   s.localizer.Get(s.lang, "errors.not_found.title", nil),
		Message: s.localizer.Get(s.lang, "errors.not_found.message", nil),
	}

	resp, err := s.backend.CallWithFallback(ctx, backend.PathSubscription, nil, fallback)
	if err != nil {
		var apiErr *backend.Error
		if errors.As(err, &apiErr) {
			s.logger.Warn("Subscription fetch rejected", "status", apiErr.Status, "code", apiErr.Code)
			return nil, apiErr
		}
		return nil, errors.Wrap(err, "fetch subscription")
	}

	user := Normalize(resp.Body)
	if user == nil {
		return nil, &backend.Error{
			Status:  resp.Status,
			Title:   fallback.Title,
			Message: fallback.Message,
		}
	}

	s.mu.Lock()
	s.current = user
	s.mu.Unlock()

	s.logger.Debug("Subscription loaded",
		"user_id", user.User.ID,
		"active", user.HasActiveSubscription(),
		"servers", len(user.ConnectedServers))

	return user, nil
}

// Current returns the last fetched snapshot or nil.
func (s *Service) Current() *UserData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}
