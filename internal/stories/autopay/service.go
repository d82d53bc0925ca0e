package autopay

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pkg/errors"

	"kitsura-miniapp/internal/infra/backend"
	"kitsura-miniapp/internal/payload"
)

var ErrNoDaysAvailable = errors.New("no autopay day options available")

// Service holds the autopay state for one subscription. Updates are applied
// optimistically and rolled back when the backend rejects them.
type Service struct {
	backend   Backend
	localizer Localizer
	lang      string
	logger    *slog.Logger

	mu      sync.Mutex
	state   State
	loading bool
	saving  bool
}

func NewService(b Backend, localizer Localizer, lang string, logger *slog.Logger) *Service {
	return &Service{
		backend:   b,
		localizer: localizer,
		lang:      lang,
		logger:    logger,
		state:     State{Options: []int{}},
	}
}

// State returns a copy of the current state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

func (s *Service) Saving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saving
}

// SetLoading marks that a source fetch is in progress. Updates are refused
// until the next Ingest.
func (s *Service) SetLoading() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = true
}

// Ingest merges sources into the current state. Known values replace the
// current ones; unknown values leave them untouched.
func (s *Service) Ingest(sources ...any) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ingestLocked(sources...)
	return s.state.clone()
}

func (s *Service) ingestLocked(sources ...any) {
	s.loading = false

	candidates := make([]any, 0, len(sources))
	for _, src := range sources {
		if payload.Truthy(src) {
			candidates = append(candidates, src)
		}
	}
	merged := Merge(candidates...)
	if merged == nil {
		return
	}

	next := s.state.clone()
	if merged.Enabled != nil {
		next.Enabled = merged.Enabled
	}
	if merged.DaysBefore != nil {
		next.DaysBefore = merged.DaysBefore
	}
	if merged.DefaultDaysBefore != nil {
		next.DefaultDaysBefore = merged.DefaultDaysBefore
	}
	next.Options = append([]int(nil), merged.Options...)
	if next.DaysBefore == nil && len(next.Options) > 0 {
		first := next.Options[0]
		next.DaysBefore = &first
	}

	s.state = next
}

// Update posts changes for subscriptionID. The new values are visible
// immediately; on failure the previous state is restored and the error is
// returned. A call made while loading or saving is ignored.
func (s *Service) Update(ctx context.Context, subscriptionID string, changes Changes) (State, error) {
	s.mu.Lock()
	if s.loading || s.saving {
		st := s.state.clone()
		s.mu.Unlock()
		return st, nil
	}

	snapshot := s.state.clone()

	enabled := s.state.IsEnabled()
	if changes.Enabled != nil {
		enabled = *changes.Enabled
	}

	days := s.state.DaysBefore
	if changes.DaysBefore != nil {
		days = changes.DaysBefore
	}
	if enabled && days == nil {
		days = s.state.DefaultDaysBefore
		if days == nil && len(s.state.Options) > 0 {
			first := s.state.Options[0]
			days = &first
		}
	}
	if enabled && days == nil {
		st := s.state.clone()
		s.mu.Unlock()
		return st, ErrNoDaysAvailable
	}

	s.state.Enabled = &enabled
	s.state.DaysBefore = days
	if s.state.DefaultDaysBefore == nil {
		s.state.DefaultDaysBefore = days
	}
	s.saving = true
	s.mu.Unlock()

	fields := payload.Object{
		"subscription_id": subscriptionID,
		"subscriptionId":  subscriptionID,
		"enabled":         enabled,
		"days_before":     days,
		"daysBefore":      days,
	}
	fallback := &backend.Fallback{
		Title:   backend.DefaultTitle,
		Message: s.localizer.Get(s.lang, "errors.autopay_failed", nil),
	}
	resp, err := s.backend.CallWithFallback(ctx, backend.PathAutopay, fields, fallback)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.saving = false

	if err != nil {
		s.state = snapshot
		s.logger.Warn("Autopay update failed", "subscription_id", subscriptionID, "error", err)
		return s.state.clone(), err
	}

	if body := resp.Object(); body != nil {
		source := body.First("autopay", "data", "subscription", "settings")
		if source == nil {
			source = body
		}
		s.ingestLocked(source)
	}
	s.logger.Info("Autopay updated", "subscription_id", subscriptionID, "enabled", enabled)

	return s.state.clone(), nil
}
