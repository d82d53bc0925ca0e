package settings

import (
	"context"
	"log/slog"
	"slices"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"kitsura-miniapp/internal/infra/backend"
	"kitsura-miniapp/internal/payload"
	"kitsura-miniapp/internal/stories/purchase"
	"kitsura-miniapp/internal/stories/userdata"
)

const (
	ActionServers = "servers"
	ActionTraffic = "traffic"
	ActionDevices = "devices"
)

// Service loads subscription settings and applies one change at a time.
type Service struct {
	backend   Backend
	localizer Localizer
	lang      string
	logger    *slog.Logger

	mu         sync.Mutex
	user       *userdata.UserData
	data       *Settings
	selections Selections
	loading    bool
	action     string
}

func NewService(b Backend, localizer Localizer, lang string, logger *slog.Logger) *Service {
	return &Service{
		backend:   b,
		localizer: localizer,
		lang:      lang,
		logger:    logger,
	}
}

// SetUser sets the snapshot used for currency and connected server fallbacks.
func (s *Service) SetUser(user *userdata.UserData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}

func (s *Service) Data() *Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

func (s *Service) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// ActionLoading names the update in flight, or "".
func (s *Service) ActionLoading() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.action
}

// Selections returns a copy of the pending edit.
func (s *Service) Selections() Selections {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Selections{
		Servers: append([]string(nil), s.selections.Servers...),
		Traffic: s.selections.Traffic,
		Devices: s.selections.Devices,
	}
}

func (s *Service) ToggleServer(uuid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lo.Contains(s.selections.Servers, uuid) {
		s.selections.Servers = lo.Without(s.selections.Servers, uuid)
		return
	}
	s.selections.Servers = append(s.selections.Servers, uuid)
	sort.Strings(s.selections.Servers)
}

func (s *Service) SetTraffic(value int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selections.Traffic = &value
}

func (s *Service) SetDevices(value int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selections.Devices = &value
}

// EnsureData returns the loaded settings, fetching them when absent or when
// force is set. A successful load reseeds the selections from the current
// values.
func (s *Service) EnsureData(ctx context.Context, force bool) (*Settings, error) {
	s.mu.Lock()
	if !force && s.data != nil {
		data := s.data
		s.mu.Unlock()
		return data, nil
	}
	s.loading = true
	user := s.user
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	resp, err := s.backend.CallWithFallback(ctx, backend.PathSettings, nil, s.fallback())
	if err != nil {
		s.logger.Warn("Settings fetch failed", "error", err)
		return nil, err
	}

	data := Normalize(resp.Body, purchase.Context{User: user, Localizer: s.localizer, Lang: s.lang})
	if data == nil {
		return nil, backend.ExtractError(resp.Status, resp.Body, s.fallback())
	}

	s.mu.Lock()
	s.data = data
	s.selections = Selections{
		Servers: append([]string(nil), data.Current.Servers...),
		Traffic: data.Traffic.Current,
	}
	if data.Devices.Current > 0 {
		devices := data.Devices.Current
		s.selections.Devices = &devices
	}
	s.mu.Unlock()

	return data, nil
}

// UpdateServers sends the selected server set. It reports false without a
// request when nothing changed, nothing is loaded, or another update runs.
func (s *Service) UpdateServers(ctx context.Context) (bool, error) {
	return s.update(ctx, ActionServers, backend.PathSettingsServers, func(data *Settings, sel Selections) (any, bool) {
		servers := append([]string(nil), sel.Servers...)
		sort.Strings(servers)
		if slices.Equal(servers, data.Current.Servers) {
			return nil, false
		}
		return servers, true
	})
}

func (s *Service) UpdateTraffic(ctx context.Context) (bool, error) {
	return s.update(ctx, ActionTraffic, backend.PathSettingsTraffic, func(data *Settings, sel Selections) (any, bool) {
		if sameValue(sel.Traffic, data.Traffic.Current) {
			return nil, false
		}
		return sel.Traffic, true
	})
}

func (s *Service) UpdateDevices(ctx context.Context) (bool, error) {
	return s.update(ctx, ActionDevices, backend.PathSettingsDevices, func(data *Settings, sel Selections) (any, bool) {
		current := data.Devices.Current
		if sameValue(sel.Devices, &current) {
			return nil, false
		}
		return sel.Devices, true
	})
}

func (s *Service) update(
	ctx context.Context,
	action, path string,
	pending func(data *Settings, sel Selections) (any, bool),
) (bool, error) {
	s.mu.Lock()
	if s.action != "" || s.data == nil {
		s.mu.Unlock()
		return false, nil
	}
	value, changed := pending(s.data, s.selections)
	if !changed {
		s.mu.Unlock()
		return false, nil
	}
	subscriptionID := s.data.SubscriptionID
	s.action = action
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.action = ""
		s.mu.Unlock()
	}()

	fields := payload.Object{
		action:            value,
		"subscription_id": subscriptionID,
	}
	if _, err := s.backend.CallWithFallback(ctx, path, fields, s.fallback()); err != nil {
		s.logger.Warn("Settings update rejected", "action", action, "error", err)
		return true, err
	}
	s.logger.Info("Settings updated", "action", action, "subscription_id", subscriptionID)

	if _, err := s.EnsureData(ctx, true); err != nil {
		return true, errors.Wrap(err, "refresh settings")
	}
	return true, nil
}

func (s *Service) fallback() *backend.Fallback {
	return &backend.Fallback{
		Title:   backend.DefaultTitle,
		Message: s.localizer.Get(s.lang, "errors.unknown", nil),
	}
}

func sameValue(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
