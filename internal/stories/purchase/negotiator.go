package purchase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"

	"kitsura-miniapp/internal/infra/backend"
	"kitsura-miniapp/internal/localization"
	"kitsura-miniapp/internal/payload"
	"kitsura-miniapp/internal/stories/userdata"
)

const DefaultDebounce = 500 * time.Millisecond

var (
	ErrOptionsNotLoaded = errors.New("purchase options are not loaded")
	ErrUnknownPeriod    = errors.New("unknown purchase period")
	ErrSuperseded       = errors.New("purchase flow changed while loading")
)

type Option func(*Negotiator)

func WithScheduler(s Scheduler) Option {
	return func(n *Negotiator) {
		if s != nil {
			n.scheduler = s
		}
	}
}

func WithDebounce(d time.Duration) Option {
	return func(n *Negotiator) {
		n.debounce = d
	}
}

// WithMode pins the flow to mode instead of deriving it from the user.
func WithMode(m Mode) Option {
	return func(n *Negotiator) {
		n.forced = m
	}
}

func WithLocalizer(l Localizer) Option {
	return func(n *Negotiator) {
		n.localizer = l
	}
}

func WithLanguage(lang string) Option {
	return func(n *Negotiator) {
		n.lang = lang
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(n *Negotiator) {
		n.logger = logger
	}
}

// WithContext sets the context debounced previews run under.
func WithContext(ctx context.Context) Option {
	return func(n *Negotiator) {
		n.baseCtx = ctx
	}
}

// Negotiator drives one purchase or renewal flow: it loads the catalogue,
// keeps the selection valid, refreshes previews behind a debounce and submits
// the order. State sits behind one mutex and network calls run outside it.
type Negotiator struct {
	backend   Backend
	scheduler Scheduler
	debounce  time.Duration
	forced    Mode
	localizer Localizer
	lang      string
	logger    *slog.Logger
	baseCtx   context.Context

	mu         sync.Mutex
	user       *userdata.UserData
	mode       Mode
	phase      Phase
	options    *Options
	selection  Selection
	preview    *Preview
	err        error
	loading    bool
	previewing bool
	submitting bool
	dirty      bool
	timer      Timer
	timerToken uint64
	seq        uint64
	generation uint64
}

func NewNegotiator(b Backend, user *userdata.UserData, opts ...Option) *Negotiator {
	n := &Negotiator{
		backend:   b,
		scheduler: realScheduler{},
		debounce:  DefaultDebounce,
		logger:    slog.Default(),
		baseCtx:   context.Background(),
		user:      user,
		phase:     PhaseIdle,
		selection: Selection{Servers: NewServerSet()},
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.localizer == nil {
		n.localizer = localization.Default()
	}
	n.mode = n.deriveMode()
	return n
}

func (n *Negotiator) deriveMode() Mode {
	if n.forced != "" {
		return n.forced
	}
	if n.user.HasActiveSubscription() {
		return ModeRenewal
	}
	return ModePurchase
}

func (n *Negotiator) Mode() Mode {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.mode
}

func (n *Negotiator) Phase() Phase {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.phase
}

func (n *Negotiator) Options() *Options {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.options
}

// Selection returns a copy of the current selection.
func (n *Negotiator) Selection() Selection {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.selection.Clone()
}

func (n *Negotiator) Preview() *Preview {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.preview
}

// Err returns the last load or submit error.
func (n *Negotiator) Err() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.err
}

// SetUser replaces the user snapshot. Unless the mode is pinned, a change in
// subscription state switches the flow and resets it.
func (n *Negotiator) SetUser(user *userdata.UserData) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.user = user
	if mode := n.deriveMode(); mode != n.mode {
		n.mode = mode
		n.resetLocked()
	}
}

// SetMode pins the flow to mode. Switching resets options and selection.
func (n *Negotiator) SetMode(mode Mode) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.forced = mode
	if mode != n.mode {
		n.mode = mode
		n.resetLocked()
	}
}

func (n *Negotiator) resetLocked() {
	n.cancelPendingLocked()
	n.generation++
	n.seq++
	n.options = nil
	n.selection = Selection{Servers: NewServerSet()}
	n.preview = nil
	n.err = nil
	n.dirty = false
	n.phase = PhaseIdle
}

// Close stops any pending preview.
func (n *Negotiator) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelPendingLocked()
}

func (n *Negotiator) normCtx() Context {
	return Context{User: n.user, Localizer: n.localizer, Lang: n.lang}
}

func (n *Negotiator) subscriptionIDLocked() string {
	if n.user != nil && n.user.SubscriptionID != "" {
		return n.user.SubscriptionID
	}
	if n.options != nil {
		return n.options.SubscriptionID
	}
	return ""
}

// EnsureData loads the catalogue unless it is already loaded and force is
// false. Renewal tries the renewal endpoint first and falls back to the
// purchase one. On failure the previous catalogue is kept.
func (n *Negotiator) EnsureData(ctx context.Context, force bool) (*Options, error) {
	n.mu.Lock()
	if n.loading || (n.options != nil && !force) {
		opts := n.options
		n.mu.Unlock()
		return opts, nil
	}
	n.loading = true
	n.phase = PhaseLoadingOptions
	gen := n.generation
	mode := n.mode
	var fields payload.Object
	if id := n.subscriptionIDLocked(); id != "" {
		fields = payload.Object{"subscription_id": id, "subscriptionId": id}
	}
	nctx := n.normCtx()
	n.mu.Unlock()

	opts, err := n.fetchOptions(ctx, mode, fields, nctx)

	n.mu.Lock()
	defer n.mu.Unlock()
	n.loading = false

	if gen != n.generation {
		return nil, ErrSuperseded
	}

	if err != nil {
		n.err = err
		if n.options != nil {
			n.phase = PhaseReady
		} else {
			n.phase = PhaseIdle
		}
		n.logger.Warn("Failed to load purchase options", "mode", mode, "error", err)
		return n.options, err
	}

	previous := n.selection
	hadOptions := n.options != nil
	n.options = opts
	n.err = nil
	n.phase = PhaseReady

	if period := opts.Period(previous.PeriodID); hadOptions && period != nil {
		n.selection = RepairForPeriod(period, previous, opts)
	} else {
		n.selection = SelectionFromDefaults(opts)
	}

	n.logger.Debug("Purchase options loaded",
		"mode", mode,
		"periods", len(opts.Periods),
		"period", n.selection.PeriodID)

	n.schedulePreviewLocked()
	return opts, nil
}

func (n *Negotiator) fetchOptions(ctx context.Context, mode Mode, fields payload.Object, nctx Context) (*Options, error) {
	paths := []string{backend.PathPurchaseOptions}
	if mode == ModeRenewal {
		paths = []string{backend.PathRenewalOptions, backend.PathPurchaseOptions}
	}

	var lastErr error
	for _, path := range paths {
		resp, err := n.backend.Call(ctx, path, fields)
		if err != nil {
			n.logger.Debug("Options endpoint failed", "path", path, "error", err)
			lastErr = err
			continue
		}
		opts := NormalizeOptions(resp.Body, nctx)
		if opts == nil {
			lastErr = &backend.Error{
				Status:  resp.Status,
				Title:   backend.DefaultTitle,
				Message: n.localizer.Get(n.lang, "errors.request_failed", map[string]interface{}{"status": resp.Status}),
			}
			continue
		}
		return opts, nil
	}
	return nil, lastErr
}

// SelectPeriod switches to period id and repairs the selection against it.
// Unknown ids are ignored.
func (n *Negotiator) SelectPeriod(id string) Selection {
	n.mu.Lock()
	defer n.mu.Unlock()
	period := n.options.Period(id)
	if period == nil {
		return n.selection.Clone()
	}
	n.selection = RepairForPeriod(period, n.selection.WithPeriod(id), n.options)
	n.schedulePreviewLocked()
	return n.selection.Clone()
}

func (n *Negotiator) SelectTraffic(value int64) Selection {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.selection = n.selection.WithTraffic(value)
	n.schedulePreviewLocked()
	return n.selection.Clone()
}

func (n *Negotiator) ToggleServer(id string) Selection {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.selection = n.selection.ToggleServer(id)
	n.schedulePreviewLocked()
	return n.selection.Clone()
}

func (n *Negotiator) SetDevices(count int) Selection {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.selection = n.selection.WithDevices(count)
	n.schedulePreviewLocked()
	return n.selection.Clone()
}

// schedulePreviewLocked replaces any pending preview with a new one after
// the debounce delay.
func (n *Negotiator) schedulePreviewLocked() {
	n.cancelPendingLocked()
	token := n.timerToken
	n.timer = n.scheduler.AfterFunc(n.debounce, func() {
		n.firePreview(token)
	})
}

func (n *Negotiator) cancelPendingLocked() {
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.timerToken++
}

func (n *Negotiator) firePreview(token uint64) {
	n.mu.Lock()
	if token != n.timerToken {
		n.mu.Unlock()
		return
	}
	n.timer = nil
	n.mu.Unlock()
	n.UpdatePreview(n.baseCtx, true)
}

type previewAttempt struct {
	path string
	body payload.Object
}

// UpdatePreview refreshes the preview. Without immediate it only schedules a
// debounced refresh. A refresh requested while another is in flight marks
// the preview dirty and one more refresh runs after it lands. Failed
// attempts are swallowed; when every attempt fails the preview becomes nil.
func (n *Negotiator) UpdatePreview(ctx context.Context, immediate bool) *Preview {
	n.mu.Lock()
	if !immediate {
		n.schedulePreviewLocked()
		p := n.preview
		n.mu.Unlock()
		return p
	}

	n.cancelPendingLocked()
	if n.options == nil {
		p := n.preview
		n.mu.Unlock()
		return p
	}
	if n.previewing {
		n.dirty = true
		p := n.preview
		n.mu.Unlock()
		return p
	}
	period := n.options.Period(n.selection.PeriodID)
	if period == nil {
		p := n.preview
		n.mu.Unlock()
		return p
	}

	n.previewing = true
	n.dirty = false
	n.seq++
	seq := n.seq
	if !n.submitting {
		n.phase = PhasePreviewing
	}
	attempts := n.previewAttemptsLocked(period)
	opts := n.options
	nctx := n.normCtx()
	n.mu.Unlock()

	preview := n.fetchPreview(ctx, attempts, opts, nctx)

	n.mu.Lock()
	defer n.mu.Unlock()
	n.previewing = false
	if seq != n.seq {
		n.logger.Debug("Discarding stale preview", "seq", seq, "latest", n.seq)
		return n.preview
	}
	if n.phase == PhasePreviewing {
		n.phase = PhaseReady
	}
	n.preview = preview
	if n.dirty {
		n.dirty = false
		n.schedulePreviewLocked()
	}
	return n.preview
}

func (n *Negotiator) previewAttemptsLocked(period *Period) []previewAttempt {
	sel := RepairForPeriod(period, n.selection, n.options)
	subscriptionID := n.subscriptionIDLocked()
	bare := previewAttempt{
		path: backend.PathPurchasePreview,
		body: RequestBody(period, RepairForPeriod(period, n.backfill(n.selection), n.options), ""),
	}

	if n.mode == ModeRenewal {
		withID := RequestBody(period, sel, subscriptionID)
		return []previewAttempt{
			{path: backend.PathRenewalPreview, body: withID},
			{path: backend.PathPurchasePreview, body: withID},
			bare,
		}
	}
	if subscriptionID != "" {
		return []previewAttempt{
			{path: backend.PathPurchasePreview, body: RequestBody(period, sel, subscriptionID)},
			bare,
		}
	}
	return []previewAttempt{bare}
}

// backfill fills empty traffic and servers from the user's current plan so
// a fresh-purchase preview does not price an empty selection.
func (n *Negotiator) backfill(sel Selection) Selection {
	out := sel.Clone()
	if n.user == nil {
		return out
	}
	if out.TrafficValue == nil && n.user.TrafficLimitGB != nil {
		v := *n.user.TrafficLimitGB
		out.TrafficValue = &v
	}
	if len(out.Servers) == 0 && len(n.user.ConnectedServers) > 0 {
		out.Servers = NewServerSet(n.user.ConnectedServers...)
	}
	return out
}

func (n *Negotiator) fetchPreview(ctx context.Context, attempts []previewAttempt, opts *Options, nctx Context) *Preview {
	for _, a := range attempts {
		resp, err := n.backend.Call(ctx, a.path, a.body)
		if err != nil {
			n.logger.Debug("Preview attempt failed", "path", a.path, "error", err)
			continue
		}
		if p := NormalizePreview(resp.Body, opts, nctx); p != nil {
			return p
		}
	}
	return nil
}

// EstimatePreview prices the current selection locally. Nil until the
// catalogue is loaded.
func (n *Negotiator) EstimatePreview() *Preview {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.options == nil {
		return nil
	}
	return Estimate(n.options, n.selection)
}

// SubmitPurchase orders periodID, or the selected period when periodID is
// empty. A call made while another submit is in flight returns (nil, nil)
// without touching the network. On success the raw response body is
// returned for the caller to interpret.
func (n *Negotiator) SubmitPurchase(ctx context.Context, periodID string) (any, error) {
	n.mu.Lock()
	if n.submitting {
		n.mu.Unlock()
		return nil, nil
	}
	if n.options == nil {
		n.mu.Unlock()
		return nil, ErrOptionsNotLoaded
	}
	if periodID == "" {
		periodID = n.selection.PeriodID
	}
	period := n.options.Period(periodID)
	if period == nil {
		n.mu.Unlock()
		return nil, errors.Wrapf(ErrUnknownPeriod, "period %q", periodID)
	}

	n.selection = RepairForPeriod(period, n.selection.WithPeriod(period.ID), n.options)
	n.submitting = true
	n.phase = PhaseSubmitting

	path := backend.PathPurchase
	if n.mode == ModeRenewal {
		path = backend.PathRenewal
	}
	body := RequestBody(period, n.selection, n.subscriptionIDLocked())
	mode := n.mode
	n.mu.Unlock()

	resp, err := n.backend.Call(ctx, path, body)

	n.mu.Lock()
	defer n.mu.Unlock()
	n.submitting = false
	if err != nil {
		n.phase = PhaseFailed
		n.err = err
		n.logger.Warn("Purchase rejected", "mode", mode, "period", period.ID, "error", err)
		return nil, err
	}

	n.phase = PhaseSuccess
	n.err = nil
	n.logger.Info("Purchase submitted", "mode", mode, "period", period.ID)
	return resp.Body, nil
}
