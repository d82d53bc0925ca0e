package backend

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"kitsura-miniapp/internal/payload"
	"kitsura-miniapp/internal/session"
)

const (
	tracerName = "kitsura-miniapp/backend"

	defaultTimeout = 30 * time.Second
	maxBodySize    = 4 << 20
)

// Response is a backend reply with its body parsed leniently: malformed JSON
// is nil, never an error.
type Response struct {
	Status int
	Body   any
}

// Object returns the body when it is a JSON object.
func (r *Response) Object() payload.Object {
	if r == nil {
		return nil
	}
	return payload.AsObject(r.Body)
}

// OK reports a 2xx status whose body does not declare success:false.
func (r *Response) OK() bool {
	if r == nil || r.Status < 200 || r.Status > 299 {
		return false
	}
	if obj := r.Object(); obj != nil {
		if b, isBool := obj.Get("success").(bool); isBool && !b {
			return false
		}
	}
	return true
}

type config struct {
	BaseURL    string
	Timeout    time.Duration
	RPS        float64
	Burst      int
	Transport  http.RoundTripper
	Metrics    *Metrics
	Logger     *slog.Logger
	HTTPClient *http.Client
}

type Option func(*config)

func WithBaseURL(u string) Option {
	return func(c *config) {
		c.BaseURL = u
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *config) {
		c.Timeout = timeout
	}
}

// WithRateLimit caps outgoing requests. rps <= 0 disables the limiter.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *config) {
		c.RPS = rps
		c.Burst = burst
	}
}

func WithTransport(rt http.RoundTripper) Option {
	return func(c *config) {
		c.Transport = rt
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) {
		c.HTTPClient = hc
	}
}

func WithMetrics(m *Metrics) Option {
	return func(c *config) {
		c.Metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.Logger = logger
	}
}

// Client posts JSON bodies carrying initData to the mini-app backend.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	session session.Provider
	metrics *Metrics
	logger  *slog.Logger
}

func NewClient(sess session.Provider, opts ...Option) *Client {
	cfg := &config{
		BaseURL: "http://127.0.0.1:8080/miniapp",
		Timeout: defaultTimeout,
		Logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport}
	}

	var limiter *rate.Limiter
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    hc,
		limiter: limiter,
		session: sess,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
	}
}

// Post sends fields plus initData to path. Only transport failures are
// returned as errors; any HTTP status yields a Response.
func (c *Client) Post(ctx context.Context, path string, fields payload.Object) (*Response, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "backend.post",
		trace.WithAttributes(attribute.String("backend.path", path)))
	defer span.End()

	start := time.Now()
	resp, err := c.post(ctx, path, fields)
	c.metrics.observe(path, resp, err, time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.Status))
	if !resp.OK() {
		span.SetStatus(codes.Error, "backend rejected request")
	}
	return resp, nil
}

func (c *Client) post(ctx context.Context, path string, fields payload.Object) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(err, "rate limiting")
		}
	}

	initData := ""
	if c.session != nil {
		initData = c.session.InitData()
	}
	body := payload.Merge(fields, payload.Object{"initData": initData})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload.Encode(body)))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	res, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("backend request failed", "path", path, "request_id", requestID, "error", err)
		return nil, errors.Wrapf(err, "POST %s", path)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxBodySize))
	if err != nil {
		return nil, errors.Wrapf(err, "read %s response", path)
	}

	c.logger.Debug("backend response", "path", path, "request_id", requestID, "status", res.StatusCode)

	return &Response{
		Status: res.StatusCode,
		Body:   payload.ParseLenient(raw),
	}, nil
}

// Call is Post that turns rejected responses into *Error.
func (c *Client) Call(ctx context.Context, path string, fields payload.Object) (*Response, error) {
	return c.CallWithFallback(ctx, path, fields, nil)
}

// CallWithFallback is Call with custom texts for non-401 failures without a
// message in the body.
func (c *Client) CallWithFallback(ctx context.Context, path string, fields payload.Object, fallback *Fallback) (*Response, error) {
	resp, err := c.Post(ctx, path, fields)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return resp, ExtractError(resp.Status, resp.Body, fallback)
	}
	return resp, nil
}
