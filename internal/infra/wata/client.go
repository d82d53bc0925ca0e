package wata

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"kitsura-miniapp/internal/payload"
)

const (
	DefaultBaseURL = "https://dg-api.wata.pro"

	tracerName     = "kitsura-miniapp/wata"
	defaultTimeout = 30 * time.Second
	maxBodySize    = 1 << 20
)

// Error is a non-2xx answer from the digital goods API. Body is the raw text.
type Error struct {
	Status int
	Body   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("wata: status %d: %s", e.Status, e.Body)
}

// SteamOrder is the body of POST /api/v2/steam. Amount is the quoted
// minPrice as received.
type SteamOrder struct {
	Account            string
	Amount             any
	NetAmount          any
	Description        string
	OrderID            string
	SuccessRedirectURL string
	FailRedirectURL    string
}

// VoucherOrder is the body of POST /api/v2/vouchers. VoucherID, Amount and
// Count are forwarded as the caller sent them.
type VoucherOrder struct {
	VoucherID          any
	Amount             any
	Count              any
	OrderID            string
	Email              string
	Description        string
	SuccessRedirectURL string
	FailRedirectURL    string
}

type config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Metrics    *Metrics
	Logger     *slog.Logger
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

// Client calls the Wata digital goods API with a bearer token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	metrics *Metrics
	logger  *slog.Logger
}

func NewClient(token string, opts ...Option) *Client {
	cfg := &config{
		BaseURL: DefaultBaseURL,
		Timeout: defaultTimeout,
		Logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   strings.TrimSpace(token),
		http:    hc,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
	}
}

// Configured reports whether a token is set. Callers answer with mock
// responses otherwise.
func (c *Client) Configured() bool {
	return c != nil && c.token != ""
}

// SteamAmount quotes the price for crediting netAmount to a Steam account.
// The reply carries minPrice, the lowest amount that may be charged.
func (c *Client) SteamAmount(ctx context.Context, netAmount, account string) (payload.Object, error) {
	query := url.Values{}
	query.Set("NetAmount", netAmount)
	query.Set("Account", account)

	body, err := c.do(ctx, "steam_amount", http.MethodGet, "/api/v2/steam/amount?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return asObject(body, "steam amount")
}

func (c *Client) CreateSteamOrder(ctx context.Context, order SteamOrder) (any, error) {
	return c.do(ctx, "steam_create", http.MethodPost, "/api/v2/steam", payload.Object{
		"account":            order.Account,
		"amount":             order.Amount,
		"netAmount":          order.NetAmount,
		"description":        order.Description,
		"orderId":            order.OrderID,
		"successRedirectUrl": order.SuccessRedirectURL,
		"failRedirectUrl":    order.FailRedirectURL,
	})
}

// Vouchers lists the vouchers offered for a service.
func (c *Client) Vouchers(ctx context.Context, serviceID string) (any, error) {
	query := url.Values{}
	query.Set("serviceId", serviceID)
	return c.do(ctx, "vouchers_list", http.MethodGet, "/api/v2/vouchers?"+query.Encode(), nil)
}

func (c *Client) CreateVoucherOrder(ctx context.Context, order VoucherOrder) (any, error) {
	return c.do(ctx, "vouchers_create", http.MethodPost, "/api/v2/vouchers", payload.Object{
		"voucherId":          order.VoucherID,
		"amount":             order.Amount,
		"count":              order.Count,
		"orderId":            order.OrderID,
		"email":              order.Email,
		"description":        order.Description,
		"successRedirectUrl": order.SuccessRedirectURL,
		"failRedirectUrl":    order.FailRedirectURL,
	})
}

func (c *Client) do(ctx context.Context, operation, method, path string, body payload.Object) (any, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "wata."+operation,
		trace.WithAttributes(attribute.String("http.method", method)))
	defer span.End()

	start := time.Now()
	status, parsed, err := c.send(ctx, method, path, body)
	c.metrics.observe(operation, status, err, time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Error("Wata API error", "operation", operation, "error", err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.status_code", status))
	return parsed, nil
}

func (c *Client) send(ctx context.Context, method, path string, body payload.Object) (int, any, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(payload.Encode(body))
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return 0, nil, errors.Wrapf(err, "%s %s", method, path)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxBodySize))
	if err != nil {
		return res.StatusCode, nil, errors.Wrap(err, "read response")
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return res.StatusCode, nil, &Error{Status: res.StatusCode, Body: string(raw)}
	}

	parsed, err := payload.Parse(raw)
	if err != nil {
		return res.StatusCode, nil, errors.Wrap(err, "decode response")
	}
	return res.StatusCode, parsed, nil
}

func asObject(v any, what string) (payload.Object, error) {
	obj := payload.AsObject(v)
	if obj == nil {
		return nil, errors.Errorf("%s: unexpected response shape", what)
	}
	return obj, nil
}
