// Package rapidapi talks to the product-data and review APIs hosted on RapidAPI.
package rapidapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/trustscan/backend/internal/domain"
	"github.com/trustscan/backend/internal/logger"
	"github.com/trustscan/backend/internal/metrics"
)

const (
	defaultTimeout         = 30 * time.Second
	defaultMaxAttempts     = 3
	defaultInitialInterval = 500 * time.Millisecond
	defaultRequestsPerHour = 1000
	rateLimitBurst         = 10
	defaultMaxBodyBytes    = 8 << 20
	userAgent              = "TrustScan/1.0"
)

// errNotFound marks a 404 so each endpoint can map it to its own sentinel.
var errNotFound = errors.New("resource not found")

// Config describes one RapidAPI endpoint.
type Config struct {
	BaseURL         string
	Host            string
	APIKey          string
	RequestsPerHour int
}

// Option customizes a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(log logger.Logger) Option {
	return func(c *Client) { c.logger = log }
}

// WithMetrics records upstream calls.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetry sets the attempt budget and the first backoff interval.
func WithRetry(maxAttempts int, initialInterval time.Duration) Option {
	return func(c *Client) {
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
		if initialInterval > 0 {
			c.initialInterval = initialInterval
		}
	}
}

// Client is the shared transport for RapidAPI endpoints: rate limiting,
// authentication headers and retries with exponential backoff.
type Client struct {
	api             string
	httpClient      *http.Client
	baseURL         string
	host            string
	apiKey          string
	rateLimiter     *rate.Limiter
	maxAttempts     int
	initialInterval time.Duration
	maxBodyBytes    int64
	logger          logger.Logger
	metrics         *metrics.Metrics
}

func newClient(api string, cfg Config, opts ...Option) *Client {
	perHour := cfg.RequestsPerHour
	if perHour <= 0 {
		perHour = defaultRequestsPerHour
	}
	host := cfg.Host
	if host == "" {
		host = hostOf(cfg.BaseURL)
	}

	c := &Client{
		api: api,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		host:            host,
		apiKey:          cfg.APIKey,
		rateLimiter:     rate.NewLimiter(rate.Limit(float64(perHour)/3600), rateLimitBurst),
		maxAttempts:     defaultMaxAttempts,
		initialInterval: defaultInitialInterval,
		maxBodyBytes:    defaultMaxBodyBytes,
		logger:          logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(logger.Component("rapidapi"), logger.String("api", api))
	return c
}

// get performs a GET against path with query and returns the response body.
// 404 yields errNotFound; 429 and 5xx are retried; other 4xx fail at once.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	start := time.Now()
	attempt := 0
	var body []byte

	operation := func() error {
		attempt++
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("rate limiter: %w", err))
		}

		resp, err := c.doRequest(ctx, reqURL)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
		if err != nil {
			return fmt.Errorf("%w: read body: %v", domain.ErrUpstreamFailure, err)
		}
		if int64(len(data)) > c.maxBodyBytes {
			return backoff.Permanent(fmt.Errorf("%w: response larger than %d bytes", domain.ErrUpstreamFailure, c.maxBodyBytes))
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			body = data
			return nil
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(errNotFound)
		case resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: upstream status 429", domain.ErrRateLimited)
		case resp.StatusCode >= 500:
			return fmt.Errorf("%w: status %d", domain.ErrUpstreamFailure, resp.StatusCode)
		default:
			c.logger.Warn("upstream rejected request",
				logger.Int("status", resp.StatusCode),
				logger.String("body", truncate(string(data), 256)))
			return backoff.Permanent(fmt.Errorf("%w: status %d", domain.ErrUpstreamFailure, resp.StatusCode))
		}
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.initialInterval
	exp.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(c.maxAttempts-1)), ctx)

	err := backoff.RetryNotify(operation, policy, func(err error, wait time.Duration) {
		c.logger.Warn("upstream request failed, retrying",
			logger.Int("attempt", attempt),
			logger.Duration("wait", wait),
			logger.Error(err))
	})

	elapsed := time.Since(start)
	c.metrics.ObserveUpstream(c.api, outcome(err), elapsed)

	if err != nil {
		if !errors.Is(err, errNotFound) {
			c.logger.Error("upstream request failed",
				logger.String("path", path),
				logger.Int("attempts", attempt),
				logger.Error(err))
		}
		return nil, err
	}

	c.logger.Debug("upstream request succeeded",
		logger.String("path", path),
		logger.Int("attempts", attempt),
		logger.Duration("elapsed", elapsed))
	return body, nil
}

// doRequest executes an HTTP GET request with the RapidAPI headers
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-rapidapi-key", c.apiKey)
	req.Header.Set("x-rapidapi-host", c.host)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamFailure, err)
	}
	return resp, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, errNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	default:
		return "error"
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
