// Package client provides the signed HTTP transport for the catalog
// gateway: every GET carries the ts/apikey/hash authentication triple and
// surfaces non-success responses as typed errors without retrying.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/severinkast/marvel-catalog-client/pkg/auth"
	"github.com/severinkast/marvel-catalog-client/pkg/quota"
)

// Prometheus metrics for catalog client operations.
var (
	catalogRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_requests_total",
		Help: "Total catalog requests by endpoint and status",
	}, []string{"endpoint", "status"})

	catalogRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_request_duration_seconds",
		Help:    "Catalog request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	catalogErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_errors_total",
		Help: "Total catalog errors by class",
	}, []string{"class"})
)

// DefaultBaseURL is the public catalog gateway host.
const DefaultBaseURL = "https://gateway.marvel.com"

// Client issues signed GET requests against the catalog gateway.
type Client struct {
	httpClient *http.Client
	config     Config
	nonce      auth.NonceFunc
	quota      *quota.Tracker
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Credentials is the API key pair. Required.
	Credentials auth.Credentials

	// BaseURL is the gateway host prefix. Defaults to DefaultBaseURL.
	BaseURL string

	// UserAgent identifies the application in outbound requests.
	UserAgent string

	// Timeout bounds each individual page request. A deadline expiry is
	// a transport failure and aborts the fetch in progress.
	Timeout time.Duration

	// Quota optionally gates requests against the shared daily call
	// budget. Nil disables gating.
	Quota *quota.Tracker

	// Nonce overrides the per-request nonce source. Defaults to
	// auth.Timestamp. Test hook; production code has no reason to set it.
	Nonce auth.NonceFunc
}

// DefaultConfig returns a safe default configuration for the given key pair.
func DefaultConfig(creds auth.Credentials) Config {
	return Config{
		Credentials: creds,
		BaseURL:     DefaultBaseURL,
		UserAgent:   "marvel-catalog-client/0.1.0",
		Timeout:     30 * time.Second,
	}
}

// New creates a new catalog client.
func New(cfg Config) (*Client, error) {
	if cfg.Credentials.IsZero() {
		return nil, fmt.Errorf("credentials are required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	nonce := cfg.Nonce
	if nonce == nil {
		nonce = auth.Timestamp
	}

	logger := log.With().Str("component", "catalog-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		nonce:  nonce,
		quota:  cfg.Quota,
		logger: logger,
	}, nil
}

// Get performs one signed GET against the given endpoint path and returns
// the raw response body. The query is extended with a fresh ts/apikey/hash
// triple immediately before the request goes out.
//
// Any non-2xx status is returned as *APIError carrying the status code and
// raw body. There is no retry at this layer; callers that want one wrap a
// whole fetch in pkg/retry.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	startTime := time.Now()
	defer func() {
		catalogRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Quota gate, before the call is spent.
	if c.quota != nil {
		allowed, err := c.quota.ShouldAllowRequest(ctx)
		if err != nil {
			c.logger.Error().Err(err).Msg("Quota check failed")
			return nil, fmt.Errorf("quota check: %w", err)
		}
		if !allowed {
			c.logger.Warn().
				Str("endpoint", endpoint).
				Msg("Request blocked by quota tracker")
			catalogRequestsTotal.WithLabelValues(endpoint, "quota_blocked").Inc()
			return nil, fmt.Errorf("request blocked: daily call budget critical")
		}
	}

	req, err := c.newSignedRequest(ctx, endpoint, query)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("offset", query.Get("offset")).
		Msg("Executing catalog request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		catalogErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		catalogRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, &APIError{Class: ErrorClassNetwork, Err: err}
	}
	defer resp.Body.Close()

	if c.quota != nil {
		if err := c.quota.RecordCall(ctx); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to record quota consumption")
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		catalogErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Class:      ErrorClassNetwork,
			Err:        fmt.Errorf("read response body: %w", err),
		}
	}

	catalogRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		class := classifyStatus(resp.StatusCode)
		catalogErrorsTotal.WithLabelValues(string(class)).Inc()

		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Catalog request error")

		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Class:      class,
			Body:       string(body),
		}
	}

	return body, nil
}

// newSignedRequest builds the outgoing request with authentication query
// parameters. The nonce is generated here, immediately before use, so it
// is fresh for every request including retried fetches.
func (c *Client) newSignedRequest(ctx context.Context, endpoint string, query url.Values) (*http.Request, error) {
	ts := c.nonce()

	signed := url.Values{}
	for key, values := range query {
		signed[key] = values
	}
	signed.Set("ts", ts)
	signed.Set("apikey", c.config.Credentials.PublicKey)
	signed.Set("hash", auth.Sign(ts, c.config.Credentials))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.URL.RawQuery = signed.Encode()

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	return req, nil
}

// BaseURL returns the configured gateway prefix.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
