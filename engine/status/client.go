package status

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/WessleyAI/dealer-reconcile/pkg/fn"
	"github.com/WessleyAI/dealer-reconcile/pkg/resilience"
)

const vehiclePath = "/vs-cws/vehshop/v2/vehicle"

// Client queries the vehicle status endpoint.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
}

// NewClient creates a Client. Zero fields in cfg fall back to DefaultConfig.
func NewClient(cfg Config) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.PostalCode == "" {
		cfg.PostalCode = def.PostalCode
	}
	if cfg.Locale == "" {
		cfg.Locale = def.Locale
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = def.Retry
	}
	cfg.Retry.Retryable = Transient
	cfg.Breaker.IsFailure = Transient

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		limiter: rate.NewLimiter(limit, burst),
		breaker: resilience.NewBreaker(cfg.Breaker),
	}
}

// URL returns the lookup URL for vin.
func (c *Client) URL(vin string) string {
	q := url.Values{}
	q.Set("vin", vin)
	q.Set("postalCode", c.cfg.PostalCode)
	q.Set("locale", c.cfg.Locale)
	return strings.TrimRight(c.cfg.BaseURL, "/") + vehiclePath + "?" + q.Encode()
}

// Lookup fetches the live status for vin, retrying transient failures with
// backoff. Every attempt waits on the rate limiter and passes the breaker.
func (c *Client) Lookup(ctx context.Context, vin string) (*VehicleStatus, error) {
	return fn.Retry(ctx, c.cfg.Retry, func(ctx context.Context) fn.Result[*VehicleStatus] {
		if err := c.limiter.Wait(ctx); err != nil {
			return fn.Err[*VehicleStatus](err)
		}
		return resilience.Do(ctx, c.breaker, func(ctx context.Context) fn.Result[*VehicleStatus] {
			return c.doGet(ctx, vin)
		})
	}).Unwrap()
}

func (c *Client) doGet(ctx context.Context, vin string) fn.Result[*VehicleStatus] {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, c.URL(vin), nil)
	if err != nil {
		return fn.Err[*VehicleStatus](err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fn.Err[*VehicleStatus](ctx.Err())
		}
		return fn.Err[*VehicleStatus](fmt.Errorf("%w: vin %s: %v", ErrTransport, vin, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return fn.Err[*VehicleStatus](&HTTPError{VIN: vin, Code: resp.StatusCode})
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fn.Err[*VehicleStatus](fmt.Errorf("%w: vin %s: read body: %v", ErrTransport, vin, err))
	}

	var vs VehicleStatus
	if err := json.Unmarshal(body, &vs); err != nil {
		return fn.Err[*VehicleStatus](fmt.Errorf("status api: vin %s: decode: %w", vin, err))
	}
	return fn.Ok(&vs)
}
