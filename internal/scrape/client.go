// Package scrape fetches rate publications from the tracked institutions
// and parses them into scraped values for ingestion. Only the fetch/parse
// glue lives here; what happens to the values is the ingestion service's
// business.
package scrape

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Client wraps an HTTP client with a politeness rate limit and a circuit
// breaker. Institutional sites are slow and occasionally flap; the breaker
// keeps a failing source from burning the whole scrape window.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// ClientConfig holds the knobs for one source client.
type ClientConfig struct {
	UserAgent      string
	RequestTimeout time.Duration
	RequestsPerSec float64
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.RequestsPerSec == 0 {
		cfg.RequestsPerSec = 0.5
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "ratesync/1.0"
	}

	http := resty.New().
		SetTimeout(cfg.RequestTimeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetRetryCount(2).
		SetRetryWaitTime(2 * time.Second)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "scrape",
		Timeout: 5 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	return &Client{
		http:    http,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1),
		breaker: breaker,
	}
}

// Fetch performs a rate-limited GET through the circuit breaker and returns
// the response body.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := c.breaker.Execute(func() (any, error) {
		res, err := c.http.R().SetContext(ctx).Get(url)
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", url, err)
		}
		if res.StatusCode() != 200 {
			return nil, fmt.Errorf("get %s: status %d", url, res.StatusCode())
		}
		return res.Body(), nil
	})
	if err != nil {
		return nil, err
	}
	return body.([]byte), nil
}
