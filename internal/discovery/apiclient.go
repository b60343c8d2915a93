package discovery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultAPITimeout = 30 * time.Second
	apiMaxBody        = 50 * 1024 * 1024 // 50MB
	apiRetryDelay     = 3 * time.Second
)

// errRateLimited marks responses that must not be retried
type errRateLimited struct{ source string }

func (e errRateLimited) Error() string { return e.source + " rate limited (429)" }

// APIClient performs GET requests for the web API sources. One limiter is
// shared by every source built from the same client.
type APIClient struct {
	HTTP       *http.Client
	Limiter    *rate.Limiter
	UserAgent  string
	Timeout    time.Duration
	RetryDelay time.Duration
}

// NewAPIClient creates a client allowing perSecond requests with burst.
func NewAPIClient(userAgent string, timeout time.Duration, perSecond float64, burst int) *APIClient {
	if burst <= 0 {
		burst = 1
	}
	return &APIClient{
		HTTP:       &http.Client{},
		Limiter:    rate.NewLimiter(rate.Limit(perSecond), burst),
		UserAgent:  userAgent,
		Timeout:    timeout,
		RetryDelay: apiRetryDelay,
	}
}

// Get fetches url, retrying once after RetryDelay unless rate limited.
func (c *APIClient) Get(ctx context.Context, source, url string, headers map[string]string) ([]byte, error) {
	body, err := c.do(ctx, source, url, headers)
	if err == nil {
		return body, nil
	}

	if _, limited := err.(errRateLimited); limited {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(c.RetryDelay):
	}

	return c.do(ctx, source, url, headers)
}

func (c *APIClient) do(ctx context.Context, source, url string, headers map[string]string) ([]byte, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultAPITimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errRateLimited{source: source}
	}
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("%s returned status %d: %s", source, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, apiMaxBody))
	if err != nil {
		return nil, fmt.Errorf("%s read body: %w", source, err)
	}
	return body, nil
}
