package httpprobe

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/hakim/reconaug/internal/models"
)

const (
	defaultDirectTimeout     = 5 * time.Second
	defaultDirectConcurrency = 50
)

// DirectProber issues its own GET requests, trying HTTPS then HTTP. A host
// failing on both schemes is not live.
type DirectProber struct {
	Client      *http.Client
	Concurrency int
	// Schemes is the order tried per host.
	Schemes []string
}

// NewDirectProber creates a prober with TLS verification disabled and
// timeout per request.
func NewDirectProber(timeout time.Duration, concurrency int) *DirectProber {
	if timeout <= 0 {
		timeout = defaultDirectTimeout
	}
	return &DirectProber{
		Client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
				Proxy:           http.ProxyFromEnvironment,
			},
		},
		Concurrency: concurrency,
		Schemes:     []string{"https", "http"},
	}
}

func (p *DirectProber) Probe(ctx context.Context, hosts []string) ([]models.LiveHost, error) {
	if len(hosts) == 0 {
		return []models.LiveHost{}, nil
	}

	workers := p.Concurrency
	if workers <= 0 {
		workers = defaultDirectConcurrency
	}

	results := make([]*models.LiveHost, len(hosts))
	wp := pool.New().WithMaxGoroutines(workers)
	for i, host := range hosts {
		wp.Go(func() {
			results[i] = p.probeHost(ctx, host)
		})
	}
	wp.Wait()

	live := make([]models.LiveHost, 0, len(hosts))
	for _, r := range results {
		if r != nil {
			live = append(live, *r)
		}
	}
	return live, ctx.Err()
}

func (p *DirectProber) probeHost(ctx context.Context, host string) *models.LiveHost {
	for _, scheme := range p.Schemes {
		if ctx.Err() != nil {
			return nil
		}

		url := scheme + "://" + host
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil
		}

		resp, err := p.Client.Do(req)
		if err != nil {
			continue
		}
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		resp.Body.Close()

		tech := resp.Header.Get("Server")
		if tech == "" {
			tech = "Unknown"
		}
		return &models.LiveHost{
			URL:        url,
			StatusCode: strconv.Itoa(resp.StatusCode),
			Technology: tech,
		}
	}
	return nil
}
