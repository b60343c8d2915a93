// Package historic collects previously crawled URLs for a domain.
package historic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hakim/reconaug/internal/storage"
	"github.com/hakim/reconaug/internal/tools"
)

const (
	// MaxClientURLs caps the URL lists handed to clients.
	MaxClientURLs = 1000

	defaultGauTimeout     = 180 * time.Second
	defaultArchiveTimeout = 60 * time.Second
	archiveBaseURL        = "http://web.archive.org/cdx/search/cdx"
	archiveMaxBody        = 100 * 1024 * 1024
)

// GauRunner matches tools.RunGau
type GauRunner func(ctx context.Context, domain string, threads int, outFile, binary string) ([]string, error)

// Fetcher tries gau, then gau on the www-toggled domain, then the Wayback
// CDX API, stopping at the first strategy that yields URLs.
type Fetcher struct {
	GauBinary      string
	GauThreads     int
	GauTimeout     time.Duration
	OutputDir      string
	ArchiveURL     string
	ArchiveTimeout time.Duration
	HTTP           *http.Client
	Logger         logrus.FieldLogger

	runGau GauRunner
}

// NewFetcher creates a fetcher using the gau binary at path.
func NewFetcher(binary string, threads int, gauTimeout time.Duration, outputDir string, logger logrus.FieldLogger) *Fetcher {
	return &Fetcher{
		GauBinary:  binary,
		GauThreads: threads,
		GauTimeout: gauTimeout,
		OutputDir:  outputDir,
		HTTP:       &http.Client{},
		Logger:     logger,
		runGau:     tools.RunGau,
	}
}

// Fetch returns historical URLs for domain. An empty result without error
// means every strategy ran cleanly and found nothing. When all strategies
// come back empty and the archive query failed, the archive error is
// returned.
func (f *Fetcher) Fetch(ctx context.Context, domain string) ([]string, error) {
	log := f.logger().WithField("target", domain)

	urls, err := f.gau(ctx, domain)
	switch {
	case errors.Is(err, tools.ErrToolNotFound):
		log.Info("gau not available, querying the web archive directly")
	case len(urls) > 0:
		if err != nil {
			log.WithError(err).Warn("gau ended early, keeping partial results")
		}
		return urls, nil
	default:
		if err != nil {
			log.WithError(err).Warn("gau failed")
		}

		variant := ToggleWWW(domain)
		log.WithField("variant", variant).Debug("gau returned nothing, retrying www variant")
		urls, err = f.gau(ctx, variant)
		if len(urls) > 0 {
			return urls, nil
		}
		if err != nil {
			log.WithError(err).Warn("gau failed for www variant")
		}
	}

	urls, err = f.archive(ctx, strings.TrimPrefix(domain, "www."))
	if err != nil {
		return []string{}, fmt.Errorf("web archive lookup for %s: %w", domain, err)
	}
	return urls, nil
}

func (f *Fetcher) gau(ctx context.Context, domain string) ([]string, error) {
	run := f.runGau
	if run == nil {
		run = tools.RunGau
	}

	timeout := f.GauTimeout
	if timeout <= 0 {
		timeout = defaultGauTimeout
	}
	gauCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return run(gauCtx, domain, f.GauThreads, storage.RawOutputPath(f.OutputDir, "gau", domain), f.GauBinary)
}

// archive queries the Wayback Machine CDX index for every URL under base.
func (f *Fetcher) archive(ctx context.Context, base string) ([]string, error) {
	endpoint := f.ArchiveURL
	if endpoint == "" {
		endpoint = archiveBaseURL
	}

	q := url.Values{}
	q.Set("url", "*."+base+"/*")
	q.Set("output", "json")
	q.Set("fl", "original")
	q.Set("collapse", "urlkey")

	timeout := f.ArchiveTimeout
	if timeout <= 0 {
		timeout = defaultArchiveTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	client := f.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("archive returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, archiveMaxBody))
	if err != nil {
		return nil, err
	}
	return parseCDX(body)
}

// parseCDX decodes the CDX JSON table, skipping its header row.
func parseCDX(body []byte) ([]string, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return []string{}, nil
	}

	var rows [][]string
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode archive response: %w", err)
	}

	urls := make([]string, 0, len(rows))
	for i, row := range rows {
		if i == 0 || len(row) == 0 || row[0] == "" {
			continue
		}
		urls = append(urls, row[0])
	}
	return urls, nil
}

// ToggleWWW adds a leading "www." or removes an existing one.
func ToggleWWW(domain string) string {
	if rest, ok := strings.CutPrefix(domain, "www."); ok {
		return rest
	}
	return "www." + domain
}

// Cap truncates urls to MaxClientURLs, reporting whether it did.
func Cap(urls []string) ([]string, bool) {
	if len(urls) <= MaxClientURLs {
		return urls, false
	}
	return urls[:MaxClientURLs], true
}

func (f *Fetcher) logger() logrus.FieldLogger {
	if f.Logger == nil {
		return logrus.StandardLogger()
	}
	return f.Logger
}
