package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hakim/reconaug/internal/models"
)

func sampleScan() *models.Scan {
	return &models.Scan{
		ScanMeta: models.ScanMeta{
			ID:        "scan-1",
			Target:    "example.com",
			StartedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		},
		Subdomains: []models.Subdomain{
			{Name: "a.example.com", Source: "crtsh"},
			{Name: "b.example.com", Source: "crtsh"},
			{Name: "c.example.com", Source: models.SourceCombined},
		},
		LiveHosts: []models.LiveHost{
			{URL: "https://a.example.com", StatusCode: "200", Technology: "nginx", Ports: []models.Port{
				{Number: 80, Service: "HTTP"},
				{Number: 443, Service: "HTTPS", Guessed: true},
			}},
		},
	}
}

func TestRenderScan(t *testing.T) {
	out := RenderScan(sampleScan(), []string{"http://example.com/login"})

	assert.Contains(t, out, "**Target:** example.com")
	assert.Contains(t, out, "**Subdomains:** 3 | **Live hosts:** 1 | **Open ports:** 2 | **Historical URLs:** 1")
	assert.Contains(t, out, "| https://a.example.com | 200 | nginx | 80/HTTP, 443/HTTPS? |")
	assert.Contains(t, out, "- http://example.com/login")

	// crtsh (2) sorts before combined (1)
	assert.Less(t, strings.Index(out, "| crtsh | 2 |"), strings.Index(out, "| combined | 1 |"))
}

func TestRenderScanEmpty(t *testing.T) {
	out := RenderScan(&models.Scan{ScanMeta: models.ScanMeta{ID: "x", Target: "empty.com"}}, nil)

	assert.Contains(t, out, "No live HTTP services discovered.")
	assert.Contains(t, out, "None collected.")
}

func TestRenderScanTruncatesURLs(t *testing.T) {
	urls := make([]string, maxReportURLs+5)
	for i := range urls {
		urls[i] = fmt.Sprintf("http://example.com/%d", i)
	}

	out := RenderScan(sampleScan(), urls)
	assert.Contains(t, out, "_5 more not shown._")
	assert.NotContains(t, out, fmt.Sprintf("http://example.com/%d\n", maxReportURLs))
}

func TestWriteScanReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.md")
	require.NoError(t, WriteScanReport(sampleScan(), nil, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# Recon Report"))
}
