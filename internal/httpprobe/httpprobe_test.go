package httpprobe

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hakim/reconaug/internal/models"
)

func TestSanitizeStatusCode(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"200", "200"},
		{"\x1b[32m200\x1b[0m", "200"},
		{"[301]", "301"},
		{"", "0"},
		{"\x1b[31m\x1b[0m", "0"},
		{"FAILED", "0"},
		{"2 0 0", "200"},
		{"2\x1b[0m00", "200"},
		{"301,200", "301"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeStatusCode(tt.raw), "raw %q", tt.raw)
	}
}

func TestParseHttpxLines(t *testing.T) {
	lines := []string{
		"https://a.example.com [\x1b[32m200\x1b[0m] [\x1b[35mNginx\x1b[0m,\x1b[35mPHP\x1b[0m]",
		"http://b.example.com [404]",
		"https://c.example.com",
		"not a url [200]",
		"",
	}

	got := ParseHttpxLines(lines)
	assert.Equal(t, []models.LiveHost{
		{URL: "https://a.example.com", StatusCode: "200", Technology: "Nginx,PHP"},
		{URL: "http://b.example.com", StatusCode: "404", Technology: "Unknown"},
		{URL: "https://c.example.com", StatusCode: "0", Technology: "Unknown"},
	}, got)
}

func TestHttpxProberEmptyInputSpawnsNothing(t *testing.T) {
	called := false
	p := &HttpxProber{run: func(context.Context, []string, int, string) ([]string, error) {
		called = true
		return nil, nil
	}}

	live, err := p.Probe(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, live)
	assert.False(t, called)
}

func TestHttpxProberKeepsPartialOutput(t *testing.T) {
	p := &HttpxProber{run: func(context.Context, []string, int, string) ([]string, error) {
		return []string{"https://a.example.com [200]"}, errors.New("httpx ended early")
	}}

	live, err := p.Probe(context.Background(), []string{"a.example.com", "b.example.com"})
	require.Error(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, "https://a.example.com", live[0].URL)
}

func TestBatchSize(t *testing.T) {
	assert.Equal(t, 10, BatchSize(0))
	assert.Equal(t, 10, BatchSize(5))
	assert.Equal(t, 10, BatchSize(109))
	assert.Equal(t, 13, BatchSize(137))
	assert.Equal(t, 100, BatchSize(1000))
}

func TestSplitBatches(t *testing.T) {
	hosts := make([]string, 137)
	for i := range hosts {
		hosts[i] = "h" + strings.Repeat("x", i%3)
	}

	batches := SplitBatches(hosts)
	require.Len(t, batches, 11)

	var joined []string
	for _, b := range batches {
		assert.NotEmpty(t, b)
		assert.LessOrEqual(t, len(b), 13)
		joined = append(joined, b...)
	}
	assert.Equal(t, hosts, joined)

	assert.Nil(t, SplitBatches(nil))
	assert.Len(t, SplitBatches([]string{"one"}), 1)
}

func TestDirectProberFallsBackToHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Server", "test-server")
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	// nothing listens on the closed port
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	dead := ln.Addr().String()
	ln.Close()

	p := NewDirectProber(2*time.Second, 4)
	live, err := p.Probe(context.Background(), []string{u.Host, dead})
	require.NoError(t, err)

	require.Len(t, live, 1)
	assert.Equal(t, "http://"+u.Host, live[0].URL)
	assert.Equal(t, "403", live[0].StatusCode)
	assert.Equal(t, "test-server", live[0].Technology)
}

func TestDirectProberUnknownServer(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header()["Server"] = nil
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	live, err := NewDirectProber(2*time.Second, 1).Probe(context.Background(), []string{u.Host})
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, "https://"+u.Host, live[0].URL)
	assert.Equal(t, "200", live[0].StatusCode)
	assert.Equal(t, "Unknown", live[0].Technology)
}
