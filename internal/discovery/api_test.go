package discovery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient() *APIClient {
	c := NewAPIClient("reconaug-test", 5*time.Second, 1000, 100)
	c.RetryDelay = 10 * time.Millisecond
	return c
}

func TestCrtshSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "%.example.com", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("output"))
		assert.Equal(t, "reconaug-test", r.Header.Get("User-Agent"))
		w.Write([]byte(`[
			{"common_name":"example.com","name_value":"*.example.com\nwww.example.com"},
			{"common_name":"mail.example.com","name_value":"admin@example.com"}
		]`))
	}))
	defer srv.Close()

	src := &CrtshSource{Client: newTestClient(), BaseURL: srv.URL + "/", Mode: FilterPermissive}
	res := src.Fetch(context.Background(), "example.com")

	require.Equal(t, OutcomeOK, res.Outcome)
	assert.Equal(t, []string{"example.com", "example.com", "www.example.com", "mail.example.com"}, res.Hosts)
}

func TestCrtshMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html>busy</html>`))
	}))
	defer srv.Close()

	src := &CrtshSource{Client: newTestClient(), BaseURL: srv.URL + "/"}
	res := src.Fetch(context.Background(), "example.com")

	assert.Equal(t, OutcomeError, res.Outcome)
	assert.Empty(t, res.Hosts)
	assert.Contains(t, res.Err.Error(), "JSON parse")
}

func TestAPIClientRetriesOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`ok`))
	}))
	defer srv.Close()

	body, err := newTestClient().Get(context.Background(), "test", srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(2), calls.Load())
}

func TestAPIClientNoRetryOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient().Get(context.Background(), "test", srv.URL, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Equal(t, int32(1), calls.Load())
}

func TestAPIClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := newTestClient()
	c.Timeout = 50 * time.Millisecond

	src := &CrtshSource{Client: c, BaseURL: srv.URL + "/"}
	res := src.Fetch(context.Background(), "example.com")

	assert.Equal(t, OutcomeError, res.Outcome)
	assert.Contains(t, res.Err.Error(), "deadline exceeded")
}

func TestOTXSourceKeepsRelatedHostnames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/indicators/domain/example.com/passive_dns", r.URL.Path)
		w.Write([]byte(`{"passive_dns":[
			{"hostname":"api.example.com"},
			{"hostname":"cdn.other.net"},
			{"hostname":"api.example.com"}
		]}`))
	}))
	defer srv.Close()

	src := &OTXSource{Client: newTestClient(), URLFormat: srv.URL + "/api/v1/indicators/domain/%s/passive_dns"}
	res := src.Fetch(context.Background(), "example.com")

	require.Equal(t, OutcomeOK, res.Outcome)
	assert.Equal(t, []string{"api.example.com", "api.example.com"}, res.Hosts)
}

func TestChaosSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key-123", r.Header.Get("Authorization"))
		w.Write([]byte(`{"domain":"example.com","subdomains":["api","*.dev",""]}`))
	}))
	defer srv.Close()

	src := &ChaosSource{Client: newTestClient(), APIKey: "key-123", URLFormat: srv.URL + "/dns/%s/subdomains"}
	res := src.Fetch(context.Background(), "example.com")

	require.Equal(t, OutcomeOK, res.Outcome)
	assert.Equal(t, []string{"api.example.com", "dev.example.com"}, res.Hosts)
}

func TestChaosSourceWithoutKey(t *testing.T) {
	src := &ChaosSource{Client: newTestClient()}
	res := src.Fetch(context.Background(), "example.com")

	assert.Equal(t, OutcomeUnavailable, res.Outcome)
	assert.Empty(t, res.Hosts)
}

func TestHackerTargetSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "example.com", r.URL.Query().Get("q"))
		w.Write([]byte("www.example.com,93.184.216.34\nmail.example.com,93.184.216.35\n"))
	}))
	defer srv.Close()

	src := &HackerTargetSource{Client: newTestClient(), URLFormat: srv.URL + "/hostsearch/?q=%s"}
	res := src.Fetch(context.Background(), "example.com")

	require.Equal(t, OutcomeOK, res.Outcome)
	assert.Equal(t, []string{"www.example.com", "mail.example.com"}, res.Hosts)
}

func TestHackerTargetQuotaExceeded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("API count exceeded - Increase Quota with Membership"))
	}))
	defer srv.Close()

	src := &HackerTargetSource{Client: newTestClient(), URLFormat: srv.URL + "/?q=%s"}
	res := src.Fetch(context.Background(), "example.com")

	assert.Equal(t, OutcomeError, res.Outcome)
	assert.Empty(t, res.Hosts)
}
