package portscan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hakim/reconaug/internal/logging"
	"github.com/hakim/reconaug/internal/models"
	"github.com/hakim/reconaug/internal/tools"
)

func newTestScanner(out *tools.NaabuResult, err error) (*Scanner, *string) {
	var scanned string
	s := NewScanner("naabu", 10, "", logging.Discard())
	s.run = func(_ context.Context, host string, _ int, _ string, _ string) (*tools.NaabuResult, error) {
		scanned = host
		return out, err
	}
	return s, &scanned
}

func TestNormalizeHost(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://example.com:8443/path", "example.com"},
		{"http://example.com", "example.com"},
		{"example.com:22", "example.com"},
		{"example.com/admin?x=1", "example.com"},
		{"  10.0.0.5  ", "10.0.0.5"},
		{"http://[2001:db8::1]:8080/", "2001:db8::1"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"[::1]", "::1"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeHost(tt.raw), "raw %q", tt.raw)
	}
}

func TestParseNaabuLines(t *testing.T) {
	lines := []string{"443", "example.com:80", "example.com:443", "garbage", "example.com:99999", "0", "22"}
	assert.Equal(t, []int{22, 80, 443}, ParseNaabuLines(lines))
}

func TestScanParsesResultFile(t *testing.T) {
	s, scanned := newTestScanner(&tools.NaabuResult{Lines: []string{"example.com:8443", "example.com:22"}}, nil)

	res, err := s.Scan(context.Background(), "https://example.com:8443/path")
	require.NoError(t, err)
	assert.Equal(t, "example.com", *scanned)
	assert.Equal(t, "example.com", res.Host)
	assert.False(t, res.Guessed)
	assert.Equal(t, []models.Port{
		{Number: 22, Service: "SSH"},
		{Number: 8443, Service: "HTTPS-Alt"},
	}, res.Ports)
}

func TestScanRecoversPortsFromStderr(t *testing.T) {
	stderr := "[INF] Running CONNECT scan\nexample.com:3306\nexample.com:9999\n[INF] Found 2 ports on host example.com (93.184.216.34)\n"
	s, _ := newTestScanner(&tools.NaabuResult{Stderr: stderr}, nil)

	res, err := s.Scan(context.Background(), "example.com")
	require.NoError(t, err)
	assert.False(t, res.Guessed)
	assert.Equal(t, []models.Port{
		{Number: 3306, Service: "MySQL"},
		{Number: 9999, Service: "Unknown"},
	}, res.Ports)
}

func TestScanGuessesDefaults(t *testing.T) {
	s, _ := newTestScanner(&tools.NaabuResult{Stderr: "[INF] Found 3 ports on host example.com\n"}, nil)

	res, err := s.Scan(context.Background(), "example.com")
	require.NoError(t, err)
	assert.True(t, res.Guessed)
	assert.Equal(t, []models.Port{
		{Number: 80, Service: "HTTP", Guessed: true},
		{Number: 443, Service: "HTTPS", Guessed: true},
	}, res.Ports)
}

func TestScanNoPorts(t *testing.T) {
	s, _ := newTestScanner(&tools.NaabuResult{Stderr: "[INF] Found 0 ports\n"}, nil)

	res, err := s.Scan(context.Background(), "example.com")
	require.NoError(t, err)
	assert.False(t, res.Guessed)
	assert.NotNil(t, res.Ports)
	assert.Empty(t, res.Ports)
}

func TestScanMissingNaabu(t *testing.T) {
	s, _ := newTestScanner(nil, fmt.Errorf("naabu: %w", tools.ErrToolNotFound))

	_, err := s.Scan(context.Background(), "example.com")
	require.ErrorIs(t, err, ErrNaabuUnavailable)
	assert.Equal(t, "naabu tool not available", err.Error())
}

func TestScanFailure(t *testing.T) {
	s, _ := newTestScanner(nil, errors.New("exit status 1"))

	_, err := s.Scan(context.Background(), "example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "example.com")
}

func TestScanFatalNaabuRunIsError(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	bin := filepath.Join(t.TempDir(), "naabu")
	script := "#!/bin/sh\necho '[FTL] Could not run enumeration' >&2\nexit 1\n"
	require.NoError(t, os.WriteFile(bin, []byte(script), 0755))

	s := NewScanner(bin, 10, t.TempDir(), logging.Discard())
	res, err := s.Scan(context.Background(), "example.invalid")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "example.invalid")
	assert.NotErrorIs(t, err, ErrNaabuUnavailable)
}

func TestScanFailedRunWithReportedPortsRecovers(t *testing.T) {
	stderr := "example.com:3306\n[INF] Found 1 ports on host example.com\n"
	s, _ := newTestScanner(&tools.NaabuResult{Stderr: stderr}, errors.New("command failed with exit code 1"))

	res, err := s.Scan(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, []models.Port{{Number: 3306, Service: "MySQL"}}, res.Ports)
}

func TestScanFailedRunWithZeroCountIsError(t *testing.T) {
	s, _ := newTestScanner(&tools.NaabuResult{Stderr: "[INF] Found 0 ports\n"}, errors.New("command failed with exit code 1"))

	_, err := s.Scan(context.Background(), "example.com")
	require.Error(t, err)
}

func TestScanInvalidHost(t *testing.T) {
	s, _ := newTestScanner(nil, nil)
	_, err := s.Scan(context.Background(), "   ")
	require.Error(t, err)
}

func TestServiceName(t *testing.T) {
	assert.Equal(t, "SSH", ServiceName(22))
	assert.Equal(t, "PostgreSQL", ServiceName(5432))
	assert.Equal(t, "HTTP-Proxy", ServiceName(8080))
	assert.Equal(t, "Unknown", ServiceName(12345))
}
