// Package httpprobe decides which discovered hostnames answer over HTTP.
package httpprobe

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/hakim/reconaug/internal/models"
	"github.com/hakim/reconaug/internal/tools"
)

// Prober turns hostnames into live hosts. Empty input returns immediately
// without spawning a process or touching the network.
type Prober interface {
	Probe(ctx context.Context, hosts []string) ([]models.LiveHost, error)
}

var (
	digitsPattern  = regexp.MustCompile(`\d+`)
	bracketPattern = regexp.MustCompile(`\[([^\]]*)\]`)
)

// StripANSI removes terminal color escape sequences
func StripANSI(s string) string {
	return ansi.Strip(s)
}

// SanitizeStatusCode reduces a raw status field to its digit characters,
// "0" when there are none. Only the first code of a redirect chain
// ("301,200") is kept.
func SanitizeStatusCode(raw string) string {
	first, _, _ := strings.Cut(StripANSI(raw), ",")
	if digits := strings.Join(digitsPattern.FindAllString(first, -1), ""); digits != "" {
		return digits
	}
	return "0"
}

// HttpxProber pipes hosts to the httpx binary
type HttpxProber struct {
	Binary  string
	Threads int
	// Timeout bounds a single batch; zero means no bound.
	Timeout time.Duration

	run func(ctx context.Context, targets []string, threads int, binary string) ([]string, error)
}

// NewHttpxProber creates a prober running binary with threads workers.
func NewHttpxProber(binary string, threads int, timeout time.Duration) *HttpxProber {
	return &HttpxProber{Binary: binary, Threads: threads, Timeout: timeout, run: tools.RunHttpx}
}

func (p *HttpxProber) Probe(ctx context.Context, hosts []string) ([]models.LiveHost, error) {
	if len(hosts) == 0 {
		return []models.LiveHost{}, nil
	}

	run := p.run
	if run == nil {
		run = tools.RunHttpx
	}

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	// Partial output from an interrupted run is still parsed
	lines, err := run(ctx, hosts, p.Threads, p.Binary)
	return ParseHttpxLines(lines), err
}

// ParseHttpxLines parses "url [status] [tech,...]" lines. Lines without a
// URL are skipped; a missing status reads as "0" and missing technology as
// "Unknown".
func ParseHttpxLines(lines []string) []models.LiveHost {
	live := make([]models.LiveHost, 0, len(lines))
	for _, line := range lines {
		if host, ok := parseHttpxLine(line); ok {
			live = append(live, host)
		}
	}
	return live
}

func parseHttpxLine(line string) (models.LiveHost, bool) {
	line = strings.TrimSpace(StripANSI(line))
	if line == "" {
		return models.LiveHost{}, false
	}

	url, rest, _ := strings.Cut(line, " ")
	if !strings.Contains(url, "://") {
		return models.LiveHost{}, false
	}

	host := models.LiveHost{URL: url, StatusCode: "0", Technology: "Unknown"}

	groups := bracketPattern.FindAllStringSubmatch(rest, -1)
	if len(groups) > 0 {
		host.StatusCode = SanitizeStatusCode(groups[0][1])
	}
	if len(groups) > 1 {
		techs := make([]string, 0, len(groups)-1)
		for _, g := range groups[1:] {
			if t := strings.TrimSpace(g[1]); t != "" {
				techs = append(techs, t)
			}
		}
		if len(techs) > 0 {
			host.Technology = strings.Join(techs, ", ")
		}
	}
	return host, true
}
