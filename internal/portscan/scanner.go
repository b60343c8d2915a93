// Package portscan wraps naabu to find open ports on a single host.
package portscan

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hakim/reconaug/internal/models"
	"github.com/hakim/reconaug/internal/storage"
	"github.com/hakim/reconaug/internal/tools"
)

// ErrNaabuUnavailable is returned when the naabu binary cannot be run.
var ErrNaabuUnavailable = errors.New("naabu tool not available")

var (
	foundPortsPattern  = regexp.MustCompile(`(?i)found\s+(\d+)\s+ports?`)
	stderrPortPattern  = regexp.MustCompile(`(?:^|[\s\[(])(?:[\w.\-]+|\[[0-9a-fA-F:]+\]):(\d{1,5})\b`)
	guessedDefaultPort = []int{80, 443}
)

// NaabuRunner matches tools.RunNaabu
type NaabuRunner func(ctx context.Context, host string, concurrency int, outFile, binary string) (*tools.NaabuResult, error)

// Result is the outcome of scanning one host
type Result struct {
	Host  string        `json:"host"`
	Ports []models.Port `json:"ports"`
	// Guessed is set when Ports is the safe default set rather than
	// scanner output.
	Guessed bool `json:"guessed,omitempty"`
}

// Scanner runs naabu against one host at a time
type Scanner struct {
	Binary      string
	Concurrency int
	OutputDir   string
	// Timeout bounds one naabu run; zero means no bound.
	Timeout time.Duration
	Logger  logrus.FieldLogger

	run NaabuRunner
}

// NewScanner creates a scanner for the naabu binary at path.
func NewScanner(binary string, concurrency int, outputDir string, logger logrus.FieldLogger) *Scanner {
	return &Scanner{
		Binary:      binary,
		Concurrency: concurrency,
		OutputDir:   outputDir,
		Logger:      logger,
		run:         tools.RunNaabu,
	}
}

// Scan normalizes host and returns its open ports sorted ascending.
func (s *Scanner) Scan(ctx context.Context, host string) (*Result, error) {
	target := NormalizeHost(host)
	if target == "" {
		return nil, fmt.Errorf("invalid host %q", host)
	}

	run := s.run
	if run == nil {
		run = tools.RunNaabu
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	out, err := run(ctx, target, s.Concurrency, storage.RawOutputPath(s.OutputDir, "naabu", target), s.Binary)
	if errors.Is(err, tools.ErrToolNotFound) {
		return nil, ErrNaabuUnavailable
	}
	if err != nil {
		// naabu may exit non-zero after announcing ports it never wrote
		if out == nil || reportedPortCount(out.Stderr) == 0 {
			return nil, fmt.Errorf("naabu scan of %s: %w", target, err)
		}
		s.logger().WithError(err).WithField("target", target).
			Warn("naabu failed after reporting open ports, recovering from its log")
	}

	result := &Result{Host: target}
	numbers := ParseNaabuLines(out.Lines)

	if len(numbers) == 0 && reportedPortCount(out.Stderr) > 0 {
		numbers = parseStderrPorts(out.Stderr)
		if len(numbers) == 0 {
			s.logger().WithField("target", target).
				Warn("naabu reported open ports but wrote none, assuming 80 and 443")
			numbers = guessedDefaultPort
			result.Guessed = true
		}
	}

	result.Ports = toPorts(numbers, result.Guessed)
	return result, nil
}

// NormalizeHost strips scheme, path and port from a URL or host:port.
// IPv6 literals are returned without brackets.
func NormalizeHost(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	if strings.Contains(raw, "://") {
		if u, err := url.Parse(raw); err == nil {
			return u.Hostname()
		}
	}

	if i := strings.IndexAny(raw, "/?#"); i >= 0 {
		raw = raw[:i]
	}
	if h, _, err := net.SplitHostPort(raw); err == nil {
		return h
	}
	return strings.TrimSuffix(strings.TrimPrefix(raw, "["), "]")
}

// ParseNaabuLines reads "port" or "host:port" lines, ignoring anything
// that does not end in a valid port. Duplicates are dropped.
func ParseNaabuLines(lines []string) []int {
	seen := make(map[int]bool)
	var ports []int
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if i := strings.LastIndexByte(line, ':'); i >= 0 {
			line = line[i+1:]
		}
		n, err := strconv.Atoi(line)
		if err != nil || !validPort(n) || seen[n] {
			continue
		}
		seen[n] = true
		ports = append(ports, n)
	}
	sort.Ints(ports)
	return ports
}

func reportedPortCount(stderr string) int {
	m := foundPortsPattern.FindStringSubmatch(stderr)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

func parseStderrPorts(stderr string) []int {
	var lines []string
	for _, m := range stderrPortPattern.FindAllStringSubmatch(stderr, -1) {
		lines = append(lines, m[1])
	}
	return ParseNaabuLines(lines)
}

func toPorts(numbers []int, guessed bool) []models.Port {
	ports := make([]models.Port, 0, len(numbers))
	for _, n := range numbers {
		ports = append(ports, models.Port{Number: n, Service: ServiceName(n), Guessed: guessed})
	}
	return ports
}

func validPort(n int) bool {
	return n >= 1 && n <= 65535
}

func (s *Scanner) logger() logrus.FieldLogger {
	if s.Logger == nil {
		return logrus.StandardLogger()
	}
	return s.Logger
}
