// Package discovery holds the subdomain source adapters and the merge step
// that folds their output into one deduplicated set.
package discovery

import (
	"context"
	"errors"
	"strings"

	"github.com/hakim/reconaug/internal/tools"
)

// Outcome classifies how a source call ended
type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeUnavailable Outcome = "unavailable"
	OutcomeError       Outcome = "error"
)

// FilterMode decides which cleaned hostnames a source keeps
type FilterMode string

const (
	// FilterPermissive keeps every cleaned hostname
	FilterPermissive FilterMode = "permissive"
	// FilterContains keeps hostnames containing the queried domain
	FilterContains FilterMode = "contains"
)

// Result is what one source contributed. Hosts is always empty unless
// Outcome is OutcomeOK; it may contain duplicates.
type Result struct {
	Source  string
	Hosts   []string
	Outcome Outcome
	Err     error
}

// Source is a uniform subdomain producer. Fetch never panics on bad input
// and never returns hosts alongside a failure.
type Source interface {
	Name() string
	Fetch(ctx context.Context, domain string) Result
}

func ok(source string, hosts []string) Result {
	return Result{Source: source, Hosts: hosts, Outcome: OutcomeOK}
}

func unavailable(source string, err error) Result {
	return Result{Source: source, Outcome: OutcomeUnavailable, Err: err}
}

// failed classifies err, mapping a binary that vanished since the
// availability probe to unavailable.
func failed(source string, err error) Result {
	if errors.Is(err, tools.ErrToolNotFound) {
		return unavailable(source, err)
	}
	return Result{Source: source, Outcome: OutcomeError, Err: err}
}

// CleanHostnames trims names, strips a leading "*." wildcard and drops
// empty entries and entries containing "@". Applying it twice yields the
// same result as applying it once. Case and trailing dots are preserved.
func CleanHostnames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		for strings.HasPrefix(name, "*.") {
			name = strings.TrimSpace(strings.TrimPrefix(name, "*."))
		}
		if name == "" || strings.Contains(name, "@") {
			continue
		}
		out = append(out, name)
	}
	return out
}

// FilterHostnames applies mode to already cleaned names.
func FilterHostnames(names []string, domain string, mode FilterMode) []string {
	if mode != FilterContains {
		return names
	}
	out := make([]string, 0, len(names))
	for _, name := range names {
		if strings.Contains(name, domain) {
			out = append(out, name)
		}
	}
	return out
}
