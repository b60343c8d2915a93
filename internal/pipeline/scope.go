package pipeline

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/hakim/reconaug/internal/config"
)

// ErrOutOfScope is returned for targets outside the configured allow-list.
var ErrOutOfScope = errors.New("target out of scope")

// Scope defines allowed scanning boundaries.
// An empty Scope (no rules) allows any target.
type Scope struct {
	// AllowedDomains lists exact domains ("example.com") or wildcard
	// suffixes ("*.example.com", matching any subdomain depth).
	AllowedDomains []string

	// AllowedCIDRs is a list of CIDR ranges an IP must fall within.
	AllowedCIDRs []string
}

// NewScope builds a Scope from configuration.
func NewScope(cfg config.ScopeConfig) *Scope {
	return &Scope{
		AllowedDomains: cfg.AllowedDomains,
		AllowedCIDRs:   cfg.AllowedCIDRs,
	}
}

// Check validates target as an IP when it parses as one, as a domain
// otherwise.
func (s *Scope) Check(target string) error {
	if s == nil {
		return nil
	}
	if net.ParseIP(target) != nil {
		return s.ValidateIP(target)
	}
	return s.ValidateTarget(target)
}

// ValidateTarget checks if a domain is within scope.
// If AllowedDomains is empty, everything is allowed.
func (s *Scope) ValidateTarget(target string) error {
	if len(s.AllowedDomains) == 0 {
		return nil
	}
	for _, pattern := range s.AllowedDomains {
		if domainMatches(target, pattern) {
			return nil
		}
	}
	return fmt.Errorf("%w: %q (domains: %s)", ErrOutOfScope,
		target, strings.Join(s.AllowedDomains, ", "))
}

// ValidateIP checks if an IP is within any allowed CIDR range.
// Returns nil if allowed or no CIDRs configured.
func (s *Scope) ValidateIP(ip string) error {
	if len(s.AllowedCIDRs) == 0 {
		return nil
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return fmt.Errorf("scope: %q is not a valid IP address", ip)
	}
	for _, cidr := range s.AllowedCIDRs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		if network.Contains(parsed) {
			return nil
		}
	}
	return fmt.Errorf("%w: IP %q (CIDRs: %s)", ErrOutOfScope,
		ip, strings.Join(s.AllowedCIDRs, ", "))
}

// domainMatches returns true when target satisfies the scope pattern.
//
//   - "*.example.com" matches "foo.example.com" and "a.b.example.com" but
//     not "example.com".
//   - "example.com" matches only the exact string "example.com".
//   - Comparison is case-insensitive.
func domainMatches(target, pattern string) bool {
	target = strings.ToLower(target)
	pattern = strings.ToLower(pattern)

	suffix, wildcard := strings.CutPrefix(pattern, "*.")
	if !wildcard {
		return target == pattern
	}
	return strings.HasSuffix(target, "."+suffix)
}
