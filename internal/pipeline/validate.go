package pipeline

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/miekg/dns"

	"github.com/hakim/reconaug/internal/portscan"
)

// ErrInvalidTarget is wrapped by every request validation failure. No job
// is created for a request failing validation.
var ErrInvalidTarget = errors.New("invalid target")

var domainPattern = regexp.MustCompile(`^[a-zA-Z0-9][-a-zA-Z0-9.]*\.[a-zA-Z]{2,}$`)

// ValidateDomain checks domain is a syntactically valid hostname with an
// alphabetic TLD. Case is not changed.
func ValidateDomain(domain string) error {
	if domain == "" {
		return fmt.Errorf("%w: domain is required", ErrInvalidTarget)
	}
	if !domainPattern.MatchString(domain) {
		return fmt.Errorf("%w: %q is not a valid domain", ErrInvalidTarget, domain)
	}
	if _, ok := dns.IsDomainName(domain); !ok {
		return fmt.Errorf("%w: %q is not a valid domain name", ErrInvalidTarget, domain)
	}
	return nil
}

// ValidateHost accepts a URL, host:port, hostname or IP and returns the
// bare host to scan.
func ValidateHost(host string) (string, error) {
	if strings.TrimSpace(host) == "" {
		return "", fmt.Errorf("%w: host is required", ErrInvalidTarget)
	}

	bare := portscan.NormalizeHost(host)
	if net.ParseIP(bare) != nil {
		return bare, nil
	}
	if err := ValidateDomain(bare); err != nil {
		return "", err
	}
	return bare, nil
}
