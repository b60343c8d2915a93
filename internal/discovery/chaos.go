package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const chaosBaseURL = "https://dns.projectdiscovery.io/dns/%s/subdomains"

var errNoChaosKey = errors.New("chaos API key not configured")

type chaosResponse struct {
	Domain     string   `json:"domain"`
	Subdomains []string `json:"subdomains"`
}

// ChaosSource queries the ProjectDiscovery Chaos dataset. The API returns
// labels relative to the domain ("api", "*.dev"), which are suffixed with
// the domain to form hostnames.
type ChaosSource struct {
	Client    *APIClient
	APIKey    string
	URLFormat string
	Mode      FilterMode
}

func (s *ChaosSource) Name() string { return "chaos" }

func (s *ChaosSource) Fetch(ctx context.Context, domain string) Result {
	if s.APIKey == "" {
		return unavailable(s.Name(), errNoChaosKey)
	}

	format := s.URLFormat
	if format == "" {
		format = chaosBaseURL
	}

	body, err := s.Client.Get(ctx, s.Name(), fmt.Sprintf(format, domain), map[string]string{
		"Authorization": s.APIKey,
	})
	if err != nil {
		return failed(s.Name(), fmt.Errorf("chaos fetch for %s: %w", domain, err))
	}

	var resp chaosResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return failed(s.Name(), fmt.Errorf("chaos JSON parse for %s: %w", domain, err))
	}

	names := make([]string, 0, len(resp.Subdomains))
	for _, label := range resp.Subdomains {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		names = append(names, label+"."+domain)
	}

	return ok(s.Name(), FilterHostnames(CleanHostnames(names), domain, s.Mode))
}
