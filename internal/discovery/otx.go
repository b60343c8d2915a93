package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const otxBaseURL = "https://otx.alienvault.com/api/v1/indicators/domain/%s/passive_dns"

type otxResponse struct {
	PassiveDNS []otxEntry `json:"passive_dns"`
}

type otxEntry struct {
	Hostname string `json:"hostname"`
}

// OTXSource queries AlienVault OTX passive DNS. OTX returns every hostname
// that ever resolved alongside the domain, so only names containing the
// domain are kept regardless of the configured filter mode.
type OTXSource struct {
	Client *APIClient
	// URLFormat overrides otxBaseURL; it takes the domain as its only verb.
	URLFormat string
	Mode      FilterMode
}

func (s *OTXSource) Name() string { return "otx" }

func (s *OTXSource) Fetch(ctx context.Context, domain string) Result {
	format := s.URLFormat
	if format == "" {
		format = otxBaseURL
	}

	body, err := s.Client.Get(ctx, s.Name(), fmt.Sprintf(format, domain), nil)
	if err != nil {
		return failed(s.Name(), fmt.Errorf("otx fetch for %s: %w", domain, err))
	}

	var resp otxResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return failed(s.Name(), fmt.Errorf("otx JSON parse for %s: %w", domain, err))
	}

	var names []string
	for _, entry := range resp.PassiveDNS {
		if strings.Contains(entry.Hostname, domain) {
			names = append(names, entry.Hostname)
		}
	}

	return ok(s.Name(), FilterHostnames(CleanHostnames(names), domain, s.Mode))
}
