package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

const crtshBaseURL = "https://crt.sh/"

type crtshEntry struct {
	CommonName string `json:"common_name"`
	NameValue  string `json:"name_value"`
}

// CrtshSource queries crt.sh Certificate Transparency logs
type CrtshSource struct {
	Client  *APIClient
	BaseURL string
	Mode    FilterMode
}

func (s *CrtshSource) Name() string { return "crtsh" }

func (s *CrtshSource) Fetch(ctx context.Context, domain string) Result {
	base := s.BaseURL
	if base == "" {
		base = crtshBaseURL
	}
	endpoint := fmt.Sprintf("%s?q=%s&output=json", base, url.QueryEscape("%."+domain))

	body, err := s.Client.Get(ctx, s.Name(), endpoint, nil)
	if err != nil {
		return failed(s.Name(), fmt.Errorf("crt.sh fetch for %s: %w", domain, err))
	}

	names, err := parseCrtsh(body)
	if err != nil {
		return failed(s.Name(), fmt.Errorf("crt.sh JSON parse for %s: %w", domain, err))
	}

	return ok(s.Name(), FilterHostnames(CleanHostnames(names), domain, s.Mode))
}

// parseCrtsh extracts common_name and every newline-separated name_value.
func parseCrtsh(body []byte) ([]string, error) {
	var entries []crtshEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.CommonName != "" {
			names = append(names, entry.CommonName)
		}
		if entry.NameValue != "" {
			names = append(names, strings.Split(entry.NameValue, "\n")...)
		}
	}
	return names, nil
}
