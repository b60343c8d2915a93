package discovery

import (
	"context"
	"fmt"
	"strings"
)

const (
	hackertargetBaseURL = "https://api.hackertarget.com/hostsearch/?q=%s"
	hackertargetRateMsg = "API count exceeded"
)

// HackerTargetSource queries the HackerTarget host search, a second passive
// DNS dataset answering in "host,ip" CSV lines.
type HackerTargetSource struct {
	Client    *APIClient
	URLFormat string
	Mode      FilterMode
}

func (s *HackerTargetSource) Name() string { return "hackertarget" }

func (s *HackerTargetSource) Fetch(ctx context.Context, domain string) Result {
	format := s.URLFormat
	if format == "" {
		format = hackertargetBaseURL
	}

	body, err := s.Client.Get(ctx, s.Name(), fmt.Sprintf(format, domain), nil)
	if err != nil {
		return failed(s.Name(), fmt.Errorf("hackertarget fetch for %s: %w", domain, err))
	}

	text := string(body)
	if strings.Contains(text, hackertargetRateMsg) {
		return failed(s.Name(), fmt.Errorf("hackertarget: %s", hackertargetRateMsg))
	}
	if strings.HasPrefix(strings.TrimSpace(text), "error") {
		return failed(s.Name(), fmt.Errorf("hackertarget: %s", strings.TrimSpace(text)))
	}

	return ok(s.Name(), FilterHostnames(CleanHostnames(parseHackertarget(text)), domain, s.Mode))
}

func parseHackertarget(body string) []string {
	var names []string
	for _, line := range strings.Split(body, "\n") {
		host, _, _ := strings.Cut(strings.TrimSpace(line), ",")
		if host != "" {
			names = append(names, host)
		}
	}
	return names
}
