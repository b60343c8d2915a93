package discovery

import (
	"time"

	"github.com/hakim/reconaug/internal/config"
	"github.com/hakim/reconaug/internal/tools"
)

const defaultToolTimeout = 10 * time.Minute

// Source names of the web API adapters
const (
	SourceCrtsh        = "crtsh"
	SourceOTX          = "otx"
	SourceChaos        = "chaos"
	SourceHackerTarget = "hackertarget"
)

// AllSourceNames lists every adapter in the order they are built.
func AllSourceNames() []string {
	return []string{
		tools.CapSubfinder,
		tools.CapSublist3r,
		SourceCrtsh,
		SourceOTX,
		SourceChaos,
		SourceHackerTarget,
	}
}

// IsAPISource reports whether name needs no local binary
func IsAPISource(name string) bool {
	switch name {
	case SourceCrtsh, SourceOTX, SourceHackerTarget:
		return true
	}
	return false
}

// Capability returns the availability key gating source name, or "" when
// the source is always attempted.
func Capability(name string) string {
	switch name {
	case tools.CapSubfinder, tools.CapSublist3r:
		return name
	case SourceChaos:
		return tools.CapChaosAPI
	}
	return ""
}

// Build creates the adapters named in names from cfg. Unknown names are
// ignored. All API adapters share one rate limiter.
func Build(cfg *config.Config, names []string) []Source {
	mode := FilterMode(cfg.Discovery.FilterMode)
	if mode == "" {
		mode = FilterPermissive
	}

	client := NewAPIClient(cfg.APIs.UserAgent, cfg.APIs.Timeout, cfg.APIs.RatePerSecond, cfg.APIs.Burst)

	var sources []Source
	for _, name := range names {
		switch name {
		case tools.CapSubfinder:
			sources = append(sources, &SubfinderSource{
				Binary:  cfg.Tools.Subfinder.Path,
				Threads: cfg.Tools.Subfinder.Threads,
				Timeout: cfg.Tools.Subfinder.TimeoutOr(defaultToolTimeout),
				Mode:    mode,
			})
		case tools.CapSublist3r:
			sources = append(sources, &Sublist3rSource{
				Binary:    cfg.Tools.Sublist3r.Path,
				OutputDir: cfg.OutputDir,
				Timeout:   cfg.Tools.Sublist3r.TimeoutOr(defaultToolTimeout),
				Mode:      mode,
			})
		case SourceCrtsh:
			sources = append(sources, &CrtshSource{Client: client, Mode: mode})
		case SourceOTX:
			sources = append(sources, &OTXSource{Client: client, Mode: mode})
		case SourceChaos:
			sources = append(sources, &ChaosSource{Client: client, APIKey: cfg.APIs.ChaosKey, Mode: mode})
		case SourceHackerTarget:
			sources = append(sources, &HackerTargetSource{Client: client, Mode: mode})
		}
	}
	return sources
}
