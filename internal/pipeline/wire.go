package pipeline

import (
	"github.com/sirupsen/logrus"

	"github.com/hakim/reconaug/internal/config"
	"github.com/hakim/reconaug/internal/discovery"
	"github.com/hakim/reconaug/internal/historic"
	"github.com/hakim/reconaug/internal/httpprobe"
	"github.com/hakim/reconaug/internal/jobs"
	"github.com/hakim/reconaug/internal/portscan"
	"github.com/hakim/reconaug/internal/tools"
)

// NewFromConfig wires an orchestrator with the real tool adapters.
func NewFromConfig(cfg *config.Config, store ResultStore, registry *jobs.Registry, logger logrus.FieldLogger) *Orchestrator {
	probe := tools.NewProbe(map[string]string{
		tools.CapSubfinder: cfg.Tools.Subfinder.Path,
		tools.CapSublist3r: cfg.Tools.Sublist3r.Path,
		tools.CapHttpx:     cfg.Tools.Httpx.Path,
		tools.CapGau:       cfg.Tools.Gau.Path,
		tools.CapNaabu:     cfg.Tools.Naabu.Path,
	}, cfg.APIs.ChaosKey, cfg.Tools.ProbeTTL)

	scanner := portscan.NewScanner(cfg.Tools.Naabu.Path, cfg.Tools.Naabu.Threads, cfg.OutputDir, logger)
	scanner.Timeout = cfg.Tools.Naabu.TimeoutOr(0)

	direct := httpprobe.NewDirectProber(cfg.Probe.Timeout, cfg.Probe.Concurrency)

	deps := Deps{
		Registry: registry,
		Store:    store,
		Probe:    probe,
		Sources: func(names []string) []discovery.Source {
			return discovery.Build(cfg, names)
		},
		Scanner: scanner,
		Fetcher: historic.NewFetcher(cfg.Tools.Gau.Path, cfg.Tools.Gau.Threads,
			cfg.Tools.Gau.TimeoutOr(0), cfg.OutputDir, logger),
		Notifier:          &Notifier{WebhookURL: cfg.Notify.WebhookURL},
		Scope:             NewScope(cfg.Scope),
		SourceConcurrency: cfg.Discovery.Concurrency,
		DefaultPreset:     cfg.Discovery.Preset,
		Logger:            logger,
	}

	if cfg.Probe.Strategy == "direct" {
		deps.Prober = direct
	} else {
		deps.Prober = httpprobe.NewHttpxProber(cfg.Tools.Httpx.Path, cfg.Tools.Httpx.Threads, cfg.Tools.Httpx.TimeoutOr(0))
		deps.ProberCapability = tools.CapHttpx
		deps.FallbackProber = direct
	}

	return New(deps)
}

// ToolProbe returns the availability probe the orchestrator consults.
func (o *Orchestrator) ToolProbe() Availability {
	return o.deps.Probe
}
