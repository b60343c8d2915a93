package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/hakim/reconaug/internal/storage"
	"github.com/hakim/reconaug/internal/tools"
)

// SubfinderSource runs the subfinder binary
type SubfinderSource struct {
	Binary  string
	Threads int
	Timeout time.Duration
	Mode    FilterMode

	run func(ctx context.Context, domain string, threads int, binary string) ([]tools.SubfinderResult, error)
}

func (s *SubfinderSource) Name() string { return tools.CapSubfinder }

func (s *SubfinderSource) Fetch(ctx context.Context, domain string) Result {
	run := s.run
	if run == nil {
		run = tools.RunSubfinder
	}

	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()

	results, err := run(ctx, domain, s.Threads, s.Binary)
	if err != nil {
		return failed(s.Name(), fmt.Errorf("subfinder for %s: %w", domain, err))
	}

	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Host)
	}
	return ok(s.Name(), FilterHostnames(CleanHostnames(names), domain, s.Mode))
}

// Sublist3rSource runs sublist3r. Its result file is kept under
// OutputDir/raw when OutputDir is set.
type Sublist3rSource struct {
	Binary    string
	OutputDir string
	Timeout   time.Duration
	Mode      FilterMode

	run func(ctx context.Context, domain, outFile, binary string) ([]string, error)
}

func (s *Sublist3rSource) Name() string { return tools.CapSublist3r }

func (s *Sublist3rSource) Fetch(ctx context.Context, domain string) Result {
	run := s.run
	if run == nil {
		run = tools.RunSublist3r
	}

	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()

	names, err := run(ctx, domain, storage.RawOutputPath(s.OutputDir, s.Name(), domain), s.Binary)
	if err != nil {
		return failed(s.Name(), fmt.Errorf("sublist3r for %s: %w", domain, err))
	}
	return ok(s.Name(), FilterHostnames(CleanHostnames(names), domain, s.Mode))
}

// withTimeout bounds ctx by d; zero leaves it unbounded.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
