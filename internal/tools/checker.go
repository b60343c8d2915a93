package tools

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Capability names reported by the availability probe
const (
	CapSubfinder = "subfinder"
	CapSublist3r = "sublist3r"
	CapHttpx     = "httpx"
	CapGau       = "gau"
	CapNaabu     = "naabu"
	CapChaosAPI  = "chaos_api"
)

const versionTimeout = 5 * time.Second

// ToolRequirement represents an external tool dependency
type ToolRequirement struct {
	Name       string // Display name
	Binary     string // Executable name
	Required   bool   // Whether the tool is required
	InstallCmd string // Installation command
	Purpose    string // One-line description
}

// CheckResult represents the result of checking a single tool
type CheckResult struct {
	Tool    ToolRequirement
	Found   bool
	Path    string
	Version string

	// Responsive is false when the binary exists but never answered a
	// version query in time.
	Responsive bool
}

// DefaultTools returns the list of external tools used by reconaug
func DefaultTools() []ToolRequirement {
	return []ToolRequirement{
		{
			Name:       CapSubfinder,
			Binary:     "subfinder",
			Required:   false,
			InstallCmd: "go install -v github.com/projectdiscovery/subfinder/v2/cmd/subfinder@latest",
			Purpose:    "Passive subdomain enumeration",
		},
		{
			Name:       CapSublist3r,
			Binary:     "sublist3r",
			Required:   false,
			InstallCmd: "pip install sublist3r",
			Purpose:    "Search-engine subdomain enumeration",
		},
		{
			Name:       CapHttpx,
			Binary:     "httpx",
			Required:   false,
			InstallCmd: "go install -v github.com/projectdiscovery/httpx/cmd/httpx@latest",
			Purpose:    "Live host probing",
		},
		{
			Name:       CapGau,
			Binary:     "gau",
			Required:   false,
			InstallCmd: "go install github.com/lc/gau/v2/cmd/gau@latest",
			Purpose:    "Historical URL collection",
		},
		{
			Name:       CapNaabu,
			Binary:     "naabu",
			Required:   false,
			InstallCmd: "go install -v github.com/projectdiscovery/naabu/v2/cmd/naabu@latest",
			Purpose:    "Port scanning",
		},
	}
}

// CheckTools checks all tools in the provided list
func CheckTools(tools []ToolRequirement) []CheckResult {
	results := make([]CheckResult, len(tools))
	for i, tool := range tools {
		results[i] = CheckTool(tool)
	}
	return results
}

// CheckTool checks if a single tool is available
func CheckTool(tool ToolRequirement) CheckResult {
	return checkTool(context.Background(), tool)
}

func checkTool(ctx context.Context, tool ToolRequirement) CheckResult {
	result := CheckResult{Tool: tool}

	path, err := exec.LookPath(tool.Binary)
	if err != nil {
		return result
	}

	result.Found = true
	result.Path = path
	result.Version, result.Responsive = getVersion(ctx, path)

	return result
}

// getVersion attempts to get the version of a tool. Each attempt is bounded
// so a tool that waits on stdin cannot stall the check. responsive is false
// when no attempt exited cleanly or printed anything before its deadline.
func getVersion(ctx context.Context, binary string) (version string, responsive bool) {
	versionFlags := []string{"--version", "-version", "-v", "version"}

	for _, flag := range versionFlags {
		attemptCtx, cancel := context.WithTimeout(ctx, versionTimeout)
		cmd := exec.CommandContext(attemptCtx, binary, flag)
		var out bytes.Buffer
		cmd.Stdout = &out
		cmd.Stderr = &out

		err := cmd.Run()
		timedOut := attemptCtx.Err() != nil
		cancel()
		if timedOut {
			continue
		}
		if err == nil || out.Len() > 0 {
			responsive = true
		}
		if err == nil && out.Len() > 0 {
			firstLine := strings.Split(out.String(), "\n")[0]
			version = strings.TrimSpace(firstLine)
			if len(version) > 50 {
				version = version[:50] + "..."
			}
			return version, true
		}
	}

	return "unknown", responsive
}

// Probe answers which producers are usable right now. Results are cached
// for ttl so one scan does not spawn a version check per adapter call.
type Probe struct {
	tools    []ToolRequirement
	chaosKey string
	ttl      time.Duration

	// lookup is swapped in tests
	lookup func(ctx context.Context, tool ToolRequirement) bool

	mu      sync.Mutex
	cached  map[string]bool
	checked time.Time
}

// NewProbe creates a probe over tools. binaries overrides the executable
// per capability name (from config tool paths).
func NewProbe(binaries map[string]string, chaosKey string, ttl time.Duration) *Probe {
	tools := DefaultTools()
	for i := range tools {
		if b, ok := binaries[tools[i].Name]; ok && b != "" {
			tools[i].Binary = b
		}
	}
	return &Probe{
		tools:    tools,
		chaosKey: chaosKey,
		ttl:      ttl,
		lookup: func(ctx context.Context, tool ToolRequirement) bool {
			r := checkTool(ctx, tool)
			return r.Found && r.Responsive
		},
	}
}

// Available returns capability name -> usable. It never fails; a missing
// binary, failing version query or timeout all read as false. Results
// computed under a cancelled ctx are returned but not cached.
func (p *Probe) Available(ctx context.Context) map[string]bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != nil && time.Since(p.checked) < p.ttl {
		return copyAvailability(p.cached)
	}

	avail := make(map[string]bool, len(p.tools)+1)
	for _, tool := range p.tools {
		avail[tool.Name] = p.lookup(ctx, tool)
	}
	avail[CapChaosAPI] = p.chaosKey != ""

	// A caller that went away mid-check makes every tool read as missing
	if ctx.Err() != nil {
		return avail
	}

	p.cached = avail
	p.checked = time.Now()
	return copyAvailability(avail)
}

// Invalidate drops the cached result.
func (p *Probe) Invalidate() {
	p.mu.Lock()
	p.cached = nil
	p.mu.Unlock()
}

func copyAvailability(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
