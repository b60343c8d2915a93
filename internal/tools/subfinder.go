package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// SubfinderResult represents a single subdomain discovery result from subfinder
type SubfinderResult struct {
	Host   string `json:"host"`
	Source string `json:"source"`
}

// RunSubfinder executes subfinder for the given domain and returns parsed results.
// It uses JSON output mode (-oJ) with source attribution (-cs); older builds
// that ignore -oJ print bare hostnames, which are accepted as well.
// If threads > 0, it sets the thread count (-t flag).
func RunSubfinder(ctx context.Context, domain string, threads int, binaryPath string) ([]SubfinderResult, error) {
	binary := "subfinder"
	if binaryPath != "" {
		binary = binaryPath
	}

	args := []string{
		"-d", domain,
		"-silent",
		"-oJ", // JSON output
		"-cs", // Include source attribution
	}

	if threads > 0 {
		args = append(args, "-t", strconv.Itoa(threads))
	}

	result, err := RunTool(ctx, binary, args...)
	if err != nil {
		return nil, fmt.Errorf("subfinder execution failed: %w", err)
	}

	return ParseSubfinderOutput(result.Lines()), nil
}

// ParseSubfinderOutput parses JSONL lines, falling back to treating a line
// as a bare hostname when it is not a JSON object.
func ParseSubfinderOutput(lines []string) []SubfinderResult {
	results := make([]SubfinderResult, 0, len(lines))
	for _, line := range lines {
		if line[0] != '{' {
			results = append(results, SubfinderResult{Host: line, Source: "subfinder"})
			continue
		}

		var sfResult SubfinderResult
		if err := json.Unmarshal([]byte(line), &sfResult); err != nil || sfResult.Host == "" {
			continue
		}
		results = append(results, sfResult)
	}
	return results
}
