package tools

import (
	"context"
	"fmt"
	"strconv"
)

// RunHttpx pipes targets to httpx and returns its raw output lines, each of
// the form "url [status] [tech,...]". Lines may carry ANSI color codes.
// Return early if no targets are provided: no process is spawned.
func RunHttpx(ctx context.Context, targets []string, threads int, binaryPath string) ([]string, error) {
	if len(targets) == 0 {
		return []string{}, nil
	}

	binary := "httpx"
	if binaryPath != "" {
		binary = binaryPath
	}

	if threads <= 0 {
		threads = 50
	}

	args := []string{
		"-silent",
		"-status-code",
		"-tech-detect",
		"-follow-redirects",
		"-threads", strconv.Itoa(threads),
	}

	result, err := RunToolWithInput(ctx, targets, binary, args...)
	if err != nil {
		// Keep whatever was probed before a timeout or crash
		if lines := result.Lines(); len(lines) > 0 {
			return lines, fmt.Errorf("httpx ended early: %w", err)
		}
		if result != nil && result.Stderr != "" {
			return nil, fmt.Errorf("httpx execution failed: %w\nstderr: %s", err, result.Stderr)
		}
		return nil, fmt.Errorf("httpx execution failed: %w", err)
	}

	return result.Lines(), nil
}
