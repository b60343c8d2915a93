package tools

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// RunGau collects historical URLs for domain. The result file is preferred
// over stdout because gau flushes partial results to disk even when it is
// killed on timeout; in that case the partial URLs are returned together
// with the cancellation error.
func RunGau(ctx context.Context, domain string, threads int, outFile, binaryPath string) ([]string, error) {
	binary := "gau"
	if binaryPath != "" {
		binary = binaryPath
	}

	if threads <= 0 {
		threads = 50
	}

	path, cleanup, err := outputFile(outFile, "gau-*.txt")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	result, runErr := RunTool(ctx, binary, "--threads", strconv.Itoa(threads), "-o", path, domain)
	if errors.Is(runErr, ErrToolNotFound) {
		return nil, runErr
	}

	urls, found, err := ReadLinesFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read gau output: %w", err)
	}
	if !found {
		urls = result.Lines()
	}

	if runErr != nil {
		return urls, fmt.Errorf("gau execution failed: %w", runErr)
	}
	return urls, nil
}
