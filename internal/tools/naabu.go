package tools

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// NaabuResult carries naabu's result file lines and its status channel.
type NaabuResult struct {
	Lines  []string
	Stderr string
}

// RunNaabu port-scans a single host. Lines come from the result file (or
// stdout when no file was written); Stderr is kept for callers that need
// to recover ports naabu announced but did not write. A failed run with no
// port lines returns the partial result together with the error.
func RunNaabu(ctx context.Context, host string, concurrency int, outFile, binaryPath string) (*NaabuResult, error) {
	binary := "naabu"
	if binaryPath != "" {
		binary = binaryPath
	}

	if concurrency <= 0 {
		concurrency = 50
	}

	path, cleanup, err := outputFile(outFile, "naabu-*.txt")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	result, runErr := RunTool(ctx, binary, "-host", host, "-o", path, "-silent", "-c", strconv.Itoa(concurrency))
	if errors.Is(runErr, ErrToolNotFound) {
		return nil, runErr
	}

	lines, found, err := ReadLinesFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read naabu output: %w", err)
	}
	if !found {
		lines = result.Lines()
	}

	out := &NaabuResult{Lines: lines}
	if result != nil {
		out.Stderr = result.Stderr
	}

	if runErr != nil && len(lines) == 0 {
		return out, fmt.Errorf("naabu execution failed: %w", runErr)
	}
	return out, nil
}
