package tools

import (
	"context"
	"errors"
	"fmt"
)

// RunSublist3r executes sublist3r for domain writing to outFile (a temp file
// when empty) and returns the hostnames it wrote. sublist3r exits non-zero on
// some engine failures while still writing results, so the file wins over
// the exit status.
func RunSublist3r(ctx context.Context, domain, outFile, binaryPath string) ([]string, error) {
	binary := "sublist3r"
	if binaryPath != "" {
		binary = binaryPath
	}

	path, cleanup, err := outputFile(outFile, "sublist3r-*.txt")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	_, runErr := RunTool(ctx, binary, "-d", domain, "-o", path)
	if errors.Is(runErr, ErrToolNotFound) {
		return nil, runErr
	}

	hosts, found, err := ReadLinesFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sublist3r output: %w", err)
	}
	if !found && runErr != nil {
		return nil, fmt.Errorf("sublist3r execution failed: %w", runErr)
	}

	return hosts, nil
}
