package tools

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// outputFile resolves where a tool writes its result file. An empty path
// means a temp file that the returned cleanup removes.
func outputFile(path, pattern string) (string, func(), error) {
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return "", nil, fmt.Errorf("failed to create output directory: %w", err)
		}
		// Stale results from a previous run must not be read back
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", nil, fmt.Errorf("failed to clear output file: %w", err)
		}
		return path, func() {}, nil
	}

	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create output temp file: %w", err)
	}
	name := f.Name()
	f.Close()
	// Some tools refuse to overwrite, let them create it
	os.Remove(name)
	return name, func() { os.Remove(name) }, nil
}

// ReadLinesFile returns the trimmed, non-empty lines of path. A missing
// file yields (nil, false, nil).
func ReadLinesFile(path string) ([]string, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return splitLines(data), true, nil
}
