package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

var unsafeTargetChars = regexp.MustCompile(`[^a-zA-Z0-9.\-]+`)

// SanitizeTarget replaces characters unsafe for filesystem paths
// Allows alphanumeric, dots, and hyphens. Replaces everything else with underscore.
func SanitizeTarget(target string) string {
	return unsafeTargetChars.ReplaceAllString(target, "_")
}

// RawOutputPath generates the path a tool writes its raw result file to.
// Format: {baseDir}/raw/{tool}_{target}.txt
// An empty baseDir yields an empty path, meaning "use a temp file".
func RawOutputPath(baseDir, tool, target string) string {
	if baseDir == "" {
		return ""
	}
	return filepath.Join(baseDir, "raw", fmt.Sprintf("%s_%s.txt", tool, SanitizeTarget(target)))
}

// EnsureDir creates a directory and all parent directories if they don't exist
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}
