package report

import (
	"fmt"
	"path/filepath"
	"strings"
)

// confine joins elem onto root and rejects results that escape root.
// Scenario IDs come from callers, so a "../" in one must not move payloads
// outside the report directory.
func confine(root string, elem ...string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve report directory: %w", err)
	}
	absRoot = filepath.Clean(absRoot)

	path := filepath.Clean(filepath.Join(append([]string{absRoot}, elem...)...))
	if path != absRoot && !strings.HasPrefix(path+string(filepath.Separator), absRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q is outside report directory %s", filepath.Join(elem...), root)
	}
	return path, nil
}
