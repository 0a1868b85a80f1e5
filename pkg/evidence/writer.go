package evidence

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Title heads every evidence file.
const Title = "SCENARIO STEP-BY-STEP EXECUTION LOGS"

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\-_]`)
	repeatedUs  = regexp.MustCompile(`_{2,}`)
)

// SanitizeFileName makes a scenario name safe for use in a file name.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unknown"
	}
	name = unsafeChars.ReplaceAllString(name, "_")
	return repeatedUs.ReplaceAllString(name, "_")
}

// FileName returns the evidence file name for a scenario stopped at now.
func FileName(scenarioName string, now time.Time) string {
	return fmt.Sprintf("%s_%s.log", SanitizeFileName(scenarioName), now.Format(FileTimeFormat))
}

// Render produces the full file content for a finished log.
func Render(scenarioName string, entries []Entry, now time.Time) []byte {
	var b strings.Builder
	b.WriteString(Title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", len(Title)))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Scenario: %s\n", scenarioName)
	fmt.Fprintf(&b, "Generated: %s\n\n", now.Format(HeaderTimeFormat))

	for _, e := range entries {
		b.WriteString(e.Format())
		b.WriteString("\n")
	}
	return []byte(b.String())
}

// writeFile persists content under dir via a temporary file and rename.
func writeFile(dir, name string, content []byte) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create evidence directory: %w", err)
	}

	path := filepath.Join(dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return path, nil
}
