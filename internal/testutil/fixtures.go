// Package testutil provides test helper utilities for hone tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// TempProject creates a temporary directory with the given files and returns its path.
// Files is a map of relative path -> content. Directories are created as needed.
// The directory is automatically cleaned up when the test finishes.
func TempProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()

	for relPath, content := range files {
		absPath := filepath.Join(dir, relPath)
		if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
			t.Fatalf("creating directory for %s: %v", relPath, err)
		}
		if err := os.WriteFile(absPath, []byte(content), 0644); err != nil {
			t.Fatalf("writing %s: %v", relPath, err)
		}
	}

	return dir
}

// SingleThresholdProject returns a project whose config selects the
// single-threshold policy and the file store.
func SingleThresholdProject() map[string]string {
	return map[string]string{
		".hone/config.yaml": `version: 1
policy:
  kind: single-threshold
  good_score: 80
  low_score: 0
  cap: 3
  cap_on: iterations
  safety_cap: 0
  allow_custom_choice: true
provider:
  kind: claude
  model: sonnet
  timeout: 60
store:
  backend: file
  path: .hone/sessions
`,
	}
}

// EmptyProject returns an empty directory with no files.
func EmptyProject() map[string]string {
	return map[string]string{}
}

// Options returns four distinct critique options.
func Options() []string {
	return []string{
		"Name the target audience",
		"State the desired length",
		"Specify the output format",
		"Add a concrete example",
	}
}
