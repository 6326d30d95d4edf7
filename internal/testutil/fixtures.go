// Package testutil provides test helper utilities for cowork tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kuse-dev/cowork/internal/config"
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

// TempConfigDir writes cfg to a fresh config directory and returns its path.
// A nil cfg writes the defaults with a placeholder API key so sessions are
// allowed. Provider environment overrides are cleared for the test.
func TempConfigDir(t *testing.T, cfg *config.Config) string {
	t.Helper()
	t.Setenv(config.EnvAPIKey, "")
	t.Setenv(config.EnvModel, "")
	t.Setenv(config.EnvAgentCommand, "")

	if cfg == nil {
		cfg = config.DefaultConfig()
		cfg.Provider.APIKey = "test-key"
	}

	dir := filepath.Join(t.TempDir(), ".cowork")
	if err := config.WriteConfig(dir, cfg); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return dir
}

// GoProject returns file contents for a minimal Go project.
func GoProject() map[string]string {
	return map[string]string{
		"go.mod":  "module example.com/test\n\ngo 1.23\n",
		"main.go": "package main\n\nfunc main() {}\n",
	}
}

// EmptyProject returns an empty directory with no files.
func EmptyProject() map[string]string {
	return map[string]string{}
}
