package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/driftlens/pkg/report"
)

func writeConfig(t *testing.T, resultsDir string, extra ...string) string {
	t.Helper()
	t.Setenv("DRIFTLENS_LOG_DIR", t.TempDir())
	path := filepath.Join(t.TempDir(), "driftlens.yaml")
	content := "comparison:\n  results_dir: " + resultsDir + "\n"
	for _, line := range extra {
		content += "  " + line + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestRunMissingResultsDir(t *testing.T) {
	var out bytes.Buffer
	code := run(writeConfig(t, filepath.Join(t.TempDir(), "absent")), &out)
	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "Results directory not found")
}

func TestRunEmptyResultsDir(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	code := run(writeConfig(t, dir), &out)
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "INSUFFICIENT DATA")
	assert.FileExists(t, filepath.Join(dir, report.JSONFile))
	assert.FileExists(t, filepath.Join(dir, report.MarkdownFile))
}

func TestRunInvalidIgnorePatternStillReports(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	code := run(writeConfig(t, dir, `ignore_messages: ["SCROLL:[oops"]`), &out)
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "invalid ignore pattern")
	assert.Contains(t, out.String(), "comparing without ignore patterns")
	assert.Contains(t, out.String(), "INSUFFICIENT DATA")
	assert.FileExists(t, filepath.Join(dir, report.JSONFile))
}
