package compare

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/entrhq/driftlens/pkg/capture"
	"github.com/entrhq/driftlens/pkg/logging"
)

// ErrResultsDirMissing is returned when the results directory does not exist.
var ErrResultsDirMissing = errors.New("results directory not found")

// BugReportMarker identifies bug report files in a results directory.
const BugReportMarker = "BUG-REPORT"

// Artifact file names for an environment.
func InitialLogsFile(env string) string { return env + "-initial-load-logs.json" }
func ScrollLogsFile(env string) string { return env + "-scroll-test-logs.json" }
func TimingReportFile(env string) string { return env + "-timing-report.json" }
func EventReportFile(env string) string { return env + "-event-report.json" }
func BugReportFile(env string) string { return env + "-" + BugReportMarker + ".json" }

// Side holds every input recorded for one environment. Any field may be nil.
type Side struct {
	Environment string
	Initial     *capture.Capture
	Scroll      *capture.Capture
	Timing      *capture.TimingReport
	Events      *capture.EventReport
}

// NamedBugReport is a bug report together with the file it came from.
type NamedBugReport struct {
	File string `json:"file"`
	capture.BugReport
}

// Inputs is everything the engine compares.
type Inputs struct {
	Reference Side
	Candidate Side
	Bugs      []NamedBugReport
}

// LoadResults reads the fixed artifact names for both environments and every
// bug report from dir. Missing or unreadable files are logged and left nil.
func LoadResults(dir, reference, candidate string, logger *logging.Logger) (*Inputs, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrResultsDirMissing, dir)
		}
		return nil, fmt.Errorf("failed to stat results directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrResultsDirMissing, dir)
	}

	in := &Inputs{
		Reference: loadSide(dir, reference, logger),
		Candidate: loadSide(dir, candidate, logger),
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list results directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.Contains(e.Name(), BugReportMarker) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		var report capture.BugReport
		if !load(filepath.Join(dir, name), &report, logger) {
			continue
		}
		in.Bugs = append(in.Bugs, NamedBugReport{File: name, BugReport: report})
	}
	return in, nil
}

func loadSide(dir, env string, logger *logging.Logger) Side {
	side := Side{Environment: env}

	var initial, scroll capture.Capture
	if load(filepath.Join(dir, InitialLogsFile(env)), &initial, logger) {
		side.Initial = &initial
	}
	if load(filepath.Join(dir, ScrollLogsFile(env)), &scroll, logger) {
		side.Scroll = &scroll
	}

	var timing capture.TimingReport
	if load(filepath.Join(dir, TimingReportFile(env)), &timing, logger) {
		side.Timing = &timing
	}
	var events capture.EventReport
	if load(filepath.Join(dir, EventReportFile(env)), &events, logger) {
		side.Events = &events
	}
	return side
}

func load(path string, v any, logger *logging.Logger) bool {
	err := capture.ReadJSON(path, v)
	switch {
	case err == nil:
		return true
	case errors.Is(err, capture.ErrNotFound):
		logger.Debugf("input missing: %s", path)
	default:
		logger.Warnf("ignoring unreadable input: %v", err)
	}
	return false
}
