package capture

import (
	"github.com/entrhq/driftlens/pkg/environment"
	"github.com/entrhq/driftlens/pkg/types"
)

// Scroll-end detection methods reported in event reports.
const (
	ScrollEndNative   = "native"
	ScrollEndFallback = "fallback"
)

// BugIssueDisappeared is the issue text of a visibility bug report.
const BugIssueDisappeared = "Monitors disappeared after scrolling"

// TimingReport is the derived stream start timing artifact.
type TimingReport struct {
	Browser      string      `json:"browser"`
	LoadingTimes []float64   `json:"loadingTimes"`
	Stats        *TimingStat `json:"stats,omitempty"`
}

// EventCounts summarizes entry counts per concern.
type EventCounts struct {
	Timer           int    `json:"timer"`
	TimerDrift      int    `json:"timerDrift"`
	Scroll          int    `json:"scroll"`
	ScrollEndMethod string `json:"scrollEndMethod"`
	Viewport        int    `json:"viewport"`
}

// EventReport is the derived timer/scroll/viewport artifact.
type EventReport struct {
	Browser           string                 `json:"browser"`
	BrowserInfo       environment.Descriptor `json:"browserInfo"`
	Events            EventCounts            `json:"events"`
	TimerDriftDetails []types.EventEntry     `json:"timerDriftDetails"`
}

// BugReport records stream elements that were visible before a scroll
// cycle and not after it.
type BugReport struct {
	Browser         string   `json:"browser"`
	Issue           string   `json:"issue"`
	MissingMonitors []int    `json:"missingMonitors"`
	InitialVisible  []int    `json:"initialVisible"`
	FinalVisible    []int    `json:"finalVisible"`
	DebugLogs       *Capture `json:"debugLogs,omitempty"`
}

// BuildTimingReport derives the timing artifact from a capture.
func BuildTimingReport(browser string, c *Capture) TimingReport {
	times := c.LoadingTimes()
	if times == nil {
		times = []float64{}
	}
	return TimingReport{
		Browser:      browser,
		LoadingTimes: times,
		Stats:        NewTimingStat(times),
	}
}

// BuildEventReport derives the event artifact from a capture, counting
// drift events above driftThresholdMs.
func BuildEventReport(browser string, c *Capture, driftThresholdMs float64) EventReport {
	drift := c.DriftEvents(driftThresholdMs)
	if drift == nil {
		drift = []types.EventEntry{}
	}

	report := EventReport{
		Browser: browser,
		Events: EventCounts{
			Timer:           len(c.ByCategory(types.CategoryTimer)),
			TimerDrift:      len(drift),
			Scroll:          len(c.ByCategory(types.CategoryScroll)),
			ScrollEndMethod: ScrollEndMethod(c),
			Viewport:        len(c.ByCategory(types.CategoryViewport)),
		},
		TimerDriftDetails: drift,
	}
	if c != nil {
		report.BrowserInfo = c.Descriptor.Clone()
	}
	return report
}

// ScrollEndMethod reports which scroll-end strategy the capture's
// environment used.
func ScrollEndMethod(c *Capture) string {
	if c != nil && c.Descriptor.Supports(environment.FeatureScrollEnd) {
		return ScrollEndNative
	}
	return ScrollEndFallback
}

// BuildBugReport compares the visible ids before and after a scroll cycle.
// It returns false when every initially visible id is still visible.
func BuildBugReport(browser string, initial, final []int, logs *Capture) (BugReport, bool) {
	still := make(map[int]bool, len(final))
	for _, id := range final {
		still[id] = true
	}

	var missing []int
	for _, id := range initial {
		if !still[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return BugReport{}, false
	}

	return BugReport{
		Browser:         browser,
		Issue:           BugIssueDisappeared,
		MissingMonitors: missing,
		InitialVisible:  append([]int{}, initial...),
		FinalVisible:    append([]int{}, final...),
		DebugLogs:       logs,
	}, true
}

// Regression returns the ids visible initially but not finally, falling back
// to MissingMonitors when the visibility lists are absent.
func (r BugReport) Regression() []int {
	if len(r.InitialVisible) == 0 {
		return append([]int{}, r.MissingMonitors...)
	}
	final := make(map[int]bool, len(r.FinalVisible))
	for _, id := range r.FinalVisible {
		final[id] = true
	}
	var out []int
	for _, id := range r.InitialVisible {
		if !final[id] {
			out = append(out, id)
		}
	}
	return out
}
