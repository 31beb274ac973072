package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/driftlens/pkg/environment"
	"github.com/entrhq/driftlens/pkg/types"
)

func TestBuildTimingReport(t *testing.T) {
	c := &Capture{Logs: []types.EventEntry{
		entry(types.CategoryVideo, "Monitor 1 start completed", map[string]any{"durationMs": 100.0}),
		entry(types.CategoryVideo, "Monitor 2 start completed", map[string]any{"durationMs": 200.0}),
	}}

	r := BuildTimingReport("webkit", c)
	assert.Equal(t, "webkit", r.Browser)
	assert.Equal(t, []float64{100, 200}, r.LoadingTimes)
	require.NotNil(t, r.Stats)
	assert.Equal(t, 150.0, r.Stats.Average)

	empty := BuildTimingReport("webkit", &Capture{})
	assert.NotNil(t, empty.LoadingTimes)
	assert.Nil(t, empty.Stats)
}

func TestBuildEventReport(t *testing.T) {
	c := &Capture{
		Descriptor: environment.Descriptor{Features: map[environment.FeatureName]bool{environment.FeatureScrollEnd: true}},
		Logs: []types.EventEntry{
			entry(types.CategoryTimer, "setTimeout fired", map[string]any{"delay": 10.0, "actualDelay": 90.0}),
			entry(types.CategoryTimer, "setTimeout fired", map[string]any{"delay": 10.0, "actualDelay": 20.0}),
			entry(types.CategoryScroll, "Scroll started", nil),
			entry(types.CategoryViewport, "isOutOfViewport check", nil),
			entry(types.CategoryViewport, "isOutOfViewport check", nil),
		},
	}

	r := BuildEventReport("chromium", c, 50)
	assert.Equal(t, EventCounts{
		Timer:           2,
		TimerDrift:      1,
		Scroll:          1,
		ScrollEndMethod: ScrollEndNative,
		Viewport:        2,
	}, r.Events)
	assert.Len(t, r.TimerDriftDetails, 1)
	assert.True(t, r.BrowserInfo.Supports(environment.FeatureScrollEnd))

	assert.Equal(t, ScrollEndFallback, ScrollEndMethod(&Capture{}))
	assert.Equal(t, ScrollEndFallback, ScrollEndMethod(nil))
}

func TestBuildBugReport(t *testing.T) {
	_, ok := BuildBugReport("webkit", []int{1, 2}, []int{2, 1, 3}, nil)
	assert.False(t, ok)

	r, ok := BuildBugReport("webkit", []int{1, 2, 3}, []int{1, 3}, nil)
	require.True(t, ok)
	assert.Equal(t, BugIssueDisappeared, r.Issue)
	assert.Equal(t, []int{2}, r.MissingMonitors)
	assert.Equal(t, []int{2}, r.Regression())
}

func TestBugReport_Regression(t *testing.T) {
	tests := []struct {
		name   string
		report BugReport
		want   []int
	}{
		{"set difference in initial order", BugReport{InitialVisible: []int{3, 1, 2}, FinalVisible: []int{1}}, []int{3, 2}},
		{"nothing missing", BugReport{InitialVisible: []int{1}, FinalVisible: []int{1}}, nil},
		{"falls back to missing list", BugReport{MissingMonitors: []int{7}}, []int{7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.report.Regression())
		})
	}
}
