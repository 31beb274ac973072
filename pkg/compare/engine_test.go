package compare

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/driftlens/pkg/capture"
	"github.com/entrhq/driftlens/pkg/config"
	"github.com/entrhq/driftlens/pkg/environment"
	"github.com/entrhq/driftlens/pkg/types"
)

func newEngine(t *testing.T, mutate func(*config.Comparison)) *Engine {
	t.Helper()
	cfg := config.DefaultComparison()
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := NewEngine(cfg, nil)
	require.NoError(t, err)
	return e
}

func descriptor(features map[environment.FeatureName]bool) environment.Descriptor {
	return environment.Descriptor{UserAgent: "UA", Features: features}
}

func logs(entries ...types.EventEntry) *capture.Capture {
	return &capture.Capture{Logs: entries}
}

func ev(cat types.Category, msg string) types.EventEntry {
	return types.EventEntry{Category: cat, Message: msg}
}

func repeat(cat types.Category, msg string, n int) []types.EventEntry {
	out := make([]types.EventEntry, n)
	for i := range out {
		out[i] = ev(cat, msg)
	}
	return out
}

func timing(avg, min, max float64) *capture.TimingReport {
	return &capture.TimingReport{Stats: &capture.TimingStat{Average: avg, Min: min, Max: max, Count: 3}}
}

func events(timer, drift int, method string) *capture.EventReport {
	return &capture.EventReport{Events: capture.EventCounts{Timer: timer, TimerDrift: drift, ScrollEndMethod: method}}
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	cfg := config.DefaultComparison()
	cfg.IgnoreMessages = []string{"["}
	_, err := NewEngine(cfg, nil)
	assert.Error(t, err)

	cfg = config.DefaultComparison()
	cfg.HighRatio = 0.5
	_, err = NewEngine(cfg, nil)
	assert.Error(t, err)
}

func TestCompare_EmptyInputs(t *testing.T) {
	r := newEngine(t, nil).Compare(nil)

	assert.Equal(t, "chromium", r.Reference)
	assert.Equal(t, "webkit", r.Candidate)
	assert.Equal(t, StatusInsufficient, r.Features.Status)
	assert.Equal(t, StatusInsufficient, r.Categories.Status)
	assert.Equal(t, StatusInsufficient, r.Messages.Status)
	assert.Equal(t, StatusInsufficient, r.Timing.Status)
	assert.Equal(t, StatusInsufficient, r.Drift.Status)
	assert.Equal(t, StatusOK, r.Visibility.Status)
	assert.Empty(t, r.Findings)
	_, ok := r.Worst()
	assert.False(t, ok)
}

func TestCompare_MissingCandidateIsInsufficient(t *testing.T) {
	in := &Inputs{
		Reference: Side{
			Environment: "chromium",
			Initial:     &capture.Capture{Descriptor: descriptor(nil)},
			Scroll:      logs(ev(types.CategoryScroll, "Scroll started")),
			Timing:      timing(100, 50, 150),
			Events:      events(10, 0, "native"),
		},
		Candidate: Side{Environment: "webkit"},
	}

	var r *Report
	assert.NotPanics(t, func() { r = newEngine(t, nil).Compare(in) })
	for _, s := range r.Statuses()[:5] {
		assert.Equal(t, StatusInsufficient, s.Status, s.Check)
	}
}

func TestCheckFeatures(t *testing.T) {
	in := &Inputs{
		Reference: Side{Initial: &capture.Capture{Descriptor: descriptor(map[environment.FeatureName]bool{
			environment.FeatureScrollEnd:           true,
			environment.FeatureResizeObserver:      true,
			environment.FeatureRequestIdleCallback: true,
		})}},
		Candidate: Side{Initial: &capture.Capture{Descriptor: descriptor(map[environment.FeatureName]bool{
			environment.FeatureScrollEnd:           false,
			environment.FeatureResizeObserver:      true,
			environment.FeatureRequestIdleCallback: false,
		})}},
	}

	r := newEngine(t, nil).Compare(in)
	require.Equal(t, StatusOK, r.Features.Status)
	require.Len(t, r.Features.Rows, 3)
	assert.Equal(t, "scrollEndEvent", r.Features.Rows[0].Feature)
	assert.True(t, r.Features.Rows[0].Mismatch)
	assert.False(t, r.Features.Rows[1].Mismatch)

	findings := r.FindingsFor(CheckFeatures)
	require.Len(t, findings, 2)
	assert.Equal(t, SeverityHigh, findings[0].Severity)
	assert.Equal(t, "WebKit does not support native scrollend event", findings[0].Message)
	assert.NotEmpty(t, findings[0].Recommendation)
	assert.Equal(t, SeverityInfo, findings[1].Severity)
	assert.Contains(t, findings[1].Message, "requestIdleCallback")
}

func TestCheckFeatures_ScrollEndNotProbed(t *testing.T) {
	in := &Inputs{
		Reference: Side{Initial: &capture.Capture{Descriptor: descriptor(nil)}},
		Candidate: Side{Initial: &capture.Capture{Descriptor: descriptor(nil)}},
	}
	r := newEngine(t, nil).Compare(in)
	assert.Equal(t, StatusOK, r.Features.Status)
	assert.Empty(t, r.FindingsFor(CheckFeatures))
}

func TestCheckCategories(t *testing.T) {
	ref := append(repeat(types.CategoryScroll, "Scroll event", 10), repeat(types.CategoryTimer, "setTimeout fired", 4)...)
	cand := append(repeat(types.CategoryScroll, "Scroll event", 3), repeat(types.CategoryTimer, "setTimeout fired", 9)...)
	cand = append(cand, repeat(types.CategoryWarning, "scrollend event not supported - using fallback", 1)...)

	r := newEngine(t, nil).Compare(&Inputs{
		Reference: Side{Scroll: logs(ref...)},
		Candidate: Side{Scroll: logs(cand...)},
	})

	require.Equal(t, StatusOK, r.Categories.Status)
	assert.Equal(t, []CategoryRow{
		{Category: types.CategoryScroll, Reference: 10, Candidate: 3, Delta: -7, Flagged: true},
		{Category: types.CategoryTimer, Reference: 4, Candidate: 9, Delta: 5, Flagged: false},
		{Category: types.CategoryWarning, Reference: 0, Candidate: 1, Delta: 1, Flagged: false},
	}, r.Categories.Rows)

	findings := r.FindingsFor(CheckCategories)
	require.Len(t, findings, 1)
	assert.Equal(t, "SCROLL events differ by -7 in WebKit", findings[0].Message)
}

func TestCheckMessages_UniqueOncePerSide(t *testing.T) {
	ref := logs(
		ev(types.CategoryScroll, "Native scrollend event fired"),
		ev(types.CategoryScroll, "Scroll started"),
		ev(types.CategoryScroll, "Native scrollend event fired"),
	)
	cand := logs(
		ev(types.CategoryWarning, "scrollend event not supported - using fallback"),
		ev(types.CategoryScroll, "Scroll started"),
		ev(types.CategoryWarning, "scrollend event not supported - using fallback"),
		ev(types.CategoryTimer, "setInterval fired (10 times)"),
	)

	r := newEngine(t, nil).Compare(&Inputs{Reference: Side{Scroll: ref}, Candidate: Side{Scroll: cand}})

	assert.Equal(t, []string{"SCROLL:Native scrollend event fired"}, r.Messages.OnlyReference)
	assert.Equal(t, []string{
		"WARNING:scrollend event not supported - using fallback",
		"TIMER:setInterval fired (10 times)",
	}, r.Messages.OnlyCandidate)
	assert.Len(t, r.FindingsFor(CheckMessages), 2)
}

func TestCheckMessages_IgnorePatterns(t *testing.T) {
	e := newEngine(t, func(c *config.Comparison) {
		c.IgnoreMessages = []string{"TIMER:setInterval fired (*", "VIDEO:Monitor * start*"}
	})
	cand := logs(
		ev(types.CategoryTimer, "setInterval fired (10 times)"),
		ev(types.CategoryVideo, "Monitor 3 starting"),
		ev(types.CategoryVideo, "Monitor 3 stopped"),
	)

	r := e.Compare(&Inputs{Reference: Side{Scroll: logs()}, Candidate: Side{Scroll: cand}})
	assert.Equal(t, []string{"VIDEO:Monitor 3 stopped"}, r.Messages.OnlyCandidate)
	assert.Equal(t, 2, r.Messages.Ignored)
}

func TestCheckTiming_Critical(t *testing.T) {
	r := newEngine(t, nil).Compare(&Inputs{
		Reference: Side{Timing: timing(100, 80, 120)},
		Candidate: Side{Timing: timing(250, 200, 300)},
	})

	require.Equal(t, StatusOK, r.Timing.Status)
	assert.Equal(t, SourceReports, r.Timing.Source)
	assert.InDelta(t, 2.5, r.Timing.Ratio, 1e-9)
	assert.Equal(t, VerdictCritical, r.Timing.Verdict)

	assert.Equal(t, 1, r.Count(SeverityCritical))
	worst, ok := r.Worst()
	require.True(t, ok)
	assert.Equal(t, SeverityCritical, worst)

	var critical Finding
	for _, f := range r.Findings {
		if f.Severity == SeverityCritical {
			critical = f
		}
	}
	assert.Contains(t, critical.Message, "2.5")
	assert.Equal(t, "Video loading is 2.5x slower in WebKit", critical.Message)

	flagged := 0
	for _, row := range r.Timing.Rows {
		if row.Flagged {
			flagged++
		}
	}
	assert.Equal(t, 3, flagged)
}

func TestCheckTiming_Thresholds(t *testing.T) {
	tests := []struct {
		name    string
		ref     float64
		cand    float64
		verdict string
		worst   Severity
	}{
		{"comparable", 100, 140, VerdictAcceptable, ""},
		{"exactly high ratio", 100, 150, VerdictAcceptable, ""},
		{"high", 100, 160, VerdictHigh, SeverityHigh},
		{"exactly critical ratio", 100, 200, VerdictHigh, SeverityHigh},
		{"faster candidate", 100, 40, VerdictAcceptable, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newEngine(t, nil).Compare(&Inputs{
				Reference: Side{Timing: timing(tt.ref, tt.ref, tt.ref)},
				Candidate: Side{Timing: timing(tt.cand, tt.cand, tt.cand)},
			})
			assert.Equal(t, tt.verdict, r.Timing.Verdict)
			assert.Zero(t, r.Count(SeverityCritical))
			if tt.worst == "" {
				assert.Zero(t, r.Count(SeverityHigh))
			} else {
				assert.Equal(t, 1, r.Count(tt.worst))
			}
		})
	}
}

func TestCheckTiming_ZeroReferenceAverage(t *testing.T) {
	r := newEngine(t, nil).Compare(&Inputs{
		Reference: Side{Timing: timing(0, 0, 0)},
		Candidate: Side{Timing: timing(100, 100, 100)},
	})
	assert.Equal(t, StatusInsufficient, r.Timing.Status)
	assert.Empty(t, r.FindingsFor(CheckTiming))
}

func TestCheckTiming_DerivedFromCaptures(t *testing.T) {
	completed := func(id int, ms float64) types.EventEntry {
		return types.EventEntry{
			Category: types.CategoryVideo,
			Message:  fmt.Sprintf("Monitor %d start completed", id),
			Data:     map[string]any{"duration": fmt.Sprintf("%.2fms", ms)},
		}
	}
	starting := func(id int) types.EventEntry {
		return ev(types.CategoryVideo, fmt.Sprintf("Monitor %d starting", id))
	}

	ref := logs(starting(1), completed(1, 100), starting(2), completed(2, 100))
	cand := logs(starting(1), completed(1, 300), starting(2), starting(3))

	r := newEngine(t, nil).Compare(&Inputs{
		Reference: Side{Initial: ref},
		Candidate: Side{Initial: cand},
	})
	assert.Equal(t, SourceCaptures, r.Timing.Source)
	assert.InDelta(t, 3.0, r.Timing.Ratio, 1e-9)
	assert.Equal(t, []int{2, 3}, r.Timing.StuckCandidate)
	assert.Empty(t, r.Timing.StuckReference)

	var stuck []Finding
	for _, f := range r.FindingsFor(CheckTiming) {
		if f.Severity == SeverityMedium {
			stuck = append(stuck, f)
		}
	}
	require.Len(t, stuck, 1)
	assert.True(t, strings.HasPrefix(stuck[0].Message, "2 more streams"))
}

func TestCheckDrift(t *testing.T) {
	tests := []struct {
		name    string
		ref     int
		cand    int
		finding bool
	}{
		{"below threshold", 2, 7, false},
		{"above threshold", 2, 8, true},
		{"candidate better", 10, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newEngine(t, nil).Compare(&Inputs{
				Reference: Side{Events: events(50, tt.ref, "native")},
				Candidate: Side{Events: events(50, tt.cand, "native")},
			})
			require.Equal(t, StatusOK, r.Drift.Status)
			assert.Equal(t, tt.cand-tt.ref, r.Drift.DriftDiff)
			assert.Equal(t, tt.finding, r.Count(SeverityMedium) == 1)
			if tt.finding {
				f := r.FindingsFor(CheckDrift)[0]
				assert.Equal(t, "WebKit has 6 more timer drift events", f.Message)
				assert.Contains(t, f.Recommendation, "throttling timers")
			}
		})
	}
}

func TestCheckDrift_Monotonic(t *testing.T) {
	base := events(50, 0, "native")
	prev := -1
	for drift := 0; drift <= 20; drift++ {
		r := newEngine(t, nil).Compare(&Inputs{
			Reference: Side{Events: base},
			Candidate: Side{Events: events(50, drift, "native")},
		})
		n := r.Count(SeverityMedium)
		assert.GreaterOrEqual(t, n, max(prev, 0), "drift %d", drift)
		prev = n
	}
}

func TestCheckDrift_ScrollEndMethodAndDerived(t *testing.T) {
	timer := func(delay, actual float64) types.EventEntry {
		return types.EventEntry{
			Category: types.CategoryTimer,
			Message:  "setTimeout fired",
			Data:     map[string]any{"delay": delay, "actualDelay": actual},
		}
	}
	cand := &capture.Capture{Descriptor: descriptor(nil), Logs: []types.EventEntry{
		timer(100, 200), timer(100, 90), timer(100, 151),
	}}

	r := newEngine(t, nil).Compare(&Inputs{
		Reference: Side{Events: events(3, 0, "native")},
		Candidate: Side{Environment: "webkit", Scroll: cand},
	})

	require.Equal(t, StatusOK, r.Drift.Status)
	assert.Equal(t, SourceReports+"+"+SourceCaptures, r.Drift.Source)
	assert.Equal(t, 2, r.Drift.DriftDiff)
	assert.Equal(t, "native", r.Drift.ReferenceScrollEndMethod)
	assert.Equal(t, "fallback", r.Drift.CandidateScrollEndMethod)

	findings := r.FindingsFor(CheckDrift)
	require.Len(t, findings, 1)
	assert.Equal(t, SeverityInfo, findings[0].Severity)
}

func TestCheckVisibility(t *testing.T) {
	r := newEngine(t, nil).Compare(&Inputs{Bugs: []NamedBugReport{
		{File: "webkit-BUG-REPORT.json", BugReport: capture.BugReport{
			Browser:        "webkit",
			Issue:          capture.BugIssueDisappeared,
			InitialVisible: []int{1, 2, 3},
			FinalVisible:   []int{1, 3},
		}},
	}})

	require.Len(t, r.Visibility.Rows, 1)
	assert.Equal(t, []int{2}, r.Visibility.Rows[0].Regression)

	findings := r.FindingsFor(CheckVisibility)
	require.Len(t, findings, 1)
	assert.Equal(t, SeverityHigh, findings[0].Severity)
	assert.Contains(t, findings[0].Message, "2")
	assert.Equal(t, 1, r.Count(SeverityHigh))
}

func TestCheckVisibility_NoRegression(t *testing.T) {
	r := newEngine(t, nil).Compare(&Inputs{Bugs: []NamedBugReport{
		{File: "x-BUG-REPORT.json", BugReport: capture.BugReport{InitialVisible: []int{1}, FinalVisible: []int{1}}},
	}})
	assert.Empty(t, r.Findings)
	assert.Equal(t, []int{}, r.Visibility.Rows[0].Regression)
}

func TestCompare_FindingsInCheckOrder(t *testing.T) {
	r := newEngine(t, nil).Compare(&Inputs{
		Reference: Side{
			Initial: &capture.Capture{Descriptor: descriptor(map[environment.FeatureName]bool{environment.FeatureScrollEnd: true})},
			Timing:  timing(100, 100, 100),
			Events:  events(1, 0, "native"),
		},
		Candidate: Side{
			Initial: &capture.Capture{Descriptor: descriptor(map[environment.FeatureName]bool{environment.FeatureScrollEnd: false})},
			Timing:  timing(300, 300, 300),
			Events:  events(1, 10, "fallback"),
		},
		Bugs: []NamedBugReport{{BugReport: capture.BugReport{Browser: "webkit", MissingMonitors: []int{4}}}},
	})

	var checks []string
	for _, f := range r.Findings {
		if len(checks) == 0 || checks[len(checks)-1] != f.Check {
			checks = append(checks, f.Check)
		}
	}
	assert.Equal(t, []string{CheckFeatures, CheckTiming, CheckDrift, CheckVisibility}, checks)
	assert.Equal(t, 1, r.Count(SeverityCritical))
	assert.Equal(t, 2, r.Count(SeverityHigh))
	assert.Equal(t, 1, r.Count(SeverityMedium))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "WebKit", DisplayName("webkit"))
	assert.Equal(t, "Chromium", DisplayName("Chromium"))
	assert.Equal(t, "edge-canary", DisplayName("edge-canary"))
}
