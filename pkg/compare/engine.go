package compare

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/entrhq/driftlens/pkg/capture"
	"github.com/entrhq/driftlens/pkg/config"
	"github.com/entrhq/driftlens/pkg/environment"
	"github.com/entrhq/driftlens/pkg/logging"
	"github.com/entrhq/driftlens/pkg/types"
)

// Input sources recorded in timing and drift sections.
const (
	SourceReports  = "reports"
	SourceCaptures = "captures"
)

var displayNames = map[string]string{
	"chromium": "Chromium",
	"webkit":   "WebKit",
	"firefox":  "Firefox",
}

// DisplayName returns the human-readable name of an environment.
func DisplayName(env string) string {
	if name, ok := displayNames[strings.ToLower(env)]; ok {
		return name
	}
	return env
}

// Engine runs the comparison checks with fixed thresholds.
type Engine struct {
	cfg    config.Comparison
	filter *MessageFilter
	logger *logging.Logger
	now    func() time.Time
}

// NewEngine validates cfg and compiles its ignore patterns.
func NewEngine(cfg config.Comparison, logger *logging.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid comparison config: %w", err)
	}
	filter, err := NewMessageFilter(cfg.IgnoreMessages)
	if err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, filter: filter, logger: logger, now: time.Now}, nil
}

// Compare runs every check in order. It never fails: missing inputs mark
// the affected sections as insufficient data.
func (e *Engine) Compare(in *Inputs) *Report {
	if in == nil {
		in = &Inputs{}
	}
	ref, cand := in.Reference, in.Candidate
	r := &Report{
		Reference:   firstNonEmpty(ref.Environment, e.cfg.Reference),
		Candidate:   firstNonEmpty(cand.Environment, e.cfg.Candidate),
		GeneratedAt: e.now().UTC(),
		Findings:    []Finding{},
	}

	e.checkFeatures(r, ref.Initial, cand.Initial)
	e.checkCategories(r, ref.Scroll, cand.Scroll)
	e.checkMessages(r, ref.Scroll, cand.Scroll)
	e.checkTiming(r, ref, cand)
	e.checkDrift(r, ref, cand)
	e.checkVisibility(r, in.Bugs)

	for _, s := range r.Statuses() {
		if s.Status == StatusInsufficient {
			e.logger.Infof("%s check: insufficient data", s.Check)
		}
	}
	e.logger.Infof("comparison %s vs %s produced %d findings", r.Reference, r.Candidate, len(r.Findings))
	return r
}

func (r *Report) add(check string, severity Severity, message, recommendation string) {
	r.Findings = append(r.Findings, Finding{
		Check:          check,
		Severity:       severity,
		Message:        message,
		Recommendation: recommendation,
	})
}

func (e *Engine) checkFeatures(r *Report, ref, cand *capture.Capture) {
	if ref == nil || cand == nil {
		r.Features.Status = StatusInsufficient
		return
	}
	r.Features.Status = StatusOK

	refFeatures, candFeatures := ref.Descriptor.Features, cand.Descriptor.Features
	for _, name := range featureUnion(refFeatures, candFeatures) {
		row := FeatureRow{
			Feature:   string(name),
			Reference: refFeatures[name],
			Candidate: candFeatures[name],
		}
		row.Mismatch = row.Reference != row.Candidate
		r.Features.Rows = append(r.Features.Rows, row)
	}

	candName := DisplayName(r.Candidate)
	supported, probed := candFeatures[environment.FeatureScrollEnd]
	scrollEndFlagged := probed && !supported
	if scrollEndFlagged {
		r.add(CheckFeatures, SeverityHigh,
			fmt.Sprintf("%s does not support native scrollend event", candName),
			"Verify the debounce fallback ends every scroll and refreshes stream visibility")
	}

	for _, row := range r.Features.Rows {
		if !row.Mismatch || (scrollEndFlagged && row.Feature == string(environment.FeatureScrollEnd)) {
			continue
		}
		r.add(CheckFeatures, SeverityInfo,
			fmt.Sprintf("Feature %s differs: %s=%t, %s=%t", row.Feature,
				DisplayName(r.Reference), row.Reference, candName, row.Candidate),
			"")
	}
}

// featureUnion returns the known features first, then any others sorted.
func featureUnion(a, b map[environment.FeatureName]bool) []environment.FeatureName {
	seen := make(map[environment.FeatureName]bool)
	for k := range a {
		seen[k] = true
	}
	for k := range b {
		seen[k] = true
	}

	var out []environment.FeatureName
	for _, name := range environment.Features() {
		if seen[name] {
			out = append(out, name)
			delete(seen, name)
		}
	}
	var rest []environment.FeatureName
	for name := range seen {
		rest = append(rest, name)
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	return append(out, rest...)
}

func (e *Engine) checkCategories(r *Report, ref, cand *capture.Capture) {
	if ref == nil || cand == nil {
		r.Categories.Status = StatusInsufficient
		return
	}
	r.Categories.Status = StatusOK

	refCounts, candCounts := ref.CategoryCounts(), cand.CategoryCounts()
	var categories []types.Category
	for c := range refCounts {
		categories = append(categories, c)
	}
	for c := range candCounts {
		if _, ok := refCounts[c]; !ok {
			categories = append(categories, c)
		}
	}
	sort.Slice(categories, func(i, j int) bool {
		ri, rj := categories[i].Rank(), categories[j].Rank()
		if ri != rj {
			return ri < rj
		}
		return categories[i] < categories[j]
	})

	for _, c := range categories {
		row := CategoryRow{Category: c, Reference: refCounts[c], Candidate: candCounts[c]}
		row.Delta = row.Candidate - row.Reference
		row.Flagged = abs(row.Delta) > e.cfg.CategoryDeltaThreshold
		r.Categories.Rows = append(r.Categories.Rows, row)
		if row.Flagged {
			r.add(CheckCategories, SeverityInfo,
				fmt.Sprintf("%s events differ by %+d in %s", c, row.Delta, DisplayName(r.Candidate)),
				"")
		}
	}
}

func (e *Engine) checkMessages(r *Report, ref, cand *capture.Capture) {
	r.Messages.OnlyReference = []string{}
	r.Messages.OnlyCandidate = []string{}
	if ref == nil || cand == nil {
		r.Messages.Status = StatusInsufficient
		return
	}
	r.Messages.Status = StatusOK

	refKeys, candKeys := ref.MessageKeys(), cand.MessageKeys()
	r.Messages.OnlyReference = e.difference(r, refKeys, candKeys)
	r.Messages.OnlyCandidate = e.difference(r, candKeys, refKeys)

	if n := len(r.Messages.OnlyReference); n > 0 {
		r.add(CheckMessages, SeverityInfo,
			fmt.Sprintf("%d event messages only in %s", n, DisplayName(r.Reference)), "")
	}
	if n := len(r.Messages.OnlyCandidate); n > 0 {
		r.add(CheckMessages, SeverityInfo,
			fmt.Sprintf("%d event messages only in %s", n, DisplayName(r.Candidate)), "")
	}
}

// difference returns keys of a absent from b, in a's order, dropping
// ignored keys.
func (e *Engine) difference(r *Report, a, b []string) []string {
	inB := make(map[string]bool, len(b))
	for _, k := range b {
		inB[k] = true
	}
	out := []string{}
	for _, k := range a {
		if inB[k] {
			continue
		}
		if e.filter.Ignored(k) {
			r.Messages.Ignored++
			continue
		}
		out = append(out, k)
	}
	return out
}

func (e *Engine) checkTiming(r *Report, ref, cand Side) {
	refStat, refSource := timingStat(ref)
	candStat, candSource := timingStat(cand)
	r.Timing.StuckReference = stuckStarts(ref)
	r.Timing.StuckCandidate = stuckStarts(cand)

	candName := DisplayName(r.Candidate)
	if extra := len(r.Timing.StuckCandidate) - len(r.Timing.StuckReference); extra > 0 {
		r.add(CheckTiming, SeverityMedium,
			fmt.Sprintf("%d more streams started but never completed in %s", extra, candName),
			"Check whether stream start calls are dropped or left waiting on a callback")
	}

	if refStat == nil || candStat == nil || refStat.Average == 0 {
		r.Timing.Status = StatusInsufficient
		return
	}
	r.Timing.Status = StatusOK
	r.Timing.Source = refSource
	if candSource != refSource {
		r.Timing.Source = refSource + "+" + candSource
	}

	metrics := []struct {
		name string
		ref  float64
		cand float64
	}{
		{"average", refStat.Average, candStat.Average},
		{"min", refStat.Min, candStat.Min},
		{"max", refStat.Max, candStat.Max},
	}
	for _, m := range metrics {
		row := MetricRow{Metric: m.name, Reference: m.ref, Candidate: m.cand, Delta: m.cand - m.ref}
		row.Flagged = math.Abs(row.Delta) > e.cfg.MetricDeltaMs
		r.Timing.Rows = append(r.Timing.Rows, row)
		if row.Flagged {
			r.add(CheckTiming, SeverityInfo,
				fmt.Sprintf("Stream start %s differs by %+.1fms in %s", m.name, row.Delta, candName), "")
		}
	}

	ratio := candStat.Average / refStat.Average
	r.Timing.Ratio = ratio
	switch {
	case ratio > e.cfg.CriticalRatio:
		r.Timing.Verdict = VerdictCritical
		r.add(CheckTiming, SeverityCritical,
			fmt.Sprintf("Video loading is %.1fx slower in %s", ratio, candName),
			"Investigate the stream start method for blocking or serialized async work")
	case ratio > e.cfg.HighRatio:
		r.Timing.Verdict = VerdictHigh
		r.add(CheckTiming, SeverityHigh,
			fmt.Sprintf("Video loading is %.1fx slower in %s", ratio, candName),
			"Profile stream start in the candidate environment")
	default:
		r.Timing.Verdict = VerdictAcceptable
	}
}

// timingStat prefers the timing report and falls back to the captures.
func timingStat(s Side) (*capture.TimingStat, string) {
	if s.Timing != nil && s.Timing.Stats != nil {
		return s.Timing.Stats, SourceReports
	}
	if s.Timing != nil && len(s.Timing.LoadingTimes) > 0 {
		return capture.NewTimingStat(s.Timing.LoadingTimes), SourceReports
	}
	for _, c := range []*capture.Capture{s.Initial, s.Scroll} {
		if stat := capture.NewTimingStat(c.LoadingTimes()); stat != nil {
			return stat, SourceCaptures
		}
	}
	return nil, ""
}

func stuckStarts(s Side) []int {
	for _, c := range []*capture.Capture{s.Initial, s.Scroll} {
		if !c.Empty() {
			return c.StuckStarts()
		}
	}
	return nil
}

func (e *Engine) checkDrift(r *Report, ref, cand Side) {
	refEvents, refSource := e.eventReport(ref)
	candEvents, candSource := e.eventReport(cand)
	if refEvents == nil || candEvents == nil {
		r.Drift.Status = StatusInsufficient
		return
	}
	r.Drift.Status = StatusOK
	r.Drift.Source = refSource
	if candSource != refSource {
		r.Drift.Source = refSource + "+" + candSource
	}

	counts := []struct {
		name      string
		ref, cand int
	}{
		{"timer", refEvents.Events.Timer, candEvents.Events.Timer},
		{"timerDrift", refEvents.Events.TimerDrift, candEvents.Events.TimerDrift},
		{"scroll", refEvents.Events.Scroll, candEvents.Events.Scroll},
		{"viewport", refEvents.Events.Viewport, candEvents.Events.Viewport},
	}
	for _, c := range counts {
		r.Drift.Rows = append(r.Drift.Rows, CountRow{
			Event:     c.name,
			Reference: c.ref,
			Candidate: c.cand,
			Differs:   c.ref != c.cand,
		})
	}

	candName := DisplayName(r.Candidate)
	r.Drift.DriftDiff = candEvents.Events.TimerDrift - refEvents.Events.TimerDrift
	if r.Drift.DriftDiff > e.cfg.DriftDiffThreshold {
		r.add(CheckDrift, SeverityMedium,
			fmt.Sprintf("%s has %d more timer drift events", candName, r.Drift.DriftDiff),
			fmt.Sprintf("%s may be throttling timers - consider adjusting intervals", candName))
	}

	r.Drift.ReferenceScrollEndMethod = methodOrUnknown(refEvents.Events.ScrollEndMethod)
	r.Drift.CandidateScrollEndMethod = methodOrUnknown(candEvents.Events.ScrollEndMethod)
	if r.Drift.ReferenceScrollEndMethod != r.Drift.CandidateScrollEndMethod {
		r.add(CheckDrift, SeverityInfo,
			fmt.Sprintf("Different scroll end methods: %s uses %s, %s uses %s",
				DisplayName(r.Reference), r.Drift.ReferenceScrollEndMethod,
				candName, r.Drift.CandidateScrollEndMethod),
			"")
	}
}

// eventReport prefers the event report and falls back to deriving one from
// the captures.
func (e *Engine) eventReport(s Side) (*capture.EventReport, string) {
	if s.Events != nil {
		return s.Events, SourceReports
	}
	for _, c := range []*capture.Capture{s.Initial, s.Scroll} {
		if !c.Empty() {
			report := capture.BuildEventReport(s.Environment, c, e.cfg.DriftThresholdMs)
			return &report, SourceCaptures
		}
	}
	return nil, ""
}

func methodOrUnknown(m string) string {
	if m == "" {
		return "unknown"
	}
	return m
}

func (e *Engine) checkVisibility(r *Report, bugs []NamedBugReport) {
	r.Visibility.Status = StatusOK
	for _, bug := range bugs {
		regression := bug.Regression()
		if regression == nil {
			regression = []int{}
		}
		r.Visibility.Rows = append(r.Visibility.Rows, VisibilityRow{
			File:       bug.File,
			Browser:    bug.Browser,
			Issue:      bug.Issue,
			Regression: regression,
		})
		if len(regression) == 0 {
			continue
		}
		r.add(CheckVisibility, SeverityHigh,
			fmt.Sprintf("Monitors disappeared after scrolling in %s: %s", DisplayName(bug.Browser), joinInts(regression)),
			"Check that scroll end refreshes stream visibility and restarts paused streams")
	}
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ", ")
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
