package compare

import (
	"time"

	"github.com/entrhq/driftlens/pkg/types"
)

// Status is the outcome of one check.
type Status string

const (
	StatusOK           Status = "ok"
	StatusInsufficient Status = "insufficient_data"
)

// FeatureRow compares one capability.
type FeatureRow struct {
	Feature   string `json:"feature"`
	Reference bool   `json:"reference"`
	Candidate bool   `json:"candidate"`
	Mismatch  bool   `json:"mismatch"`
}

// FeatureSection is the feature-support diff.
type FeatureSection struct {
	Status Status       `json:"status"`
	Rows   []FeatureRow `json:"rows,omitempty"`
}

// CategoryRow compares entry counts for one category.
type CategoryRow struct {
	Category  types.Category `json:"category"`
	Reference int            `json:"reference"`
	Candidate int            `json:"candidate"`
	Delta     int            `json:"delta"`
	Flagged   bool           `json:"flagged"`
}

// CategorySection is the category-count diff.
type CategorySection struct {
	Status Status        `json:"status"`
	Rows   []CategoryRow `json:"rows,omitempty"`
}

// MessageSection lists category:message keys seen on only one side.
type MessageSection struct {
	Status        Status   `json:"status"`
	OnlyReference []string `json:"onlyReference"`
	OnlyCandidate []string `json:"onlyCandidate"`
	Ignored       int      `json:"ignored"`
}

// MetricRow compares one timing statistic.
type MetricRow struct {
	Metric    string  `json:"metric"`
	Reference float64 `json:"reference"`
	Candidate float64 `json:"candidate"`
	Delta     float64 `json:"delta"`
	Flagged   bool    `json:"flagged"`
}

// Timing verdicts.
const (
	VerdictAcceptable = "acceptable"
	VerdictHigh       = "high"
	VerdictCritical   = "critical"
)

// TimingSection is the stream start timing comparison.
type TimingSection struct {
	Status         Status      `json:"status"`
	Source         string      `json:"source,omitempty"`
	Rows           []MetricRow `json:"rows,omitempty"`
	Ratio          float64     `json:"ratio,omitempty"`
	Verdict        string      `json:"verdict,omitempty"`
	StuckReference []int       `json:"stuckReference,omitempty"`
	StuckCandidate []int       `json:"stuckCandidate,omitempty"`
}

// CountRow compares one event count.
type CountRow struct {
	Event     string `json:"event"`
	Reference int    `json:"reference"`
	Candidate int    `json:"candidate"`
	Differs   bool   `json:"differs"`
}

// DriftSection is the timer drift and event count comparison.
type DriftSection struct {
	Status                   Status     `json:"status"`
	Source                   string     `json:"source,omitempty"`
	Rows                     []CountRow `json:"rows,omitempty"`
	DriftDiff                int        `json:"driftDiff"`
	ReferenceScrollEndMethod string     `json:"referenceScrollEndMethod,omitempty"`
	CandidateScrollEndMethod string     `json:"candidateScrollEndMethod,omitempty"`
}

// VisibilityRow summarizes one bug report.
type VisibilityRow struct {
	File       string `json:"file"`
	Browser    string `json:"browser"`
	Issue      string `json:"issue"`
	Regression []int  `json:"regression"`
}

// VisibilitySection lists visibility regressions from bug reports.
type VisibilitySection struct {
	Status Status          `json:"status"`
	Rows   []VisibilityRow `json:"rows,omitempty"`
}

// Report is the complete comparison result.
type Report struct {
	Reference   string    `json:"reference"`
	Candidate   string    `json:"candidate"`
	GeneratedAt time.Time `json:"generatedAt"`

	Features   FeatureSection    `json:"features"`
	Categories CategorySection   `json:"categories"`
	Messages   MessageSection    `json:"messages"`
	Timing     TimingSection     `json:"timing"`
	Drift      DriftSection      `json:"drift"`
	Visibility VisibilitySection `json:"visibility"`

	Findings []Finding `json:"findings"`
}

// SectionStatus pairs a check name with its status.
type SectionStatus struct {
	Check  string
	Status Status
}

// Statuses returns the status of every check in run order.
func (r *Report) Statuses() []SectionStatus {
	return []SectionStatus{
		{CheckFeatures, r.Features.Status},
		{CheckCategories, r.Categories.Status},
		{CheckMessages, r.Messages.Status},
		{CheckTiming, r.Timing.Status},
		{CheckDrift, r.Drift.Status},
		{CheckVisibility, r.Visibility.Status},
	}
}

// Count returns the number of findings with the given severity.
func (r *Report) Count(severity Severity) int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == severity {
			n++
		}
	}
	return n
}

// Worst returns the most severe finding's severity, or false when there are
// no findings.
func (r *Report) Worst() (Severity, bool) {
	if len(r.Findings) == 0 {
		return "", false
	}
	worst := r.Findings[0].Severity
	for _, f := range r.Findings[1:] {
		if f.Severity.Rank() > worst.Rank() {
			worst = f.Severity
		}
	}
	return worst, true
}

// FindingsFor returns the findings emitted by one check.
func (r *Report) FindingsFor(check string) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Check == check {
			out = append(out, f)
		}
	}
	return out
}
