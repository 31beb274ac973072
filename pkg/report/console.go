package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/entrhq/driftlens/pkg/compare"
)

// Render prints every section of r followed by the findings summary.
// maxListed caps the unique messages printed per side below verbose level.
func (p *Printer) Render(r *compare.Report, maxListed int) {
	ref, cand := compare.DisplayName(r.Reference), compare.DisplayName(r.Candidate)

	p.Header(fmt.Sprintf("Behavior comparison: %s vs %s", ref, cand))
	p.renderFeatures(r, ref, cand)
	p.renderCategories(r, ref, cand, maxListed)
	p.renderTiming(r, ref, cand)
	p.renderDrift(r, ref, cand)
	p.renderVisibility(r)
	p.renderSummary(r)
}

func (p *Printer) insufficient(what string) {
	if p.level >= LogLevelNormal {
		fmt.Fprintln(p.writer, p.warning.Render("INSUFFICIENT DATA: "+what))
	}
}

func (p *Printer) table(headers []string, rows [][]string, highlight func(row int) bool) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(p.rule).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := p.info.Padding(0, 1)
			switch {
			case row == table.HeaderRow:
				return p.section.Padding(0, 1)
			case highlight != nil && highlight(row):
				return p.warning.Padding(0, 1)
			case col == 0:
				return style
			default:
				return style.Align(lipgloss.Right)
			}
		})
	return t.String()
}

func mark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

func (p *Printer) renderFeatures(r *compare.Report, ref, cand string) {
	p.Section("Environment Feature Support")
	if r.Features.Status == compare.StatusInsufficient {
		p.insufficient("initial-load capture missing for one or both environments")
		return
	}
	if len(r.Features.Rows) == 0 {
		p.Infof("No features probed")
		return
	}

	rows := make([][]string, len(r.Features.Rows))
	for i, f := range r.Features.Rows {
		rows[i] = []string{f.Feature, mark(f.Reference), mark(f.Candidate)}
	}
	p.Block(p.table([]string{"Feature", ref, cand}, rows, func(i int) bool {
		return r.Features.Rows[i].Mismatch
	}))
}

func (p *Printer) renderCategories(r *compare.Report, ref, cand string, maxListed int) {
	p.Section("Event Log Comparison")
	if r.Categories.Status == compare.StatusInsufficient {
		p.insufficient("scroll-test capture missing for one or both environments")
		return
	}

	rows := make([][]string, len(r.Categories.Rows))
	for i, c := range r.Categories.Rows {
		rows[i] = []string{string(c.Category), fmt.Sprint(c.Reference), fmt.Sprint(c.Candidate), fmt.Sprintf("%+d", c.Delta)}
	}
	p.Block(p.table([]string{"Category", ref, cand, "Diff"}, rows, func(i int) bool {
		return r.Categories.Rows[i].Flagged
	}))

	p.listMessages("Events only in "+ref, r.Messages.OnlyReference, maxListed)
	p.listMessages("Events only in "+cand, r.Messages.OnlyCandidate, maxListed)
	if r.Messages.Ignored > 0 {
		p.Verbosef("%d messages ignored by pattern", r.Messages.Ignored)
	}
}

func (p *Printer) listMessages(title string, keys []string, maxListed int) {
	if len(keys) == 0 || p.level < LogLevelNormal {
		return
	}
	limit := len(keys)
	if p.level < LogLevelVerbose && maxListed > 0 && limit > maxListed {
		limit = maxListed
	}

	fmt.Fprintln(p.writer)
	fmt.Fprintln(p.writer, p.accent.Render(fmt.Sprintf("%s (%d):", title, len(keys))))
	for _, k := range keys[:limit] {
		fmt.Fprintf(p.writer, "   - %s\n", k)
	}
	if limit < len(keys) {
		fmt.Fprintln(p.writer, p.muted.Render(fmt.Sprintf("   ... and %d more", len(keys)-limit)))
	}
}

func (p *Printer) renderTiming(r *compare.Report, ref, cand string) {
	p.Section("Stream Start Timing")
	t := r.Timing
	if len(t.StuckCandidate) > 0 {
		p.Warningf("%d streams in %s started but never completed: %s", len(t.StuckCandidate), cand, joinIDs(t.StuckCandidate))
	}
	if t.Status == compare.StatusInsufficient {
		p.insufficient("timing data missing or reference average is zero")
		return
	}
	p.Verbosef("source: %s", t.Source)

	rows := make([][]string, len(t.Rows))
	for i, m := range t.Rows {
		rows[i] = []string{m.Metric, fmt.Sprintf("%.1fms", m.Reference), fmt.Sprintf("%.1fms", m.Candidate), fmt.Sprintf("%+.1fms", m.Delta)}
	}
	p.Block(p.table([]string{"Metric", ref, cand, "Diff"}, rows, func(i int) bool {
		return t.Rows[i].Flagged
	}))

	switch t.Verdict {
	case compare.VerdictCritical:
		if p.level >= LogLevelNormal {
			fmt.Fprintln(p.writer, p.failure.Render(fmt.Sprintf("CRITICAL: %s is %.1fx slower than %s", cand, t.Ratio, ref)))
		}
	case compare.VerdictHigh:
		p.Warningf("%s is significantly slower than %s (%.1fx)", cand, ref, t.Ratio)
	default:
		p.Successf("Loading times are comparable (%.2fx)", t.Ratio)
	}
}

func (p *Printer) renderDrift(r *compare.Report, ref, cand string) {
	p.Section("Timer & Event Behavior")
	d := r.Drift
	if d.Status == compare.StatusInsufficient {
		p.insufficient("event report or capture missing for one or both environments")
		return
	}
	p.Verbosef("source: %s", d.Source)

	rows := make([][]string, len(d.Rows))
	for i, c := range d.Rows {
		rows[i] = []string{c.Event, fmt.Sprint(c.Reference), fmt.Sprint(c.Candidate)}
	}
	p.Block(p.table([]string{"Event Type", ref, cand}, rows, func(i int) bool {
		return d.Rows[i].Differs
	}))

	p.Infof("Scroll end detection: %s=%s, %s=%s", ref, d.ReferenceScrollEndMethod, cand, d.CandidateScrollEndMethod)
	if d.ReferenceScrollEndMethod != d.CandidateScrollEndMethod {
		p.Warningf("different scroll end methods detected")
	}
	if d.DriftDiff > 0 {
		p.Warningf("%s has %d more timer drift events", cand, d.DriftDiff)
	}
}

func (p *Printer) renderVisibility(r *compare.Report) {
	p.Section("Bug Reports")
	if len(r.Visibility.Rows) == 0 {
		p.Successf("No bug reports found")
		return
	}
	for _, row := range r.Visibility.Rows {
		p.Infof("File: %s", row.File)
		p.Infof("  Browser: %s", row.Browser)
		p.Infof("  Issue: %s", row.Issue)
		if len(row.Regression) > 0 {
			p.Infof("  Missing monitors: %s", joinIDs(row.Regression))
		}
	}
}

func (p *Printer) severityStyle(s compare.Severity) lipgloss.Style {
	switch s {
	case compare.SeverityCritical:
		return p.failure
	case compare.SeverityHigh:
		return p.warning
	case compare.SeverityMedium:
		return p.accent
	default:
		return p.muted
	}
}

func (p *Printer) renderSummary(r *compare.Report) {
	if p.level >= LogLevelNormal {
		p.Header("Summary & Recommendations")
	} else {
		fmt.Fprintln(p.writer, "Summary & Recommendations")
	}

	var insufficient []string
	for _, s := range r.Statuses() {
		if s.Status == compare.StatusInsufficient {
			insufficient = append(insufficient, s.Check)
		}
	}
	if len(insufficient) > 0 {
		p.Verbosef("insufficient data: %s", strings.Join(insufficient, ", "))
	}

	if len(r.Findings) == 0 {
		fmt.Fprintln(p.writer, p.success.Render("✓ No divergences detected"))
		return
	}
	for _, f := range r.Findings {
		if f.Severity == compare.SeverityInfo && p.level < LogLevelNormal {
			continue
		}
		fmt.Fprintln(p.writer, p.severityStyle(f.Severity).Render(fmt.Sprintf("[%s] %s", strings.ToUpper(string(f.Severity)), f.Message)))
		if f.Recommendation != "" {
			fmt.Fprintf(p.writer, "  → %s\n", f.Recommendation)
		}
	}
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ", ")
}
