package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/entrhq/driftlens/pkg/compare"
)

// Artifact file names written next to the inputs.
const (
	JSONFile     = "comparison.json"
	MarkdownFile = "comparison.md"
)

// ArtifactWriter handles writing comparison artifacts to disk
type ArtifactWriter struct {
	dir string
}

// NewArtifactWriter creates a new artifact writer
func NewArtifactWriter(dir string) *ArtifactWriter {
	return &ArtifactWriter{dir: dir}
}

// WriteAll writes all artifacts for the report
func (w *ArtifactWriter) WriteAll(r *compare.Report) error {
	if err := os.MkdirAll(w.dir, 0750); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}
	if err := w.WriteJSON(r); err != nil {
		return fmt.Errorf("failed to write comparison JSON: %w", err)
	}
	if err := w.WriteMarkdown(r); err != nil {
		return fmt.Errorf("failed to write comparison markdown: %w", err)
	}
	return nil
}

// WriteJSON writes the machine-readable report
func (w *ArtifactWriter) WriteJSON(r *compare.Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(w.dir, JSONFile), data, 0600)
}

// WriteMarkdown writes a human-readable summary
func (w *ArtifactWriter) WriteMarkdown(r *compare.Report) error {
	return os.WriteFile(filepath.Join(w.dir, MarkdownFile), []byte(Markdown(r)), 0600)
}

// Markdown renders r as a Markdown document.
func Markdown(r *compare.Report) string {
	var sb strings.Builder
	ref, cand := compare.DisplayName(r.Reference), compare.DisplayName(r.Candidate)

	sb.WriteString(fmt.Sprintf("# Behavior Comparison: %s vs %s\n\n", ref, cand))
	sb.WriteString(fmt.Sprintf("**Generated:** %s\n\n", r.GeneratedAt.Format("2006-01-02 15:04:05 MST")))
	if worst, ok := r.Worst(); ok {
		sb.WriteString(fmt.Sprintf("**Worst severity:** %s\n\n", worst))
	} else {
		sb.WriteString("**Worst severity:** none\n\n")
	}

	sb.WriteString("## Checks\n\n")
	sb.WriteString("| Check | Status |\n|---|---|\n")
	for _, s := range r.Statuses() {
		sb.WriteString(fmt.Sprintf("| %s | %s |\n", s.Check, s.Status))
	}
	sb.WriteString("\n")

	if r.Features.Status == compare.StatusOK && len(r.Features.Rows) > 0 {
		sb.WriteString("## Feature Support\n\n")
		sb.WriteString(fmt.Sprintf("| Feature | %s | %s |\n|---|---|---|\n", ref, cand))
		for _, f := range r.Features.Rows {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", f.Feature, mark(f.Reference), mark(f.Candidate)))
		}
		sb.WriteString("\n")
	}

	if r.Categories.Status == compare.StatusOK {
		sb.WriteString("## Event Categories\n\n")
		sb.WriteString(fmt.Sprintf("| Category | %s | %s | Diff |\n|---|---|---|---|\n", ref, cand))
		for _, c := range r.Categories.Rows {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %+d |\n", c.Category, c.Reference, c.Candidate, c.Delta))
		}
		sb.WriteString("\n")
	}

	if r.Timing.Status == compare.StatusOK {
		sb.WriteString("## Stream Start Timing\n\n")
		sb.WriteString(fmt.Sprintf("| Metric | %s | %s | Diff |\n|---|---|---|---|\n", ref, cand))
		for _, m := range r.Timing.Rows {
			sb.WriteString(fmt.Sprintf("| %s | %.1fms | %.1fms | %+.1fms |\n", m.Metric, m.Reference, m.Candidate, m.Delta))
		}
		sb.WriteString(fmt.Sprintf("\n**Ratio:** %.2fx (%s)\n\n", r.Timing.Ratio, r.Timing.Verdict))
	}

	if r.Drift.Status == compare.StatusOK {
		sb.WriteString("## Timer & Event Behavior\n\n")
		sb.WriteString(fmt.Sprintf("| Event | %s | %s |\n|---|---|---|\n", ref, cand))
		for _, c := range r.Drift.Rows {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d |\n", c.Event, c.Reference, c.Candidate))
		}
		sb.WriteString("\n")
	}

	if len(r.Findings) > 0 {
		sb.WriteString("## Findings\n\n")
		for _, f := range r.Findings {
			sb.WriteString(fmt.Sprintf("- **%s** (%s): %s\n", strings.ToUpper(string(f.Severity)), f.Check, f.Message))
			if f.Recommendation != "" {
				sb.WriteString(fmt.Sprintf("  - %s\n", f.Recommendation))
			}
		}
	} else {
		sb.WriteString("## Findings\n\nNo divergences detected.\n")
	}

	return sb.String()
}
