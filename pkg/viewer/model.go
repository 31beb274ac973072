// Package viewer is an interactive terminal browser for comparison.json.
package viewer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/entrhq/driftlens/pkg/compare"
	"github.com/entrhq/driftlens/pkg/report"
)

// Tab identifies one pane of the viewer.
type Tab int

const (
	TabReport Tab = iota
	TabFindings
	TabJSON
)

var tabNames = [...]string{"Report", "Findings", "JSON"}

func (t Tab) String() string {
	if int(t) < len(tabNames) {
		return tabNames[t]
	}
	return "?"
}

// model holds the viewer state. Pane content is rendered once at
// construction and swapped into the viewport on tab change.
type model struct {
	viewport viewport.Model
	report   *compare.Report
	raw      []byte
	panes    [len(tabNames)]string
	tab      Tab

	status string
	copy   func(string) error
	width  int
	height int
	ready  bool
}

// Option configures the viewer model.
type Option func(*model)

// WithClipboard overrides the clipboard writer.
func WithClipboard(fn func(string) error) Option {
	return func(m *model) { m.copy = fn }
}

func newModel(r *compare.Report, raw []byte, opts ...Option) *model {
	m := &model{
		viewport: viewport.New(80, 20),
		report:   r,
		raw:      raw,
		copy:     clipboard.WriteAll,
	}
	for _, opt := range opts {
		opt(m)
	}

	var buf bytes.Buffer
	report.NewPrinterTo(report.LogLevelVerbose, &buf).Render(r, 0)
	m.panes[TabReport] = buf.String()
	m.panes[TabFindings] = findingsPane(r)
	m.panes[TabJSON] = highlightJSON(raw)
	m.viewport.SetContent(m.panes[m.tab])
	return m
}

func findingsPane(r *compare.Report) string {
	if len(r.Findings) == 0 {
		return "No divergences detected.\n"
	}
	var sb strings.Builder
	sevs := compare.Severities()
	for i := len(sevs) - 1; i >= 0; i-- {
		sev := sevs[i]
		n := r.Count(sev)
		if n == 0 {
			continue
		}
		sb.WriteString(severityStyle(sev).Render(fmt.Sprintf("%s (%d)", strings.ToUpper(string(sev)), n)))
		sb.WriteString("\n")
		for _, f := range r.Findings {
			if f.Severity != sev {
				continue
			}
			sb.WriteString(fmt.Sprintf("  [%s] %s\n", f.Check, f.Message))
			if f.Recommendation != "" {
				sb.WriteString(mutedStyle.Render("      → "+f.Recommendation) + "\n")
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// highlightJSON pretty-prints raw and colors it for a 256-color terminal.
// Unparsable input is shown as-is.
func highlightJSON(raw []byte) string {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return string(raw)
	}
	var out bytes.Buffer
	if err := quick.Highlight(&out, pretty.String(), "json", "terminal256", "monokai"); err != nil {
		return pretty.String()
	}
	return out.String()
}

func (m *model) Init() tea.Cmd {
	return nil
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-4, 1)
		m.ready = true
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "tab", "right", "l":
			m.setTab((m.tab + 1) % Tab(len(tabNames)))
			return m, nil
		case "shift+tab", "left", "h":
			m.setTab((m.tab + Tab(len(tabNames)) - 1) % Tab(len(tabNames)))
			return m, nil
		case "1", "2", "3":
			m.setTab(Tab(msg.String()[0] - '1'))
			return m, nil
		case "c":
			m.copyJSON()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *model) setTab(t Tab) {
	if t == m.tab {
		return
	}
	m.tab = t
	m.status = ""
	m.viewport.SetContent(m.panes[t])
	m.viewport.GotoTop()
}

func (m *model) copyJSON() {
	if err := m.copy(string(m.raw)); err != nil {
		m.status = "copy failed: " + err.Error()
		return
	}
	m.status = fmt.Sprintf("copied %d bytes", len(m.raw))
}

func (m *model) View() string {
	var sb strings.Builder
	sb.WriteString(m.buildTabs())
	sb.WriteString("\n")
	sb.WriteString(m.viewport.View())
	sb.WriteString("\n")
	sb.WriteString(m.buildStatusBar())
	return sb.String()
}

func (m *model) buildTabs() string {
	parts := make([]string, len(tabNames))
	for i, name := range tabNames {
		label := fmt.Sprintf(" %d %s ", i+1, name)
		if Tab(i) == m.tab {
			parts[i] = activeTabStyle.Render(label)
		} else {
			parts[i] = tabStyle.Render(label)
		}
	}
	title := titleStyle.Render(fmt.Sprintf("%s vs %s",
		compare.DisplayName(m.report.Reference), compare.DisplayName(m.report.Candidate)))
	return title + "  " + strings.Join(parts, " ")
}

func (m *model) buildStatusBar() string {
	left := fmt.Sprintf("%3.0f%%", m.viewport.ScrollPercent()*100)
	if m.status != "" {
		left += "  " + m.status
	}
	return mutedStyle.Render(left + "  •  tab switch pane • c copy JSON • q quit")
}

// Load reads a comparison.json file.
func Load(path string) (*compare.Report, []byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var r compare.Report
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return &r, raw, nil
}

// Run opens the viewer on the report at path and blocks until it exits.
func Run(path string, opts ...Option) error {
	r, raw, err := Load(path)
	if err != nil {
		return err
	}
	p := tea.NewProgram(newModel(r, raw, opts...), tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err = p.Run()
	return err
}
