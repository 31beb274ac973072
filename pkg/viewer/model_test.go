package viewer

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/driftlens/pkg/compare"
)

func testReport() *compare.Report {
	return &compare.Report{
		Reference: "chromium",
		Candidate: "webkit",
		Timing:    compare.TimingSection{Status: compare.StatusInsufficient},
		Findings: []compare.Finding{
			{Check: compare.CheckCategories, Severity: compare.SeverityInfo, Message: "SCROLL events differ by -7 in WebKit"},
			{Check: compare.CheckTiming, Severity: compare.SeverityCritical, Message: "Video loading is 2.5x slower in WebKit"},
		},
	}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestTabNavigation(t *testing.T) {
	m := newModel(testReport(), []byte(`{}`))
	assert.Equal(t, TabReport, m.tab)

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, TabFindings, m.tab)
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, TabReport, m.tab, "wraps around")

	m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, TabJSON, m.tab)

	m.Update(runes("2"))
	assert.Equal(t, TabFindings, m.tab)
	assert.Equal(t, "Findings", m.tab.String())
}

func TestEveryTabHasPane(t *testing.T) {
	m := newModel(testReport(), []byte(`{"a":1}`))
	require.Len(t, m.panes, len(tabNames))
	for i, name := range tabNames {
		tab := Tab(i)
		assert.Equal(t, name, tab.String())
		assert.NotEmpty(t, m.panes[tab], name)
	}
}

func TestFindingsPaneOrdersBySeverity(t *testing.T) {
	pane := findingsPane(testReport())
	crit := strings.Index(pane, "CRITICAL (1)")
	info := strings.Index(pane, "INFO (1)")
	require.GreaterOrEqual(t, crit, 0)
	require.GreaterOrEqual(t, info, 0)
	assert.Less(t, crit, info)
	assert.Contains(t, pane, "[timing] Video loading is 2.5x slower in WebKit")

	assert.Equal(t, "No divergences detected.\n", findingsPane(&compare.Report{}))
}

func TestCopyJSON(t *testing.T) {
	var copied string
	m := newModel(testReport(), []byte(`{"a":1}`), WithClipboard(func(s string) error {
		copied = s
		return nil
	}))

	m.Update(runes("c"))
	assert.Equal(t, `{"a":1}`, copied)
	assert.Equal(t, "copied 7 bytes", m.status)

	m.copy = func(string) error { return errors.New("no display") }
	m.Update(runes("c"))
	assert.Equal(t, "copy failed: no display", m.status)
}

func TestQuit(t *testing.T) {
	m := newModel(testReport(), nil)
	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestWindowResize(t *testing.T) {
	m := newModel(testReport(), nil)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	assert.True(t, m.ready)
	assert.Equal(t, 100, m.viewport.Width)
	assert.Equal(t, 26, m.viewport.Height)
	assert.Contains(t, m.View(), "Chromium vs WebKit")
}

func TestHighlightJSONFallsBackOnInvalidInput(t *testing.T) {
	assert.Equal(t, "not json", highlightJSON([]byte("not json")))
	assert.Contains(t, highlightJSON([]byte(`{"reference":"chromium"}`)), "chromium")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "comparison.json")
	data, err := json.Marshal(testReport())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0600))

	r, raw, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "webkit", r.Candidate)
	assert.Equal(t, data, raw)

	_, _, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
