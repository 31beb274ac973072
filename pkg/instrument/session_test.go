package instrument

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/driftlens/pkg/capture"
	"github.com/entrhq/driftlens/pkg/config"
	"github.com/entrhq/driftlens/pkg/environment"
	"github.com/entrhq/driftlens/pkg/types"
)

func TestNewSession_LogsInitialization(t *testing.T) {
	s, _ := safariSession(t, nil, WithID("session-1"))

	assert.Equal(t, "session-1", s.ID())
	assert.True(t, s.Descriptor().IsSafari)

	entries := s.Log().Snapshot()
	require.Len(t, entries, 1)
	assert.Equal(t, types.CategoryBrowser, entries[0].Category)
	assert.Equal(t, "Instrumentation session initialized", entries[0].Message)
	assert.Equal(t, "Safari", entries[0].Browser)
	assert.Equal(t, safariUA, entries[0].UserAgent)
}

func TestNewSession_DescriptorProbedOnce(t *testing.T) {
	s, _ := chromeSession(t, nil)
	d := s.Descriptor()
	d.Features[environment.FeatureScrollEnd] = false

	assert.True(t, s.Descriptor().Supports(environment.FeatureScrollEnd))
}

func TestSession_ExportCapture(t *testing.T) {
	s, host := chromeSession(t, nil, WithEnvironmentName("chromium"))
	host.Sleep(10 * time.Millisecond)
	s.AppendEvent(types.CategoryEvent, "driver marker", map[string]any{"step": 1})

	c := s.ExportCapture()
	assert.Equal(t, "chromium", c.Environment)
	assert.True(t, c.Descriptor.IsChrome)
	require.Len(t, c.Logs, 2)
	assert.Equal(t, 10.0, c.Logs[1].Timestamp)

	// export does not mutate the log
	assert.Equal(t, 2, s.Log().Len())
}

func TestSession_DownloadCapture(t *testing.T) {
	s, _ := safariSession(t, nil)
	path, err := s.DownloadCapture()
	require.NoError(t, err)

	loaded, err := capture.Load(path)
	require.NoError(t, err)
	assert.True(t, loaded.Descriptor.IsSafari)
	assert.Contains(t, path, "driftlens-safari-")
}

func TestSession_StoredCapture(t *testing.T) {
	store := capture.NewMemoryStore(0)
	s, _ := chromeSession(t, nil, WithStore(store))
	s.AppendEvent(types.CategoryScroll, "Scroll started", nil)

	stored, err := s.StoredCapture()
	require.NoError(t, err)
	assert.Len(t, stored.Logs, 2)
	assert.Equal(t, s.ID(), stored.ID)
}

func TestSession_StoredCaptureWithoutExport(t *testing.T) {
	store := capture.NewMemoryStore(0)
	s, _ := chromeSession(t, func(c *config.Instrumentation) { c.ExportLogs = false }, WithStore(store))
	s.AppendEvent(types.CategoryScroll, "Scroll started", nil)

	_, err := s.StoredCapture()
	assert.True(t, errors.Is(err, capture.ErrNotFound))
}

func TestSession_NoStore(t *testing.T) {
	s, _ := chromeSession(t, nil)
	_, err := s.StoredCapture()
	assert.True(t, errors.Is(err, ErrNoStore))
}

func TestSession_StoreQuotaRecordsWarning(t *testing.T) {
	store := capture.NewMemoryStore(10)
	s, _ := chromeSession(t, nil, WithStore(store))

	warnings := find(s, "Failed to export log to storage")
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Data["error"], "quota")
	assert.Equal(t, 2, s.Log().Len())
}

func TestSession_Persist(t *testing.T) {
	s, _ := chromeSession(t, nil)
	path := t.TempDir() + "/out.json"
	require.NoError(t, s.Persist(path))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestSession_MarkAndMeasure(t *testing.T) {
	s, host := chromeSession(t, nil)
	host.Sleep(5 * time.Millisecond)
	s.Mark("load-start")
	host.Sleep(20 * time.Millisecond)

	d, ok := s.Measure("load", "load-start")
	require.True(t, ok)
	assert.Equal(t, 20*time.Millisecond, d)

	measures := find(s, "Measure: load")
	require.Len(t, measures, 1)
	assert.Equal(t, "20.00ms", measures[0].Data["duration"])
	assert.Equal(t, "5.00", measures[0].Data["start"])
	assert.Equal(t, "25.00", measures[0].Data["end"])
	assert.Len(t, find(s, "Mark: load-start"), 1)

	_, ok = s.Measure("nothing", "missing")
	assert.False(t, ok)
	assert.Empty(t, find(s, "Measure: nothing"))
}

func TestSession_Uninstall(t *testing.T) {
	s, host := chromeSession(t, nil)
	timeout := NewSlot(oneShot(host))
	interval := NewSlot(repeating(host, nil))
	InstallTimers(s, timeout, interval)
	InstallScroll(s, newViewport())

	s.Uninstall()
	for name, h := range s.Handles() {
		assert.Equal(t, StateUninstalled, h.State(), name)
	}
	assert.False(t, timeout.Wrapped())

	h := InstallTimers(s, timeout, interval)
	assert.Equal(t, StateInstalled, h.State())
	assert.True(t, timeout.Wrapped())
}
