package capture

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/driftlens/pkg/environment"
	"github.com/entrhq/driftlens/pkg/types"
)

func entry(cat types.Category, msg string, data map[string]any) types.EventEntry {
	return types.EventEntry{Category: cat, Message: msg, Data: data}
}

func TestCapture_UnmarshalCurrentKeys(t *testing.T) {
	input := `{
		"captureId": "abc",
		"environment": "webkit",
		"browserInfo": {"isSafari": true, "isChrome": false, "userAgent": "UA", "features": {"scrollEndEvent": false}},
		"logs": [{"timestamp": "1.00", "category": "SCROLL", "message": "Scroll started", "data": {}}],
		"exportTime": "2026-03-01T10:00:00Z"
	}`

	var c Capture
	require.NoError(t, json.Unmarshal([]byte(input), &c))

	assert.Equal(t, "abc", c.ID)
	assert.Equal(t, "webkit", c.Environment)
	assert.True(t, c.Descriptor.IsSafari)
	assert.False(t, c.Descriptor.Supports(environment.FeatureScrollEnd))
	require.Len(t, c.Logs, 1)
	assert.Equal(t, 1.0, c.Logs[0].Timestamp)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), c.ExportTime.UTC())
}

func TestCapture_UnmarshalLegacyKeys(t *testing.T) {
	input := `{
		"browser": {"isSafari": false, "isChrome": true, "userAgent": "UA", "features": {"scrollEndEvent": true}},
		"logs": [],
		"timestamp": "2026-03-01T10:00:00Z"
	}`

	var c Capture
	require.NoError(t, json.Unmarshal([]byte(input), &c))

	assert.True(t, c.Descriptor.IsChrome)
	assert.True(t, c.Descriptor.Supports(environment.FeatureScrollEnd))
	assert.False(t, c.ExportTime.IsZero())
	assert.True(t, c.Empty())
}

func TestCapture_MarshalShape(t *testing.T) {
	c := Capture{
		Descriptor: environment.Descriptor{UserAgent: "UA"},
		Logs:       []types.EventEntry{},
		ExportTime: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	b, err := json.Marshal(c)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Contains(t, raw, "browserInfo")
	assert.Contains(t, raw, "logs")
	assert.Equal(t, "2026-03-01T10:00:00Z", raw["exportTime"])
	assert.NotContains(t, raw, "captureId")
}

func TestCapture_Views(t *testing.T) {
	c := &Capture{Logs: []types.EventEntry{
		entry(types.CategoryScroll, "Scroll started", nil),
		entry(types.CategoryScroll, "Scroll event", nil),
		entry(types.CategoryTimer, "setTimeout fired", nil),
		entry(types.CategoryScroll, "Scroll started", nil),
	}}

	assert.False(t, c.Empty())
	assert.Len(t, c.ByCategory(types.CategoryScroll), 3)
	assert.Empty(t, c.ByCategory(types.CategoryVideo))
	assert.Equal(t, map[types.Category]int{types.CategoryScroll: 3, types.CategoryTimer: 1}, c.CategoryCounts())
	assert.Equal(t, []string{
		"SCROLL:Scroll started",
		"SCROLL:Scroll event",
		"TIMER:setTimeout fired",
	}, c.MessageKeys())
}

func TestCapture_NilIsEmpty(t *testing.T) {
	var c *Capture
	assert.True(t, c.Empty())
	assert.Nil(t, c.ByCategory(types.CategoryScroll))
	assert.Empty(t, c.CategoryCounts())
	assert.Nil(t, c.MessageKeys())
	assert.Nil(t, c.LoadingTimes())
}
