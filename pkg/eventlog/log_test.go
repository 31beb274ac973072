package eventlog

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/driftlens/internal/testing/hosttest"
	"github.com/entrhq/driftlens/pkg/types"
)

func TestNew_Defaults(t *testing.T) {
	log := New()

	assert.Equal(t, DefaultCapacity, log.Capacity())
	assert.Equal(t, 0, log.Len())
	assert.Empty(t, log.Snapshot())
}

func TestAppend_TimestampsRelativeToStart(t *testing.T) {
	host := hosttest.New()
	log := New(WithClock(host), WithEnvironment("Safari", "UA/1.0"))

	host.Sleep(12345 * time.Microsecond)
	log.Append(types.CategoryScroll, "Scroll started", nil)
	host.Sleep(5 * time.Millisecond)
	log.Append(types.CategoryScroll, "Scroll ended", map[string]any{"finalScrollY": 400})

	entries := log.Snapshot()
	require.Len(t, entries, 2)
	assert.InDelta(t, 12.345, entries[0].Timestamp, 1e-9)
	assert.InDelta(t, 17.345, entries[1].Timestamp, 1e-9)
	assert.Equal(t, "Safari", entries[0].Browser)
	assert.Equal(t, "UA/1.0", entries[0].UserAgent)
	assert.Equal(t, 400, entries[1].Data["finalScrollY"])
	assert.NotNil(t, entries[0].Data)
}

func TestAppend_RetainsMostRecent(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		appends  int
	}{
		{"below capacity", 5, 3},
		{"at capacity", 5, 5},
		{"one over", 5, 6},
		{"many laps", 5, 23},
		{"capacity one", 1, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := New(WithCapacity(tt.capacity))
			for i := 0; i < tt.appends; i++ {
				log.Append(types.CategoryTimer, fmt.Sprintf("m%d", i), nil)
			}

			want := min(tt.appends, tt.capacity)
			entries := log.Snapshot()
			require.Len(t, entries, want)
			for i, e := range entries {
				assert.Equal(t, fmt.Sprintf("m%d", tt.appends-want+i), e.Message)
			}
			assert.Equal(t, int64(tt.appends), log.Total())
			assert.Equal(t, int64(tt.appends-want), log.Dropped())
		})
	}
}

func TestSnapshot_IsCopy(t *testing.T) {
	log := New(WithCapacity(3))
	log.Append(types.CategoryEvent, "a", nil)

	snap := log.Snapshot()
	snap[0].Message = "mutated"
	log.Append(types.CategoryEvent, "b", nil)

	entries := log.Snapshot()
	assert.Equal(t, "a", entries[0].Message)
	assert.Len(t, snap, 1)
}

func TestAppend_CopiesData(t *testing.T) {
	log := New()
	data := map[string]any{"id": "v1"}
	log.Append(types.CategoryVideo, "Video event: play", data)

	data["id"] = "changed"
	assert.Equal(t, "v1", log.Snapshot()[0].Data["id"])
}

func TestAppend_FlushesSnapshotToSink(t *testing.T) {
	var flushed [][]types.EventEntry
	log := New(WithSink(SinkFunc(func(entries []types.EventEntry) error {
		flushed = append(flushed, entries)
		return nil
	})))

	log.Append(types.CategoryBrowser, "one", nil)
	log.Append(types.CategoryBrowser, "two", nil)

	require.Len(t, flushed, 2)
	assert.Len(t, flushed[0], 1)
	assert.Len(t, flushed[1], 2)
	assert.Equal(t, "two", flushed[1][1].Message)
}

func TestAppend_SinkErrorRecordsWarning(t *testing.T) {
	calls := 0
	log := New(WithSink(SinkFunc(func([]types.EventEntry) error {
		calls++
		return errors.New("quota exceeded")
	})))

	log.Append(types.CategoryScroll, "Scroll event", nil)

	entries := log.Snapshot()
	require.Len(t, entries, 2)
	assert.Equal(t, 1, calls)
	assert.Equal(t, types.CategoryWarning, entries[1].Category)
	assert.Equal(t, "Failed to export log to storage", entries[1].Message)
	assert.Equal(t, "quota exceeded", entries[1].Data["error"])
}

func TestAppend_SinkReentryDoesNotRecurse(t *testing.T) {
	var log *Log
	calls := 0
	log = New(WithSink(SinkFunc(func([]types.EventEntry) error {
		calls++
		log.Append(types.CategoryWarning, "from sink", nil)
		return nil
	})))

	log.Append(types.CategoryTimer, "outer", nil)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, log.Len())
}

func TestSetSink(t *testing.T) {
	log := New()
	log.Append(types.CategoryEvent, "before", nil)

	var got []types.EventEntry
	log.SetSink(SinkFunc(func(entries []types.EventEntry) error {
		got = entries
		return nil
	}))
	log.Append(types.CategoryEvent, "after", nil)

	require.Len(t, got, 2)
	assert.Equal(t, "before", got[0].Message)
}

func TestElapsed(t *testing.T) {
	host := hosttest.New()
	log := New(WithClock(host))
	host.Sleep(3 * time.Second)

	assert.Equal(t, 3*time.Second, log.Elapsed())
	assert.Equal(t, hosttest.Epoch, log.Start())
}

func TestFormat(t *testing.T) {
	plain := types.EventEntry{Timestamp: 1.5, Category: types.CategoryScroll, Message: "Scroll started"}
	assert.Equal(t, "[1.50ms] [SCROLL] Scroll started", Format(plain))

	withData := types.EventEntry{
		Timestamp: 20,
		Category:  types.CategoryTimer,
		Message:   "setTimeout fired",
		Data:      map[string]any{"delay": 100},
	}
	assert.Equal(t, "[20.00ms] [TIMER] setTimeout fired map[delay:100]", Format(withData))
}
