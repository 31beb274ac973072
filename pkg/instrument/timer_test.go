package instrument

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/driftlens/pkg/config"
	"github.com/entrhq/driftlens/pkg/types"
)

func TestWrapTimeout_Transparent(t *testing.T) {
	s, host := chromeSession(t, nil)
	wrapped := WrapTimeout(s, oneShot(host))

	calls := 0
	id := wrapped(func() { calls++ }, 100*time.Millisecond)
	assert.Equal(t, timerID(1), id)

	host.Advance(99 * time.Millisecond)
	assert.Equal(t, 0, calls)

	host.Advance(time.Millisecond)
	assert.Equal(t, 1, calls)

	host.Advance(time.Second)
	assert.Equal(t, 1, calls)
}

func TestWrapTimeout_CancelledNeverFires(t *testing.T) {
	s, host := chromeSession(t, nil)
	var stop func() bool
	cancellable := func(cb func(), d time.Duration) timerID {
		stop = host.AfterFunc(d, cb)
		return 1
	}
	wrapped := WrapTimeout(s, cancellable)

	calls := 0
	wrapped(func() { calls++ }, 50*time.Millisecond)
	require.True(t, stop())
	host.Advance(time.Second)

	assert.Equal(t, 0, calls)
	assert.Empty(t, find(s, "setTimeout fired"))
	assert.Zero(t, host.Pending())
}

func TestWrapTimeout_LogsActualDelay(t *testing.T) {
	s, host := chromeSession(t, nil)
	late := func(cb func(), d time.Duration) timerID {
		host.AfterFunc(d+60*time.Millisecond, cb)
		return 7
	}
	wrapped := WrapTimeout(s, late)

	wrapped(func() {}, 100*time.Millisecond)
	host.Advance(time.Second)

	fired := find(s, "setTimeout fired")
	require.Len(t, fired, 1)
	delay, _ := fired[0].Float("delay")
	actual, _ := fired[0].Float("actualDelay")
	assert.Equal(t, 100.0, delay)
	assert.InDelta(t, 160.0, actual, 1e-9)
}

func TestWrapTimeout_QuietWhenNotVerbose(t *testing.T) {
	s, host := chromeSession(t, func(c *config.Instrumentation) { c.Verbose = false })
	calls := 0
	WrapTimeout(s, oneShot(host))(func() { calls++ }, 10*time.Millisecond)
	host.Advance(time.Second)

	assert.Equal(t, 1, calls)
	assert.Empty(t, find(s, "setTimeout fired"))
}

func TestWrapInterval_LogsEveryTenth(t *testing.T) {
	s, host := chromeSession(t, nil)
	cleared := map[timerID]bool{}
	wrapped := WrapInterval(s, repeating(host, cleared))

	calls := 0
	id := wrapped(func() { calls++ }, 10*time.Millisecond)
	host.Advance(250 * time.Millisecond)
	cleared[id] = true
	host.Advance(time.Second)

	assert.Equal(t, 25, calls)
	assert.Equal(t, []string{"setInterval fired (10 times)", "setInterval fired (20 times)"},
		filterPrefix(messages(s, types.CategoryTimer), "setInterval"))

	entries := find(s, "setInterval fired (20 times)")
	require.Len(t, entries, 1)
	assert.Equal(t, 20, entries[0].Data["count"])
	assert.Equal(t, 10.0, entries[0].Data["delay"])
}

func TestWrapInterval_CustomSampling(t *testing.T) {
	s, host := chromeSession(t, func(c *config.Instrumentation) { c.IntervalLogEvery = 3 })
	cleared := map[timerID]bool{}
	WrapInterval(s, repeating(host, cleared))(func() {}, 10*time.Millisecond)
	host.Advance(100 * time.Millisecond)

	assert.Len(t, filterPrefix(messages(s, types.CategoryTimer), "setInterval"), 3)
}

func TestInstallTimers(t *testing.T) {
	s, host := chromeSession(t, nil)
	timeout := NewSlot(oneShot(host))
	interval := NewSlot(repeating(host, map[timerID]bool{}))

	h := InstallTimers(s, timeout, interval)
	assert.Equal(t, StateInstalled, h.State())
	assert.True(t, timeout.Wrapped())
	assert.True(t, interval.Wrapped())
	assert.Len(t, find(s, "Timer tracking initialized"), 1)

	again := InstallTimers(s, timeout, interval)
	assert.Same(t, h, again)
	assert.Len(t, find(s, "Timer tracking initialized"), 1)

	timeout.Get()(func() {}, time.Millisecond)
	host.Advance(time.Millisecond)
	assert.Len(t, find(s, "setTimeout fired"), 1, "wrapped exactly once")

	h.Uninstall()
	assert.Equal(t, StateUninstalled, h.State())
	assert.False(t, timeout.Wrapped())
	timeout.Get()(func() {}, time.Millisecond)
	host.Advance(time.Millisecond)
	assert.Len(t, find(s, "setTimeout fired"), 1)
}

func TestInstallTimers_SkipsMarkedTargets(t *testing.T) {
	s, host := chromeSession(t, nil)
	timeout := NewSlot(oneShot(host))
	timeout.MarkWrapped(true)
	interval := NewSlot(repeating(host, map[timerID]bool{}))

	InstallTimers(s, timeout, interval)
	timeout.Get()(func() {}, time.Millisecond)
	host.Advance(time.Millisecond)
	assert.Empty(t, find(s, "setTimeout fired"))
}

func TestInstallTimers_Disabled(t *testing.T) {
	s, host := chromeSession(t, func(c *config.Instrumentation) { c.EnableTimer = false })
	timeout := NewSlot(oneShot(host))
	h := InstallTimers(s, timeout, NewSlot(repeating(host, nil)))

	assert.Equal(t, StateDisabled, h.State())
	assert.False(t, timeout.Wrapped())
	assert.Empty(t, find(s, "Timer tracking initialized"))
}

func filterPrefix(in []string, prefix string) []string {
	var out []string
	for _, m := range in {
		if strings.HasPrefix(m, prefix) {
			out = append(out, m)
		}
	}
	return out
}
