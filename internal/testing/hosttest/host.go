// Package hosttest provides a deterministic clock and timer queue for tests
// that exercise instrumentation without real time passing.
package hosttest

import (
	"sort"
	"sync"
	"time"
)

// Epoch is the start time of every FakeHost.
var Epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type pendingTimer struct {
	id      int
	at      time.Time
	fn      func()
	stopped bool
}

// FakeHost is a manually advanced clock with a timer queue. Timers fire in
// due-time order (ties by scheduling order) on the goroutine calling Advance.
type FakeHost struct {
	mu     sync.Mutex
	now    time.Time
	nextID int
	timers []*pendingTimer
}

// New returns a FakeHost positioned at Epoch.
func New() *FakeHost {
	return &FakeHost{now: Epoch}
}

// Now returns the fake current time.
func (h *FakeHost) Now() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.now
}

// AfterFunc schedules fn to run once the clock reaches now+d.
func (h *FakeHost) AfterFunc(d time.Duration, fn func()) func() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	t := &pendingTimer{id: h.nextID, at: h.now.Add(d), fn: fn}
	h.timers = append(h.timers, t)

	return func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		if t.stopped {
			return false
		}
		t.stopped = true
		return true
	}
}

// Advance moves the clock forward by d, firing every timer that becomes due,
// including timers scheduled by callbacks within the window.
func (h *FakeHost) Advance(d time.Duration) {
	h.mu.Lock()
	target := h.now.Add(d)
	h.mu.Unlock()

	for {
		h.mu.Lock()
		next := h.nextDueLocked(target)
		if next == nil {
			h.now = target
			h.mu.Unlock()
			return
		}
		next.stopped = true
		if next.at.After(h.now) {
			h.now = next.at
		}
		fn := next.fn
		h.mu.Unlock()

		fn()
	}
}

// Sleep advances the clock without firing timers, simulating time spent
// inside a synchronous call.
func (h *FakeHost) Sleep(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.now = h.now.Add(d)
}

// Pending returns the number of timers that have neither fired nor stopped.
func (h *FakeHost) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, t := range h.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

func (h *FakeHost) nextDueLocked(target time.Time) *pendingTimer {
	live := h.timers[:0]
	for _, t := range h.timers {
		if !t.stopped {
			live = append(live, t)
		}
	}
	h.timers = live

	sort.SliceStable(h.timers, func(i, j int) bool {
		if h.timers[i].at.Equal(h.timers[j].at) {
			return h.timers[i].id < h.timers[j].id
		}
		return h.timers[i].at.Before(h.timers[j].at)
	})

	if len(h.timers) == 0 || h.timers[0].at.After(target) {
		return nil
	}
	return h.timers[0]
}
