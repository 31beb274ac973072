// Package jshost runs page scripts in an embedded JavaScript runtime with
// full instrumentation attached. Scripts see the usual timer globals, may
// define isOutOfViewport, MonitorStream and a monitors array after load,
// and report scrolling and DOM insertions through the DriftLens object.
//
// All JavaScript executes on a single event loop goroutine. Instrumentation
// timers are scheduled on the same loop, so wrapped callbacks, debounce
// expirations and readiness polls interleave exactly like they would in a
// browser.
package jshost

import (
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
)

// loopHost implements instrument.Host on the event loop.
type loopHost struct {
	loop *eventloop.EventLoop
}

func (h loopHost) Now() time.Time { return time.Now() }

// AfterFunc schedules f on the loop. Stopping is synchronous from the
// loop's point of view: a stopped callback never runs even if its timer job
// was already queued.
func (h loopHost) AfterFunc(d time.Duration, f func()) func() bool {
	var fired, stopped bool
	t := h.loop.SetTimeout(func(*goja.Runtime) {
		if stopped {
			return
		}
		fired = true
		f()
	}, d)
	return func() bool {
		if fired || stopped {
			return false
		}
		stopped = true
		h.loop.ClearTimeout(t)
		return true
	}
}
