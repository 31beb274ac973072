package instrument

import (
	"fmt"
	"time"

	"github.com/entrhq/driftlens/pkg/types"
)

// Scheduler is the shape of a deferred or repeating callback primitive.
// H is whatever handle value the host returns for later cancellation.
type Scheduler[H any] func(callback func(), delay time.Duration) H

// WrapTimeout decorates a one-shot scheduler. The callback still runs
// exactly once and the original handle is returned unchanged.
func WrapTimeout[H any](s *Session, original Scheduler[H]) Scheduler[H] {
	return func(callback func(), delay time.Duration) H {
		start := s.host.Now()

		return original(func() {
			if s.cfg.Verbose {
				s.log.Append(types.CategoryTimer, "setTimeout fired", map[string]any{
					"delay":       millis(delay),
					"actualDelay": millis(s.host.Now().Sub(start)),
				})
			}
			callback()
		}, delay)
	}
}

// WrapInterval decorates a repeating scheduler, logging every Nth firing.
func WrapInterval[H any](s *Session, original Scheduler[H]) Scheduler[H] {
	every := s.cfg.IntervalLogEvery
	if every <= 0 {
		every = 10
	}

	return func(callback func(), delay time.Duration) H {
		count := 0
		return original(func() {
			count++
			if s.cfg.Verbose && count%every == 0 {
				s.log.Append(types.CategoryTimer, fmt.Sprintf("setInterval fired (%d times)", count), map[string]any{
					"delay": millis(delay),
					"count": count,
				})
			}
			callback()
		}, delay)
	}
}

// InstallTimers wraps the one-shot and repeating schedulers. Targets already
// carrying a wrapper are left alone.
func InstallTimers[H any](s *Session, timeout, interval Target[Scheduler[H]]) *Handle {
	if !s.cfg.EnableTimer {
		return disabled("timers")
	}
	h, fresh := s.register("timers")
	if !fresh {
		return h
	}

	if fn, ok := timeout.Lookup(); ok && !alreadyWrapped(timeout) {
		replace(h, timeout, WrapTimeout(s, fn))
	}
	if fn, ok := interval.Lookup(); ok && !alreadyWrapped(interval) {
		replace(h, interval, WrapInterval(s, fn))
	}

	h.settle(StateInstalled)
	s.log.Append(types.CategoryTimer, "Timer tracking initialized", nil)
	return h
}
