package instrument

import (
	"sync"
	"time"

	"github.com/entrhq/driftlens/pkg/capture"
	"github.com/entrhq/driftlens/pkg/environment"
	"github.com/entrhq/driftlens/pkg/types"
)

// ScrollState is the scroll tracker's state.
type ScrollState int

const (
	ScrollIdle ScrollState = iota
	ScrollScrolling
)

func (s ScrollState) String() string {
	if s == ScrollScrolling {
		return "SCROLLING"
	}
	return "IDLE"
}

// ScrollInput is an input to the scroll state machine.
type ScrollInput int

const (
	// InputScrollNotification is a scroll event from the page.
	InputScrollNotification ScrollInput = iota
	// InputScrollEndSignal is the platform's native end-of-scroll event.
	InputScrollEndSignal
	// InputDebounceExpired fires when no scroll arrived for the debounce
	// window.
	InputDebounceExpired
)

// NextScrollState returns the state after input and whether it changed.
// Only IDLE to SCROLLING and SCROLLING to IDLE are transitions.
func NextScrollState(state ScrollState, input ScrollInput) (ScrollState, bool) {
	switch {
	case state == ScrollIdle && input == InputScrollNotification:
		return ScrollScrolling, true
	case state == ScrollScrolling && (input == InputScrollEndSignal || input == InputDebounceExpired):
		return ScrollIdle, true
	default:
		return state, false
	}
}

// Rect is an element's bounding rectangle in viewport coordinates.
type Rect struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
}

// Intersects reports whether r overlaps a viewport of the given size.
func (r Rect) Intersects(width, height float64) bool {
	return r.Top < height && r.Bottom > 0 && r.Left < width && r.Right > 0
}

// Monitor is a monitored stream element on the page.
type Monitor interface {
	MonitorID() int
	// Bounds returns the element rectangle, or false when the element is
	// not attached.
	Bounds() (Rect, bool)
}

// Viewport exposes the page geometry the scroll tracker reads.
type Viewport interface {
	ScrollY() float64
	Size() (width, height float64)
	// Monitors returns the monitored elements, or false when the page has
	// not defined them yet.
	Monitors() ([]Monitor, bool)
}

// PartitionVisible splits monitors into visible and hidden ids. Detached
// elements are skipped.
func PartitionVisible(monitors []Monitor, width, height float64) (visible, hidden []int) {
	visible, hidden = []int{}, []int{}
	for _, m := range monitors {
		rect, ok := m.Bounds()
		if !ok {
			continue
		}
		if rect.Intersects(width, height) {
			visible = append(visible, m.MonitorID())
		} else {
			hidden = append(hidden, m.MonitorID())
		}
	}
	return visible, hidden
}

// ScrollTracker turns raw scroll notifications into start/end entries. The
// end-of-scroll strategy is fixed at install time: native when the
// environment supports the end-of-scroll event, otherwise a debounce.
type ScrollTracker struct {
	s        *Session
	view     Viewport
	handle   *Handle
	native   bool
	debounce time.Duration

	mu           sync.Mutex
	state        ScrollState
	count        int
	lastScroll   time.Time
	stopDebounce func() bool
	epoch        int
}

// InstallScroll attaches a scroll tracker to the page geometry. Repeated
// installs return the existing tracker.
func InstallScroll(s *Session, view Viewport) (*ScrollTracker, *Handle) {
	if !s.cfg.EnableScroll {
		h := disabled("scroll")
		return &ScrollTracker{s: s, view: view, handle: h}, h
	}
	h, fresh := s.register("scroll")
	if !fresh {
		s.mu.Lock()
		t := s.scroll
		s.mu.Unlock()
		return t, h
	}

	debounce := s.cfg.ScrollDebounce
	if debounce <= 0 {
		debounce = 150 * time.Millisecond
	}
	t := &ScrollTracker{
		s:        s,
		view:     view,
		handle:   h,
		native:   s.descriptor.Supports(environment.FeatureScrollEnd),
		debounce: debounce,
	}
	s.mu.Lock()
	s.scroll = t
	s.mu.Unlock()

	h.addRestore(t.detach)
	h.settle(StateInstalled)

	s.log.Append(types.CategoryScroll, "Scroll tracker initialized", map[string]any{
		"hasScrollEnd": t.native,
	})
	if !t.native {
		s.log.Append(types.CategoryWarning, "scrollend event not supported - using fallback", nil)
	}
	return t, h
}

// Method reports the end-of-scroll strategy in use.
func (t *ScrollTracker) Method() string {
	if t.native {
		return capture.ScrollEndNative
	}
	return capture.ScrollEndFallback
}

// State returns the current state.
func (t *ScrollTracker) State() ScrollState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Count returns the total scroll notifications seen.
func (t *ScrollTracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

func (t *ScrollTracker) active() bool {
	return t.handle.State() == StateInstalled
}

// OnScroll handles a scroll notification of the given event type.
func (t *ScrollTracker) OnScroll(eventType string) {
	if !t.active() {
		return
	}
	now := t.s.host.Now()

	t.mu.Lock()
	t.lastScroll = now
	t.count++
	next, started := NextScrollState(t.state, InputScrollNotification)
	t.state = next
	if !t.native {
		if t.stopDebounce != nil {
			t.stopDebounce()
		}
		t.epoch++
		epoch := t.epoch
		t.stopDebounce = t.s.host.AfterFunc(t.debounce, func() { t.expire(epoch) })
	}
	t.mu.Unlock()

	scrollY := t.view.ScrollY()
	if t.s.cfg.Verbose {
		t.s.log.Append(types.CategoryScroll, "Scroll event", map[string]any{
			"scrollY":   scrollY,
			"deltaTime": millis(now.Sub(t.s.log.Start())),
			"eventType": eventType,
		})
	}
	if started {
		t.s.log.Append(types.CategoryScroll, "Scroll started", map[string]any{
			"scrollY":   scrollY,
			"timestamp": millis(now.Sub(t.s.log.Start())),
		})
	}
}

// OnScrollEnd handles the native end-of-scroll event. source names the
// scrolling element when it is not the document. It is ignored under the
// fallback strategy.
func (t *ScrollTracker) OnScrollEnd(source string) {
	if !t.active() || !t.native {
		return
	}
	message := "Native scrollend event fired"
	if source != "" {
		message += " on " + source
	}
	t.s.log.Append(types.CategoryScroll, message, nil)
	t.input(InputScrollEndSignal)
}

// OnResize logs a viewport resize.
func (t *ScrollTracker) OnResize(width, height float64) {
	if !t.active() {
		return
	}
	t.s.log.Append(types.CategoryEvent, "Window resized", map[string]any{
		"width":  width,
		"height": height,
	})
}

func (t *ScrollTracker) expire(epoch int) {
	t.mu.Lock()
	current := epoch == t.epoch
	if current {
		t.stopDebounce = nil
	}
	t.mu.Unlock()
	if current && t.active() {
		t.input(InputDebounceExpired)
	}
}

func (t *ScrollTracker) input(in ScrollInput) {
	t.mu.Lock()
	next, changed := NextScrollState(t.state, in)
	t.state = next
	count := t.count
	t.mu.Unlock()

	if !changed {
		return
	}
	t.s.log.Append(types.CategoryScroll, "Scroll ended", map[string]any{
		"finalScrollY":      t.view.ScrollY(),
		"totalScrollEvents": count,
		"method":            t.Method(),
		"timestamp":         millis(t.s.host.Now().Sub(t.s.log.Start())),
	})
	t.logVisibility()
}

func (t *ScrollTracker) logVisibility() {
	monitors, ok := t.view.Monitors()
	if !ok {
		return
	}
	width, height := t.view.Size()
	visible, hidden := PartitionVisible(monitors, width, height)
	t.s.log.Append(types.CategoryViewport, "Monitor visibility after scroll", map[string]any{
		"visible": visible,
		"hidden":  hidden,
	})
}

func (t *ScrollTracker) detach() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopDebounce != nil {
		t.stopDebounce()
		t.stopDebounce = nil
	}
	t.epoch++
	t.state = ScrollIdle
}
