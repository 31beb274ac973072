package instrument

import "sync"

// State is the lifecycle state of an installed wrapper.
type State int

const (
	// StatePending means the wrapper is waiting for its target to appear.
	StatePending State = iota
	// StateInstalled means the wrapper is active.
	StateInstalled
	// StateAbandoned means the target never appeared within the poll budget.
	StateAbandoned
	// StateUninstalled means the originals were restored.
	StateUninstalled
	// StateDisabled means the wrapper was switched off by configuration.
	StateDisabled
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateInstalled:
		return "installed"
	case StateAbandoned:
		return "abandoned"
	case StateUninstalled:
		return "uninstalled"
	case StateDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// Handle is the capability returned by every install. It reports the
// wrapper's state and can restore the original primitives.
type Handle struct {
	name string

	mu       sync.Mutex
	state    State
	done     chan struct{}
	restores []func()
}

func newHandle(name string) *Handle {
	return &Handle{name: name, done: make(chan struct{})}
}

// Name returns the wrapper name.
func (h *Handle) Name() string { return h.name }

// State returns the current state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Done is closed once the handle leaves StatePending.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Uninstall restores every replaced primitive. It is a no-op unless the
// wrapper is installed.
func (h *Handle) Uninstall() {
	h.mu.Lock()
	if h.state != StateInstalled {
		h.mu.Unlock()
		return
	}
	restores := h.restores
	h.restores = nil
	h.state = StateUninstalled
	h.mu.Unlock()

	for i := len(restores) - 1; i >= 0; i-- {
		restores[i]()
	}
}

func (h *Handle) addRestore(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.restores = append(h.restores, fn)
}

// settle moves a pending handle to state and closes Done.
func (h *Handle) settle(state State) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != StatePending {
		return
	}
	h.state = state
	close(h.done)
}

// replace swaps t's value for wrapped and records how to undo it.
func replace[F any](h *Handle, t Target[F], wrapped F) {
	original, _ := t.Lookup()
	t.Replace(wrapped)
	markWrapped(t, true)
	h.addRestore(func() {
		t.Replace(original)
		markWrapped(t, false)
	})
}
