package instrument

import (
	"sync"
	"time"
)

// Outcome is the resolution of a Readiness.
type Outcome int

const (
	// OutcomePending means the probe has not yet succeeded or timed out.
	OutcomePending Outcome = iota
	// OutcomeReady means the probe succeeded.
	OutcomeReady
	// OutcomeAbandoned means the poll budget ran out first.
	OutcomeAbandoned
)

func (o Outcome) String() string {
	switch o {
	case OutcomeReady:
		return "ready"
	case OutcomeAbandoned:
		return "abandoned"
	default:
		return "pending"
	}
}

// PollPolicy bounds how long and how often a readiness probe runs.
type PollPolicy struct {
	// Interval is the delay before the first re-probe.
	Interval time.Duration
	// Timeout is the total budget measured from Await.
	Timeout time.Duration
	// Backoff multiplies the interval after each failed probe. Values
	// below 1 are treated as 1.
	Backoff float64
	// MaxInterval caps the interval when Backoff > 1. Zero means no cap.
	MaxInterval time.Duration
}

// DefaultPollPolicy polls every 100ms for up to 10s.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{
		Interval: 100 * time.Millisecond,
		Timeout:  10 * time.Second,
		Backoff:  1,
	}
}

func (p PollPolicy) next(interval time.Duration) time.Duration {
	if p.Backoff <= 1 {
		return interval
	}
	next := time.Duration(float64(interval) * p.Backoff)
	if p.MaxInterval > 0 && next > p.MaxInterval {
		next = p.MaxInterval
	}
	return next
}

// Readiness is a future that resolves once a probe succeeds or its poll
// budget is exhausted.
type Readiness struct {
	mu        sync.Mutex
	outcome   Outcome
	done      chan struct{}
	callbacks []func(Outcome)
	attempts  int
}

// Await probes immediately and then on the host until probe returns true or
// the policy's timeout passes.
func Await(host Host, policy PollPolicy, probe func() bool) *Readiness {
	r := &Readiness{done: make(chan struct{})}
	if policy.Interval <= 0 {
		policy.Interval = DefaultPollPolicy().Interval
	}

	r.attempts++
	if probe() {
		r.resolve(OutcomeReady)
		return r
	}
	if policy.Timeout <= 0 {
		r.resolve(OutcomeAbandoned)
		return r
	}

	deadline := host.Now().Add(policy.Timeout)
	var tick func(interval time.Duration)
	tick = func(interval time.Duration) {
		wait := interval
		if remaining := deadline.Sub(host.Now()); wait > remaining {
			wait = remaining
		}
		host.AfterFunc(wait, func() {
			r.mu.Lock()
			r.attempts++
			r.mu.Unlock()

			if probe() {
				r.resolve(OutcomeReady)
				return
			}
			if !host.Now().Before(deadline) {
				r.resolve(OutcomeAbandoned)
				return
			}
			tick(policy.next(interval))
		})
	}
	tick(policy.Interval)
	return r
}

// Done is closed once the readiness resolves.
func (r *Readiness) Done() <-chan struct{} { return r.done }

// Outcome returns the current outcome.
func (r *Readiness) Outcome() Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcome
}

// Attempts returns how many times the probe ran.
func (r *Readiness) Attempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts
}

// Then runs fn with the outcome once resolved. If already resolved, fn runs
// immediately on the calling goroutine.
func (r *Readiness) Then(fn func(Outcome)) {
	r.mu.Lock()
	if r.outcome == OutcomePending {
		r.callbacks = append(r.callbacks, fn)
		r.mu.Unlock()
		return
	}
	outcome := r.outcome
	r.mu.Unlock()
	fn(outcome)
}

func (r *Readiness) resolve(outcome Outcome) {
	r.mu.Lock()
	if r.outcome != OutcomePending {
		r.mu.Unlock()
		return
	}
	r.outcome = outcome
	callbacks := r.callbacks
	r.callbacks = nil
	close(r.done)
	r.mu.Unlock()

	for _, fn := range callbacks {
		fn(outcome)
	}
}
