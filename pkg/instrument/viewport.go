package instrument

import "github.com/entrhq/driftlens/pkg/types"

// Check is a visibility predicate over an element.
type Check[E, R any] func(E) R

// Describer produces the logged fields for one check call. A describer may
// render the result itself under the "result" key.
type Describer[E, R any] func(elem E, result R) map[string]any

// WrapCheck decorates a visibility check. The original result is returned
// unchanged.
func WrapCheck[E, R any](s *Session, original Check[E, R], describe Describer[E, R]) Check[E, R] {
	return func(elem E) R {
		result := original(elem)
		if s.cfg.Verbose {
			data := map[string]any{}
			if describe != nil {
				for k, v := range describe(elem, result) {
					data[k] = v
				}
			}
			if _, ok := data["result"]; !ok {
				data["result"] = result
			}
			s.log.Append(types.CategoryViewport, "isOutOfViewport check", data)
		}
		return result
	}
}

// InstallViewport waits for the check to be defined and wraps it.
func InstallViewport[E, R any](s *Session, target Target[Check[E, R]], describe Describer[E, R]) *Handle {
	if !s.cfg.EnableViewport {
		return disabled("viewport")
	}
	h, fresh := s.register("viewport")
	if !fresh {
		return h
	}

	policy := s.pollPolicy()
	ready := Await(s.host, policy, func() bool { return defined(target) })
	ready.Then(func(outcome Outcome) {
		if outcome != OutcomeReady {
			h.settle(StateAbandoned)
			s.warn("isOutOfViewport not defined - viewport tracking disabled", map[string]any{
				"timeoutMs": millis(policy.Timeout),
				"attempts":  ready.Attempts(),
			})
			return
		}
		if fn, ok := target.Lookup(); ok && !alreadyWrapped(target) {
			replace(h, target, WrapCheck(s, fn, describe))
		}
		h.settle(StateInstalled)
		s.log.Append(types.CategoryViewport, "isOutOfViewport function wrapped", nil)
	})
	return h
}
