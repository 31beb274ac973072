// Package instrument wraps timing and lifecycle primitives of a running page
// so that every interesting call is recorded in a session's event log.
//
// # Architecture
//
// A Session owns the event log, the environment descriptor probed once at
// creation, the capture exporter and store, and the handles of every
// installed wrapper. Wrappers never change observable behavior: return
// values and handles from the original primitives are passed through
// unchanged and the wrapped callback runs exactly as often as before.
//
// Primitives are reached through a Target, the explicit analog of a
// patchable global. Installing a wrapper replaces the target's value and
// returns a Handle that can restore the original. Primitives that appear
// only after page load are awaited with a bounded Readiness poll; when the
// poll is abandoned a WARNING is logged and other wrappers are unaffected.
//
// # Host
//
// All callbacks run on a single cooperative Host. SystemHost uses the wall
// clock for tests and tools; pkg/jshost runs callbacks on its event loop.
package instrument
