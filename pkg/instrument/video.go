package instrument

import (
	"fmt"

	"github.com/entrhq/driftlens/pkg/types"
)

// MediaEvents are the media element events logged for tracked elements.
var MediaEvents = []string{
	"loadstart", "loadeddata", "loadedmetadata", "canplay", "canplaythrough",
	"play", "pause", "error", "stalled", "waiting", "playing",
}

var trackedTags = map[string]bool{
	"VIDEO":        true,
	"VIDEO-STREAM": true,
	"IMG":          true,
}

// Stream is a video stream controller whose start/stop calls are wrapped.
type Stream interface {
	StreamID() int
	// Attributes returns the controller fields logged when a start begins.
	Attributes() map[string]any
	ActivePlayer() string
}

// StreamCall is a start or stop method bound to its receiver at call time.
type StreamCall[R any] func(Stream) R

// WrapStart decorates a stream start method with starting/completed entries.
func WrapStart[R any](s *Session, original StreamCall[R]) StreamCall[R] {
	return func(stream Stream) R {
		start := s.host.Now()
		s.log.Append(types.CategoryVideo, fmt.Sprintf("Monitor %d starting", stream.StreamID()), stream.Attributes())

		result := original(stream)

		d := millis(s.host.Now().Sub(start))
		s.log.Append(types.CategoryVideo, fmt.Sprintf("Monitor %d start completed", stream.StreamID()), map[string]any{
			"duration":     fmt.Sprintf("%.2fms", d),
			"durationMs":   d,
			"activePlayer": stream.ActivePlayer(),
		})
		return result
	}
}

// WrapStop decorates a stream stop method with stopping/stopped entries.
func WrapStop[R any](s *Session, original StreamCall[R]) StreamCall[R] {
	return func(stream Stream) R {
		s.log.Append(types.CategoryVideo, fmt.Sprintf("Monitor %d stopping", stream.StreamID()), map[string]any{
			"activePlayer": stream.ActivePlayer(),
		})

		result := original(stream)

		s.log.Append(types.CategoryVideo, fmt.Sprintf("Monitor %d stopped", stream.StreamID()), nil)
		return result
	}
}

// InstallStreams waits for both stream methods to be defined, then wraps
// them. When the poll is abandoned a WARNING is logged and nothing else is
// touched.
func InstallStreams[R any](s *Session, start, stop Target[StreamCall[R]]) *Handle {
	if !s.cfg.EnableVideo {
		return disabled("streams")
	}
	h, fresh := s.register("streams")
	if !fresh {
		return h
	}

	s.log.Append(types.CategoryVideo, "Video tracker initialized", nil)
	policy := s.pollPolicy()
	ready := Await(s.host, policy, func() bool {
		return defined(start) && defined(stop)
	})
	ready.Then(func(outcome Outcome) {
		if outcome != OutcomeReady {
			h.settle(StateAbandoned)
			s.warn("MonitorStream not defined - stream tracking disabled", map[string]any{
				"timeoutMs": millis(policy.Timeout),
				"attempts":  ready.Attempts(),
			})
			return
		}

		if fn, ok := start.Lookup(); ok && !alreadyWrapped(start) {
			replace(h, start, WrapStart(s, fn))
		}
		if fn, ok := stop.Lookup(); ok && !alreadyWrapped(stop) {
			replace(h, stop, WrapStop(s, fn))
		}
		h.settle(StateInstalled)
		s.log.Append(types.CategoryVideo, "MonitorStream methods wrapped successfully", nil)
	})
	return h
}

// MediaElement is a media-bearing element that can be observed.
type MediaElement interface {
	TagName() string
	ID() string
	Src() string
	CurrentTime() float64
	ReadyState() int
	AddEventListener(event string, listener func())
}

// Track logs the element's insertion and attaches listeners for every media
// event.
func (s *Session) Track(el MediaElement) {
	s.log.Append(types.CategoryVideo, fmt.Sprintf("New %s element added", el.TagName()), map[string]any{
		"id":      el.ID(),
		"src":     el.Src(),
		"tagName": el.TagName(),
	})

	for _, name := range MediaEvents {
		event := name
		el.AddEventListener(event, func() {
			s.log.Append(types.CategoryVideo, "Video event: "+event, map[string]any{
				"id":          el.ID(),
				"currentTime": el.CurrentTime(),
				"readyState":  el.ReadyState(),
			})
		})
	}
}

// ObserveMutation tracks every video, video-stream and image element among
// newly inserted nodes and returns how many were tracked.
func (s *Session) ObserveMutation(nodes []MediaElement) int {
	if !s.cfg.EnableVideo {
		return 0
	}
	n := 0
	for _, node := range nodes {
		if trackedTags[node.TagName()] {
			s.Track(node)
			n++
		}
	}
	return n
}
