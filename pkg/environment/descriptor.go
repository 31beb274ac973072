// Package environment captures a static snapshot of the execution
// environment an instrumentation session runs in: platform identity and
// feature support. The snapshot is taken once and never regenerated.
package environment

import (
	"regexp"
	"strconv"
	"strings"
)

// FeatureName identifies a probed platform capability.
type FeatureName string

const (
	FeatureScrollEnd            FeatureName = "scrollEndEvent"
	FeatureResizeObserver       FeatureName = "resizeObserver"
	FeatureIntersectionObserver FeatureName = "intersectionObserver"
	FeatureRequestIdleCallback  FeatureName = "requestIdleCallback"
	FeatureBoundingRect         FeatureName = "boundingRectSupport"
)

// Capability identifiers looked up on the platform for each feature.
var featureCapabilities = map[FeatureName]string{
	FeatureScrollEnd:            "onscrollend",
	FeatureResizeObserver:       "ResizeObserver",
	FeatureIntersectionObserver: "IntersectionObserver",
	FeatureRequestIdleCallback:  "requestIdleCallback",
	FeatureBoundingRect:         "Element.prototype.getBoundingClientRect",
}

// Environment labels.
const (
	LabelSafari = "Safari"
	LabelChrome = "Chrome"
	LabelOther  = "Other"
)

var safariVersionPattern = regexp.MustCompile(`Version/(\d+\.\d+)`)

// Descriptor is the immutable environment snapshot stored with a capture.
type Descriptor struct {
	IsSafari      bool                 `json:"isSafari"`
	IsChrome      bool                 `json:"isChrome"`
	IsFirefox     bool                 `json:"isFirefox,omitempty"`
	IsEdge        bool                 `json:"isEdge,omitempty"`
	SafariVersion *float64             `json:"safariVersion,omitempty"`
	UserAgent     string               `json:"userAgent"`
	Features      map[FeatureName]bool `json:"features"`
}

// Platform is the source a Descriptor is probed from.
type Platform interface {
	// UserAgent returns the platform identifier string.
	UserAgent() string

	// HasCapability reports whether a named global capability exists.
	HasCapability(name string) bool
}

var featureOrder = []FeatureName{
	FeatureScrollEnd,
	FeatureResizeObserver,
	FeatureIntersectionObserver,
	FeatureRequestIdleCallback,
	FeatureBoundingRect,
}

// Features returns every probed feature name in report order.
func Features() []FeatureName {
	return append([]FeatureName(nil), featureOrder...)
}

// CapabilityFor returns the capability identifier probed for a feature.
func CapabilityFor(name FeatureName) string {
	return featureCapabilities[name]
}

// Probe computes a Descriptor synchronously. A missing capability is
// reported as false; probing has no error path.
func Probe(p Platform) Descriptor {
	ua := p.UserAgent()
	d := Descriptor{
		UserAgent: ua,
		Features:  make(map[FeatureName]bool, len(featureCapabilities)),
	}

	lower := strings.ToLower(ua)
	d.IsSafari = isSafariAgent(lower)
	d.IsChrome = strings.Contains(lower, "chrome") && !strings.Contains(lower, "edge")
	d.IsFirefox = strings.Contains(lower, "firefox")
	d.IsEdge = strings.Contains(lower, "edge")

	if d.IsSafari {
		if m := safariVersionPattern.FindStringSubmatch(ua); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				d.SafariVersion = &v
			}
		}
	}

	for name, capability := range featureCapabilities {
		d.Features[name] = p.HasCapability(capability)
	}

	return d
}

// isSafariAgent matches "safari" only when neither "chrome" nor "android"
// appears before it, mirroring how Chromium and Android agents also carry
// the Safari token.
func isSafariAgent(lower string) bool {
	idx := strings.Index(lower, "safari")
	if idx < 0 {
		return false
	}
	prefix := lower[:idx]
	return !strings.Contains(prefix, "chrome") && !strings.Contains(prefix, "android")
}

// Supports reports whether a feature was detected. Unknown features are false.
func (d Descriptor) Supports(name FeatureName) bool {
	return d.Features[name]
}

// Label returns the short environment label used on log entries.
func (d Descriptor) Label() string {
	switch {
	case d.IsSafari:
		return LabelSafari
	case d.IsChrome:
		return LabelChrome
	default:
		return LabelOther
	}
}

// Clone returns a deep copy so callers cannot mutate a stored snapshot.
func (d Descriptor) Clone() Descriptor {
	out := d
	out.Features = make(map[FeatureName]bool, len(d.Features))
	for k, v := range d.Features {
		out.Features[k] = v
	}
	if d.SafariVersion != nil {
		v := *d.SafariVersion
		out.SafariVersion = &v
	}
	return out
}
