package types

// Category classifies an event log entry by the subsystem that produced it.
type Category string

const (
	CategoryScroll      Category = "SCROLL"      // CategoryScroll covers scroll notifications and scroll-end detection.
	CategoryVideo       Category = "VIDEO"       // CategoryVideo covers stream start/stop and media element lifecycle.
	CategoryTimer       Category = "TIMER"       // CategoryTimer covers deferred and repeating callbacks.
	CategoryEvent       Category = "EVENT"       // CategoryEvent covers generic window events such as resize.
	CategoryViewport    Category = "VIEWPORT"    // CategoryViewport covers visibility checks and partitions.
	CategoryBrowser     Category = "BROWSER"     // CategoryBrowser covers session and environment lifecycle.
	CategoryPerformance Category = "PERFORMANCE" // CategoryPerformance covers marks and measures.
	CategoryError       Category = "ERROR"       // CategoryError covers failures observed in wrapped code.
	CategoryWarning     Category = "WARNING"     // CategoryWarning covers degraded instrumentation.
)

var categoryOrder = []Category{
	CategoryScroll,
	CategoryVideo,
	CategoryTimer,
	CategoryEvent,
	CategoryViewport,
	CategoryBrowser,
	CategoryPerformance,
	CategoryError,
	CategoryWarning,
}

var categoryColors = map[Category]string{
	CategoryScroll:      "#3498db",
	CategoryVideo:       "#e74c3c",
	CategoryTimer:       "#f39c12",
	CategoryEvent:       "#9b59b6",
	CategoryViewport:    "#1abc9c",
	CategoryBrowser:     "#34495e",
	CategoryPerformance: "#16a085",
	CategoryError:       "#c0392b",
	CategoryWarning:     "#e67e22",
}

// Categories returns every known category in canonical display order.
func Categories() []Category {
	out := make([]Category, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// Known reports whether c is one of the predefined categories.
func (c Category) Known() bool {
	_, ok := categoryColors[c]
	return ok
}

// Rank returns the canonical position of c; unknown categories sort last.
func (c Category) Rank() int {
	for i, known := range categoryOrder {
		if known == c {
			return i
		}
	}
	return len(categoryOrder)
}

// Color returns the hex display color for c.
func (c Category) Color() string {
	if color, ok := categoryColors[c]; ok {
		return color
	}
	return "#7f8c8d"
}
