package types

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// EventEntry is a single immutable record in an event log.
type EventEntry struct {
	// Timestamp is milliseconds since the capture started.
	Timestamp float64 `json:"timestamp"`

	// Category identifies the subsystem that produced the entry.
	Category Category `json:"category"`

	// Message is a short human-readable description. Together with the
	// category it forms the key used for unique-message comparison.
	Message string `json:"message"`

	// Data holds optional structured details.
	Data map[string]any `json:"data"`

	// Browser is the environment label (Safari, Chrome, Other).
	Browser string `json:"browser,omitempty"`

	// UserAgent is the platform identifier the entry was recorded under.
	UserAgent string `json:"userAgent,omitempty"`
}

// Key returns the "category:message" identity of the entry.
func (e EventEntry) Key() string {
	return string(e.Category) + ":" + e.Message
}

// Has reports whether the data field key is present and non-null.
func (e EventEntry) Has(key string) bool {
	v, ok := e.Data[key]
	return ok && v != nil
}

// Float reads a numeric data field. JSON numbers, numeric strings and Go
// numeric types are accepted.
func (e EventEntry) Float(key string) (float64, bool) {
	v, ok := e.Data[key]
	if !ok || v == nil {
		return 0, false
	}
	return toFloat(v)
}

// String reads a string data field.
func (e EventEntry) String(key string) (string, bool) {
	v, ok := e.Data[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// UnmarshalJSON accepts the timestamp either as a number or as the
// fixed-point string form some exporters emit.
func (e *EventEntry) UnmarshalJSON(b []byte) error {
	type plain EventEntry
	var raw struct {
		plain
		Timestamp json.RawMessage `json:"timestamp"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*e = EventEntry(raw.plain)
	if len(raw.Timestamp) == 0 || string(raw.Timestamp) == "null" {
		return nil
	}

	var num float64
	if err := json.Unmarshal(raw.Timestamp, &num); err == nil {
		e.Timestamp = num
		return nil
	}

	var str string
	if err := json.Unmarshal(raw.Timestamp, &str); err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", raw.Timestamp, err)
	}
	num, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", str, err)
	}
	e.Timestamp = num
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
