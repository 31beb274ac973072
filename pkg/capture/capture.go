// Package capture defines the exported form of an event log, the statistics
// derived from it, and the ways a capture is persisted and reloaded.
package capture

import (
	"encoding/json"
	"time"

	"github.com/entrhq/driftlens/pkg/environment"
	"github.com/entrhq/driftlens/pkg/types"
)

// Capture is an exported event log together with the environment it was
// recorded in.
type Capture struct {
	// ID identifies the capture. Older artifacts may not carry one.
	ID string `json:"captureId,omitempty"`

	// Environment is the driver-assigned environment name (e.g. chromium).
	Environment string `json:"environment,omitempty"`

	Descriptor environment.Descriptor `json:"browserInfo"`
	Logs       []types.EventEntry     `json:"logs"`
	ExportTime time.Time              `json:"exportTime"`
}

// UnmarshalJSON accepts the legacy "browser" and "timestamp" keys used by
// earlier artifacts in place of "browserInfo" and "exportTime".
func (c *Capture) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID          string                  `json:"captureId"`
		Environment string                  `json:"environment"`
		Descriptor  *environment.Descriptor `json:"browserInfo"`
		Legacy      *environment.Descriptor `json:"browser"`
		Logs        []types.EventEntry      `json:"logs"`
		ExportTime  *time.Time              `json:"exportTime"`
		Timestamp   *time.Time              `json:"timestamp"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*c = Capture{
		ID:          raw.ID,
		Environment: raw.Environment,
		Logs:        raw.Logs,
	}
	switch {
	case raw.Descriptor != nil:
		c.Descriptor = *raw.Descriptor
	case raw.Legacy != nil:
		c.Descriptor = *raw.Legacy
	}
	switch {
	case raw.ExportTime != nil:
		c.ExportTime = *raw.ExportTime
	case raw.Timestamp != nil:
		c.ExportTime = *raw.Timestamp
	}
	return nil
}

// Empty reports whether the capture carries no entries.
func (c *Capture) Empty() bool {
	return c == nil || len(c.Logs) == 0
}

// ByCategory returns the entries of one category in log order.
func (c *Capture) ByCategory(category types.Category) []types.EventEntry {
	if c == nil {
		return nil
	}
	var out []types.EventEntry
	for _, e := range c.Logs {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out
}

// CategoryCounts returns the number of entries per category.
func (c *Capture) CategoryCounts() map[types.Category]int {
	counts := make(map[types.Category]int)
	if c == nil {
		return counts
	}
	for _, e := range c.Logs {
		counts[e.Category]++
	}
	return counts
}

// MessageKeys returns the distinct category:message keys in order of first
// appearance.
func (c *Capture) MessageKeys() []string {
	if c == nil {
		return nil
	}
	seen := make(map[string]bool, len(c.Logs))
	var keys []string
	for _, e := range c.Logs {
		k := e.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	return keys
}
