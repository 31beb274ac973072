package capture

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/entrhq/driftlens/pkg/types"
)

var (
	durationPattern = regexp.MustCompile(`(\d+\.?\d*)ms`)
	monitorPattern  = regexp.MustCompile(`Monitor (\d+)`)
)

// TimingStat summarizes a set of durations in milliseconds.
type TimingStat struct {
	Average float64 `json:"average"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Count   int     `json:"count"`
}

// NewTimingStat computes the summary of durations. It returns nil when there
// are no durations.
func NewTimingStat(durations []float64) *TimingStat {
	if len(durations) == 0 {
		return nil
	}
	stat := &TimingStat{Min: math.Inf(1), Max: math.Inf(-1), Count: len(durations)}
	sum := 0.0
	for _, d := range durations {
		sum += d
		stat.Min = math.Min(stat.Min, d)
		stat.Max = math.Max(stat.Max, d)
	}
	stat.Average = sum / float64(len(durations))
	return stat
}

// LoadingTimes extracts stream start durations from VIDEO entries whose
// message contains "start completed".
func (c *Capture) LoadingTimes() []float64 {
	var out []float64
	for _, e := range c.ByCategory(types.CategoryVideo) {
		if !strings.Contains(e.Message, "start completed") {
			continue
		}
		if ms, ok := e.Float("durationMs"); ok {
			out = append(out, ms)
			continue
		}
		s, ok := e.String("duration")
		if !ok {
			continue
		}
		m := durationPattern.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		if ms, err := strconv.ParseFloat(m[1], 64); err == nil {
			out = append(out, ms)
		}
	}
	return out
}

// StuckStarts returns the ids of streams that logged "starting" without a
// matching "start completed", in order of first start.
func (c *Capture) StuckStarts() []int {
	started := []int{}
	seen := map[int]bool{}
	completed := map[int]bool{}

	for _, e := range c.ByCategory(types.CategoryVideo) {
		id, ok := monitorID(e.Message)
		if !ok {
			continue
		}
		switch {
		case strings.Contains(e.Message, "start completed"):
			completed[id] = true
		case strings.Contains(e.Message, "starting"):
			if !seen[id] {
				seen[id] = true
				started = append(started, id)
			}
		}
	}

	var stuck []int
	for _, id := range started {
		if !completed[id] {
			stuck = append(stuck, id)
		}
	}
	return stuck
}

// DriftEvents returns TIMER entries carrying both delay and actualDelay whose
// drift (actualDelay - delay) exceeds thresholdMs.
func (c *Capture) DriftEvents(thresholdMs float64) []types.EventEntry {
	var out []types.EventEntry
	for _, e := range c.ByCategory(types.CategoryTimer) {
		if drift, ok := Drift(e); ok && drift > thresholdMs {
			out = append(out, e)
		}
	}
	return out
}

// Drift returns actualDelay - delay for a timer entry.
func Drift(e types.EventEntry) (float64, bool) {
	delay, ok := e.Float("delay")
	if !ok {
		return 0, false
	}
	actual, ok := e.Float("actualDelay")
	if !ok {
		return 0, false
	}
	return actual - delay, true
}

func monitorID(message string) (int, bool) {
	m := monitorPattern.FindStringSubmatch(message)
	if m == nil {
		return 0, false
	}
	id, err := strconv.Atoi(m[1])
	return id, err == nil
}
