// Package eventlog implements the append-only, bounded event log written by
// instrumentation wrappers.
//
// The log is a fixed-capacity ring buffer: once full, each append evicts the
// oldest entry, so the most recent behavior is always retained. Appends never
// fail. An optional Sink receives a snapshot after every append; sink errors
// are recorded in the log as WARNING entries and never returned.
package eventlog

import (
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/driftlens/pkg/logging"
	"github.com/entrhq/driftlens/pkg/types"
)

// DefaultCapacity is the default MAX_LOG_ENTRIES.
const DefaultCapacity = 1000

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// Sink receives the full log contents after each append.
type Sink interface {
	Flush(entries []types.EventEntry) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(entries []types.EventEntry) error

// Flush implements Sink.
func (f SinkFunc) Flush(entries []types.EventEntry) error { return f(entries) }

// Log is a bounded FIFO event log.
type Log struct {
	mu sync.Mutex

	entries  []types.EventEntry
	capacity int
	head     int   // index where the next write goes once full
	total    int64 // entries ever appended

	clock     Clock
	start     time.Time
	label     string
	userAgent string

	sink     Sink
	flushing bool
	logger   *logging.Logger
}

// Option configures a Log.
type Option func(*Log)

// WithCapacity sets MAX_LOG_ENTRIES. Non-positive values keep the default.
func WithCapacity(capacity int) Option {
	return func(l *Log) {
		if capacity > 0 {
			l.capacity = capacity
		}
	}
}

// WithClock sets the clock used for timestamps.
func WithClock(clock Clock) Option {
	return func(l *Log) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// WithEnvironment sets the label and user agent stamped on every entry.
func WithEnvironment(label, userAgent string) Option {
	return func(l *Log) {
		l.label = label
		l.userAgent = userAgent
	}
}

// WithSink sets the export side channel.
func WithSink(sink Sink) Option {
	return func(l *Log) {
		l.sink = sink
	}
}

// WithLogger echoes every entry to logger at debug level.
func WithLogger(logger *logging.Logger) Option {
	return func(l *Log) {
		l.logger = logger
	}
}

// New creates an empty log. The capture start time is taken from the clock.
func New(opts ...Option) *Log {
	l := &Log{
		capacity: DefaultCapacity,
		clock:    SystemClock{},
	}
	for _, opt := range opts {
		opt(l)
	}
	l.entries = make([]types.EventEntry, 0, l.capacity)
	l.start = l.clock.Now()
	return l
}

// SetSink replaces the export side channel.
func (l *Log) SetSink(sink Sink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sink = sink
}

// Append records an entry timestamped relative to the capture start.
func (l *Log) Append(category types.Category, message string, data map[string]any) {
	l.mu.Lock()
	entry := l.appendLocked(category, message, data)
	sink := l.sink
	if sink == nil || l.flushing {
		l.mu.Unlock()
		l.echo(entry)
		return
	}
	l.flushing = true
	snapshot := l.snapshotLocked()
	l.mu.Unlock()

	l.echo(entry)
	err := sink.Flush(snapshot)

	l.mu.Lock()
	l.flushing = false
	var warning types.EventEntry
	if err != nil {
		// Recorded without re-flushing so a failing sink cannot recurse.
		warning = l.appendLocked(types.CategoryWarning, "Failed to export log to storage", map[string]any{
			"error": err.Error(),
		})
	}
	l.mu.Unlock()

	if err != nil {
		l.echo(warning)
	}
}

func (l *Log) appendLocked(category types.Category, message string, data map[string]any) types.EventEntry {
	copied := make(map[string]any, len(data))
	for k, v := range data {
		copied[k] = v
	}
	elapsed := l.clock.Now().Sub(l.start)
	entry := types.EventEntry{
		Timestamp: float64(elapsed) / float64(time.Millisecond),
		Category:  category,
		Message:   message,
		Data:      copied,
		Browser:   l.label,
		UserAgent: l.userAgent,
	}

	if len(l.entries) < l.capacity {
		l.entries = append(l.entries, entry)
	} else {
		l.entries[l.head] = entry
	}
	l.head = (l.head + 1) % l.capacity
	l.total++
	return entry
}

// Snapshot returns a copy of the retained entries, oldest first.
func (l *Log) Snapshot() []types.EventEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *Log) snapshotLocked() []types.EventEntry {
	out := make([]types.EventEntry, 0, len(l.entries))
	if len(l.entries) < l.capacity {
		return append(out, l.entries...)
	}
	out = append(out, l.entries[l.head:]...)
	return append(out, l.entries[:l.head]...)
}

// Len returns the number of retained entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Capacity returns MAX_LOG_ENTRIES.
func (l *Log) Capacity() int {
	return l.capacity
}

// Total returns the number of entries ever appended.
func (l *Log) Total() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}

// Dropped returns how many entries were evicted.
func (l *Log) Dropped() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total - int64(len(l.entries))
}

// Start returns the capture start time.
func (l *Log) Start() time.Time {
	return l.start
}

// Elapsed returns the time since capture start according to the log's clock.
func (l *Log) Elapsed() time.Duration {
	return l.clock.Now().Sub(l.start)
}

func (l *Log) echo(entry types.EventEntry) {
	if l.logger == nil {
		return
	}
	l.logger.Debugf("%s", Format(entry))
}

// Format renders an entry the way the debug console prints it.
func Format(entry types.EventEntry) string {
	if len(entry.Data) == 0 {
		return fmt.Sprintf("[%.2fms] [%s] %s", entry.Timestamp, entry.Category, entry.Message)
	}
	return fmt.Sprintf("[%.2fms] [%s] %s %v", entry.Timestamp, entry.Category, entry.Message, entry.Data)
}
