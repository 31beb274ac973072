package instrument

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/entrhq/driftlens/pkg/capture"
	"github.com/entrhq/driftlens/pkg/config"
	"github.com/entrhq/driftlens/pkg/environment"
	"github.com/entrhq/driftlens/pkg/eventlog"
	"github.com/entrhq/driftlens/pkg/logging"
	"github.com/entrhq/driftlens/pkg/types"
)

// API is the surface a driver uses to talk to a running session.
type API interface {
	// AppendEvent records a driver-originated entry.
	AppendEvent(category types.Category, message string, data map[string]any)

	// ExportCapture snapshots the log without mutating it.
	ExportCapture() capture.Capture

	// DownloadCapture writes a capture artifact and returns its path.
	DownloadCapture() (string, error)

	// StoredCapture returns the copy kept by the store side channel.
	StoredCapture() (*capture.Capture, error)
}

// ErrNoStore is returned by StoredCapture when the session has no store.
var ErrNoStore = errors.New("session has no capture store")

// Session owns the event log, the environment descriptor and every wrapper
// handle of one instrumented page.
type Session struct {
	id          string
	cfg         config.Instrumentation
	host        Host
	descriptor  environment.Descriptor
	log         *eventlog.Log
	exporter    *capture.Exporter
	store       capture.Store
	logger      *logging.Logger
	downloadDir string
	envName     string

	mu      sync.Mutex
	handles map[string]*Handle
	marks   map[string]time.Time
	scroll  *ScrollTracker
}

var _ API = (*Session)(nil)

// Option configures a Session.
type Option func(*Session)

// WithHost sets the execution host. The default is SystemHost.
func WithHost(host Host) Option {
	return func(s *Session) { s.host = host }
}

// WithStore sets the durable side channel the log is flushed to.
func WithStore(store capture.Store) Option {
	return func(s *Session) { s.store = store }
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithDownloadDir sets where DownloadCapture writes artifacts.
func WithDownloadDir(dir string) Option {
	return func(s *Session) { s.downloadDir = dir }
}

// WithID sets the session id. The default is a random UUID.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// WithEnvironmentName sets the driver-assigned environment name stamped on
// exported captures.
func WithEnvironmentName(name string) Option {
	return func(s *Session) { s.envName = name }
}

// NewSession probes the platform once and starts an empty log.
func NewSession(platform environment.Platform, cfg config.Instrumentation, opts ...Option) *Session {
	s := &Session{
		cfg:         cfg,
		host:        SystemHost{},
		downloadDir: cfg.DownloadDir,
		handles:     make(map[string]*Handle),
		marks:       make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.id == "" {
		s.id = uuid.New().String()
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}

	s.descriptor = environment.Probe(platform)

	logOpts := []eventlog.Option{
		eventlog.WithCapacity(cfg.MaxLogEntries),
		eventlog.WithClock(s.host),
		eventlog.WithEnvironment(s.descriptor.Label(), s.descriptor.UserAgent),
		eventlog.WithLogger(s.logger),
	}
	if cfg.ExportLogs && s.store != nil {
		logOpts = append(logOpts, eventlog.WithSink(eventlog.SinkFunc(s.flush)))
	}
	s.log = eventlog.New(logOpts...)
	s.exporter = capture.NewExporter(s.log, s.descriptor, s.envName, s.host.Now)

	s.logger.Infof("session %s started for %s", s.id, s.descriptor.Label())
	s.log.Append(types.CategoryBrowser, "Instrumentation session initialized", map[string]any{
		"browserInfo": s.descriptor.Clone(),
		"config":      cfg,
		"sessionId":   s.id,
	})
	return s
}

// flush is the store side channel.
func (s *Session) flush(entries []types.EventEntry) error {
	return s.store.Save(capture.Capture{
		ID:          s.id,
		Environment: s.envName,
		Descriptor:  s.descriptor.Clone(),
		Logs:        entries,
		ExportTime:  s.host.Now().UTC(),
	})
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Host returns the execution host.
func (s *Session) Host() Host { return s.host }

// Config returns the instrumentation settings.
func (s *Session) Config() config.Instrumentation { return s.cfg }

// Descriptor returns a copy of the probed environment.
func (s *Session) Descriptor() environment.Descriptor { return s.descriptor.Clone() }

// Log returns the session's event log.
func (s *Session) Log() *eventlog.Log { return s.log }

// Logger returns the diagnostic logger.
func (s *Session) Logger() *logging.Logger { return s.logger }

// AppendEvent implements API.
func (s *Session) AppendEvent(category types.Category, message string, data map[string]any) {
	s.log.Append(category, message, data)
}

// ExportCapture implements API.
func (s *Session) ExportCapture() capture.Capture {
	return s.exporter.Export()
}

// DownloadCapture implements API.
func (s *Session) DownloadCapture() (string, error) {
	c := s.exporter.Export()
	path, err := capture.Download(c, s.downloadDir)
	if err != nil {
		s.logger.Errorf("download failed: %v", err)
		return "", err
	}
	s.logger.Infof("capture downloaded to %s", path)
	return path, nil
}

// StoredCapture implements API.
func (s *Session) StoredCapture() (*capture.Capture, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.Load()
}

// Persist writes the current capture to path.
func (s *Session) Persist(path string) error {
	return s.exporter.Persist(s.exporter.Export(), path)
}

// Mark records a named point in time.
func (s *Session) Mark(name string) {
	now := s.host.Now()
	s.mu.Lock()
	s.marks[name] = now
	s.mu.Unlock()

	s.log.Append(types.CategoryPerformance, "Mark: "+name, map[string]any{
		"time": fmt.Sprintf("%.2f", millis(now.Sub(s.log.Start()))),
	})
}

// Measure logs the time elapsed since the named mark. It reports false when
// the mark does not exist.
func (s *Session) Measure(name, startMark string) (time.Duration, bool) {
	end := s.host.Now()
	s.mu.Lock()
	start, ok := s.marks[startMark]
	s.mu.Unlock()
	if !ok {
		return 0, false
	}

	d := end.Sub(start)
	origin := s.log.Start()
	s.log.Append(types.CategoryPerformance, "Measure: "+name, map[string]any{
		"duration": fmt.Sprintf("%.2fms", millis(d)),
		"start":    fmt.Sprintf("%.2f", millis(start.Sub(origin))),
		"end":      fmt.Sprintf("%.2f", millis(end.Sub(origin))),
	})
	return d, true
}

// Handles returns the installed wrapper handles keyed by name.
func (s *Session) Handles() map[string]*Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*Handle, len(s.handles))
	for k, v := range s.handles {
		out[k] = v
	}
	return out
}

// Uninstall restores every wrapped primitive.
func (s *Session) Uninstall() {
	for _, h := range s.Handles() {
		h.Uninstall()
	}
}

// register returns the existing handle for name, or creates one and reports
// that the caller must install it.
func (s *Session) register(name string) (*Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.handles[name]; ok && h.State() != StateUninstalled {
		return h, false
	}
	h := newHandle(name)
	s.handles[name] = h
	return h, true
}

// disabled returns a settled handle for a wrapper switched off by config.
func disabled(name string) *Handle {
	h := newHandle(name)
	h.settle(StateDisabled)
	return h
}

func (s *Session) pollPolicy() PollPolicy {
	p := DefaultPollPolicy()
	if s.cfg.PollInterval > 0 {
		p.Interval = s.cfg.PollInterval
	}
	if s.cfg.PollTimeout > 0 {
		p.Timeout = s.cfg.PollTimeout
	}
	if s.cfg.PollBackoff > 1 {
		p.Backoff = s.cfg.PollBackoff
		p.MaxInterval = p.Timeout / 4
	}
	return p
}

func (s *Session) warn(message string, data map[string]any) {
	s.logger.Warnf("%s", message)
	s.log.Append(types.CategoryWarning, message, data)
}
