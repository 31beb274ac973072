package instrument

import (
	"testing"
	"time"

	"github.com/entrhq/driftlens/internal/testing/hosttest"
	"github.com/entrhq/driftlens/pkg/config"
	"github.com/entrhq/driftlens/pkg/environment"
	"github.com/entrhq/driftlens/pkg/types"
)

const (
	safariUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_4) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15"
	chromeUA = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

func newTestSession(t *testing.T, platform environment.Platform, mutate func(*config.Instrumentation), opts ...Option) (*Session, *hosttest.FakeHost) {
	t.Helper()
	host := hosttest.New()
	cfg := config.DefaultInstrumentation()
	cfg.DownloadDir = t.TempDir()
	if mutate != nil {
		mutate(&cfg)
	}
	opts = append([]Option{WithHost(host)}, opts...)
	return NewSession(platform, cfg, opts...), host
}

func chromeSession(t *testing.T, mutate func(*config.Instrumentation), opts ...Option) (*Session, *hosttest.FakeHost) {
	return newTestSession(t, environment.NewStaticPlatform(chromeUA, environment.Features()...), mutate, opts...)
}

func safariSession(t *testing.T, mutate func(*config.Instrumentation), opts ...Option) (*Session, *hosttest.FakeHost) {
	return newTestSession(t, environment.NewStaticPlatform(safariUA), mutate, opts...)
}

func messages(s *Session, category types.Category) []string {
	var out []string
	for _, e := range s.Log().Snapshot() {
		if e.Category == category {
			out = append(out, e.Message)
		}
	}
	return out
}

func find(s *Session, message string) []types.EventEntry {
	var out []types.EventEntry
	for _, e := range s.Log().Snapshot() {
		if e.Message == message {
			out = append(out, e)
		}
	}
	return out
}

type timerID int

// oneShot schedules on the fake host and returns sequential ids.
func oneShot(host *hosttest.FakeHost) Scheduler[timerID] {
	next := 0
	return func(cb func(), d time.Duration) timerID {
		next++
		host.AfterFunc(d, cb)
		return timerID(next)
	}
}

// repeating re-arms on the fake host until the returned id is cleared.
func repeating(host *hosttest.FakeHost, cleared map[timerID]bool) Scheduler[timerID] {
	next := 100
	return func(cb func(), d time.Duration) timerID {
		next++
		id := timerID(next)
		var arm func()
		arm = func() {
			host.AfterFunc(d, func() {
				if cleared[id] {
					return
				}
				cb()
				arm()
			})
		}
		arm()
		return id
	}
}
