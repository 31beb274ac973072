package driver

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/entrhq/driftlens/pkg/capture"
	"github.com/entrhq/driftlens/pkg/compare"
	"github.com/entrhq/driftlens/pkg/config"
	"github.com/entrhq/driftlens/pkg/logging"
)

// ErrNotInstrumented is returned when the page does not expose DriftLens.
var ErrNotInstrumented = errors.New("page is not instrumented")

// ErrNotReady is returned when the ready expression never turned truthy.
var ErrNotReady = errors.New("page did not become ready")

// fallbackScrollWait is how long to wait for a scroll to finish when the
// page has no native scrollend event.
const fallbackScrollWait = 500 * time.Millisecond

// readyPollInterval is the delay between ready-expression probes.
const readyPollInterval = 250 * time.Millisecond

// Page is the subset of a browser page the driver needs.
type Page interface {
	Evaluate(expression string, arg ...interface{}) (interface{}, error)
	WaitForTimeout(timeout float64)
}

// Visibility partitions monitor ids by viewport intersection.
type Visibility struct {
	Visible []int `json:"visible"`
	Hidden  []int `json:"hidden"`
}

// Driver runs the capture script against one page.
type Driver struct {
	page   Page
	cfg    config.Driver
	drift  float64
	logger *logging.Logger
}

// New creates a driver. driftThresholdMs is used for the event report.
func New(page Page, cfg config.Driver, driftThresholdMs float64, logger *logging.Logger) *Driver {
	return &Driver{page: page, cfg: cfg, drift: driftThresholdMs, logger: logger}
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// WaitReady polls the configured ready expression until it is truthy or the
// ready timeout elapses.
func (d *Driver) WaitReady() error {
	script := readyScript(d.cfg.ReadyExpression)
	for waited := time.Duration(0); ; waited += readyPollInterval {
		v, err := d.page.Evaluate(script)
		if err != nil {
			return fmt.Errorf("ready check failed: %w", err)
		}
		if ok, _ := v.(bool); ok {
			d.logger.Debugf("page ready after %s", waited)
			return nil
		}
		if waited >= d.cfg.ReadyTimeout {
			return fmt.Errorf("%w after %s", ErrNotReady, d.cfg.ReadyTimeout)
		}
		d.page.WaitForTimeout(millis(readyPollInterval))
	}
}

// ExtractCapture exports the page's current capture.
func (d *Driver) ExtractCapture() (*capture.Capture, error) {
	v, err := d.page.Evaluate(exportScript)
	if err != nil {
		return nil, fmt.Errorf("capture export failed: %w", err)
	}
	if v == nil {
		return nil, ErrNotInstrumented
	}
	raw, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("capture export returned %T, expected JSON string", v)
	}

	var c capture.Capture
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, fmt.Errorf("failed to decode capture: %w", err)
	}
	return &c, nil
}

// VisibleMonitors reports which monitors intersect the viewport.
func (d *Driver) VisibleMonitors() (Visibility, error) {
	var vis Visibility
	v, err := d.page.Evaluate(visibilityScript)
	if err != nil {
		return vis, fmt.Errorf("visibility check failed: %w", err)
	}
	raw, ok := v.(string)
	if !ok {
		return vis, fmt.Errorf("visibility check returned %T, expected JSON string", v)
	}
	if err := json.Unmarshal([]byte(raw), &vis); err != nil {
		return vis, fmt.Errorf("failed to decode visibility: %w", err)
	}
	if vis.Visible == nil {
		vis.Visible = []int{}
	}
	if vis.Hidden == nil {
		vis.Hidden = []int{}
	}
	return vis, nil
}

// Scroll scrolls the page by distance pixels and waits for the scroll to
// end: on the native scrollend event when the page supports it (bounded by
// ScrollEndWait), otherwise for a fixed fallback delay.
func (d *Driver) Scroll(distance int) error {
	if _, err := d.page.Evaluate(scrollByScript, distance); err != nil {
		return fmt.Errorf("scroll failed: %w", err)
	}

	v, err := d.page.Evaluate(scrollEndSupportScript)
	if err != nil {
		return fmt.Errorf("scrollend probe failed: %w", err)
	}
	if native, _ := v.(bool); native {
		d.logger.Debugf("waiting for native scrollend (distance %d)", distance)
		if _, err := d.page.Evaluate(awaitScrollEndScript, millis(d.cfg.ScrollEndWait)); err != nil {
			return fmt.Errorf("waiting for scrollend failed: %w", err)
		}
		return nil
	}

	d.logger.Debugf("no scrollend support, waiting %s", fallbackScrollWait)
	d.page.WaitForTimeout(millis(fallbackScrollWait))
	return nil
}

// Result summarizes one capture run.
type Result struct {
	Environment string
	Initial     *capture.Capture
	Scroll      *capture.Capture
	Bug         *capture.BugReport
	Stuck       []int
	Files       []string
}

// Run executes the full capture script for env and writes its artifacts
// into dir.
func (d *Driver) Run(env, dir string) (*Result, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}
	res := &Result{Environment: env}

	if err := d.WaitReady(); err != nil {
		return nil, err
	}
	if d.cfg.SettleTime > 0 {
		d.page.WaitForTimeout(millis(d.cfg.SettleTime))
	}

	initial, err := d.ExtractCapture()
	if err != nil {
		return nil, err
	}
	res.Initial = initial
	res.Stuck = initial.StuckStarts()
	if len(res.Stuck) > 0 {
		d.logger.Warnf("%s: %d streams started but never completed: %v", env, len(res.Stuck), res.Stuck)
	}

	if err := d.write(res, dir, compare.InitialLogsFile(env), initial); err != nil {
		return nil, err
	}
	if timing := capture.BuildTimingReport(env, initial); timing.Stats != nil {
		if err := d.write(res, dir, compare.TimingReportFile(env), timing); err != nil {
			return nil, err
		}
	} else {
		d.logger.Warnf("%s: no stream loading times captured", env)
	}
	if err := d.write(res, dir, compare.EventReportFile(env), capture.BuildEventReport(env, initial, d.drift)); err != nil {
		return nil, err
	}

	before, err := d.VisibleMonitors()
	if err != nil {
		return nil, err
	}
	d.logger.Infof("%s: initially visible %v", env, before.Visible)

	if err := d.Scroll(d.cfg.ScrollDistance); err != nil {
		return nil, err
	}
	scrolled, err := d.ExtractCapture()
	if err != nil {
		return nil, err
	}
	res.Scroll = scrolled
	if err := d.write(res, dir, compare.ScrollLogsFile(env), scrolled); err != nil {
		return nil, err
	}

	if err := d.Scroll(-d.cfg.ScrollDistance); err != nil {
		return nil, err
	}
	after, err := d.VisibleMonitors()
	if err != nil {
		return nil, err
	}
	d.logger.Infof("%s: visible after scroll cycle %v", env, after.Visible)

	if bug, ok := capture.BuildBugReport(env, before.Visible, after.Visible, scrolled); ok {
		d.logger.Warnf("%s: monitors disappeared after scroll: %v", env, bug.MissingMonitors)
		res.Bug = &bug
		if err := d.write(res, dir, compare.BugReportFile(env), bug); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (d *Driver) write(res *Result, dir, name string, v any) error {
	path := filepath.Join(dir, name)
	if err := capture.WriteJSON(path, v); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	res.Files = append(res.Files, path)
	return nil
}
