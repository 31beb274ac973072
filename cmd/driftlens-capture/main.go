// Package main drives real browsers through an instrumented page and writes
// the capture artifacts consumed by driftlens-compare.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/entrhq/driftlens/pkg/config"
	"github.com/entrhq/driftlens/pkg/driver"
	"github.com/entrhq/driftlens/pkg/logging"
	"github.com/entrhq/driftlens/pkg/report"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigFile string
	URL        string
	Browsers   string
	ResultsDir string
	Headed     bool
}

func main() {
	cli := parseFlags()
	if err := run(cli); err != nil {
		fmt.Fprintf(os.Stderr, "Capture failed: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() *CLIConfig {
	cli := &CLIConfig{}
	flag.StringVar(&cli.ConfigFile, "config", config.DefaultFile, "Path to configuration file (YAML)")
	flag.StringVar(&cli.URL, "url", "", "Page URL (overrides driver.url)")
	flag.StringVar(&cli.Browsers, "browsers", "", "Comma-separated browsers (overrides driver.browsers)")
	flag.StringVar(&cli.ResultsDir, "results", "", "Results directory (overrides comparison.results_dir)")
	flag.BoolVar(&cli.Headed, "headed", false, "Show browser windows")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "driftlens-capture - record behavior captures from real browsers\n\n")
		fmt.Fprintf(os.Stderr, "Usage: driftlens-capture [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  driftlens-capture -url http://localhost:8080/montage -browsers chromium,webkit\n")
	}
	flag.Parse()
	return cli
}

func run(cli *CLIConfig) error {
	cfg, err := config.Load(cli.ConfigFile)
	if err != nil {
		return err
	}
	if cli.URL != "" {
		cfg.Driver.URL = cli.URL
	}
	if cli.Browsers != "" {
		cfg.Driver.Browsers = strings.Split(cli.Browsers, ",")
	}
	if cli.ResultsDir != "" {
		cfg.Comparison.ResultsDir = cli.ResultsDir
	}
	if cli.Headed {
		cfg.Driver.Headless = false
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, _ := logging.NewLogger("capture")
	defer logger.Close()
	printer := report.NewPrinter(report.ParseLevel(cfg.Logging.Verbosity))
	printer.Header("driftlens capture: " + cfg.Driver.URL)

	launcher, err := driver.NewLauncher(cfg.Driver.Browsers)
	if err != nil {
		return err
	}
	defer launcher.Stop()

	failed := 0
	for _, env := range cfg.Driver.Browsers {
		printer.Section(env)
		if err := captureOne(launcher, env, cfg, logger, printer); err != nil {
			printer.Errorf("%s: %v", env, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d browsers failed", failed, len(cfg.Driver.Browsers))
	}
	return nil
}

func captureOne(l *driver.Launcher, env string, cfg *config.Config, logger *logging.Logger, printer *report.Printer) error {
	sess, err := l.Open(env, cfg.Driver)
	if err != nil {
		return err
	}
	defer sess.Close()

	d := driver.New(sess.Page, cfg.Driver, cfg.Comparison.DriftThresholdMs, logger.With(env))
	res, err := d.Run(env, cfg.Comparison.ResultsDir)
	if err != nil {
		return err
	}

	printer.Successf("%d initial entries, %d scroll entries", len(res.Initial.Logs), len(res.Scroll.Logs))
	if len(res.Stuck) > 0 {
		printer.Warningf("%d streams started but never completed: %v", len(res.Stuck), res.Stuck)
	}
	if res.Bug != nil {
		printer.Warningf("monitors disappeared after scroll: %v", res.Bug.MissingMonitors)
	}
	for _, f := range res.Files {
		printer.Verbosef("wrote %s", f)
	}
	return nil
}
