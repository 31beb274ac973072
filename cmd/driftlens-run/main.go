// Package main runs a page script in the embedded JavaScript host with full
// instrumentation and writes the resulting capture.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/entrhq/driftlens/pkg/capture"
	"github.com/entrhq/driftlens/pkg/config"
	"github.com/entrhq/driftlens/pkg/environment"
	"github.com/entrhq/driftlens/pkg/instrument"
	"github.com/entrhq/driftlens/pkg/jshost"
	"github.com/entrhq/driftlens/pkg/logging"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigFile  string
	Script      string
	UserAgent   string
	Environment string
	Duration    time.Duration
	Output      string
	Features    bool
	Echo        bool
}

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

func main() {
	cli := parseFlags()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cli); err != nil {
		fmt.Fprintf(os.Stderr, "Run failed: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func parseFlags() *CLIConfig {
	cli := &CLIConfig{}
	flag.StringVar(&cli.ConfigFile, "config", config.DefaultFile, "Path to configuration file (YAML)")
	flag.StringVar(&cli.Script, "script", "", "Page script to run (required)")
	flag.StringVar(&cli.UserAgent, "user-agent", defaultUserAgent, "User agent reported by the page")
	flag.StringVar(&cli.Environment, "env", "", "Environment name stored in the capture")
	flag.DurationVar(&cli.Duration, "duration", 5*time.Second, "How long to keep the page running")
	flag.StringVar(&cli.Output, "output", "", "Capture output path (default: download directory)")
	flag.BoolVar(&cli.Features, "features", true, "Report every optional feature as supported")
	flag.BoolVar(&cli.Echo, "echo", false, "Print entries to stdout as they are logged")
	flag.Parse()
	return cli
}

func run(ctx context.Context, cli *CLIConfig) error {
	if cli.Script == "" {
		return fmt.Errorf("-script is required")
	}
	source, err := os.ReadFile(cli.Script)
	if err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}

	cfg, err := config.Load(cli.ConfigFile)
	if err != nil {
		return err
	}
	logger, _ := logging.NewLogger("run")
	defer logger.Close()
	if cli.Echo {
		// Entries are echoed at debug level to the session logger.
		logger = logging.New("run", os.Stdout)
	}

	var features []environment.FeatureName
	if cli.Features {
		features = environment.Features()
	}
	platform := environment.NewStaticPlatform(cli.UserAgent, features...)

	opts := []instrument.Option{
		instrument.WithLogger(logger),
		instrument.WithEnvironmentName(cli.Environment),
	}
	if cfg.Instrumentation.StoragePath != "" {
		opts = append(opts, instrument.WithStore(capture.NewFileStore(cfg.Instrumentation.StoragePath)))
	}
	page := jshost.New(platform, cfg.Instrumentation, opts...)

	runCtx, cancel := context.WithTimeout(ctx, cli.Duration)
	defer cancel()
	if err := page.Run(runCtx, string(source)); err != nil {
		return err
	}

	if cli.Output != "" {
		if err := page.Session().Persist(cli.Output); err != nil {
			return err
		}
		fmt.Printf("Capture written to %s\n", cli.Output)
		return nil
	}
	path, err := page.Session().DownloadCapture()
	if err != nil {
		return err
	}
	fmt.Printf("Capture written to %s\n", path)
	return nil
}
