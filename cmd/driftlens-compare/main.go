// Package main compares the captures of a reference and a candidate
// environment found in the results directory and prints the divergence
// report.
//
// It takes no flags. Thresholds, environment names and the results
// directory come from driftlens.yaml in the working directory when present.
// The exit status is 1 only when the results directory does not exist.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/entrhq/driftlens/pkg/compare"
	"github.com/entrhq/driftlens/pkg/config"
	"github.com/entrhq/driftlens/pkg/logging"
	"github.com/entrhq/driftlens/pkg/report"
)

func main() {
	os.Exit(run(config.DefaultFile, os.Stdout))
}

func run(configPath string, stdout io.Writer) int {
	// NewLogger falls back to stderr on error, so the logger is always usable.
	logger, _ := logging.NewLogger("compare")
	defer logger.Close()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(stdout, "Warning: %v, using defaults\n", err)
		cfg = config.Default()
	}
	printer := report.NewPrinterTo(report.ParseLevel(cfg.Logging.Verbosity), stdout)
	cmp := cfg.Comparison

	in, err := compare.LoadResults(cmp.ResultsDir, cmp.Reference, cmp.Candidate, logger)
	if err != nil {
		if errors.Is(err, compare.ErrResultsDirMissing) {
			printer.Errorf("Results directory not found: %s", cmp.ResultsDir)
			printer.Infof("Run the capture step first to generate results.")
			return 1
		}
		printer.Errorf("%v", err)
		return 1
	}

	engine, err := compare.NewEngine(cmp, logger)
	if err != nil {
		printer.Warningf("%v, comparing without ignore patterns", err)
		cmp.IgnoreMessages = nil
		if engine, err = compare.NewEngine(cmp, logger); err != nil {
			printer.Errorf("%v", err)
			return 1
		}
	}
	r := engine.Compare(in)
	printer.Render(r, cmp.MaxListed)

	if cmp.WriteArtifacts {
		w := report.NewArtifactWriter(cmp.ResultsDir)
		if err := w.WriteAll(r); err != nil {
			printer.Warningf("failed to write artifacts: %v", err)
		} else {
			printer.Verbosef("Artifacts written to %s", cmp.ResultsDir)
		}
	}
	return 0
}
