// Package main opens an interactive terminal viewer on a comparison report.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/entrhq/driftlens/pkg/config"
	"github.com/entrhq/driftlens/pkg/report"
	"github.com/entrhq/driftlens/pkg/viewer"
)

func main() {
	configFile := flag.String("config", config.DefaultFile, "Path to configuration file (YAML)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: driftlens-view [options] [comparison.json]\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	path := flag.Arg(0)
	if path == "" {
		cfg, err := config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		path = filepath.Join(cfg.Comparison.ResultsDir, report.JSONFile)
	}

	if err := viewer.Run(path); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
