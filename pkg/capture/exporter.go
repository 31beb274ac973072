package capture

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/entrhq/driftlens/pkg/environment"
	"github.com/entrhq/driftlens/pkg/types"
)

// Source is anything that can produce an ordered snapshot of entries.
type Source interface {
	Snapshot() []types.EventEntry
}

// Exporter turns the live event log into Capture values.
type Exporter struct {
	source      Source
	descriptor  environment.Descriptor
	environment string
	now         func() time.Time
}

// NewExporter creates an exporter for source recorded under descriptor.
// A nil now uses the wall clock.
func NewExporter(source Source, descriptor environment.Descriptor, envName string, now func() time.Time) *Exporter {
	if now == nil {
		now = time.Now
	}
	return &Exporter{
		source:      source,
		descriptor:  descriptor.Clone(),
		environment: envName,
		now:         now,
	}
}

// Export snapshots the log. It never fails and never mutates the log.
func (e *Exporter) Export() Capture {
	logs := e.source.Snapshot()
	if logs == nil {
		logs = []types.EventEntry{}
	}
	return Capture{
		ID:          uuid.New().String(),
		Environment: e.environment,
		Descriptor:  e.descriptor.Clone(),
		Logs:        logs,
		ExportTime:  e.now().UTC(),
	}
}

// Persist writes the capture to destination. Failures are returned to the
// caller; the in-memory log is unaffected.
func (e *Exporter) Persist(c Capture, destination string) error {
	return writeJSON(destination, c)
}

// writeJSON encodes v with indentation to path through a temp file and an
// atomic rename.
func writeJSON(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempPath := path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode capture: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
