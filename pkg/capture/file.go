package capture

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DownloadName returns the artifact file name for a capture exported at t.
func DownloadName(c Capture, t time.Time) string {
	label := strings.ToLower(c.Descriptor.Label())
	return fmt.Sprintf("driftlens-%s-%d.json", label, t.UnixMilli())
}

// Download writes a pretty-printed copy of the capture into dir and returns
// the written path.
func Download(c Capture, dir string) (string, error) {
	stamp := c.ExportTime
	if stamp.IsZero() {
		stamp = time.Now()
	}
	path := filepath.Join(dir, DownloadName(c, stamp))
	if err := writeJSON(path, c); err != nil {
		return "", fmt.Errorf("failed to download capture: %w", err)
	}
	return path, nil
}

// Load reads a capture artifact.
func Load(path string) (*Capture, error) {
	var c Capture
	if err := ReadJSON(path, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ReadJSON decodes the JSON file at path into v. A missing file yields an
// error wrapping ErrNotFound.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// WriteJSON encodes v to path atomically with indentation.
func WriteJSON(path string, v any) error {
	return writeJSON(path, v)
}
