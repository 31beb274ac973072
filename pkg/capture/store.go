package capture

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrNotFound is returned when no capture has been stored or the
	// artifact file does not exist.
	ErrNotFound = errors.New("capture not found")

	// ErrQuotaExceeded is returned when a store cannot hold the capture.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// Store is the durable side channel a session keeps its latest capture in.
type Store interface {
	// Save replaces the stored capture.
	Save(c Capture) error

	// Load returns the stored capture, or ErrNotFound.
	Load() (*Capture, error)
}

// FileStore keeps the latest capture in a JSON file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a file-backed store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Save writes the capture atomically.
func (s *FileStore) Save(c Capture) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeJSON(s.path, c); err != nil {
		return fmt.Errorf("failed to save capture to %s: %w", s.path, err)
	}
	return nil
}

// Load reads the stored capture.
func (s *FileStore) Load() (*Capture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Load(s.path)
}

// Path returns the file path of the store.
func (s *FileStore) Path() string {
	return s.path
}

// MemoryStore keeps the latest capture as encoded JSON in memory. A positive
// quota bounds the encoded size.
type MemoryStore struct {
	mu    sync.Mutex
	quota int
	data  []byte
}

// NewMemoryStore creates an in-memory store. quota <= 0 means unlimited.
func NewMemoryStore(quota int) *MemoryStore {
	return &MemoryStore{quota: quota}
}

// Save encodes and stores the capture. The previous value is kept when the
// quota would be exceeded.
func (s *MemoryStore) Save(c Capture) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode capture: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.quota > 0 && len(data) > s.quota {
		return fmt.Errorf("%w: %d bytes over limit of %d", ErrQuotaExceeded, len(data), s.quota)
	}
	s.data = data
	return nil
}

// Load decodes the stored capture.
func (s *MemoryStore) Load() (*Capture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return nil, ErrNotFound
	}
	var c Capture
	if err := json.Unmarshal(s.data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode stored capture: %w", err)
	}
	return &c, nil
}

// Size returns the encoded size of the stored capture.
func (s *MemoryStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
