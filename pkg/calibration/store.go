// Package calibration loads the JuggleTracker calibration record.
//
// The record is a JSON object stored as calibration.json in the config
// directory. It is only read here; nothing in this program produces it yet.
package calibration

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileName is the calibration file name inside the config directory.
const FileName = "calibration.json"

// ErrMalformed is returned when calibration.json exists but is not a JSON object.
var ErrMalformed = errors.New("malformed calibration data")

// Data is a parsed calibration document.
type Data map[string]any

// Store reads calibration data from a config directory.
type Store struct {
	path string
	data Data
	mu   sync.RWMutex
}

// NewStore creates a store for dir. Nothing is read until Load.
func NewStore(dir string) *Store {
	return &Store{path: filepath.Join(dir, FileName)}
}

// Path returns the calibration file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the calibration file.
// It reports true when calibration is present and false when the file is absent.
// A file that cannot be decoded yields ErrMalformed and leaves the data unset.
func (s *Store) Load() (bool, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read calibration: %w", err)
	}

	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrMalformed, s.path, err)
	}
	if data == nil {
		// "null" decodes without error but is not a calibration record.
		return false, fmt.Errorf("%w: %s: not a JSON object", ErrMalformed, s.path)
	}

	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return true, nil
}

// Data returns the loaded calibration, or nil if none was loaded.
func (s *Store) Data() Data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

// NeedsCalibration reports whether no calibration has been loaded.
func (s *Store) NeedsCalibration() bool {
	return s.Data() == nil
}
