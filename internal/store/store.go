package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// separator terminates every capture block in a backup file.
var separator = "\n" + strings.Repeat("=", 80) + "\n"

// Store appends captures into per-device files under the current-period
// directory. Filenames carry the run timestamp, fixed once per run, so every
// file of one run shares the same suffix.
type Store struct {
	// Dir is the current-period directory (todayBackup).
	Dir   string
	Stamp time.Time
}

// New creates the current-period directory if needed and returns a Store
// bound to the run timestamp.
func New(dir string, stamp time.Time) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup dir: %w", err)
	}
	return &Store{Dir: dir, Stamp: stamp}, nil
}

// Filename resolves the backup filename for a device, with an optional
// context segment: <name>[_<context>]_<YYYYMMDD>_<HHMMSS>.cfg.
func (s *Store) Filename(deviceName, contextName string) string {
	parts := []string{deviceName}
	if contextName != "" {
		parts = append(parts, contextName)
	}
	parts = append(parts, s.Stamp.Format("20060102"), s.Stamp.Format("150405"))
	return strings.Join(parts, "_") + ".cfg"
}

// Write appends one capture followed by the separator line. Repeated calls
// for the same device accumulate into the same file in call order; an
// existing file is never truncated.
func (s *Store) Write(deviceName, contextName, content string) error {
	path := filepath.Join(s.Dir, s.Filename(deviceName, contextName))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open backup file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(content); err != nil {
		return fmt.Errorf("failed to write capture: %w", err)
	}
	if _, err := f.WriteString(separator); err != nil {
		return fmt.Errorf("failed to write separator: %w", err)
	}
	return nil
}

// Files lists the regular files currently in the store, non-recursive.
func (s *Store) Files() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup dir: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, filepath.Join(s.Dir, e.Name()))
		}
	}
	return files, nil
}
