package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Rotate moves every entry of the current-period directory into the dated
// archive directory <archiveDir>/<YYYYMMDD>_backup, creating it if needed.
// Re-running on the same day reuses the directory; an empty current-period
// directory is a successful zero-file rotation. Returns the number of
// entries moved.
func Rotate(currentDir, archiveDir string, stamp time.Time) (int, error) {
	target := filepath.Join(archiveDir, stamp.Format("20060102")+"_backup")
	if err := os.MkdirAll(target, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create archive dir: %w", err)
	}

	entries, err := os.ReadDir(currentDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read current dir: %w", err)
	}

	moved := 0
	for _, e := range entries {
		src := filepath.Join(currentDir, e.Name())
		dst := filepath.Join(target, e.Name())
		if err := os.Rename(src, dst); err != nil {
			return moved, fmt.Errorf("failed to archive %s: %w", e.Name(), err)
		}
		moved++
	}
	return moved, nil
}
