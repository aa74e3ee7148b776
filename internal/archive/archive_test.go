package archive

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("cfg"), 0o644))
}

func TestRotate(t *testing.T) {
	current := t.TempDir()
	archive := t.TempDir()
	stamp, err := time.Parse("20060102", "20260315")
	require.NoError(t, err)

	write(t, current, "CORE-SW-01_20260315_142530.cfg")
	write(t, current, "ASA-FW-01_DMZ_20260315_142530.cfg")

	moved, err := Rotate(current, archive, stamp)
	require.NoError(t, err)
	assert.Equal(t, 2, moved)

	// Current dir is empty afterwards.
	entries, err := os.ReadDir(current)
	require.NoError(t, err)
	assert.Empty(t, entries)

	target := filepath.Join(archive, "20260315_backup")
	entries, err = os.ReadDir(target)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRotateEmptyCurrentDir(t *testing.T) {
	stamp := time.Now()
	moved, err := Rotate(t.TempDir(), t.TempDir(), stamp)
	require.NoError(t, err)
	assert.Zero(t, moved)
}

func TestRotateReusesExistingTarget(t *testing.T) {
	current := t.TempDir()
	archive := t.TempDir()
	stamp, err := time.Parse("20060102", "20260315")
	require.NoError(t, err)

	write(t, current, "first.cfg")
	moved, err := Rotate(current, archive, stamp)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	// A second rotation on the same day lands in the same directory.
	write(t, current, "second.cfg")
	moved, err = Rotate(current, archive, stamp)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	entries, err := os.ReadDir(filepath.Join(archive, "20260315_backup"))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRotateMissingCurrentDir(t *testing.T) {
	_, err := Rotate(filepath.Join(t.TempDir(), "absent"), t.TempDir(), time.Now())
	assert.Error(t, err)
}
