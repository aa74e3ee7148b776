package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStamp(t *testing.T) time.Time {
	t.Helper()
	stamp, err := time.Parse("20060102 150405", "20260315 142530")
	require.NoError(t, err)
	return stamp
}

func TestFilename(t *testing.T) {
	s := &Store{Dir: t.TempDir(), Stamp: testStamp(t)}

	assert.Equal(t, "CORE-SW-01_20260315_142530.cfg", s.Filename("CORE-SW-01", ""))
	assert.Equal(t, "ASA-FW-01_DMZ_20260315_142530.cfg", s.Filename("ASA-FW-01", "DMZ"))
}

func TestWriteAppendsWithSeparator(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, testStamp(t))
	require.NoError(t, err)

	require.NoError(t, s.Write("CORE-SW-01", "", "first"))
	require.NoError(t, s.Write("CORE-SW-01", "", "second"))
	require.NoError(t, s.Write("CORE-SW-01", "", "third"))

	data, err := os.ReadFile(filepath.Join(dir, s.Filename("CORE-SW-01", "")))
	require.NoError(t, err)

	want := "first" + separator + "second" + separator + "third" + separator
	assert.Equal(t, want, string(data))
}

func TestWriteNeverTruncates(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, testStamp(t))
	require.NoError(t, err)

	require.NoError(t, s.Write("EDGE-RTR-01", "", "kept"))

	// A second store with the same stamp resolves the same file and must
	// append, not replace.
	s2, err := New(dir, s.Stamp)
	require.NoError(t, err)
	require.NoError(t, s2.Write("EDGE-RTR-01", "", "more"))

	data, err := os.ReadFile(filepath.Join(dir, s.Filename("EDGE-RTR-01", "")))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "kept"))
	assert.Contains(t, string(data), "more")
}

func TestContextsGetSeparateFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, testStamp(t))
	require.NoError(t, err)

	require.NoError(t, s.Write("ASA-FW-01", "", "system"))
	require.NoError(t, s.Write("ASA-FW-01", "MGMT", "mgmt"))
	require.NoError(t, s.Write("ASA-FW-01", "DMZ", "dmz"))

	files, err := s.Files()
	require.NoError(t, err)
	assert.Len(t, files, 3)
}

func TestSeparatorShape(t *testing.T) {
	assert.Equal(t, "\n"+strings.Repeat("=", 80)+"\n", separator)
}

func TestFilesSkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, testStamp(t))
	require.NoError(t, err)

	require.NoError(t, s.Write("DIST-SW-01", "", "cfg"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	files, err := s.Files()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, s.Filename("DIST-SW-01", ""), filepath.Base(files[0]))
}
