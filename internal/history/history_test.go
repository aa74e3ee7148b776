package history

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netbackuppro/netbackuppro/internal/inventory"
	"github.com/netbackuppro/netbackuppro/internal/session"
)

func TestRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	ledger, err := Open(path)
	require.NoError(t, err)
	defer ledger.Close()

	stamp := time.Now()
	results := []session.Result{
		{
			Device:   inventory.Device{Address: "10.0.0.10", Name: "CORE-SW-01", Class: inventory.ClassNXOS},
			Success:  true,
			Banner:   "CORE-SW-01#",
			Duration: 3 * time.Second,
		},
		{
			Device:   inventory.Device{Address: "10.0.0.30", Name: "ASA-FW-01", Class: inventory.ClassASA},
			Err:      errors.New("connect: connection refused"),
			Duration: 15 * time.Second,
		},
	}

	require.NoError(t, ledger.Record(stamp, results, true, 5))

	var run Run
	require.NoError(t, ledger.db.First(&run).Error)
	assert.Equal(t, 2, run.Devices)
	assert.Equal(t, 1, run.Failed)
	assert.True(t, run.Uploaded)
	assert.Equal(t, 5, run.Archived)

	var rows []DeviceResult
	require.NoError(t, ledger.db.Where("run_id = ?", run.ID).Order("id").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Success)
	assert.Equal(t, "CORE-SW-01#", rows[0].Banner)
	assert.Equal(t, int64(3000), rows[0].Duration)
	assert.False(t, rows[1].Success)
	assert.Equal(t, "connect: connection refused", rows[1].ErrorMsg)
}

func TestNilLedgerIsNoop(t *testing.T) {
	var ledger *Ledger
	assert.NoError(t, ledger.Record(time.Now(), nil, false, 0))
	assert.NoError(t, ledger.Close())
}

func TestOpenCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "runs.db")
	ledger, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, ledger.Close())
}
