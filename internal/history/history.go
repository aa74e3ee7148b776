package history

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"github.com/netbackuppro/netbackuppro/internal/session"
	"github.com/netbackuppro/netbackuppro/pkg/logger"
)

// Run is one orchestrator invocation.
type Run struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Stamp     time.Time `json:"stamp" gorm:"not null;index"`
	Devices   int       `json:"devices" gorm:"not null"`
	Failed    int       `json:"failed" gorm:"not null"`
	Uploaded  bool      `json:"uploaded"`
	Archived  int       `json:"archived"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (Run) TableName() string { return "runs" }

// DeviceResult is one device outcome within a run.
type DeviceResult struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	RunID     uint      `json:"run_id" gorm:"not null;index"`
	Address   string    `json:"address" gorm:"type:varchar(64);not null"`
	Name      string    `json:"name" gorm:"type:varchar(128);not null"`
	Class     string    `json:"class" gorm:"type:varchar(16);not null"`
	Success   bool      `json:"success"`
	Banner    string    `json:"banner" gorm:"type:varchar(256)"`
	ErrorMsg  string    `json:"error_msg" gorm:"type:text"`
	Duration  int64     `json:"duration"` // milliseconds
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (DeviceResult) TableName() string { return "device_results" }

// Ledger persists run outcomes to SQLite. A nil Ledger is a no-op, so the
// run never depends on the database being writable.
type Ledger struct {
	db *gorm.DB
}

// Open initializes the ledger database, creating the schema as needed.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	dsn := path + "?_pragma=busy_timeout(15000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{
		Logger: gormLogger.New(
			logger.GetLogger(),
			gormLogger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  gormLogger.Warn,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&Run{}, &DeviceResult{}); err != nil {
		return nil, fmt.Errorf("failed to migrate ledger schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Record stores one run and its device results.
func (l *Ledger) Record(stamp time.Time, results []session.Result, uploaded bool, archived int) error {
	if l == nil {
		return nil
	}
	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	run := Run{Stamp: stamp, Devices: len(results), Failed: failed, Uploaded: uploaded, Archived: archived}
	if err := l.db.Create(&run).Error; err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	for _, r := range results {
		row := DeviceResult{
			RunID:    run.ID,
			Address:  r.Device.Address,
			Name:     r.Device.Name,
			Class:    string(r.Device.Class),
			Success:  r.Success,
			Banner:   r.Banner,
			Duration: r.Duration.Milliseconds(),
		}
		if r.Err != nil {
			row.ErrorMsg = r.Err.Error()
		}
		if err := l.db.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to record device result: %w", err)
		}
	}
	return nil
}

// Close releases the underlying connection.
func (l *Ledger) Close() error {
	if l == nil {
		return nil
	}
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
