package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/netbackuppro/netbackuppro/internal/archive"
	"github.com/netbackuppro/netbackuppro/internal/batch"
	"github.com/netbackuppro/netbackuppro/internal/config"
	"github.com/netbackuppro/netbackuppro/internal/gate"
	"github.com/netbackuppro/netbackuppro/internal/history"
	"github.com/netbackuppro/netbackuppro/internal/inventory"
	"github.com/netbackuppro/netbackuppro/internal/session"
	"github.com/netbackuppro/netbackuppro/internal/store"
	"github.com/netbackuppro/netbackuppro/internal/upload"
	"github.com/netbackuppro/netbackuppro/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	basePath := flag.String("base", "", "Backup base directory (default ~/Documents/NetworkBackups)")
	flag.Parse()

	if err := run(*configPath, *basePath); err != nil {
		logger.Errorf("Run failed: %v", err)
		os.Exit(1)
	}
}

func run(configPath, basePath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	base := firstNonEmpty(basePath, cfg.Base.Path, defaultBasePath())
	logsDir := filepath.Join(base, cfg.Base.LogsDir)
	currentDir := filepath.Join(base, cfg.Base.CurrentDir)
	archiveDir := filepath.Join(base, cfg.Base.ArchiveDir)
	for _, dir := range []string{logsDir, currentDir, archiveDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	logCfg := logger.Config(cfg.Log)
	if logCfg.FilePath == "" {
		logCfg.FilePath = filepath.Join(logsDir, "netbackup.log")
	}
	if err := logger.Init(logCfg); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}

	banner("Network Device Backup Orchestrator")

	inv, err := inventory.FromConfig(cfg.Inventory)
	if err != nil {
		return fmt.Errorf("invalid inventory: %w", err)
	}

	creds, err := gate.Collect(cfg.Upload.Username)
	if err != nil {
		return err
	}
	if err := creds.Validate(); err != nil {
		return err
	}
	if err := gate.Verify(cfg.Upload.Server, cfg.Upload.Port, creds); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stamp := time.Now()
	st, err := store.New(currentDir, stamp)
	if err != nil {
		return err
	}

	var ledger *history.Ledger
	if cfg.History.Enabled {
		path := cfg.History.Path
		if path == "" {
			path = filepath.Join(logsDir, "runs.db")
		}
		if ledger, err = history.Open(path); err != nil {
			logger.Warnf("run ledger unavailable: %v", err)
			ledger = nil
		}
		defer ledger.Close()
	}

	orch := &batch.Orchestrator{
		Inventory:      inv,
		Dialer:         &session.CLIDialer{SSH: cfg.SSH},
		Sink:           st,
		Commands:       cfg.Commands,
		SessionTimeout: cfg.SSH.SessionTimeout,
	}
	results := orch.Run(ctx, creds.Personal, creds.Admin)

	if err := ctx.Err(); err != nil {
		logger.Warnf("Run interrupted; partial captures are kept in %s", currentDir)
		_ = recordRun(ledger, stamp, results, false, 0)
		return nil
	}

	logger.Info("--- Uploading to Backup Server ---")
	files, err := st.Files()
	if err != nil {
		return err
	}
	uploaded := false
	mgr := &upload.Manager{
		Open: func() (upload.Transfer, error) {
			return upload.OpenSFTP(cfg.Upload.Server, cfg.Upload.Port, creds.Server.Username, creds.Server.Password)
		},
		AuditCommand: cfg.Upload.AuditCommand,
		VerifyCount:  cfg.Upload.VerifyCount,
	}
	if err := mgr.Upload(files); err != nil {
		// Local captures are preserved and archiving still proceeds.
		logger.Errorf("Upload failed: %v", err)
		upload.StageLog(logsDir, stamp, fmt.Sprintf("upload failed: %v", err))
	} else {
		uploaded = true
		upload.StageLog(logsDir, stamp, fmt.Sprintf("uploaded %d files to %s", len(files), cfg.Upload.Server))
	}
	upload.NewMirror(cfg.Mirror).Push(ctx, stamp, files)

	logger.Info("--- Archiving Backups ---")
	moved, err := archive.Rotate(currentDir, archiveDir, stamp)
	if err != nil {
		logger.Errorf("Archive failed: %v", err)
	} else {
		logger.Infof("Archived %d backup files to %s_backup", moved, stamp.Format("20060102"))
	}

	_ = recordRun(ledger, stamp, results, uploaded, moved)
	summarize(results)
	banner("Backup process completed")
	return nil
}

func recordRun(ledger *history.Ledger, stamp time.Time, results []session.Result, uploaded bool, archived int) error {
	if err := ledger.Record(stamp, results, uploaded, archived); err != nil {
		logger.Warnf("failed to record run history: %v", err)
		return err
	}
	return nil
}

func summarize(results []session.Result) {
	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	logger.Infof("Devices attempted: %d, failed: %d", len(results), failed)
	for _, r := range results {
		if r.Success {
			continue
		}
		logger.Warnf("  %s (%s): %v", r.Device.Name, r.Device.Address, r.Err)
	}
}

func banner(title string) {
	line := strings.Repeat("=", 80)
	logger.Info(line)
	logger.Info(title)
	logger.Info(line)
}

func defaultBasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, "Documents", "NetworkBackups")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
