package upload

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/netbackuppro/netbackuppro/pkg/logger"
)

// Transfer is one open file-transfer session to the backup server.
type Transfer interface {
	// Put copies a local file to the remote default directory under the
	// given name.
	Put(localPath, remoteName string) error
	// RunCommand executes a command on the remote host and returns its
	// output.
	RunCommand(cmd string) (string, error)
	Close() error
}

// Manager transfers the current-period files to the backup server and
// surfaces the remote listing for audit.
type Manager struct {
	// Open establishes the transfer session; a failure here is fatal to the
	// upload stage only.
	Open func() (Transfer, error)
	// AuditCommand is run remotely after the transfer (e.g. "ls -l").
	AuditCommand string
	// VerifyCount warns when the remote listing shows fewer entries than
	// were sent.
	VerifyCount bool
}

// Upload transfers every file and runs the audit command. Local files are
// never touched; any error leaves them in place for the archiver.
func (m *Manager) Upload(files []string) error {
	t, err := m.Open()
	if err != nil {
		return fmt.Errorf("failed to open transfer session: %w", err)
	}
	defer t.Close()

	count := 0
	for _, f := range files {
		name := filepath.Base(f)
		if err := t.Put(f, name); err != nil {
			return fmt.Errorf("failed to upload %s: %w", name, err)
		}
		logger.Infof("Uploaded: %s", name)
		count++
	}
	logger.Infof("Successfully uploaded %d files", count)

	if m.AuditCommand == "" {
		return nil
	}
	listing, err := t.RunCommand(m.AuditCommand)
	if err != nil {
		return fmt.Errorf("remote audit command failed: %w", err)
	}
	logger.Infof("Remote directory listing:\n%s", listing)

	if m.VerifyCount && remoteEntryCount(listing) < count {
		logger.Warnf("remote listing shows %d entries but %d files were sent", remoteEntryCount(listing), count)
	}
	return nil
}

// remoteEntryCount counts listing lines, skipping the "total" header that
// ls -l prints. The remote directory may legitimately hold more files than
// this run sent; only fewer is suspicious.
func remoteEntryCount(listing string) int {
	n := 0
	for _, line := range strings.Split(listing, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "total ") {
			continue
		}
		n++
	}
	return n
}

// StageLog appends one line to the dated transfer log under the logs
// directory.
func StageLog(logsDir string, stamp time.Time, message string) {
	name := stamp.Format("20060102_150405") + "_sftp.log"
	f, err := os.OpenFile(filepath.Join(logsDir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "%s - %s\n", time.Now().Format("2006-01-02 15:04:05"), message)
}
