package gate

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/term"

	"github.com/netbackuppro/netbackuppro/internal/session"
	"github.com/netbackuppro/netbackuppro/pkg/logger"
)

// ErrPrecondition marks failures that must stop the run before any device
// is contacted.
var ErrPrecondition = errors.New("precondition failed")

// Credentials are the three validated secret sets a run requires.
type Credentials struct {
	// Personal authenticates against most devices.
	Personal session.Credentials
	// Admin authenticates against the identity appliances.
	Admin session.Credentials
	// Server authenticates the upload transfer.
	Server session.Credentials
}

// Env variable names for non-interactive operation.
const (
	EnvPersonalUser     = "NETBACKUP_PERSONAL_USER"
	EnvPersonalPassword = "NETBACKUP_PERSONAL_PASSWORD"
	EnvAdminUser        = "NETBACKUP_ADMIN_USER"
	EnvAdminPassword    = "NETBACKUP_ADMIN_PASSWORD"
	EnvServerPassword   = "NETBACKUP_SERVER_PASSWORD"
)

// Collect gathers the three credential sets from the environment, prompting
// on the terminal for any secret that is missing. An empty secret is a
// precondition violation, never a partial run.
func Collect(serverUser string) (Credentials, error) {
	personalUser := envOr(EnvPersonalUser, strings.ToLower(envOr("USER", "admin")))
	adminUser := envOr(EnvAdminUser, "admin")

	personalPass, err := secret(EnvPersonalPassword, fmt.Sprintf("Password for %s: ", personalUser))
	if err != nil {
		return Credentials{}, err
	}
	adminPass, err := secret(EnvAdminPassword, fmt.Sprintf("Password for %s (identity appliances): ", adminUser))
	if err != nil {
		return Credentials{}, err
	}
	serverPass, err := secret(EnvServerPassword, fmt.Sprintf("Password for %s (backup server): ", serverUser))
	if err != nil {
		return Credentials{}, err
	}

	return Credentials{
		Personal: session.Credentials{Username: personalUser, Password: personalPass},
		Admin:    session.Credentials{Username: adminUser, Password: adminPass},
		Server:   session.Credentials{Username: serverUser, Password: serverPass},
	}, nil
}

// Verify probes the backup server and authenticates the server credential
// before the batch starts. The device credentials are validated implicitly
// by the first session of their group; the server is checked up front
// because upload failure is only discovered after all captures are taken.
func Verify(server string, port int, creds Credentials) error {
	addr := net.JoinHostPort(server, fmt.Sprintf("%d", port))
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return fmt.Errorf("%w: backup server %s unreachable: %v", ErrPrecondition, server, err)
	}
	_ = conn.Close()

	cfg := &ssh.ClientConfig{
		User:            creds.Server.Username,
		Auth:            []ssh.AuthMethod{ssh.Password(creds.Server.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         10 * time.Second,
	}
	client, err := ssh.Dial("tcp", addr, cfg)
	if err != nil {
		return fmt.Errorf("%w: backup server authentication failed: %v", ErrPrecondition, err)
	}
	_ = client.Close()

	logger.Infof("Connection established to backup server %s", server)
	return nil
}

// Validate checks the three secrets are present without contacting anything.
func (c Credentials) Validate() error {
	if c.Personal.Password == "" {
		return fmt.Errorf("%w: personal password is empty", ErrPrecondition)
	}
	if c.Admin.Password == "" {
		return fmt.Errorf("%w: admin password is empty", ErrPrecondition)
	}
	if c.Server.Password == "" {
		return fmt.Errorf("%w: server password is empty", ErrPrecondition)
	}
	if c.Personal.Username == "" || c.Admin.Username == "" || c.Server.Username == "" {
		return fmt.Errorf("%w: missing username", ErrPrecondition)
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func secret(env, prompt string) (string, error) {
	if v := os.Getenv(env); v != "" {
		return v, nil
	}
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("%w: cannot read secret: %v", ErrPrecondition, err)
	}
	pass := strings.TrimSpace(string(raw))
	if pass == "" {
		return "", fmt.Errorf("%w: empty secret for %s", ErrPrecondition, env)
	}
	return pass, nil
}
