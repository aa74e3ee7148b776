package cli

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

// Config bounds one interactive session.
type Config struct {
	ConnectTimeout time.Duration
	// CommandTimeout caps a single read, prompt-terminated or timed.
	CommandTimeout time.Duration
	// QuietAfter ends a timed read once the device has produced no output
	// for this long.
	QuietAfter time.Duration
	// PromptSuffixes mark the end of a prompt line; network CLIs rarely
	// agree on more than the trailing character.
	PromptSuffixes []string
}

func (c *Config) withDefaults() Config {
	out := Config{
		ConnectTimeout: 15 * time.Second,
		CommandTimeout: 30 * time.Second,
		QuietAfter:     2 * time.Second,
		PromptSuffixes: []string{"#", ">", "]", "$"},
	}
	if c == nil {
		return out
	}
	if c.ConnectTimeout > 0 {
		out.ConnectTimeout = c.ConnectTimeout
	}
	if c.CommandTimeout > 0 {
		out.CommandTimeout = c.CommandTimeout
	}
	if c.QuietAfter > 0 {
		out.QuietAfter = c.QuietAfter
	}
	if len(c.PromptSuffixes) > 0 {
		out.PromptSuffixes = c.PromptSuffixes
	}
	return out
}

// Client is one interactive CLI session over an SSH PTY shell.
type Client struct {
	config  Config
	conn    *ssh.Client
	session *ssh.Session
	stdin   io.WriteCloser
	chunks  chan []byte
	prompt  string
	closed  bool
}

// Dial opens an authenticated interactive shell to addr:port and resolves
// the initial prompt. The permissive algorithm lists cover network gear
// still shipping legacy SSH stacks.
func Dial(ctx context.Context, addr string, port int, username, password string, cfg *Config) (*Client, error) {
	c := &Client{config: cfg.withDefaults(), chunks: make(chan []byte, 256)}

	sshConfig := &ssh.ClientConfig{
		User:            username,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         c.config.ConnectTimeout,
		Auth: []ssh.AuthMethod{
			ssh.Password(password),
			ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range questions {
					answers[i] = password
				}
				return answers, nil
			}),
		},
		Config: ssh.Config{
			KeyExchanges: []string{
				"diffie-hellman-group14-sha256",
				"diffie-hellman-group14-sha1",
				"diffie-hellman-group1-sha1",
				"diffie-hellman-group-exchange-sha256",
				"ecdh-sha2-nistp256",
				"ecdh-sha2-nistp384",
				"ecdh-sha2-nistp521",
			},
			Ciphers: []string{
				"aes128-ctr", "aes192-ctr", "aes256-ctr",
				"aes128-gcm@openssh.com", "aes256-gcm@openssh.com",
				"aes128-cbc", "aes256-cbc", "3des-cbc",
			},
			MACs: []string{
				"hmac-sha2-256-etm@openssh.com", "hmac-sha2-256",
				"hmac-sha1", "hmac-sha1-96",
			},
		},
		HostKeyAlgorithms: []string{
			"ssh-rsa", "rsa-sha2-256", "rsa-sha2-512",
			"ecdsa-sha2-nistp256", "ecdsa-sha2-nistp384", "ecdsa-sha2-nistp521",
		},
	}

	address := fmt.Sprintf("%s:%d", addr, port)
	dialer := &net.Dialer{Timeout: c.config.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", address, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, sshConfig)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s failed: %w", address, err)
	}
	c.conn = ssh.NewClient(sshConn, chans, reqs)

	if err := c.openShell(); err != nil {
		c.conn.Close()
		return nil, err
	}
	if err := c.resolvePrompt(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) openShell() error {
	session, err := c.conn.NewSession()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	var ptyErr error
	for _, term := range []string{"vt100", "xterm", "ansi", "dumb"} {
		if ptyErr = session.RequestPty(term, 80, 24, modes); ptyErr == nil {
			break
		}
	}
	if ptyErr != nil {
		session.Close()
		return fmt.Errorf("failed to request pty: %w", ptyErr)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		return fmt.Errorf("failed to get stdin: %w", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		return fmt.Errorf("failed to get stdout: %w", err)
	}
	if err := session.Shell(); err != nil {
		session.Close()
		return fmt.Errorf("failed to start shell: %w", err)
	}

	c.session = session
	c.stdin = stdin

	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := stdout.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				c.chunks <- chunk
			}
			if err != nil {
				close(c.chunks)
				return
			}
		}
	}()
	return nil
}

// resolvePrompt nudges the device with CRLF until a prompt line shows up.
// The prompt is kept only to confirm liveness and report the banner.
func (c *Client) resolvePrompt(ctx context.Context) error {
	deadline := time.Now().Add(c.config.CommandTimeout)
	if _, err := c.stdin.Write([]byte("\r\n")); err != nil {
		return fmt.Errorf("failed to write to shell: %w", err)
	}
	var acc strings.Builder
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk, ok := <-c.chunks:
			if !ok {
				return fmt.Errorf("session closed before prompt")
			}
			acc.Write(chunk)
			if p := lastPromptLine(acc.String(), c.config.PromptSuffixes); p != "" {
				c.prompt = p
				return nil
			}
		case <-time.After(time.Second):
			// Some devices need another nudge before printing a prompt.
			_, _ = c.stdin.Write([]byte("\r\n"))
		}
	}
	return fmt.Errorf("no prompt within %s", c.config.CommandTimeout)
}

// Prompt returns the prompt text resolved at login.
func (c *Client) Prompt() string {
	return c.prompt
}

// Send submits a command and reads until the next prompt line, the
// deterministic strategy for platforms that echo prompts promptly.
func (c *Client) Send(command string) (string, error) {
	if err := c.write(command); err != nil {
		return "", err
	}
	deadline := time.Now().Add(c.config.CommandTimeout)
	var acc strings.Builder
	for {
		remain := time.Until(deadline)
		if remain <= 0 {
			// Treat it like a timed read: return what arrived.
			return c.extract(acc.String(), command), nil
		}
		select {
		case chunk, ok := <-c.chunks:
			if !ok {
				return "", fmt.Errorf("session closed during %q", command)
			}
			acc.Write(chunk)
			if lastPromptLine(acc.String(), c.config.PromptSuffixes) != "" {
				return c.extract(acc.String(), command), nil
			}
		case <-time.After(remain):
		}
	}
}

// SendTimed submits a command and reads for a bounded interval instead of
// waiting for a prompt: output is accumulated until the quiet window
// elapses or the per-command cap is hit. Used where the CLI has no reliable
// end-of-output marker.
func (c *Client) SendTimed(command string) (string, error) {
	if err := c.write(command); err != nil {
		return "", err
	}
	deadline := time.Now().Add(c.config.CommandTimeout)
	var acc strings.Builder
	for {
		remain := time.Until(deadline)
		if remain <= 0 {
			break
		}
		wait := c.config.QuietAfter
		if wait > remain {
			wait = remain
		}
		select {
		case chunk, ok := <-c.chunks:
			if !ok {
				if acc.Len() > 0 {
					break
				}
				return "", fmt.Errorf("session closed during %q", command)
			}
			acc.Write(chunk)
			continue
		case <-time.After(wait):
		}
		break
	}
	return c.extract(acc.String(), command), nil
}

// Close terminates the session and the underlying connection.
func (c *Client) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.session != nil {
		_ = c.session.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) write(command string) error {
	// Drain output left over from the previous command so it cannot bleed
	// into this capture.
	for {
		select {
		case _, ok := <-c.chunks:
			if !ok {
				return fmt.Errorf("session closed")
			}
			continue
		default:
		}
		break
	}
	// Network devices expect CRLF.
	if _, err := c.stdin.Write([]byte(command + "\r\n")); err != nil {
		return fmt.Errorf("failed to write command: %w", err)
	}
	return nil
}

// extract normalizes the raw capture: CRLF to LF, ANSI stripped, the
// command echo and trailing prompt line removed.
func (c *Client) extract(raw, command string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "")
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	echo := strings.TrimSpace(command)
	for i, line := range lines {
		clean := sanitize(line)
		if i == 0 && strings.Contains(clean, echo) {
			continue
		}
		if i == len(lines)-1 && isPromptLine(clean, c.config.PromptSuffixes) {
			continue
		}
		out = append(out, clean)
	}
	return strings.TrimRight(strings.Join(out, "\n"), "\n")
}

// sanitize strips ANSI escape sequences and control characters that would
// otherwise break prompt detection.
func sanitize(s string) string {
	b := make([]byte, 0, len(s))
	skip := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if skip {
			if (ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z') {
				skip = false
			}
			continue
		}
		if ch == 0x1b {
			skip = true
			continue
		}
		if ch < 0x20 && ch != '\t' {
			continue
		}
		b = append(b, ch)
	}
	return string(b)
}

func isPromptLine(line string, suffixes []string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	for _, suf := range suffixes {
		if strings.HasSuffix(trimmed, suf) {
			return true
		}
	}
	return false
}

// lastPromptLine returns the final line of the buffer when it looks like a
// prompt, empty string otherwise.
func lastPromptLine(buf string, suffixes []string) string {
	s := strings.ReplaceAll(buf, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "")
	lines := strings.Split(s, "\n")
	last := sanitize(lines[len(lines)-1])
	if isPromptLine(last, suffixes) {
		return strings.TrimSpace(last)
	}
	return ""
}
