package upload

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// sftpTransfer implements Transfer over an SSH connection: file copies run
// through the SFTP subsystem, the audit command through a plain session.
type sftpTransfer struct {
	conn   *ssh.Client
	client *sftp.Client
}

// OpenSFTP connects to the backup server and opens an SFTP session.
func OpenSFTP(server string, port int, username, password string) (Transfer, error) {
	cfg := &ssh.ClientConfig{
		User:            username,
		Auth:            []ssh.AuthMethod{ssh.Password(password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         30 * time.Second,
	}
	conn, err := ssh.Dial("tcp", fmt.Sprintf("%s:%d", server, port), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", server, err)
	}
	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open sftp session: %w", err)
	}
	return &sftpTransfer{conn: conn, client: client}, nil
}

func (t *sftpTransfer) Put(localPath, remoteName string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := t.client.Create(remoteName)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

func (t *sftpTransfer) RunCommand(cmd string) (string, error) {
	session, err := t.conn.NewSession()
	if err != nil {
		return "", err
	}
	defer session.Close()

	out, err := session.CombinedOutput(cmd)
	return string(out), err
}

func (t *sftpTransfer) Close() error {
	if t.client != nil {
		_ = t.client.Close()
	}
	if t.conn != nil {
		return t.conn.Close()
	}
	return nil
}
