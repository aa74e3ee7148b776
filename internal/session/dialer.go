package session

import (
	"context"

	"github.com/netbackuppro/netbackuppro/internal/config"
	"github.com/netbackuppro/netbackuppro/internal/inventory"
	"github.com/netbackuppro/netbackuppro/pkg/cli"
)

// CLIDialer opens real SSH PTY sessions via pkg/cli.
type CLIDialer struct {
	SSH config.SSHConfig
}

// Dial opens an interactive session to the device. Prompt suffixes follow
// the vendor class: network CLIs end prompts with # or >, a Linux shell
// with $ or #.
func (d *CLIDialer) Dial(ctx context.Context, dev inventory.Device, creds Credentials) (Conn, error) {
	suffixes := []string{"#", ">"}
	if dev.Class == inventory.ClassLinux {
		suffixes = []string{"$", "#"}
	}
	return cli.Dial(ctx, dev.Address, 22, creds.Username, creds.Password, &cli.Config{
		ConnectTimeout: d.SSH.ConnectTimeout,
		CommandTimeout: d.SSH.CommandTimeout,
		QuietAfter:     d.SSH.QuietAfter,
		PromptSuffixes: suffixes,
	})
}
