package session

import (
	"context"
	"time"

	"github.com/netbackuppro/netbackuppro/internal/inventory"
)

// Conn is one authenticated interactive CLI session. Implementations wrap
// the transport; drivers only ever see this surface.
type Conn interface {
	// Prompt returns the prompt text resolved at login.
	Prompt() string
	// Send submits a command and waits for the next deterministic prompt.
	Send(command string) (string, error)
	// SendTimed submits a command and reads for a bounded interval; used
	// where the CLI has no prompt worth waiting for.
	SendTimed(command string) (string, error)
	Close() error
}

// Credentials is one opaque username/secret pair. Drivers pass it through
// to the transport and never log or retain it.
type Credentials struct {
	Username string
	Password string
}

// Dialer opens a Conn to a device.
type Dialer interface {
	Dial(ctx context.Context, dev inventory.Device, creds Credentials) (Conn, error)
}

// Sink receives captures as they are taken; context is empty for
// single-context devices. Satisfied by the backup store.
type Sink interface {
	Write(deviceName, contextName, content string) error
}

// Clock abstracts settle-delay sleeps so timing contracts are testable.
type Clock interface {
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// RealClock is the wall clock.
var RealClock Clock = realClock{}

// Result is the per-device outcome of one backup attempt.
type Result struct {
	Device   inventory.Device
	Success  bool
	Banner   string
	Err      error
	Duration time.Duration
}

// Driver executes one device backup and reports its Result. A Driver never
// aborts the batch; all failure is folded into the Result.
type Driver interface {
	Backup(ctx context.Context, dev inventory.Device, creds Credentials) Result
}
