package session

import (
	"context"
	"fmt"
	"time"

	"github.com/netbackuppro/netbackuppro/internal/inventory"
	"github.com/netbackuppro/netbackuppro/pkg/logger"
)

// ContextDriver backs up multi-context firewalls: the system configuration
// first, then each named context inside the same session. Context switches
// are session-global, so the loop is strictly sequential.
type ContextDriver struct {
	Dialer Dialer
	// SystemCommands run once before the context loop; their captures go to
	// the device's primary file.
	SystemCommands []string
	// Contexts is the fixed, predetermined context order. The set is not
	// discovered from or verified against the device.
	Contexts     []string
	SwitchFormat string // e.g. "changeto context %s"
	SaveCommand  string // persisted but not captured
	DumpCommand  string // captured with the timed strategy
	Sink         Sink
	Clock        Clock
}

func (d *ContextDriver) clock() Clock {
	if d.Clock != nil {
		return d.Clock
	}
	return RealClock
}

// Backup captures the system context and then every configured context.
// A failure aborts the remaining contexts for this device only; files
// already written are kept. The session is closed once all contexts were
// attempted.
func (d *ContextDriver) Backup(ctx context.Context, dev inventory.Device, creds Credentials) Result {
	start := time.Now()
	fail := func(err error) Result {
		return Result{Device: dev, Err: err, Duration: time.Since(start)}
	}

	conn, err := d.Dialer.Dial(ctx, dev, creds)
	if err != nil {
		return fail(fmt.Errorf("connect: %w", err))
	}
	banner := conn.Prompt()
	logger.Infof("Logged into %s", banner)

	for _, command := range d.SystemCommands {
		select {
		case <-ctx.Done():
			return fail(ctx.Err())
		default:
		}
		output, err := conn.Send(command)
		if err != nil {
			return fail(fmt.Errorf("system command %q: %w", command, err))
		}
		if err := d.Sink.Write(dev.Name, "", output); err != nil {
			return fail(fmt.Errorf("write system capture: %w", err))
		}
	}

	for _, name := range d.Contexts {
		select {
		case <-ctx.Done():
			return fail(ctx.Err())
		default:
		}

		if _, err := conn.Send(fmt.Sprintf(d.SwitchFormat, name)); err != nil {
			return fail(fmt.Errorf("switch to context %s: %w", name, err))
		}
		if _, err := conn.Send(d.SaveCommand); err != nil {
			return fail(fmt.Errorf("save context %s: %w", name, err))
		}
		output, err := conn.SendTimed(d.DumpCommand)
		if err != nil {
			return fail(fmt.Errorf("dump context %s: %w", name, err))
		}
		if dev.SettleDelay > 0 {
			d.clock().Sleep(dev.SettleDelay)
		}
		if err := d.Sink.Write(dev.Name, name, output); err != nil {
			return fail(fmt.Errorf("write context %s capture: %w", name, err))
		}
		logger.Infof("Backup completed: %s - %s context", dev.Name, name)
	}

	if err := conn.Close(); err != nil {
		logger.Warnf("close session to %s: %v", dev.Name, err)
	}
	return Result{Device: dev, Success: true, Banner: banner, Duration: time.Since(start)}
}
