package session

import (
	"context"
	"fmt"
	"time"

	"github.com/netbackuppro/netbackuppro/internal/inventory"
	"github.com/netbackuppro/netbackuppro/pkg/logger"
)

// GenericDriver backs up single-context devices: it runs the configured
// command sequence over one session and forwards each capture to the sink
// as soon as it is taken.
type GenericDriver struct {
	Dialer   Dialer
	Commands []string
	Sink     Sink
	Clock    Clock
}

func (d *GenericDriver) clock() Clock {
	if d.Clock != nil {
		return d.Clock
	}
	return RealClock
}

// Backup runs the command sequence against one device. Any error ends this
// device only; captures already written stay on disk. The session is closed
// on the success path and left to the transport's best effort when broken.
func (d *GenericDriver) Backup(ctx context.Context, dev inventory.Device, creds Credentials) Result {
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

	for _, command := range d.Commands {
		select {
		case <-ctx.Done():
			return fail(ctx.Err())
		default:
		}

		output, err := conn.SendTimed(command)
		if err != nil {
			return fail(fmt.Errorf("command %q: %w", command, err))
		}
		// Slow-CLI platforms buffer output past the read window; give them
		// a fixed settle period before the capture is taken as complete.
		if dev.SettleDelay > 0 {
			d.clock().Sleep(dev.SettleDelay)
		}
		if err := d.Sink.Write(dev.Name, "", output); err != nil {
			return fail(fmt.Errorf("write capture for %q: %w", command, err))
		}
	}

	if err := conn.Close(); err != nil {
		logger.Warnf("close session to %s: %v", dev.Name, err)
	}
	return Result{Device: dev, Success: true, Banner: banner, Duration: time.Since(start)}
}
