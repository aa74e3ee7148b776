package batch

import (
	"context"
	"time"

	"github.com/netbackuppro/netbackuppro/internal/config"
	"github.com/netbackuppro/netbackuppro/internal/inventory"
	"github.com/netbackuppro/netbackuppro/internal/session"
	"github.com/netbackuppro/netbackuppro/pkg/logger"
)

// Orchestrator walks the inventory groups in their fixed order, picks the
// driver for each device's vendor class and collects one Result per device.
// Devices are processed strictly sequentially; most network gear tolerates
// only a handful of concurrent management sessions.
type Orchestrator struct {
	Inventory *inventory.Inventory
	Dialer    session.Dialer
	Sink      session.Sink
	Commands  config.CommandsConfig
	// SessionTimeout bounds one device's whole session.
	SessionTimeout time.Duration
	Clock          session.Clock
}

// Run executes one full batch. A failing device never stops the batch; an
// interrupted context stops it between operations and the partial results
// are returned.
func (o *Orchestrator) Run(ctx context.Context, personal, admin session.Credentials) []session.Result {
	results := make([]session.Result, 0, 16)

	for _, group := range o.Inventory.Groups() {
		if ctx.Err() != nil {
			break
		}
		logger.Infof("--- Backing up %s ---", group.Name)

		creds := personal
		if group.Credential == inventory.CredentialAdmin {
			creds = admin
		}

		for _, dev := range group.Devices {
			if ctx.Err() != nil {
				break
			}
			devCtx, cancel := context.WithTimeout(ctx, o.sessionTimeout())
			res := o.driverFor(dev).Backup(devCtx, dev, creds)
			cancel()

			results = append(results, res)
			if res.Success {
				logger.Infof("Backup completed: %s", dev.Name)
			} else {
				logger.Errorf("Error backing up %s (%s): %v", dev.Name, dev.Address, res.Err)
			}
		}
	}
	return results
}

func (o *Orchestrator) sessionTimeout() time.Duration {
	if o.SessionTimeout > 0 {
		return o.SessionTimeout
	}
	return 90 * time.Second
}

func (o *Orchestrator) driverFor(dev inventory.Device) session.Driver {
	if dev.Class.MultiContext() {
		return &session.ContextDriver{
			Dialer:         o.Dialer,
			SystemCommands: o.Commands.FirewallSystem,
			Contexts:       o.Commands.Contexts,
			SwitchFormat:   o.Commands.ContextSwitch,
			SaveCommand:    o.Commands.ContextSave,
			DumpCommand:    o.Commands.ContextDump,
			Sink:           o.Sink,
			Clock:          o.Clock,
		}
	}
	return &session.GenericDriver{
		Dialer:   o.Dialer,
		Commands: o.Commands.Generic,
		Sink:     o.Sink,
		Clock:    o.Clock,
	}
}
