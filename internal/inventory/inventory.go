package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/netbackuppro/netbackuppro/internal/config"
)

// VendorClass is a device's CLI behavior family. It determines the command
// sequence and which driver handles the session.
type VendorClass string

const (
	ClassIOS   VendorClass = "ios"
	ClassNXOS  VendorClass = "nxos"
	ClassASA   VendorClass = "asa"
	ClassLinux VendorClass = "linux"
)

// ParseClass maps a configuration string to a VendorClass.
func ParseClass(s string) (VendorClass, error) {
	switch VendorClass(strings.ToLower(strings.TrimSpace(s))) {
	case ClassIOS:
		return ClassIOS, nil
	case ClassNXOS:
		return ClassNXOS, nil
	case ClassASA:
		return ClassASA, nil
	case ClassLinux:
		return ClassLinux, nil
	}
	return "", fmt.Errorf("unknown vendor class %q", s)
}

// MultiContext reports whether devices of this class expose multiple
// isolated configuration contexts in one session.
func (c VendorClass) MultiContext() bool {
	return c == ClassASA
}

// CredentialKind names the credential set a group authenticates with.
type CredentialKind string

const (
	CredentialPersonal CredentialKind = "personal"
	CredentialAdmin    CredentialKind = "admin"
)

// Device is one entry of the identity map. Devices are immutable after
// startup.
type Device struct {
	Address string
	Name    string
	Class   VendorClass
	// SettleDelay is the fixed pause inserted after each command before its
	// capture is taken; non-zero only for slow-CLI platforms.
	SettleDelay time.Duration
}

// Group is an ordered set of devices processed as one batch stage.
type Group struct {
	Name       string
	Devices    []Device
	Credential CredentialKind
}

// Inventory is the validated device inventory. Group order is the batch
// processing order.
type Inventory struct {
	byAddress map[string]Device
	groups    []Group
}

// FromConfig builds and validates an Inventory. A group referencing an
// address absent from the identity map is a configuration error and fails
// the load, not the run.
func FromConfig(cfg config.InventoryConfig) (*Inventory, error) {
	if len(cfg.Devices) == 0 {
		return nil, fmt.Errorf("inventory has no devices")
	}

	byAddress := make(map[string]Device, len(cfg.Devices))
	for _, dc := range cfg.Devices {
		addr := strings.TrimSpace(dc.Address)
		if addr == "" {
			return nil, fmt.Errorf("inventory device %q has no address", dc.Name)
		}
		if strings.TrimSpace(dc.Name) == "" {
			return nil, fmt.Errorf("inventory device %s has no name", addr)
		}
		if _, dup := byAddress[addr]; dup {
			return nil, fmt.Errorf("duplicate inventory address %s", addr)
		}
		class, err := ParseClass(dc.Class)
		if err != nil {
			return nil, fmt.Errorf("device %s: %w", addr, err)
		}
		byAddress[addr] = Device{
			Address:     addr,
			Name:        strings.TrimSpace(dc.Name),
			Class:       class,
			SettleDelay: dc.SettleDelay,
		}
	}

	groups := make([]Group, 0, len(cfg.Groups))
	for _, gc := range cfg.Groups {
		if strings.TrimSpace(gc.Name) == "" {
			return nil, fmt.Errorf("inventory group without a name")
		}
		cred := CredentialKind(strings.ToLower(strings.TrimSpace(gc.Credential)))
		switch cred {
		case CredentialPersonal, CredentialAdmin:
		case "":
			cred = CredentialPersonal
		default:
			return nil, fmt.Errorf("group %s: unknown credential kind %q", gc.Name, gc.Credential)
		}
		devices := make([]Device, 0, len(gc.Addresses))
		for _, addr := range gc.Addresses {
			dev, ok := byAddress[strings.TrimSpace(addr)]
			if !ok {
				return nil, fmt.Errorf("group %s references unknown address %s", gc.Name, addr)
			}
			devices = append(devices, dev)
		}
		groups = append(groups, Group{Name: gc.Name, Devices: devices, Credential: cred})
	}

	return &Inventory{byAddress: byAddress, groups: groups}, nil
}

// Groups returns the groups in batch order.
func (inv *Inventory) Groups() []Group {
	return inv.groups
}

// Lookup resolves a device by address.
func (inv *Inventory) Lookup(address string) (Device, bool) {
	dev, ok := inv.byAddress[strings.TrimSpace(address)]
	return dev, ok
}

// NameOf resolves the display name for an address, falling back to the
// address itself for unknown devices.
func (inv *Inventory) NameOf(address string) string {
	if dev, ok := inv.Lookup(address); ok {
		return dev.Name
	}
	return address
}
