package inventory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netbackuppro/netbackuppro/internal/config"
)

func validConfig() config.InventoryConfig {
	return config.InventoryConfig{
		Devices: []config.DeviceConfig{
			{Address: "10.0.0.10", Name: "CORE-SW-01", Class: "nxos"},
			{Address: "10.0.0.20", Name: "ISE-PRIMARY", Class: "nxos", SettleDelay: 10 * time.Second},
			{Address: "10.0.0.30", Name: "ASA-FW-01", Class: "asa"},
			{Address: "10.0.0.40", Name: "EDGE-RTR-01", Class: "ios"},
		},
		Groups: []config.GroupConfig{
			{Name: "routers", Addresses: []string{"10.0.0.40"}, Credential: "personal"},
			{Name: "switches", Addresses: []string{"10.0.0.10"}},
			{Name: "appliances", Addresses: []string{"10.0.0.20"}, Credential: "admin"},
			{Name: "firewalls", Addresses: []string{"10.0.0.30"}, Credential: "personal"},
		},
	}
}

func TestFromConfig(t *testing.T) {
	inv, err := FromConfig(validConfig())
	require.NoError(t, err)

	groups := inv.Groups()
	require.Len(t, groups, 4)
	assert.Equal(t, "routers", groups[0].Name)
	assert.Equal(t, "switches", groups[1].Name)
	assert.Equal(t, "appliances", groups[2].Name)
	assert.Equal(t, "firewalls", groups[3].Name)

	// Credential defaults to personal when omitted.
	assert.Equal(t, CredentialPersonal, groups[1].Credential)
	assert.Equal(t, CredentialAdmin, groups[2].Credential)

	dev, ok := inv.Lookup("10.0.0.20")
	require.True(t, ok)
	assert.Equal(t, "ISE-PRIMARY", dev.Name)
	assert.Equal(t, 10*time.Second, dev.SettleDelay)
	assert.Equal(t, ClassNXOS, dev.Class)
}

func TestFromConfigRejectsBadInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.InventoryConfig)
	}{
		{"no devices", func(c *config.InventoryConfig) { c.Devices = nil }},
		{"empty address", func(c *config.InventoryConfig) { c.Devices[0].Address = " " }},
		{"empty name", func(c *config.InventoryConfig) { c.Devices[0].Name = "" }},
		{"duplicate address", func(c *config.InventoryConfig) { c.Devices[1].Address = c.Devices[0].Address }},
		{"unknown class", func(c *config.InventoryConfig) { c.Devices[0].Class = "junos" }},
		{"unknown credential", func(c *config.InventoryConfig) { c.Groups[0].Credential = "root" }},
		{"unknown group address", func(c *config.InventoryConfig) { c.Groups[0].Addresses = []string{"10.9.9.9"} }},
		{"nameless group", func(c *config.InventoryConfig) { c.Groups[0].Name = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			_, err := FromConfig(cfg)
			assert.Error(t, err)
		})
	}
}

func TestParseClass(t *testing.T) {
	class, err := ParseClass(" ASA ")
	require.NoError(t, err)
	assert.Equal(t, ClassASA, class)

	_, err = ParseClass("eos")
	assert.Error(t, err)
}

func TestMultiContext(t *testing.T) {
	assert.True(t, ClassASA.MultiContext())
	assert.False(t, ClassIOS.MultiContext())
	assert.False(t, ClassNXOS.MultiContext())
	assert.False(t, ClassLinux.MultiContext())
}

func TestNameOf(t *testing.T) {
	inv, err := FromConfig(validConfig())
	require.NoError(t, err)

	assert.Equal(t, "CORE-SW-01", inv.NameOf("10.0.0.10"))
	assert.Equal(t, "10.9.9.9", inv.NameOf("10.9.9.9"))
}
