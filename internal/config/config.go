package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	Base      BaseConfig      `mapstructure:"base"`
	SSH       SSHConfig       `mapstructure:"ssh"`
	Log       LogConfig       `mapstructure:"log"`
	Inventory InventoryConfig `mapstructure:"inventory"`
	Commands  CommandsConfig  `mapstructure:"commands"`
	Upload    UploadConfig    `mapstructure:"upload"`
	Mirror    MirrorConfig    `mapstructure:"mirror"`
	History   HistoryConfig   `mapstructure:"history"`
}

// BaseConfig holds the on-disk layout of a run.
type BaseConfig struct {
	// Path is the backup root; logs/, todayBackup/ and backupArchive/ live
	// under it.
	Path       string `mapstructure:"path"`
	LogsDir    string `mapstructure:"logs_dir"`
	CurrentDir string `mapstructure:"current_dir"`
	ArchiveDir string `mapstructure:"archive_dir"`
}

// SSHConfig bounds the interactive sessions.
type SSHConfig struct {
	// SessionTimeout is the per-session execution window.
	SessionTimeout time.Duration `mapstructure:"session_timeout"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// QuietAfter ends a timed read once no output arrived for this long.
	QuietAfter time.Duration `mapstructure:"quiet_after"`
	// CommandTimeout caps a single timed read regardless of output.
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
}

// LogConfig mirrors pkg/logger.Config.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// DeviceConfig describes one device in the identity map.
type DeviceConfig struct {
	Address string `mapstructure:"address"`
	Name    string `mapstructure:"name"`
	// Class is the vendor behavior family: ios | nxos | asa | linux.
	Class string `mapstructure:"class"`
	// SettleDelay is the post-command pause for slow CLIs (identity
	// appliances); zero for everything else.
	SettleDelay time.Duration `mapstructure:"settle_delay"`
}

// GroupConfig is an ordered device group processed as one batch stage.
type GroupConfig struct {
	Name      string   `mapstructure:"name"`
	Addresses []string `mapstructure:"addresses"`
	// Credential selects the set used for the group: personal | admin.
	Credential string `mapstructure:"credential"`
}

// InventoryConfig is the static device inventory.
type InventoryConfig struct {
	Devices []DeviceConfig `mapstructure:"devices"`
	Groups  []GroupConfig  `mapstructure:"groups"`
}

// CommandsConfig holds the per-class command sequences.
type CommandsConfig struct {
	// Generic is shared by the IOS-like and NXOS-like classes.
	Generic []string `mapstructure:"generic"`
	// FirewallSystem runs once in the firewall system context.
	FirewallSystem []string `mapstructure:"firewall_system"`
	// Contexts is the fixed context order for multi-context firewalls.
	Contexts []string `mapstructure:"contexts"`
	// ContextSwitch is a format string taking the context name.
	ContextSwitch string `mapstructure:"context_switch"`
	ContextSave   string `mapstructure:"context_save"`
	ContextDump   string `mapstructure:"context_dump"`
}

// UploadConfig describes the backup server transfer.
type UploadConfig struct {
	Server   string `mapstructure:"server"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	// AuditCommand is run remotely after the transfer and surfaced verbatim.
	AuditCommand string `mapstructure:"audit_command"`
	// VerifyCount compares the remote listing against the number of files
	// sent and warns on mismatch.
	VerifyCount bool `mapstructure:"verify_count"`
}

// MirrorConfig is the optional object-storage mirror of the day's captures.
type MirrorConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Secure    bool   `mapstructure:"secure"`
}

// HistoryConfig controls the run ledger database.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

var globalConfig *Config

// Load reads configuration from the given file (or the default search path)
// layered over built-in defaults and NETBACKUP_* environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("NETBACKUP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// Built-in defaults describe a complete setup; a missing file is
		// only fatal when one was named explicitly. A malformed file always
		// is.
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	globalConfig = &config
	return &config, nil
}

// Get returns the last loaded configuration.
func Get() *Config {
	return globalConfig
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("base.path", "")
	v.SetDefault("base.logs_dir", "logs")
	v.SetDefault("base.current_dir", "todayBackup")
	v.SetDefault("base.archive_dir", "backupArchive")

	// Session window matches what the slowest supported platforms need.
	v.SetDefault("ssh.session_timeout", 90*time.Second)
	v.SetDefault("ssh.connect_timeout", 15*time.Second)
	v.SetDefault("ssh.quiet_after", 2*time.Second)
	v.SetDefault("ssh.command_timeout", 30*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "both")
	v.SetDefault("log.file_path", "")
	v.SetDefault("log.max_size", 20)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("log.compress", false)

	v.SetDefault("inventory.devices", []map[string]interface{}{
		{"address": "10.0.0.10", "name": "CORE-SW-01", "class": "nxos"},
		{"address": "10.0.0.11", "name": "CORE-SW-02", "class": "ios"},
		{"address": "10.0.0.12", "name": "DIST-SW-01", "class": "nxos"},
		{"address": "10.0.0.13", "name": "DIST-SW-02", "class": "nxos"},
		{"address": "10.0.0.20", "name": "ISE-PRIMARY", "class": "nxos", "settle_delay": "10s"},
		{"address": "10.0.0.21", "name": "ISE-SECONDARY", "class": "nxos", "settle_delay": "10s"},
		{"address": "10.0.0.30", "name": "ASA-FW-01", "class": "asa"},
		{"address": "10.0.0.31", "name": "ASA-FW-02", "class": "asa"},
		{"address": "10.0.0.40", "name": "EDGE-RTR-01", "class": "ios"},
		{"address": "10.0.0.50", "name": "BACKUP-SERVER", "class": "linux"},
	})
	v.SetDefault("inventory.groups", []map[string]interface{}{
		{"name": "asr-routers", "addresses": []string{"10.0.0.40", "10.0.0.11"}, "credential": "personal"},
		{"name": "nexus-switches", "addresses": []string{"10.0.0.10", "10.0.0.12", "10.0.0.13"}, "credential": "personal"},
		{"name": "ise-appliances", "addresses": []string{"10.0.0.20", "10.0.0.21"}, "credential": "admin"},
		{"name": "asa-firewalls", "addresses": []string{"10.0.0.30", "10.0.0.31"}, "credential": "personal"},
	})

	v.SetDefault("commands.generic", []string{"terminal length 0", "show running-config", "exit"})
	v.SetDefault("commands.firewall_system", []string{"terminal pager 0", "write memory"})
	v.SetDefault("commands.contexts", []string{"SYSTEM", "MGMT", "DMZ", "BACKEND", "FRONTEND"})
	v.SetDefault("commands.context_switch", "changeto context %s")
	v.SetDefault("commands.context_save", "write memory")
	v.SetDefault("commands.context_dump", "show running-config")

	v.SetDefault("upload.server", "10.0.0.50")
	v.SetDefault("upload.port", 22)
	v.SetDefault("upload.username", "backupuser")
	v.SetDefault("upload.audit_command", "ls -l")
	v.SetDefault("upload.verify_count", true)

	v.SetDefault("mirror.enabled", false)
	v.SetDefault("mirror.port", 9000)
	v.SetDefault("mirror.bucket", "network-backups")
	v.SetDefault("mirror.secure", false)

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "")
}
