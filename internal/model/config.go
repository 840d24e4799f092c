package model

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Credential backends supported by CredentialConfig.Backend.
const (
	CredentialBackendKeyring = "keyring"
	CredentialBackendSQLite  = "sqlite"
)

// DefaultCredentialKey is the well-known name the access token is stored under.
const DefaultCredentialKey = "access_token"

// ServerConfig describes how to reach the remote mail-indexing service.
type ServerConfig struct {
	// BaseURL is the API root, e.g. http://127.0.0.1:8000/api.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// RegisterKey is the pre-shared authorization value sent with
	// registration requests.
	RegisterKey string `mapstructure:"register_key" yaml:"register_key"`

	// TimeoutSec bounds each HTTP round trip at the transport level.
	// Zero disables the timeout.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// Timeout returns TimeoutSec as a duration.
func (c ServerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// CredentialConfig selects where the access token is persisted.
type CredentialConfig struct {
	// Backend is "keyring" (system keychain) or "sqlite".
	Backend string `mapstructure:"backend" yaml:"backend"`

	// Key is the name the token is stored under.
	Key string `mapstructure:"key" yaml:"key"`

	// FileDir is used by the encrypted-file keyring fallback.
	FileDir string `mapstructure:"file_dir" yaml:"file_dir"`
}

// StorageConfig holds local persistence settings.
type StorageConfig struct {
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

// InboxConfig holds inbox refresh settings.
type InboxConfig struct {
	WatchIntervalSec int `mapstructure:"watch_interval_sec" yaml:"watch_interval_sec"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// SlogLevel maps Level onto a slog level, defaulting to info.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Credential CredentialConfig `mapstructure:"credential" yaml:"credential"`
	Storage    StorageConfig    `mapstructure:"storage" yaml:"storage"`
	Inbox      InboxConfig      `mapstructure:"inbox" yaml:"inbox"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
}

// configDir returns ~/.config/mailclient, or the working directory when
// the home directory cannot be resolved.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "mailclient")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/mailclient/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	dir := configDir()
	return &AppConfig{
		Server: ServerConfig{
			BaseURL:    "http://127.0.0.1:8000/api",
			TimeoutSec: 30,
		},
		Credential: CredentialConfig{
			Backend: CredentialBackendKeyring,
			Key:     DefaultCredentialKey,
			FileDir: filepath.Join(dir, "credentials"),
		},
		Storage: StorageConfig{
			DBPath: filepath.Join(dir, "mailclient.db"),
		},
		Inbox: InboxConfig{
			WatchIntervalSec: 60,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// newViper returns a viper instance with defaults and MAILCLIENT_*
// environment overrides registered.
func newViper(path string) *viper.Viper {
	def := defaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Every key needs a default so AutomaticEnv can resolve it on Unmarshal.
	v.SetDefault("server.base_url", def.Server.BaseURL)
	v.SetDefault("server.register_key", def.Server.RegisterKey)
	v.SetDefault("server.timeout_sec", def.Server.TimeoutSec)
	v.SetDefault("credential.backend", def.Credential.Backend)
	v.SetDefault("credential.key", def.Credential.Key)
	v.SetDefault("credential.file_dir", def.Credential.FileDir)
	v.SetDefault("storage.db_path", def.Storage.DBPath)
	v.SetDefault("inbox.watch_interval_sec", def.Inbox.WatchIntervalSec)
	v.SetDefault("log.level", def.Log.Level)

	v.SetEnvPrefix("MAILCLIENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, defaults (plus environment overrides) are used.
func LoadConfig(path string) (*AppConfig, error) {
	v := newViper(path)

	if err := v.ReadInConfig(); err != nil {
		_, isPathErr := err.(*os.PathError)
		_, isNotFound := err.(viper.ConfigFileNotFoundError)
		if !isPathErr && !isNotFound {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}

	cfg.Server.BaseURL = strings.TrimRight(cfg.Server.BaseURL, "/")
	if cfg.Credential.Key == "" {
		cfg.Credential.Key = DefaultCredentialKey
	}

	return cfg, nil
}

// Validate checks settings that cannot be defaulted.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.Server.BaseURL) == "" {
		return fmt.Errorf("server.base_url is required")
	}
	switch c.Credential.Backend {
	case CredentialBackendKeyring, CredentialBackendSQLite:
	default:
		return fmt.Errorf(
			"credential.backend must be %q or %q, got %q",
			CredentialBackendKeyring, CredentialBackendSQLite,
			c.Credential.Backend,
		)
	}
	if c.Server.TimeoutSec < 0 {
		return fmt.Errorf("server.timeout_sec must not be negative")
	}
	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("server", cfg.Server)
	v.Set("credential", cfg.Credential)
	v.Set("storage", cfg.Storage)
	v.Set("inbox", cfg.Inbox)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
