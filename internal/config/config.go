package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Backend  BackendConfig
	Database DatabaseConfig
	Sync     SyncConfig
	UI       UIConfig
	Log      LogConfig
}

// BackendConfig holds the node and explorer endpoints.
type BackendConfig struct {
	GraphQLURL       string        `mapstructure:"graphql_url"`
	SubscriptionsURL string        `mapstructure:"subscriptions_url"`
	APIURL           string        `mapstructure:"api_url"`
	InsightURL       string        `mapstructure:"insight_url"`
	Timeout          time.Duration `mapstructure:"timeout"`
	Retries          uint64        `mapstructure:"retries"`
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path       string
	Migrations string
	KeepBlocks int64 `mapstructure:"keep_blocks"`
}

// SyncConfig controls how often balances are refreshed.
type SyncConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Subscribe    bool
}

// UIConfig holds presentation settings. Widths are terminal columns.
type UIConfig struct {
	DesktopWidth int    `mapstructure:"desktop_width"`
	TabletWidth  int    `mapstructure:"tablet_width"`
	DefaultTab   string `mapstructure:"default_tab"`
	Sort         string
	Timezone     string
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level       string
	File        string
	Environment string
}

func dataDir() string {
	return filepath.Join(os.Getenv("HOME"), ".local", "share", "bodhiwallet")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend.graphql_url", "http://127.0.0.1:19947/graphql")
	v.SetDefault("backend.subscriptions_url", "ws://127.0.0.1:19947/subscriptions")
	v.SetDefault("backend.api_url", "http://127.0.0.1:19947")
	v.SetDefault("backend.insight_url", "https://explorer.berycoin.com/insight-api")
	v.SetDefault("backend.timeout", "15s")
	v.SetDefault("backend.retries", 3)
	v.SetDefault("database.path", filepath.Join(dataDir(), "bodhiwallet.db"))
	v.SetDefault("database.migrations", "internal/database/migrations")
	v.SetDefault("database.keep_blocks", 2000)
	v.SetDefault("sync.poll_interval", "5s")
	v.SetDefault("sync.subscribe", true)
	v.SetDefault("ui.desktop_width", 120)
	v.SetDefault("ui.tablet_width", 80)
	v.SetDefault("ui.default_tab", "bet")
	v.SetDefault("ui.sort", "ASC")
	v.SetDefault("ui.timezone", "Local")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", filepath.Join(dataDir(), "bodhiwallet.log"))
	v.SetDefault("log.environment", "prod")
}

// Load reads configuration from file and env. Env var overrides use prefix BODHIWALLET_.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")

	cfgPath := os.Getenv("BODHIWALLET_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "bodhiwallet"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("BODHIWALLET")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects settings the app cannot run with.
func (c Config) Validate() error {
	if c.UI.TabletWidth <= 0 || c.UI.DesktopWidth <= c.UI.TabletWidth {
		return fmt.Errorf("ui: desktop_width (%d) must exceed tablet_width (%d) > 0", c.UI.DesktopWidth, c.UI.TabletWidth)
	}
	if c.Sync.PollInterval <= 0 {
		return fmt.Errorf("sync: poll_interval must be positive")
	}
	if c.Backend.GraphQLURL == "" {
		return fmt.Errorf("backend: graphql_url is required")
	}
	return nil
}

// Path is the config file Load reads and Save writes.
func Path() string {
	if path := os.Getenv("BODHIWALLET_CONFIG"); path != "" {
		return path
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "bodhiwallet", "config.toml")
}

// EnsureFile writes cfg to Path when no config file exists yet, so a first
// run leaves an editable file behind. It reports whether it wrote one.
func EnsureFile(cfg Config) (bool, error) {
	_, err := os.Stat(Path())
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat config: %w", err)
	}
	if err := Save(cfg); err != nil {
		return false, err
	}
	return true, nil
}

// Save writes the provided config to disk, creating the config directory if needed.
func Save(cfg Config) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("backend.graphql_url", cfg.Backend.GraphQLURL)
	v.Set("backend.subscriptions_url", cfg.Backend.SubscriptionsURL)
	v.Set("backend.api_url", cfg.Backend.APIURL)
	v.Set("backend.insight_url", cfg.Backend.InsightURL)
	v.Set("backend.timeout", cfg.Backend.Timeout.String())
	v.Set("backend.retries", cfg.Backend.Retries)
	v.Set("database.path", cfg.Database.Path)
	v.Set("database.migrations", cfg.Database.Migrations)
	v.Set("database.keep_blocks", cfg.Database.KeepBlocks)
	v.Set("sync.poll_interval", cfg.Sync.PollInterval.String())
	v.Set("sync.subscribe", cfg.Sync.Subscribe)
	v.Set("ui.desktop_width", cfg.UI.DesktopWidth)
	v.Set("ui.tablet_width", cfg.UI.TabletWidth)
	v.Set("ui.default_tab", cfg.UI.DefaultTab)
	v.Set("ui.sort", cfg.UI.Sort)
	v.Set("ui.timezone", cfg.UI.Timezone)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.file", cfg.Log.File)
	v.Set("log.environment", cfg.Log.Environment)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
