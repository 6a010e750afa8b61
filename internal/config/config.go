// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Database DatabaseConfig `mapstructure:"database"`
	Session  SessionConfig  `mapstructure:"session"`
	Pace     PaceConfig     `mapstructure:"pace"`
	Retry    RetryConfig    `mapstructure:"retry"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// DatabaseConfig controls access to Postgres. An empty DSN runs the service
// against the in-memory store.
type DatabaseConfig struct {
	DSN             string `mapstructure:"dsn"`
	MaxConns        int    `mapstructure:"max_conns"`
	MinConns        int    `mapstructure:"min_conns"`
	ConnLifetimeMin int    `mapstructure:"conn_lifetime_minutes"`
}

// SessionConfig configures the headless browser session used for the
// rankings family.
type SessionConfig struct {
	EntryURL       string `mapstructure:"entry_url"`
	UserAgent      string `mapstructure:"user_agent"`
	NavTimeoutSec  int    `mapstructure:"nav_timeout_seconds"`
	RenderSettleMs int    `mapstructure:"render_settle_ms"`
}

// PaceConfig sets the fixed delays between remote page loads.
type PaceConfig struct {
	DelayMs          int `mapstructure:"delay_ms"`
	PostErrorDelayMs int `mapstructure:"post_error_delay_ms"`
}

// RetryConfig bounds per-item retries.
type RetryConfig struct {
	MaxRetries  int `mapstructure:"max_retries"`
	BaseDelayMs int `mapstructure:"base_delay_ms"`
}

// SyncConfig governs the crawl space defaults.
type SyncConfig struct {
	WeekStart int `mapstructure:"week_start"`
	WeekEnd   int `mapstructure:"week_end"`
}

// ArchiveConfig selects the raw page snapshot backend.
type ArchiveConfig struct {
	Backend   string `mapstructure:"backend"` // none, local, gcs
	LocalDir  string `mapstructure:"local_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
}

// PubSubConfig holds metadata for job lifecycle notifications.
type PubSubConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AFTT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.max_conns", 8)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.conn_lifetime_minutes", 30)
	v.SetDefault("session.nav_timeout_seconds", 30)
	v.SetDefault("session.render_settle_ms", 500)
	v.SetDefault("pace.delay_ms", 500)
	v.SetDefault("pace.post_error_delay_ms", 2000)
	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.base_delay_ms", 2000)
	v.SetDefault("sync.week_start", 1)
	v.SetDefault("sync.week_end", 22)
	v.SetDefault("archive.backend", "none")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Retry.MaxRetries <= 0 {
		return fmt.Errorf("retry.max_retries must be > 0")
	}
	if c.Pace.DelayMs < 0 || c.Pace.PostErrorDelayMs < 0 {
		return fmt.Errorf("pace.delay_ms must be >= 0")
	}
	if c.Sync.WeekStart < 1 || c.Sync.WeekEnd < c.Sync.WeekStart {
		return fmt.Errorf("sync.week_start must be >= 1 and <= sync.week_end")
	}
	switch c.Archive.Backend {
	case "", "none", "local", "gcs":
	default:
		return fmt.Errorf("archive.backend must be one of none, local, gcs")
	}
	if c.Archive.Backend == "local" && c.Archive.LocalDir == "" {
		return fmt.Errorf("archive.local_dir must be set for the local backend")
	}
	if c.Archive.Backend == "gcs" && c.Archive.GCSBucket == "" {
		return fmt.Errorf("archive.gcs_bucket must be set for the gcs backend")
	}
	if c.PubSub.Enabled && (c.PubSub.ProjectID == "" || c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set when pubsub is enabled")
	}
	return nil
}

// Weeks expands the configured week range.
func (c Config) Weeks() []int {
	out := make([]int, 0, c.Sync.WeekEnd-c.Sync.WeekStart+1)
	for w := c.Sync.WeekStart; w <= c.Sync.WeekEnd; w++ {
		out = append(out, w)
	}
	return out
}

// PaceDelay returns the steady inter-page delay.
func (c Config) PaceDelay() time.Duration {
	return time.Duration(c.Pace.DelayMs) * time.Millisecond
}

// PostErrorDelay returns the extra delay after a failed work item.
func (c Config) PostErrorDelay() time.Duration {
	return time.Duration(c.Pace.PostErrorDelayMs) * time.Millisecond
}

// RetryBaseDelay returns the exponential backoff base.
func (c Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.Retry.BaseDelayMs) * time.Millisecond
}
