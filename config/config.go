package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Engine      EngineConfig      `yaml:"engine"`
	Zones       []ZoneConfig      `yaml:"zones"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	Push        PushConfig        `yaml:"push"`
	WorkerPool  WorkerPoolConfig  `yaml:"worker_pool"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // "sqlite" or "postgres"
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// EngineConfig holds the lifecycle simulation constants.
//
// The hunger threshold and feed extension are deliberately a single fixed
// pair of durations, so hunger and departure times are always computed from
// one documented place.
type EngineConfig struct {
	HungerThresholdHours int `yaml:"hunger_threshold_hours"`
	FeedExtensionHours   int `yaml:"feed_extension_hours"`
	EventRetentionHours  int `yaml:"event_retention_hours"`

	HungerThreshold time.Duration `yaml:"-"`
	FeedExtension   time.Duration `yaml:"-"`
	EventRetention  time.Duration `yaml:"-"`
}

// ZoneConfig defines one zone of the habitat schema. Zones are identical
// across all tenants.
type ZoneConfig struct {
	Name     string `yaml:"name"`
	Capacity int    `yaml:"capacity"`
	Habitat  string `yaml:"habitat"`
}

// MaintenanceConfig holds the periodic maintenance job configuration.
type MaintenanceConfig struct {
	Enabled         bool          `yaml:"enabled"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns a configuration with every default applied, suitable for
// tests and for running without a config file.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "habitat.db"
	}

	if cfg.Engine.HungerThresholdHours <= 0 {
		cfg.Engine.HungerThresholdHours = 12
	}
	if cfg.Engine.FeedExtensionHours <= 0 {
		cfg.Engine.FeedExtensionHours = 6
	}
	if cfg.Engine.EventRetentionHours <= 0 {
		cfg.Engine.EventRetentionHours = 72
	}
	cfg.Engine.HungerThreshold = time.Duration(cfg.Engine.HungerThresholdHours) * time.Hour
	cfg.Engine.FeedExtension = time.Duration(cfg.Engine.FeedExtensionHours) * time.Hour
	cfg.Engine.EventRetention = time.Duration(cfg.Engine.EventRetentionHours) * time.Hour

	if len(cfg.Zones) == 0 {
		cfg.Zones = []ZoneConfig{
			{Name: "forest", Capacity: 5, Habitat: "forest"},
			{Name: "grassland", Capacity: 5, Habitat: "grassland"},
			{Name: "waterside", Capacity: 5, Habitat: "waterside"},
		}
	}

	if cfg.Maintenance.IntervalSeconds <= 0 {
		cfg.Maintenance.IntervalSeconds = 3600
	}
	cfg.Maintenance.Interval = time.Duration(cfg.Maintenance.IntervalSeconds) * time.Second

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
}
