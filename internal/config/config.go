package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

// global configuration structure
type Config struct {
	Bot      BotConfig      `mapstructure:"bot"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Sanction SanctionConfig `mapstructure:"sanction"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// Telegram bot configuration
type BotConfig struct {
	Token   string        `mapstructure:"token"`
	GroupID int64         `mapstructure:"group_id"`
	Webhook WebhookConfig `mapstructure:"webhook"`
	// Bot API calls per second made by the sanction engine; 0 disables the limit
	APIRateLimit float64 `mapstructure:"api_rate_limit"`
}

// webhook server configuration
type WebhookConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	ListenPort string `mapstructure:"listen_port"`
	CertFile   string `mapstructure:"cert_file"`
	KeyFile    string `mapstructure:"key_file"`
}

// logging configuration
type LoggerConfig struct {
	Directory string            `mapstructure:"directory"`
	Rotation  LogRotationConfig `mapstructure:"rotation"`
	Level     string            `mapstructure:"level"`
}

// log rotation settings
type LogRotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// DatabaseConfig selects the SQL backend for sanction records.
// Driver is one of mysql, postgres or sqlite; Path is only used by sqlite.
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	Charset  string `mapstructure:"charset"`
	Path     string `mapstructure:"path"`
}

// RedisConfig enables the redis sanction store. It takes precedence over
// the SQL database for sanction records when enabled.
type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Prefix  string `mapstructure:"prefix"`
}

// temporary sanction settings
type SanctionConfig struct {
	MutedRole       string        `mapstructure:"muted_role"`
	DefaultDuration time.Duration `mapstructure:"default_duration"`
	ResolveTimeout  time.Duration `mapstructure:"resolve_timeout"`
}

type MetricsConfig struct {
	Path string `mapstructure:"path"`
}

var cfg *Config

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("config file path is required")
	}

	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	log.Printf("Using config file: %s", v.ConfigFileUsed())

	loaded := &Config{}
	if err := v.Unmarshal(loaded); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := loaded.Validate(); err != nil {
		return nil, err
	}

	cfg = loaded
	return cfg, nil
}

func Get() *Config {
	if cfg == nil {
		log.Fatal("Configuration not initialized, call Load() first")
	}
	return cfg
}

// Validate checks the settings the sanction engine cannot run without.
func (c *Config) Validate() error {
	if c.Sanction.MutedRole == "" {
		return fmt.Errorf("sanction.muted_role is required")
	}
	if c.Sanction.DefaultDuration <= 0 {
		return fmt.Errorf("sanction.default_duration must be positive, got %s", c.Sanction.DefaultDuration)
	}
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}
	if c.Redis.Enabled && c.Redis.URL == "" {
		return fmt.Errorf("redis.url is required when redis is enabled")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.group_id", -1)
	v.SetDefault("bot.api_rate_limit", 20)
	v.SetDefault("bot.webhook.listen_port", "8443")
	v.SetDefault("bot.webhook.cert_file", "")
	v.SetDefault("bot.webhook.key_file", "")

	v.SetDefault("logger.directory", "logs")
	v.SetDefault("logger.rotation.max_size", 10)
	v.SetDefault("logger.rotation.max_backups", 30)
	v.SetDefault("logger.rotation.max_age", 90)
	v.SetDefault("logger.rotation.compress", true)
	v.SetDefault("logger.level", "INFO")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.path", "data/sanctions.db")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.prefix", "sanction")

	v.SetDefault("sanction.muted_role", "muted")
	v.SetDefault("sanction.default_duration", "1h")
	v.SetDefault("sanction.resolve_timeout", "30s")

	v.SetDefault("metrics.path", "/metrics")
}
