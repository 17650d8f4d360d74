package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

// Config holds all configuration for the curation bot
type Config struct {
	General     GeneralConfig     `mapstructure:"general"`
	Server      ServerConfig      `mapstructure:"server"`
	Curation    CurationConfig    `mapstructure:"curation"`
	Source      SourceConfig      `mapstructure:"source"`
	Operator    OperatorConfig    `mapstructure:"operator"`
	Destination DestinationConfig `mapstructure:"destination"`
	Schedule    ScheduleConfig    `mapstructure:"schedule"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug  bool   `mapstructure:"debug"`
	Listen string `mapstructure:"listen"`
}

// ServerConfig contains HTTP auth settings
type ServerConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// CurationConfig tunes the approval workflow.
type CurationConfig struct {
	BatchSize       int           `mapstructure:"batch_size"`
	RetryMultiplier int           `mapstructure:"retry_multiplier"`
	Timeout         time.Duration `mapstructure:"timeout"`
	RepromptTimeout time.Duration `mapstructure:"reprompt_timeout"`
	PublishTimeout  time.Duration `mapstructure:"publish_timeout"`
	Gestures        bool          `mapstructure:"gestures"`
	DedupTimezone   string        `mapstructure:"dedup_timezone"`
}

// Normalize fills zero values with defaults.
func (c CurationConfig) Normalize() CurationConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = 5
	}
	if c.RetryMultiplier <= 0 {
		c.RetryMultiplier = 3
	}
	if c.Timeout <= 0 {
		c.Timeout = time.Hour
	}
	if c.RepromptTimeout <= 0 {
		c.RepromptTimeout = c.Timeout
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = 30 * time.Second
	}
	c.DedupTimezone = strings.TrimSpace(c.DedupTimezone)
	if c.DedupTimezone == "" {
		c.DedupTimezone = "Europe/Paris"
	}
	return c
}

func (c CurationConfig) Validate() error {
	if c.BatchSize > 25 {
		return fmt.Errorf("curation.batch_size must be <= 25")
	}
	if c.RetryMultiplier > 10 {
		return fmt.Errorf("curation.retry_multiplier must be between 1 and 10")
	}
	if c.RepromptTimeout > c.Timeout {
		return fmt.Errorf("curation.reprompt_timeout cannot exceed curation.timeout")
	}
	if _, err := time.LoadLocation(c.DedupTimezone); err != nil {
		return fmt.Errorf("curation.dedup_timezone: %w", err)
	}
	return nil
}

// SourceConfig points at the content source
type SourceConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
	// AllowNSFW keeps posts the source flags as nsfw or spoiler.
	AllowNSFW bool `mapstructure:"allow_nsfw"`
}

func (s SourceConfig) Validate() error {
	if strings.TrimSpace(s.Endpoint) == "" {
		return fmt.Errorf("source.endpoint required")
	}
	return nil
}

// OperatorConfig identifies the single designated reviewer.
type OperatorConfig struct {
	ID         string        `mapstructure:"id"`
	ChannelID  string        `mapstructure:"channel_id"`
	WebhookURL string        `mapstructure:"webhook_url"`
	Username   string        `mapstructure:"username"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

func (o OperatorConfig) Validate() error {
	if strings.TrimSpace(o.ID) == "" {
		return fmt.Errorf("operator.id required")
	}
	if strings.TrimSpace(o.ChannelID) == "" {
		return fmt.Errorf("operator.channel_id required")
	}
	return nil
}

// DestinationConfig is where approved items are published.
type DestinationConfig struct {
	WebhookURL string        `mapstructure:"webhook_url"`
	Username   string        `mapstructure:"username"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Footer     string        `mapstructure:"footer"`
}

// ScheduleConfig controls the daily trigger.
type ScheduleConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Cron     string `mapstructure:"cron"`
	Timezone string `mapstructure:"timezone"`
	Category string `mapstructure:"category"`
}

func (s ScheduleConfig) Validate() error {
	if !s.Enabled {
		return nil
	}
	if strings.TrimSpace(s.Cron) == "" {
		return fmt.Errorf("schedule.cron required when schedule is enabled")
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	return nil
}

// StorageConfig contains dedup backend settings
type StorageConfig struct {
	DedupBackend string      `mapstructure:"dedup_backend"`
	Redis        RedisConfig `mapstructure:"redis"`
}

func (s StorageConfig) Validate() error {
	switch s.DedupBackend {
	case "memory":
		return nil
	case "redis":
		return s.Redis.Validate()
	default:
		return fmt.Errorf("storage.dedup_backend must be memory or redis, got %q", s.DedupBackend)
	}
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether enough is configured to dial redis.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Host) != "" && strings.TrimSpace(r.Port) != ""
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("storage.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	return nil
}

// TelemetryConfig toggles the prometheus endpoint
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Validate runs every section validator.
func (c *Config) Validate() error {
	validators := []func() error{
		c.Curation.Validate,
		c.Source.Validate,
		c.Operator.Validate,
		c.Schedule.Validate,
		c.Storage.Validate,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.debug", false)
	v.SetDefault("general.listen", ":10001")
	v.SetDefault("curation.batch_size", 5)
	v.SetDefault("curation.retry_multiplier", 3)
	v.SetDefault("curation.timeout", time.Hour)
	v.SetDefault("curation.publish_timeout", 30*time.Second)
	v.SetDefault("curation.gestures", true)
	v.SetDefault("curation.dedup_timezone", "Europe/Paris")
	v.SetDefault("source.endpoint", "https://meme-api.com/gimme")
	v.SetDefault("source.timeout", 10*time.Second)
	v.SetDefault("source.allow_nsfw", false)
	v.SetDefault("operator.username", "Curator")
	v.SetDefault("operator.timeout", 10*time.Second)
	v.SetDefault("destination.username", "Curator")
	v.SetDefault("destination.timeout", 10*time.Second)
	v.SetDefault("destination.footer", "*“It’s not really magic, it’s just a bit of wizardry!”*")
	v.SetDefault("schedule.enabled", true)
	v.SetDefault("schedule.cron", "0 20 * * *")
	v.SetDefault("schedule.timezone", "Europe/Paris")
	v.SetDefault("storage.dedup_backend", "memory")
	v.SetDefault("storage.redis.port", "6379")
	v.SetDefault("storage.redis.timeout", 5*time.Second)
	v.SetDefault("telemetry.enabled", true)
}

// LoadConfig loads config from file and CURATOR_* env overrides.
// A missing config file is tolerated when path is empty.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("json")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		v.AddConfigPath(exeDir)
		v.AddConfigPath(filepath.Join(exeDir, ".."))
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("CURATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Curation = cfg.Curation.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// AutomaticEnv only resolves keys viper already knows about, so keys without
// defaults need explicit bindings to be settable from the environment alone.
func bindEnv(v *viper.Viper) {
	for _, key := range []string{
		"server.jwt_secret",
		"operator.id",
		"operator.channel_id",
		"operator.webhook_url",
		"destination.webhook_url",
		"schedule.category",
		"storage.redis.host",
		"storage.redis.password",
		"storage.redis.db",
		"curation.reprompt_timeout",
	} {
		_ = v.BindEnv(key)
	}
}
