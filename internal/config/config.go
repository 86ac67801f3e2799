package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// defaultToleranceSeconds bounds the replay window when no override is set.
const defaultToleranceSeconds = 300

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type WebhookConfig struct {
	// Secret is the shared secret from the Tailscale admin console.
	Secret string `mapstructure:"secret"`
	// ToleranceSeconds is the accepted age of a signed timestamp.
	ToleranceSeconds int `mapstructure:"-"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from an optional YAML file with HOOKLINE_
// environment variables taking precedence. Missing required values are
// startup errors: the process must refuse to run half-configured.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	// Empty defaults register the keys so AutomaticEnv can satisfy them.
	v.SetDefault("webhook.secret", "")
	v.SetDefault("webhook.timestamp_tolerance", strconv.Itoa(defaultToleranceSeconds))
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", "redis://localhost:6379")
	v.SetDefault("ratelimit.enabled", false)
	v.SetDefault("ratelimit.requests", 120)
	v.SetDefault("ratelimit.window", "1m")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/hookline")
	}

	// Environment variables override: HOOKLINE_WEBHOOK_SECRET etc.
	v.SetEnvPrefix("HOOKLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; use defaults and environment
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Webhook.ToleranceSeconds = parseTolerance(v.GetString("webhook.timestamp_tolerance"))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// parseTolerance falls back to the default on garbage input instead of
// refusing to start; a bad tolerance only widens or narrows the replay
// window, it does not make the service unsafe to run.
func parseTolerance(raw string) int {
	tolerance, err := strconv.Atoi(raw)
	if err != nil || tolerance < 0 {
		slog.Warn("invalid webhook timestamp tolerance, using default",
			slog.String("value", raw),
			slog.Int("default", defaultToleranceSeconds),
		)
		return defaultToleranceSeconds
	}
	return tolerance
}

func (c *Config) validate() error {
	if c.Webhook.Secret == "" {
		return errors.New("webhook.secret is required (HOOKLINE_WEBHOOK_SECRET)")
	}
	if c.Telegram.BotToken == "" {
		return errors.New("telegram.bot_token is required (HOOKLINE_TELEGRAM_BOT_TOKEN)")
	}
	if c.Telegram.ChatID == "" {
		return errors.New("telegram.chat_id is required (HOOKLINE_TELEGRAM_CHAT_ID)")
	}
	return nil
}
