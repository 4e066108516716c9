// Package config assembles modshield's configuration: built-in defaults,
// an optional YAML file, and environment overrides (highest precedence).
// The tunable moderation knobs are exposed as an immutable Runtime snapshot
// so the engine never reads ambient global state.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Moderation ModerationConfig `yaml:"moderation"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Store      StoreConfig      `yaml:"store"`
	Logging    LoggingConfig    `yaml:"logging"`
	Events     EventsConfig     `yaml:"events"`
	Janitor    JanitorConfig    `yaml:"janitor"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	WebhookPath string `yaml:"webhook_path"`
	// Pprof mounts net/http/pprof under /debug. Keep off on public hosts.
	Pprof bool `yaml:"pprof"`
}

type TelegramConfig struct {
	Token string `yaml:"token"`
	// BotUsername disambiguates suffix-qualified commands ("/cmd@bot").
	// Empty means: resolve from the bot identity at startup.
	BotUsername string `yaml:"bot_username"`
}

type ModerationConfig struct {
	// TrustThreshold is the clean-message count a user must exceed
	// (strictly) to bypass classification.
	TrustThreshold int `yaml:"trust_threshold"`
	// ContextWindow caps the rolling per-chat message history handed to
	// the classifier.
	ContextWindow int `yaml:"context_window"`
}

type ClassifierConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	// Timeout is a Go duration string (e.g. "30s").
	Timeout string `yaml:"timeout"`
}

type StoreConfig struct {
	Driver string      `yaml:"driver"` // memory | sqlite | redis
	Path   string      `yaml:"path"`   // sqlite file
	Redis  RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type LoggingConfig struct {
	Level   string        `yaml:"level"`
	Console bool          `yaml:"console"`
	File    LogFileConfig `yaml:"file"`
}

type LogFileConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type EventsConfig struct {
	NATSURL    string `yaml:"nats_url"` // empty disables event publishing
	ClientName string `yaml:"client_name"`
}

type JanitorConfig struct {
	// Schedule is a robfig/cron spec ("@daily", "0 3 * * *", ...).
	Schedule string `yaml:"schedule"`
	// ContextRetention is a Go duration string; context windows idle for
	// longer are pruned (sqlite driver only). "0" disables pruning.
	ContextRetention string `yaml:"context_retention"`
}

// Runtime is the immutable per-update snapshot of the hot-reloadable knobs.
type Runtime struct {
	TrustThreshold int
	ContextWindow  int
	BotUsername    string
}

func (c Config) Runtime() Runtime {
	return Runtime{
		TrustThreshold: c.Moderation.TrustThreshold,
		ContextWindow:  c.Moderation.ContextWindow,
		BotUsername:    c.Telegram.BotUsername,
	}
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:        ":8080",
			WebhookPath: "/webhook",
		},
		Moderation: ModerationConfig{
			TrustThreshold: 20,
			ContextWindow:  5,
		},
		Classifier: ClassifierConfig{
			Timeout: "30s",
		},
		Store: StoreConfig{
			Driver: "memory",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
		Janitor: JanitorConfig{
			Schedule: "@daily",
		},
	}
}

// Load builds the effective config: defaults, then the YAML file at path
// (if path is non-empty), then environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		dec := yaml.NewDecoder(strings.NewReader(string(b)))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables. The moderation knob names match
// the historical deployment (CHECK_THRESHOLD, CONTEXT_MESSAGES).
func (c *Config) applyEnv() {
	setStr(&c.Telegram.Token, "TELEGRAM_BOT_TOKEN")
	setStr(&c.Telegram.BotUsername, "BOT_USERNAME")
	setInt(&c.Moderation.TrustThreshold, "CHECK_THRESHOLD")
	setInt(&c.Moderation.ContextWindow, "CONTEXT_MESSAGES")

	setStr(&c.Server.Addr, "LISTEN_ADDR")
	setStr(&c.Server.WebhookPath, "WEBHOOK_PATH")

	setStr(&c.Classifier.APIKey, "OPENAI_API_KEY")
	setStr(&c.Classifier.BaseURL, "OPENAI_BASE_URL")
	setStr(&c.Classifier.Model, "OPENAI_MODEL")

	setStr(&c.Store.Driver, "STORE_DRIVER")
	setStr(&c.Store.Path, "STORE_PATH")
	setStr(&c.Store.Redis.Addr, "REDIS_ADDR")
	setStr(&c.Store.Redis.Password, "REDIS_PASSWORD")
	setInt(&c.Store.Redis.DB, "REDIS_DB")
	setStr(&c.Store.Redis.Prefix, "REDIS_PREFIX")

	setStr(&c.Logging.Level, "LOG_LEVEL")
	setStr(&c.Events.NATSURL, "NATS_URL")
}

func (c Config) validate() error {
	if c.Moderation.TrustThreshold < 0 {
		return fmt.Errorf("moderation.trust_threshold must be >= 0")
	}
	if c.Moderation.ContextWindow < 1 {
		return fmt.Errorf("moderation.context_window must be >= 1")
	}
	if _, err := c.ClassifierTimeout(); err != nil {
		return err
	}
	if _, err := c.ContextRetention(); err != nil {
		return err
	}
	return nil
}

// ClassifierTimeout parses the classifier timeout duration.
func (c Config) ClassifierTimeout() (time.Duration, error) {
	return parseDuration(c.Classifier.Timeout, "classifier.timeout")
}

// ContextRetention parses the janitor retention duration. Zero disables.
func (c Config) ContextRetention() (time.Duration, error) {
	return parseDuration(c.Janitor.ContextRetention, "janitor.context_retention")
}

func parseDuration(s, field string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", field)
	}
	return d, nil
}

func setStr(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setInt(dst *int, key string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return
	}
	*dst = n
}
