package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Addr != ":8080" || cfg.Server.WebhookPath != "/webhook" {
		t.Fatalf("server defaults = %+v", cfg.Server)
	}
	if cfg.Moderation.TrustThreshold != 20 || cfg.Moderation.ContextWindow != 5 {
		t.Fatalf("moderation defaults = %+v", cfg.Moderation)
	}
	if cfg.Store.Driver != "memory" {
		t.Fatalf("store driver = %q, want memory", cfg.Store.Driver)
	}
	if d, err := cfg.ClassifierTimeout(); err != nil || d != 30*time.Second {
		t.Fatalf("classifier timeout = %v err=%v, want 30s", d, err)
	}
	if d, err := cfg.ContextRetention(); err != nil || d != 0 {
		t.Fatalf("context retention = %v err=%v, want disabled", d, err)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  addr: ":9090"
moderation:
  trust_threshold: 50
  context_window: 10
store:
  driver: sqlite
  path: /var/lib/modshield/state.db
janitor:
  schedule: "0 3 * * *"
  context_retention: 168h
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
	// Untouched sections keep their defaults.
	if cfg.Server.WebhookPath != "/webhook" {
		t.Fatalf("webhook path = %q, want default", cfg.Server.WebhookPath)
	}
	if cfg.Moderation.TrustThreshold != 50 || cfg.Moderation.ContextWindow != 10 {
		t.Fatalf("moderation = %+v", cfg.Moderation)
	}
	if cfg.Store.Driver != "sqlite" || cfg.Store.Path != "/var/lib/modshield/state.db" {
		t.Fatalf("store = %+v", cfg.Store)
	}
	if d, _ := cfg.ContextRetention(); d != 168*time.Hour {
		t.Fatalf("retention = %v", d)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("modertion:\n  trust_threshold: 5\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("misspelled section accepted")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("moderation:\n  trust_threshold: 50\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CHECK_THRESHOLD", "99")
	t.Setenv("CONTEXT_MESSAGES", "7")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("BOT_USERNAME", "modbot")
	t.Setenv("STORE_DRIVER", "redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Moderation.TrustThreshold != 99 || cfg.Moderation.ContextWindow != 7 {
		t.Fatalf("moderation = %+v", cfg.Moderation)
	}
	if cfg.Telegram.Token != "123:abc" || cfg.Telegram.BotUsername != "modbot" {
		t.Fatalf("telegram = %+v", cfg.Telegram)
	}
	if cfg.Store.Driver != "redis" || cfg.Store.Redis.Addr != "localhost:6379" {
		t.Fatalf("store = %+v", cfg.Store)
	}
}

func TestEnvIgnoresBlankAndGarbage(t *testing.T) {
	t.Setenv("CHECK_THRESHOLD", "not a number")
	t.Setenv("TELEGRAM_BOT_TOKEN", "   ")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Moderation.TrustThreshold != 20 {
		t.Fatalf("threshold = %d, want default kept", cfg.Moderation.TrustThreshold)
	}
	if cfg.Telegram.Token != "" {
		t.Fatalf("token = %q, want blank override ignored", cfg.Telegram.Token)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative threshold", func(c *Config) { c.Moderation.TrustThreshold = -1 }},
		{"zero window", func(c *Config) { c.Moderation.ContextWindow = 0 }},
		{"bad timeout", func(c *Config) { c.Classifier.Timeout = "soonish" }},
		{"negative retention", func(c *Config) { c.Janitor.ContextRetention = "-1h" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.validate(); err == nil {
				t.Fatal("invalid config accepted")
			}
		})
	}
}

func TestRuntimeSnapshot(t *testing.T) {
	cfg := Default()
	cfg.Telegram.BotUsername = "modbot"
	rt := cfg.Runtime()
	if rt.TrustThreshold != 20 || rt.ContextWindow != 5 || rt.BotUsername != "modbot" {
		t.Fatalf("runtime = %+v", rt)
	}
}
