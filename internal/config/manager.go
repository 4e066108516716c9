package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	logx "modshield/pkg/logx"
)

// Manager holds the current config and hot-reloads the YAML file on change.
// Only the Runtime knobs take effect without a restart; wiring-level settings
// (store driver, listen address, tokens) are applied at startup only.
type Manager struct {
	path string
	log  logx.Logger

	mu  sync.RWMutex
	cfg Config
}

func NewManager(path string, initial Config, log logx.Logger) *Manager {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Manager{path: path, log: log, cfg: initial}
}

func (m *Manager) Config() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Manager) Runtime() Runtime {
	return m.Config().Runtime()
}

// Watch re-reads the config file whenever it changes, until ctx is done.
// Watching the parent directory survives editors that replace the file.
// A no-op when no config file was given.
func (m *Manager) Watch(ctx context.Context) error {
	if m.path == "" {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(m.path)); err != nil {
		_ = w.Close()
		return err
	}

	go func() {
		defer w.Close()

		// Debounce: editors fire several events per save.
		var pending <-chan time.Time
		target := filepath.Clean(m.path)

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				pending = time.After(200 * time.Millisecond)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				m.log.Warn("config watcher error", logx.Err(err))
			case <-pending:
				pending = nil
				m.reload()
			}
		}
	}()
	return nil
}

func (m *Manager) reload() {
	cfg, err := Load(m.path)
	if err != nil {
		// Keep the last good config.
		m.log.Error("config reload rejected", logx.Err(err))
		return
	}

	m.mu.Lock()
	old := m.cfg.Runtime()
	if cfg.Telegram.BotUsername == "" {
		// Keep the identity resolved at startup.
		cfg.Telegram.BotUsername = m.cfg.Telegram.BotUsername
	}
	m.cfg = cfg
	m.mu.Unlock()

	now := cfg.Runtime()
	if old != now {
		m.log.Info("config reloaded",
			logx.Int("trust_threshold", now.TrustThreshold),
			logx.Int("context_window", now.ContextWindow),
		)
	}
}

// SetBotUsername fills in the resolved bot identity when the config left it
// empty. Called once at startup.
func (m *Manager) SetBotUsername(username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cfg.Telegram.BotUsername == "" {
		m.cfg.Telegram.BotUsername = username
	}
}
