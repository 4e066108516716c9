// Package app wires the moderation bot together: config, logging, state
// store, gateways, engine, dispatcher, HTTP shell, and the maintenance cron.
package app

import (
	"context"
	"errors"
	"fmt"

	"modshield/internal/classify"
	"modshield/internal/config"
	"modshield/internal/dispatch"
	"modshield/internal/engine"
	"modshield/internal/events"
	"modshield/internal/server"
	"modshield/internal/state"
	"modshield/internal/store"
	"modshield/internal/telegram"
	logx "modshield/pkg/logx"
)

type App struct {
	manager  *config.Manager
	log      logx.Logger
	logClose logx.CloseFunc

	kv      store.KV
	events  events.Publisher
	server  *server.Server
	janitor *janitor
}

// New builds the full application from the config file at cfgPath (optional)
// plus environment overrides.
func New(cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if cfg.Telegram.Token == "" {
		return nil, errors.New("telegram token is required (telegram.token / TELEGRAM_BOT_TOKEN)")
	}

	log, logClose, err := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	if err != nil {
		return nil, err
	}

	a := &App{log: log, logClose: logClose}
	ok := false
	defer func() {
		if !ok {
			a.closeAll()
		}
	}()

	a.kv, err = store.Open(store.Config{
		Driver:        cfg.Store.Driver,
		Path:          cfg.Store.Path,
		RedisAddr:     cfg.Store.Redis.Addr,
		RedisPassword: cfg.Store.Redis.Password,
		RedisDB:       cfg.Store.Redis.DB,
		RedisPrefix:   cfg.Store.Redis.Prefix,
	}, log.With(logx.String("comp", "store")))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	gw, err := telegram.New(cfg.Telegram.Token, log.With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, fmt.Errorf("telegram gateway: %w", err)
	}

	a.manager = config.NewManager(cfgPath, cfg, log.With(logx.String("comp", "config")))
	a.manager.SetBotUsername(gw.Username())

	timeout, err := cfg.ClassifierTimeout()
	if err != nil {
		return nil, err
	}
	cl := classify.NewClient(classify.Config{
		APIKey:  cfg.Classifier.APIKey,
		BaseURL: cfg.Classifier.BaseURL,
		Model:   cfg.Classifier.Model,
		Timeout: timeout,
	})

	a.events, err = events.Connect(events.Config{
		URL:  cfg.Events.NATSURL,
		Name: cfg.Events.ClientName,
	}, log.With(logx.String("comp", "events")))
	if err != nil {
		return nil, fmt.Errorf("connect events: %w", err)
	}

	st := state.New(a.kv)
	eng := engine.New(st, cl, gw, a.events, log.With(logx.String("comp", "engine")))
	disp := dispatch.New(eng, st, gw, a.manager.Runtime, log.With(logx.String("comp", "dispatch")))
	a.server = server.New(cfg.Server, disp, log.With(logx.String("comp", "http")))

	retention, err := cfg.ContextRetention()
	if err != nil {
		return nil, err
	}
	a.janitor = newJanitor(a.kv, cfg.Janitor.Schedule, retention, log.With(logx.String("comp", "janitor")))

	ok = true
	return a, nil
}

// Run serves until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if err := a.manager.Watch(ctx); err != nil {
		a.log.Warn("config watch unavailable", logx.Err(err))
	}
	a.janitor.start()
	defer a.closeAll()

	return a.server.Run(ctx)
}

func (a *App) closeAll() {
	if a.janitor != nil {
		a.janitor.stop()
	}
	if a.events != nil {
		a.events.Close()
	}
	if a.kv != nil {
		if err := a.kv.Close(); err != nil {
			a.log.Warn("store close failed", logx.Err(err))
		}
	}
	if a.logClose != nil {
		_ = a.logClose()
	}
}
