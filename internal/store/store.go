package store

import (
	"context"
	"errors"
	"strings"

	logx "modshield/pkg/logx"
)

// KV is the minimal durable-state API the engine relies on.
//
// Contract notes:
//   - Get reports (value, found); an absent key is not an error.
//   - No compare-and-swap, no transactions, no listing. Callers must not
//     assume read-after-write consistency across separate KV instances,
//     only within one request's sequential calls.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Config configures the state store.
//
// Driver values:
//   - "memory": in-process map (default; dev and tests)
//   - "sqlite": SQLite database file
//   - "redis":  Redis server
type Config struct {
	Driver string
	Path   string // sqlite only

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (KV, error) {
	if log.IsZero() {
		log = logx.Nop()
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	case "redis":
		return openRedis(cfg, log)
	default:
		return nil, errors.New("unknown store driver: " + cfg.Driver)
	}
}
