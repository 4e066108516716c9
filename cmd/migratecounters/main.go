// Command migratecounters imports a legacy state.json
// ({"counters": {"userId:chatId": n}}) into the configured state store.
//
// Usage:
//
//	migratecounters -config config.yaml path/to/state.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"modshield/internal/config"
	"modshield/internal/store"
	logx "modshield/pkg/logx"
)

type stateFile struct {
	Counters map[string]int `json:"counters"`
}

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "path to config yaml (optional)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: migratecounters [-config config.yaml] <state.json>")
		os.Exit(2)
	}

	_ = godotenv.Load()

	if err := run(cfgPath, flag.Arg(0)); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run(cfgPath, statePath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	b, err := os.ReadFile(statePath)
	if err != nil {
		return err
	}
	var st stateFile
	if err := json.Unmarshal(b, &st); err != nil {
		return fmt.Errorf("parse %s: %w", statePath, err)
	}

	log := logx.NewConsole(cfg.Logging.Level)
	kv, err := store.Open(store.Config{
		Driver:        cfg.Store.Driver,
		Path:          cfg.Store.Path,
		RedisAddr:     cfg.Store.Redis.Addr,
		RedisPassword: cfg.Store.Redis.Password,
		RedisDB:       cfg.Store.Redis.DB,
		RedisPrefix:   cfg.Store.Redis.Prefix,
	}, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer kv.Close()

	ctx := context.Background()
	imported := 0
	for key, count := range st.Counters {
		// Legacy keys are already "userId:chatId", the layout the bot uses.
		if err := kv.Put(ctx, key, strconv.Itoa(count)); err != nil {
			return fmt.Errorf("import %s: %w", key, err)
		}
		imported++
	}

	log.Info("counters imported", logx.Int("count", imported))
	return nil
}
