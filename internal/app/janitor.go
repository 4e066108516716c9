package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"modshield/internal/store"
	logx "modshield/pkg/logx"
)

// contextPruner is implemented by store backends that can expire idle chat
// context windows (currently sqlite).
type contextPruner interface {
	PruneContexts(ctx context.Context, retention time.Duration) (int64, error)
}

// janitor runs periodic store maintenance. It is a no-op when retention is
// disabled or the backend cannot prune.
type janitor struct {
	cron *cron.Cron
	log  logx.Logger
}

func newJanitor(kv store.KV, schedule string, retention time.Duration, log logx.Logger) *janitor {
	j := &janitor{log: log}
	if retention <= 0 {
		return j
	}
	pruner, ok := kv.(contextPruner)
	if !ok {
		log.Info("context retention configured but store cannot prune, skipping")
		return j
	}

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		n, err := pruner.PruneContexts(ctx, retention)
		if err != nil {
			log.Error("context prune failed", logx.Err(err))
			return
		}
		if n > 0 {
			log.Info("pruned idle chat contexts", logx.Int64("count", n))
		}
	})
	if err != nil {
		log.Error("invalid janitor schedule", logx.String("schedule", schedule), logx.Err(err))
		return j
	}
	j.cron = c
	return j
}

func (j *janitor) start() {
	if j.cron != nil {
		j.cron.Start()
	}
}

func (j *janitor) stop() {
	if j.cron != nil {
		<-j.cron.Stop().Done()
	}
}
