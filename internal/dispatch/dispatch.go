// Package dispatch routes inbound updates: callback queries to the engine's
// resolution flow, commands to the command handlers, ordinary text messages
// to the moderation engine. Everything else is acknowledged and dropped.
package dispatch

import (
	"context"
	"strings"

	"modshield/internal/config"
	"modshield/internal/engine"
	"modshield/internal/metrics"
	"modshield/internal/state"
	"modshield/internal/telegram"
	"modshield/internal/transport"
	logx "modshield/pkg/logx"
)

type Dispatcher struct {
	engine *engine.Engine
	state  *state.Store
	gw     telegram.Gateway
	conf   func() config.Runtime
	log    logx.Logger
}

func New(eng *engine.Engine, st *state.Store, gw telegram.Gateway, conf func() config.Runtime, log logx.Logger) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Dispatcher{engine: eng, state: st, gw: gw, conf: conf, log: log}
}

// Dispatch handles one update as an independent unit of work.
func (d *Dispatcher) Dispatch(ctx context.Context, up transport.Update) error {
	rt := d.conf()
	pol := engine.Policy{
		TrustThreshold: rt.TrustThreshold,
		ContextWindow:  rt.ContextWindow,
	}

	switch up.Kind {
	case transport.UpdateCallback:
		metrics.UpdatesTotal.WithLabelValues("callback").Inc()
		d.engine.HandleCallback(ctx, up.Callback, pol)
		return nil

	case transport.UpdateMessage:
		m := up.Message
		if m.Text == "" {
			metrics.UpdatesTotal.WithLabelValues("ignored").Inc()
			return nil
		}
		if strings.HasPrefix(m.Text, "/") {
			metrics.UpdatesTotal.WithLabelValues("command").Inc()
			return d.handleCommand(ctx, m, rt)
		}
		metrics.UpdatesTotal.WithLabelValues("message").Inc()
		return d.engine.HandleMessage(ctx, m, pol)

	default:
		metrics.UpdatesTotal.WithLabelValues("ignored").Inc()
		return nil
	}
}
