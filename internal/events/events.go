// Package events publishes moderation events to NATS for downstream
// consumers (audit, analytics). Publishing is fire-and-forget: a broken
// event bus must never affect moderation itself.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"

	logx "modshield/pkg/logx"
)

// NATS subjects.
const (
	SubjectFlagged  = "moderation.flagged"
	SubjectResolved = "moderation.resolved"
)

// Flagged is emitted after a remediation sequence ran for a spam message.
type Flagged struct {
	ChatID    int64  `json:"chat_id"`
	UserID    int64  `json:"user_id"`
	Label     string `json:"label"`
	MessageID int    `json:"message_id"`
	At        int64  `json:"at"`
}

// Resolved is emitted when a moderation card is dismissed or the user kicked.
type Resolved struct {
	ChatID    int64  `json:"chat_id"`
	UserID    int64  `json:"user_id"`
	Action    string `json:"action"` // "dismiss" or "kick"
	ClickerID int64  `json:"clicker_id"`
	At        int64  `json:"at"`
}

// Publisher emits moderation events. Implementations must not block
// moderation on failure.
type Publisher interface {
	Flagged(ctx context.Context, ev Flagged)
	Resolved(ctx context.Context, ev Resolved)
	Close()
}

// Nop discards all events. Used when no event bus is configured.
type Nop struct{}

func (Nop) Flagged(context.Context, Flagged)   {}
func (Nop) Resolved(context.Context, Resolved) {}
func (Nop) Close()                             {}

// Config holds NATS connection settings.
type Config struct {
	URL  string // nats://localhost:4222; empty disables publishing
	Name string // client name for identification
}

type natsPublisher struct {
	conn *nats.Conn
	log  logx.Logger
}

// Connect returns a NATS-backed publisher, or Nop when cfg.URL is empty.
func Connect(cfg Config, log logx.Logger) (Publisher, error) {
	if cfg.URL == "" {
		return Nop{}, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	name := cfg.Name
	if name == "" {
		name = "modshield"
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name(name),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats disconnected", logx.Err(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", logx.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, err
	}
	return &natsPublisher{conn: nc, log: log}, nil
}

func (p *natsPublisher) publish(subject string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		p.log.Error("encode event", logx.String("subject", subject), logx.Err(err))
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		p.log.Warn("publish event", logx.String("subject", subject), logx.Err(err))
	}
}

func (p *natsPublisher) Flagged(_ context.Context, ev Flagged) {
	if ev.At == 0 {
		ev.At = time.Now().Unix()
	}
	p.publish(SubjectFlagged, ev)
}

func (p *natsPublisher) Resolved(_ context.Context, ev Resolved) {
	if ev.At == 0 {
		ev.At = time.Now().Unix()
	}
	p.publish(SubjectResolved, ev)
}

func (p *natsPublisher) Close() {
	_ = p.conn.Drain()
}
