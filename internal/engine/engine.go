// Package engine implements the moderation core: the trust gate deciding
// whether a message is classified at all, the safe-path state writes, the
// spam remediation sequence, and dismiss/kick callback resolution.
package engine

import (
	"context"
	"slices"
	"time"

	"modshield/internal/classify"
	"modshield/internal/events"
	"modshield/internal/metrics"
	"modshield/internal/state"
	"modshield/internal/telegram"
	"modshield/internal/transport"
	logx "modshield/pkg/logx"
)

// Policy is the per-update immutable snapshot of the tunable knobs.
// Threading it explicitly (instead of reading ambient config) keeps the
// engine deterministic under varied thresholds.
type Policy struct {
	TrustThreshold int
	ContextWindow  int
}

// restrictWindow is the fixed mute applied to a flagged author.
const restrictWindow = 24 * time.Hour

type Engine struct {
	state      *state.Store
	classifier classify.Classifier
	gw         telegram.Gateway
	events     events.Publisher
	log        logx.Logger

	now func() time.Time
}

func New(st *state.Store, cl classify.Classifier, gw telegram.Gateway, ev events.Publisher, log logx.Logger) *Engine {
	if ev == nil {
		ev = events.Nop{}
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Engine{
		state:      st,
		classifier: cl,
		gw:         gw,
		events:     ev,
		log:        log,
		now:        time.Now,
	}
}

// IsTrusted reports whether the user bypasses classification: chat admins
// always, otherwise a clean-message counter strictly above the threshold.
// The admin check runs first and short-circuits without touching the counter.
func (e *Engine) IsTrusted(ctx context.Context, chatID, userID int64, threshold int) (bool, error) {
	admins, err := e.gw.Admins(ctx, chatID)
	if err != nil {
		// Admin status unknown: fall back to the counter rather than
		// treating everyone as untrusted admins included.
		e.log.Warn("admin lookup failed",
			logx.Int64("chat_id", chatID), logx.Err(err))
	} else if slices.Contains(admins, userID) {
		return true, nil
	}

	count, err := e.state.Count(ctx, chatID, userID)
	if err != nil {
		return false, err
	}
	return count > threshold, nil
}

// HandleMessage runs the per-message decision procedure for a non-command
// text message. Trusted authors are skipped entirely (not counted, not added
// to context). Untrusted text is classified; clean messages feed the counter
// and the context window, spam triggers the remediation sequence.
func (e *Engine) HandleMessage(ctx context.Context, msg *transport.Message, pol Policy) error {
	if msg == nil || msg.Text == "" {
		return nil
	}
	log := e.log.With(
		logx.Int64("chat_id", msg.ChatID),
		logx.Int64("user_id", msg.FromID),
	)

	trusted, err := e.IsTrusted(ctx, msg.ChatID, msg.FromID, pol.TrustThreshold)
	if err != nil {
		// Counter unreadable: continue as untrusted, classification still
		// protects the chat.
		log.Warn("trust check failed, treating as untrusted", logx.Err(err))
		trusted = false
	}
	if trusted {
		metrics.TrustedSkips.Inc()
		return nil
	}

	history, err := e.state.History(ctx, msg.ChatID)
	if err != nil {
		log.Warn("context window unreadable", logx.Err(err))
		history = nil
	}

	label, err := e.classifier.Classify(ctx, msg.Text, history, msg.FromID)
	if err != nil {
		// Fail open: a broken classifier must not block the chat.
		metrics.ClassifierFailures.Inc()
		log.Error("classifier failed, failing open", logx.Err(err))
		label = classify.LabelNotSpam
	}
	metrics.ClassificationsTotal.WithLabelValues(string(label)).Inc()

	if !label.IsSpam() {
		// Two independent best-effort writes; both are attempted even if
		// one fails, and neither is ordered before the other.
		if _, err := e.state.Increment(ctx, msg.ChatID, msg.FromID); err != nil {
			log.Error("counter increment failed", logx.Err(err))
		}
		rec := state.Message{
			FromID: msg.FromID,
			Name:   msg.FromName,
			Text:   msg.Text,
			Date:   msg.Date,
		}
		if err := e.state.AppendHistory(ctx, msg.ChatID, rec, pol.ContextWindow); err != nil {
			log.Error("context append failed", logx.Err(err))
		}
		return nil
	}

	log.Info("spam detected",
		logx.String("label", string(label)),
		logx.String("chat", msg.ChatTitle),
		logx.String("username", msg.FromUsername),
	)
	e.Remediate(ctx, msg, label)
	e.events.Flagged(ctx, events.Flagged{
		ChatID:    msg.ChatID,
		UserID:    msg.FromID,
		Label:     string(label),
		MessageID: msg.ID,
	})
	return nil
}
