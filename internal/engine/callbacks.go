package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"modshield/internal/events"
	"modshield/internal/metrics"
	"modshield/internal/transport"
	logx "modshield/pkg/logx"
	"modshield/pkg/tgui"
)

// ErrDenied marks a callback precondition failure (malformed payload,
// unknown action, missing authorization). These surface to the clicking
// user as an alert acknowledgement and mutate no state.
var ErrDenied = errors.New("denied")

type deniedError struct{ msg string }

func (d deniedError) Error() string { return d.msg }

func (deniedError) Is(target error) bool { return target == ErrDenied }

func denied(msg string) error { return deniedError{msg: msg} }

// HandleCallback resolves a dismiss/kick button press and acknowledges the
// callback: a plain acknowledgement on success, an alert on any failure.
func (e *Engine) HandleCallback(ctx context.Context, cb *transport.Callback, pol Policy) {
	action, text, err := e.resolveCallback(ctx, cb, pol)

	outcome := "ok"
	if err != nil {
		text = err.Error()
		outcome = "error"
		if errors.Is(err, ErrDenied) {
			outcome = "denied"
		} else {
			e.log.Error("callback resolution failed",
				logx.Int64("chat_id", cb.ChatID),
				logx.Int64("clicker_id", cb.FromID),
				logx.String("action", action),
				logx.Err(err),
			)
		}
	}
	metrics.CallbacksTotal.WithLabelValues(labelOrUnknown(action), outcome).Inc()

	if ackErr := e.gw.AnswerCallback(ctx, cb.ID, text, err != nil); ackErr != nil {
		e.log.Warn("callback acknowledgement failed",
			logx.Int64("chat_id", cb.ChatID), logx.Err(ackErr))
	}
}

func labelOrUnknown(action string) string {
	if action == "" {
		return "unknown"
	}
	return action
}

func (e *Engine) resolveCallback(ctx context.Context, cb *transport.Callback, pol Policy) (action, text string, err error) {
	action, payload, err := tgui.SplitData(cb.Data)
	if err != nil {
		return "", "", denied("Malformed callback data")
	}
	target, err := strconv.ParseInt(payload, 10, 64)
	if err != nil {
		return action, "", denied("Invalid user id")
	}

	switch action {
	case ActionDismiss:
		text, err = e.dismiss(ctx, cb, target, pol)
	case ActionKick:
		text, err = e.kick(ctx, cb, target)
	default:
		return action, "", denied("Unknown action")
	}
	return action, text, err
}

// dismiss lifts the restriction on the flagged user. The clicker must have a
// clean-message counter strictly above the trust threshold; admin status is
// deliberately NOT consulted here, the gate is the counter alone.
func (e *Engine) dismiss(ctx context.Context, cb *transport.Callback, target int64, pol Policy) (string, error) {
	count, err := e.state.Count(ctx, cb.ChatID, cb.FromID)
	if err != nil {
		return "", fmt.Errorf("trust lookup: %w", err)
	}
	if count <= pol.TrustThreshold {
		return "", denied("You must be a trusted user to dismiss this")
	}

	if err := e.gw.UnrestrictMember(ctx, cb.ChatID, target); err != nil {
		return "", fmt.Errorf("unrestrict: %w", err)
	}
	e.retireCard(ctx, cb, target)

	e.log.Info("moderation card dismissed",
		logx.Int64("chat_id", cb.ChatID),
		logx.Int64("clicker_id", cb.FromID),
		logx.Int64("target_id", target),
		logx.String("clicker", cb.FromName),
	)
	e.events.Resolved(ctx, events.Resolved{
		ChatID: cb.ChatID, UserID: target, Action: ActionDismiss, ClickerID: cb.FromID,
	})
	return "User has been unrestricted", nil
}

// kick permanently bans the flagged user. Admins only.
func (e *Engine) kick(ctx context.Context, cb *transport.Callback, target int64) (string, error) {
	admins, err := e.gw.Admins(ctx, cb.ChatID)
	if err != nil {
		return "", fmt.Errorf("admin lookup: %w", err)
	}
	if !slices.Contains(admins, cb.FromID) {
		return "", denied("Only administrators can kick users")
	}

	if err := e.gw.BanMember(ctx, cb.ChatID, target); err != nil {
		return "", fmt.Errorf("ban: %w", err)
	}
	e.retireCard(ctx, cb, target)

	e.log.Info("flagged user kicked",
		logx.Int64("chat_id", cb.ChatID),
		logx.Int64("clicker_id", cb.FromID),
		logx.Int64("target_id", target),
	)
	e.events.Resolved(ctx, events.Resolved{
		ChatID: cb.ChatID, UserID: target, Action: ActionKick, ClickerID: cb.FromID,
	})
	return "User has been permanently kicked", nil
}

// retireCard deletes the pressed moderation card and clears the pending
// notification record. Best-effort: the resolution already happened.
func (e *Engine) retireCard(ctx context.Context, cb *transport.Callback, target int64) {
	if err := e.gw.DeleteMessage(ctx, cb.ChatID, cb.MessageID); err != nil {
		e.log.Warn("card delete failed",
			logx.Int64("chat_id", cb.ChatID),
			logx.Int("message_id", cb.MessageID),
			logx.Err(err))
	}
	if _, _, err := e.state.TakeNotification(ctx, cb.ChatID, target); err != nil {
		e.log.Warn("pending notification clear failed",
			logx.Int64("chat_id", cb.ChatID),
			logx.Int64("target_id", target),
			logx.Err(err))
	}
}
