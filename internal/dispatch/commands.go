package dispatch

import (
	"context"
	"fmt"
	"strings"

	"modshield/internal/config"
	"modshield/internal/transport"
	logx "modshield/pkg/logx"
)

const greeting = "Hello! I am an anti-spam bot. 🤖\n\n" +
	"I monitor messages and automatically detect spam, scams, and phishing attempts."

// handleCommand parses and routes a slash command. Commands never reach the
// classifier, never touch the counter, and never enter the context window.
// A command addressed to a different bot is silently ignored, as is an
// unknown command.
func (d *Dispatcher) handleCommand(ctx context.Context, m *transport.Message, rt config.Runtime) error {
	name, ours := commandName(m.Text, rt.BotUsername)
	if !ours {
		return nil
	}

	var reply string
	switch name {
	case "/start":
		reply = greeting
	case "/stats":
		count, err := d.state.Count(ctx, m.ChatID, m.FromID)
		if err != nil {
			d.log.Error("stats lookup failed",
				logx.Int64("chat_id", m.ChatID), logx.Err(err))
			return nil
		}
		reply = fmt.Sprintf("Your message count: %d", count)
	case "/save":
		// State is written through on every update; kept for muscle memory.
		reply = "State is saved automatically."
	case "/reset":
		if err := d.state.ResetCount(ctx, m.ChatID, m.FromID); err != nil {
			d.log.Error("counter reset failed",
				logx.Int64("chat_id", m.ChatID), logx.Err(err))
			return nil
		}
		reply = "Your message count has been reset to 0."
	case "/clearcontext":
		if err := d.state.ClearHistory(ctx, m.ChatID); err != nil {
			d.log.Error("context clear failed",
				logx.Int64("chat_id", m.ChatID), logx.Err(err))
			return nil
		}
		reply = "Message context has been cleared."
	default:
		return nil
	}

	if _, err := d.gw.SendMessage(ctx, m.ChatID, reply, 0, nil); err != nil {
		d.log.Warn("command reply failed",
			logx.Int64("chat_id", m.ChatID),
			logx.String("command", name),
			logx.Err(err))
	}
	return nil
}

// commandName extracts the lowercased command ("/stats") from the message
// text and resolves the optional "@botname" suffix. It reports ours=false
// when the suffix names a different bot.
func commandName(text, botUsername string) (name string, ours bool) {
	full := strings.ToLower(strings.Fields(text)[0])
	name, suffix, qualified := strings.Cut(full, "@")
	if !qualified || suffix == "" {
		return name, true
	}
	if botUsername == "" {
		// Unconfigured identity: process rather than drop.
		return name, true
	}
	own := strings.ToLower(strings.TrimPrefix(botUsername, "@"))
	return name, suffix == own
}
