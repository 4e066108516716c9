package engine

import (
	"context"
	"strconv"
	"strings"

	"modshield/internal/classify"
	"modshield/internal/metrics"
	"modshield/internal/telegram"
	"modshield/internal/transport"
	logx "modshield/pkg/logx"
	"modshield/pkg/tgui"
)

// Callback actions carried by the moderation card buttons.
const (
	ActionDismiss = "dismiss"
	ActionKick    = "kick"
)

// previewRunes caps the quoted spam excerpt on the moderation card.
const previewRunes = 50

// StepOutcome records one remediation step's result.
type StepOutcome struct {
	Step string
	Err  error
}

// Remediate executes the spam remediation sequence: delete the offending
// message, restrict the author, retire any prior moderation card, post a new
// card with dismiss/kick buttons, and store the new card's id as the pending
// notification. Each step is independently best-effort; a failure is logged
// and the sequence continues. There is no compensating rollback.
func (e *Engine) Remediate(ctx context.Context, msg *transport.Message, label classify.Label) []StepOutcome {
	chatID, userID := msg.ChatID, msg.FromID
	log := e.log.With(
		logx.Int64("chat_id", chatID),
		logx.Int64("user_id", userID),
	)

	var sentID int

	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"delete_message", func(ctx context.Context) error {
			return e.gw.DeleteMessage(ctx, chatID, msg.ID)
		}},
		{"restrict_author", func(ctx context.Context) error {
			return e.gw.RestrictMember(ctx, chatID, userID, e.now().Add(restrictWindow))
		}},
		{"retire_prior_card", func(ctx context.Context) error {
			oldID, ok, err := e.state.TakeNotification(ctx, chatID, userID)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			return e.gw.DeleteMessage(ctx, chatID, oldID)
		}},
		{"send_card", func(ctx context.Context) error {
			id, err := e.gw.SendMessage(ctx, chatID, cardText(msg, label), 0, cardButtons(userID))
			if err != nil {
				return err
			}
			sentID = id
			return nil
		}},
		{"store_card", func(ctx context.Context) error {
			if sentID == 0 {
				// No card was sent; nothing to point at.
				return nil
			}
			return e.state.StoreNotification(ctx, chatID, userID, sentID)
		}},
	}

	outcomes := make([]StepOutcome, 0, len(steps))
	for _, s := range steps {
		err := s.run(ctx)
		outcomes = append(outcomes, StepOutcome{Step: s.name, Err: err})
		if err != nil {
			metrics.RemediationStepFailures.WithLabelValues(s.name).Inc()
			log.Error("remediation step failed",
				logx.String("step", s.name), logx.Err(err))
		}
	}
	return outcomes
}

// cardText renders the moderation card. The quoted excerpt is untrusted
// content: it is HTML-escaped and hidden behind a spoiler so it can never be
// mistaken for live formatting.
func cardText(msg *transport.Message, label classify.Label) string {
	preview := msg.Text
	if preview == "" {
		preview = "<no text>"
	}
	preview = tgui.TruncRunes(preview, previewRunes)

	name := msg.FromName
	if name == "" {
		name = "Unknown"
	}

	var b strings.Builder
	b.WriteString(tgui.B("Spam detected").String())
	b.WriteString("\n\n")
	b.WriteString("Type: " + tgui.Code(string(label)).String() + "\n")
	b.WriteString("User: " + tgui.Esc(name).String() + " (" + strconv.FormatInt(msg.FromID, 10) + ")\n")
	b.WriteString("Message (first 50 chars): " + tgui.Spoiler(preview).String())
	b.WriteString("\n\n")
	b.WriteString(tgui.Esc("The author has been muted for 24 hours.").String())
	return b.String()
}

func cardButtons(userID int64) [][]telegram.Button {
	payload := strconv.FormatInt(userID, 10)
	return [][]telegram.Button{{
		{Text: "Dismiss (trusted)", Data: tgui.Data(ActionDismiss, payload)},
		{Text: "Kick (admin)", Data: tgui.Data(ActionKick, payload)},
	}}
}
