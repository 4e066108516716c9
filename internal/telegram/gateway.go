// Package telegram is the moderation-action gateway: a thin telebot.v4
// wrapper exposing the handful of chat-management calls the engine needs.
// Every call is one remote request; there is no retry layer, callers decide
// per step how to treat failures.
package telegram

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	logx "modshield/pkg/logx"
)

// Button is one inline keyboard button carrying raw callback data.
type Button struct {
	Text string
	Data string
}

// Gateway enumerates the remote moderation operations. Failures are
// independent: one failing call never prevents the next from being attempted.
type Gateway interface {
	// SendMessage posts an HTML message, optionally replying to a message
	// and attaching inline keyboard rows. Returns the sent message id.
	SendMessage(ctx context.Context, chatID int64, text string, replyTo int, buttons [][]Button) (int, error)
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	// RestrictMember revokes all content-sending permissions until the
	// given time.
	RestrictMember(ctx context.Context, chatID, userID int64, until time.Time) error
	// UnrestrictMember restores full member permissions.
	UnrestrictMember(ctx context.Context, chatID, userID int64) error
	// BanMember removes the user from the chat permanently.
	BanMember(ctx context.Context, chatID, userID int64) error
	// Admins returns the user ids of the chat's administrators.
	Admins(ctx context.Context, chatID int64) ([]int64, error)
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
}

// Bot is the live Gateway implementation.
type Bot struct {
	bot *tele.Bot
	log logx.Logger
}

func New(token string, log logx.Logger) (*Bot, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	// No poller: updates arrive over the webhook, the bot is API-calls only.
	b, err := tele.NewBot(tele.Settings{
		Token:  token,
		Client: &http.Client{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, err
	}
	return &Bot{bot: b, log: log}, nil
}

// Username returns the bot's own username (without '@'), used for
// command disambiguation.
func (b *Bot) Username() string {
	if b.bot.Me == nil {
		return ""
	}
	return b.bot.Me.Username
}

func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string, replyTo int, buttons [][]Button) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	opts := &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		DisableWebPagePreview: true,
	}
	if replyTo != 0 {
		opts.ReplyTo = &tele.Message{ID: replyTo, Chat: &tele.Chat{ID: chatID}}
	}
	if len(buttons) > 0 {
		rows := make([][]tele.InlineButton, 0, len(buttons))
		for _, row := range buttons {
			btns := make([]tele.InlineButton, 0, len(row))
			for _, btn := range row {
				btns = append(btns, tele.InlineButton{Text: btn.Text, Data: btn.Data})
			}
			rows = append(rows, btns)
		}
		opts.ReplyMarkup = &tele.ReplyMarkup{InlineKeyboard: rows}
	}

	msg, err := b.bot.Send(&tele.Chat{ID: chatID}, text, opts)
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

func (b *Bot) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.bot.Delete(tele.StoredMessage{
		MessageID: strconv.Itoa(messageID),
		ChatID:    chatID,
	})
}

func (b *Bot) RestrictMember(ctx context.Context, chatID, userID int64, until time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.bot.Restrict(&tele.Chat{ID: chatID}, &tele.ChatMember{
		User:            &tele.User{ID: userID},
		Rights:          tele.NoRights(),
		RestrictedUntil: until.Unix(),
	})
}

func (b *Bot) UnrestrictMember(ctx context.Context, chatID, userID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.bot.Restrict(&tele.Chat{ID: chatID}, &tele.ChatMember{
		User:   &tele.User{ID: userID},
		Rights: tele.NoRestrictions(),
	})
}

func (b *Bot) BanMember(ctx context.Context, chatID, userID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.bot.Ban(&tele.Chat{ID: chatID}, &tele.ChatMember{
		User: &tele.User{ID: userID},
	})
}

func (b *Bot) Admins(ctx context.Context, chatID int64) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	members, err := b.bot.AdminsOf(&tele.Chat{ID: chatID})
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		if m.User != nil {
			ids = append(ids, m.User.ID)
		}
	}
	return ids, nil
}

func (b *Bot) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.bot.Respond(&tele.Callback{ID: callbackID}, &tele.CallbackResponse{
		Text:      text,
		ShowAlert: alert,
	})
}
