package telegram

import (
	"encoding/json"
	"strings"

	tele "gopkg.in/telebot.v4"

	"modshield/internal/transport"
)

// DecodeUpdate parses one Telegram Update JSON body into the neutral
// transport model. A structurally invalid body is an error; a valid update
// of a shape we do not handle comes back as transport.UpdateIgnored.
func DecodeUpdate(body []byte) (transport.Update, error) {
	var u tele.Update
	if err := json.Unmarshal(body, &u); err != nil {
		return transport.Update{}, err
	}
	return convertUpdate(u), nil
}

func convertUpdate(u tele.Update) transport.Update {
	if cb := u.Callback; cb != nil && cb.Sender != nil && cb.Message != nil && cb.Message.Chat != nil {
		return transport.Update{
			Kind: transport.UpdateCallback,
			Callback: &transport.Callback{
				ID:        cb.ID,
				ChatID:    cb.Message.Chat.ID,
				MessageID: cb.Message.ID,
				FromID:    cb.Sender.ID,
				FromName:  displayName(cb.Sender),
				Data:      cb.Data,
			},
		}
	}

	if m := u.Message; m != nil && m.Sender != nil && m.Chat != nil {
		return transport.Update{
			Kind: transport.UpdateMessage,
			Message: &transport.Message{
				ID:           m.ID,
				ChatID:       m.Chat.ID,
				ChatTitle:    m.Chat.Title,
				FromID:       m.Sender.ID,
				FromName:     displayName(m.Sender),
				FromUsername: m.Sender.Username,
				FromIsBot:    m.Sender.IsBot,
				Date:         m.Unixtime,
				Text:         m.Text,
			},
		}
	}

	return transport.Update{Kind: transport.UpdateIgnored}
}

func displayName(u *tele.User) string {
	name := strings.TrimSpace(u.FirstName)
	if u.LastName != "" {
		name = strings.TrimSpace(name + " " + u.LastName)
	}
	if name == "" {
		name = u.Username
	}
	return name
}
