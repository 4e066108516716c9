package tgui

import (
	"errors"
	"strings"
)

// MaxCallbackDataLen is Telegram's callback_data size limit in bytes.
const MaxCallbackDataLen = 64

var ErrCallbackData = errors.New("tgui: malformed callback data")

// Data formats inline callback data as "action:payload".
// Payload is kept as-is (no escaping).
func Data(action, payload string) string {
	action = strings.TrimSpace(action)
	if payload == "" {
		return action
	}
	return action + ":" + payload
}

// SplitData parses "action:payload" callback data.
// The payload may itself contain ':'; only the first separator counts.
func SplitData(data string) (action, payload string, err error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return "", "", ErrCallbackData
	}
	action, payload, ok := strings.Cut(data, ":")
	if !ok || action == "" || payload == "" {
		return "", "", ErrCallbackData
	}
	return action, payload, nil
}
