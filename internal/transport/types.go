// Package transport defines the bot-API-agnostic update model the dispatcher
// and engine operate on. The Telegram gateway converts wire updates into
// these types so everything above it stays testable without a live bot.
package transport

type UpdateKind string

const (
	UpdateMessage  UpdateKind = "message"
	UpdateCallback UpdateKind = "callback"
	UpdateIgnored  UpdateKind = "ignored"
)

type Update struct {
	Kind     UpdateKind
	Message  *Message
	Callback *Callback
}

type Message struct {
	ID           int
	ChatID       int64
	ChatTitle    string
	FromID       int64
	FromName     string // display name: first name [+ last name]
	FromUsername string
	FromIsBot    bool
	Date         int64 // unix seconds
	Text         string
}

type Callback struct {
	ID        string
	ChatID    int64
	MessageID int // the message carrying the inline keyboard
	FromID    int64
	FromName  string
	Data      string
}
