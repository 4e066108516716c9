// Package state gives the opaque KV a typed surface: per-user clean-message
// counters, the per-chat rolling context window, and pending-notification
// pointers. Absent keys read as zero values (explicit get-or-default, so the
// contract stays testable).
//
// Key layout:
//
//	{userId}:{chatId}               -> counter (decimal)
//	context:{chatId}                -> JSON array of Message records
//	notification:{chatId}:{userId}  -> pending notification message id (decimal)
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"modshield/internal/store"
)

// Message is one rolling-context record. It carries just enough for the
// classifier: who said it, what, and when.
type Message struct {
	FromID int64  `json:"from_id"`
	Name   string `json:"name,omitempty"`
	Text   string `json:"text"`
	Date   int64  `json:"date"`
}

type Store struct {
	kv store.KV
}

func New(kv store.KV) *Store {
	return &Store{kv: kv}
}

func counterKey(chatID, userID int64) string {
	return fmt.Sprintf("%d:%d", userID, chatID)
}

func contextKey(chatID int64) string {
	return fmt.Sprintf("context:%d", chatID)
}

func notificationKey(chatID, userID int64) string {
	return fmt.Sprintf("notification:%d:%d", chatID, userID)
}

// Count returns the clean-message counter for (chat, user). Absent key is 0.
func (s *Store) Count(ctx context.Context, chatID, userID int64) (int, error) {
	raw, ok, err := s.kv.Get(ctx, counterKey(chatID, userID))
	if err != nil {
		return 0, fmt.Errorf("get counter: %w", err)
	}
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse counter %q: %w", raw, err)
	}
	return n, nil
}

// Increment bumps the counter by one and returns the new value.
func (s *Store) Increment(ctx context.Context, chatID, userID int64) (int, error) {
	n, err := s.Count(ctx, chatID, userID)
	if err != nil {
		return 0, err
	}
	n++
	if err := s.kv.Put(ctx, counterKey(chatID, userID), strconv.Itoa(n)); err != nil {
		return 0, fmt.Errorf("put counter: %w", err)
	}
	return n, nil
}

// ResetCount deletes the counter, returning the user to 0.
func (s *Store) ResetCount(ctx context.Context, chatID, userID int64) error {
	return s.kv.Delete(ctx, counterKey(chatID, userID))
}

// History returns the chat's rolling context window, oldest first.
// Absent key is an empty window.
func (s *Store) History(ctx context.Context, chatID int64) ([]Message, error) {
	raw, ok, err := s.kv.Get(ctx, contextKey(chatID))
	if err != nil {
		return nil, fmt.Errorf("get context: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var msgs []Message
	if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
		return nil, fmt.Errorf("decode context: %w", err)
	}
	return msgs, nil
}

// AppendHistory appends msg to the chat's context window and evicts from the
// front until the window fits maxLen. After every successful write the
// stored window length is <= maxLen.
func (s *Store) AppendHistory(ctx context.Context, chatID int64, msg Message, maxLen int) error {
	msgs, err := s.History(ctx, chatID)
	if err != nil {
		return err
	}
	msgs = append(msgs, msg)
	for maxLen > 0 && len(msgs) > maxLen {
		msgs = msgs[1:]
	}
	raw, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("encode context: %w", err)
	}
	if err := s.kv.Put(ctx, contextKey(chatID), string(raw)); err != nil {
		return fmt.Errorf("put context: %w", err)
	}
	return nil
}

// ClearHistory drops the chat's context window wholesale.
func (s *Store) ClearHistory(ctx context.Context, chatID int64) error {
	return s.kv.Delete(ctx, contextKey(chatID))
}

// Notification returns the pending notification message id for (chat, user),
// if one is outstanding.
func (s *Store) Notification(ctx context.Context, chatID, userID int64) (int, bool, error) {
	raw, ok, err := s.kv.Get(ctx, notificationKey(chatID, userID))
	if err != nil {
		return 0, false, fmt.Errorf("get notification: %w", err)
	}
	if !ok {
		return 0, false, nil
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("parse notification %q: %w", raw, err)
	}
	return id, true, nil
}

// StoreNotification records messageID as the single outstanding moderation
// card for (chat, user), replacing any previous pointer.
func (s *Store) StoreNotification(ctx context.Context, chatID, userID int64, messageID int) error {
	return s.kv.Put(ctx, notificationKey(chatID, userID), strconv.Itoa(messageID))
}

// TakeNotification returns and removes the pending notification pointer.
func (s *Store) TakeNotification(ctx context.Context, chatID, userID int64) (int, bool, error) {
	id, ok, err := s.Notification(ctx, chatID, userID)
	if err != nil || !ok {
		return 0, false, err
	}
	if err := s.kv.Delete(ctx, notificationKey(chatID, userID)); err != nil {
		return 0, false, fmt.Errorf("delete notification: %w", err)
	}
	return id, true, nil
}
