// Package classify wraps the remote spam classifier. The client returns a
// typed (Label, error) result; the fail-open policy (error => not_spam)
// belongs to the caller so it stays visible and independently testable.
package classify

import (
	"context"
	"fmt"

	"modshield/internal/state"
)

// Label is the classifier verdict for one message.
type Label string

const (
	LabelScam                 Label = "scam"
	LabelPhishing             Label = "phishing"
	LabelNotSuitableForWork   Label = "not_suitable_for_work"
	LabelUnsolicitedPromotion Label = "unsolicited_promotion"
	LabelOtherSpam            Label = "other_spam"
	LabelNotSpam              Label = "not_spam"
)

// IsSpam reports whether the label triggers moderation.
func (l Label) IsSpam() bool { return l != LabelNotSpam }

// ParseLabel validates a raw classifier answer against the enum.
func ParseLabel(s string) (Label, error) {
	switch Label(s) {
	case LabelScam, LabelPhishing, LabelNotSuitableForWork,
		LabelUnsolicitedPromotion, LabelOtherSpam, LabelNotSpam:
		return Label(s), nil
	}
	return "", fmt.Errorf("unknown label %q", s)
}

// Classifier classifies a message, given the chat's rolling history and the
// author's user id. History is filtered to the author's own messages before
// it reaches the model (other speakers' text inflates false positives).
type Classifier interface {
	Classify(ctx context.Context, text string, history []state.Message, authorID int64) (Label, error)
}
