package service

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/strogmv/unread/internal/domain"
)

// Classifier normalizes raw source events into NotificationEvents for one
// user session. Classification is pure aside from id synthesis and the
// ingestion-time default for missing timestamps.
type Classifier struct {
	userID    string
	chatRules domain.RuleSet
	now       func() time.Time
}

// NewClassifier builds a classifier for the given user. chatRules flags
// operator/admin chat noise as excluded from the chat badge.
func NewClassifier(userID string, chatRules domain.RuleSet, now func() time.Time) *Classifier {
	if now == nil {
		now = time.Now
	}
	return &Classifier{userID: userID, chatRules: chatRules, now: now}
}

// Classify maps a raw event to a normalized NotificationEvent. The second
// return is false when the event must be dropped: foreign recipient, or a
// chat event with no resolvable conversation key. Drops are expected in
// normal operation and are never errors.
func (c *Classifier) Classify(raw domain.RawEvent, source domain.Source) (domain.NotificationEvent, bool) {
	if raw.RecipientID == "" || raw.RecipientID != c.userID {
		return domain.NotificationEvent{}, false
	}

	ev := domain.NotificationEvent{
		ID:          raw.ID,
		Category:    categoryOf(raw.Type),
		Title:       raw.Title,
		Message:     raw.Message,
		RecipientID: raw.RecipientID,
		SenderID:    raw.SenderID,
		SenderName:  raw.SenderName,
		SenderRole:  raw.SenderRole,
		CreatedAt:   raw.Timestamp,
		Source:      source,
	}

	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = c.now()
	}
	if ev.ID == "" {
		ev.ID = "push-" + uuid.NewString()
	}

	// Read is authoritative only for persisted events.
	if source == domain.SourcePull {
		ev.Read = raw.Read
	}

	if ev.Category.IsChat() {
		if raw.ChatID == "" {
			return domain.NotificationEvent{}, false
		}
		ev.ConversationKey = domain.ConversationKey{
			ChatID:       raw.ChatID,
			Counterparty: raw.SenderName,
		}
		ev.ExcludedFromChatBadge = c.chatRules.Excluded(ev)
	}

	return ev, true
}

func categoryOf(rawType string) domain.Category {
	switch strings.ToLower(strings.TrimSpace(rawType)) {
	case "chat.message", "chat_message", "message":
		return domain.CategoryChatMessage
	case "chat.created", "chat_created", "new_chat":
		return domain.CategoryChatCreated
	default:
		return domain.CategoryGeneral
	}
}
