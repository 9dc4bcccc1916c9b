package domain

import (
	"strings"
	"time"
)

// Category partitions events into the two badge paths.
type Category string

const (
	CategoryGeneral     Category = "GENERAL"
	CategoryChatCreated Category = "CHAT_CREATED"
	CategoryChatMessage Category = "CHAT_MESSAGE"
)

// IsChat reports whether the category belongs to the chat path.
func (c Category) IsChat() bool {
	return c == CategoryChatCreated || c == CategoryChatMessage
}

// Source tags where an event entered the engine. Diagnostics only,
// never used for correctness decisions.
type Source string

const (
	SourcePush Source = "PUSH"
	SourcePull Source = "PULL"
)

// ConversationKey identifies one chat thread for aggregation.
type ConversationKey struct {
	ChatID       string `json:"chatId"`
	Counterparty string `json:"counterparty"`
}

// Zero reports whether the key carries no chat identity at all.
func (k ConversationKey) Zero() bool {
	return k.ChatID == "" && k.Counterparty == ""
}

func (k ConversationKey) String() string {
	return k.ChatID + "/" + k.Counterparty
}

// RawEvent is the source-defined envelope arriving from the push channel
// or from a decoded pull response. Shape is normalized immediately by the
// classifier; nothing downstream touches it.
type RawEvent struct {
	ID          string         `json:"id,omitempty"`
	Type        string         `json:"type"`
	ChatID      string         `json:"chatId,omitempty"`
	RecipientID string         `json:"recipientId"`
	SenderID    string         `json:"senderId,omitempty"`
	SenderName  string         `json:"senderName,omitempty"`
	SenderRole  string         `json:"senderRole,omitempty"`
	Title       string         `json:"title,omitempty"`
	Message     string         `json:"message,omitempty"`
	Read        bool           `json:"read,omitempty"`
	Timestamp   time.Time      `json:"timestamp,omitzero"`
	Payload     map[string]any `json:"payload,omitempty"`
}

// NotificationEvent is one normalized occurrence the user should
// potentially see.
type NotificationEvent struct {
	// ID is the backend identifier for persisted events, or a
	// synthesized "push-" prefixed identifier for push-only events.
	ID       string   `json:"id"`
	Category Category `json:"category"`
	Title    string   `json:"title"`
	Message  string   `json:"message"`

	RecipientID string `json:"recipientId"`
	SenderID    string `json:"senderId"`
	SenderName  string `json:"senderName"`
	SenderRole  string `json:"senderRole,omitempty"`

	// ConversationKey is required for CHAT_* events; zero otherwise.
	ConversationKey ConversationKey `json:"conversationKey,omitzero"`

	CreatedAt time.Time `json:"createdAt"`

	// Read is authoritative only for pulled events. Push events stay
	// unread until explicitly acknowledged.
	Read bool `json:"read"`

	// ExcludedFromChatBadge marks admin/operator chat noise that must
	// not count toward the chat badge.
	ExcludedFromChatBadge bool `json:"excludedFromChatBadge,omitempty"`

	Source Source `json:"source"`
}

// Synthesized reports whether the event id was invented by this client
// rather than assigned by the backend. Synthesized ids never collapse
// against each other by id; only fingerprint and near-duplicate rules
// apply to them.
func (e NotificationEvent) Synthesized() bool {
	return strings.HasPrefix(e.ID, "push-")
}
