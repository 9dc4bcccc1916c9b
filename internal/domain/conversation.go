package domain

import "time"

// Conversation aggregates CHAT_* events sharing one ConversationKey.
// It is recomputed on every ingest, never persisted.
type Conversation struct {
	Key      ConversationKey
	Messages []NotificationEvent

	HasUnread     bool
	UnreadCount   int
	LatestMessage *NotificationEvent
}

// Recompute refreshes the derived fields from the member events.
func (c *Conversation) Recompute() {
	c.HasUnread = false
	c.UnreadCount = 0
	c.LatestMessage = nil

	var latestAt time.Time
	for i := range c.Messages {
		m := &c.Messages[i]
		if !m.Read && !m.ExcludedFromChatBadge {
			c.HasUnread = true
			c.UnreadCount++
		}
		if c.LatestMessage == nil || m.CreatedAt.After(latestAt) {
			c.LatestMessage = m
			latestAt = m.CreatedAt
		}
	}
}

// ConversationSummary is the one synthesized item a consumer renders as
// "N new messages from X". Raw per-message lists are never exposed.
type ConversationSummary struct {
	Key              ConversationKey `json:"conversationKey"`
	CounterpartyName string          `json:"counterpartyName"`
	UnreadCount      int             `json:"unreadCount"`
	LatestMessage    string          `json:"latestMessage"`
	LatestTimestamp  time.Time       `json:"latestTimestamp"`
}

// UnreadView is the reconciled output consumed by the presentation layer.
type UnreadView struct {
	GeneralList        []NotificationEvent   `json:"generalList"`
	GeneralUnreadCount int                   `json:"generalUnreadCount"`
	ChatSummaries      []ConversationSummary `json:"chatSummaries"`
	ChatUnreadCount    int                   `json:"chatUnreadCount"`
}
