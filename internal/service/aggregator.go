package service

import (
	"sort"
	"sync"

	"github.com/strogmv/unread/internal/domain"
)

// Aggregator groups CHAT_* events into per-conversation unread summaries.
// Conversations without unread members disappear from snapshots but stay
// in the map until session end so their fingerprints keep deduplicating.
type Aggregator struct {
	mu            sync.Mutex
	conversations map[domain.ConversationKey]*domain.Conversation
}

func NewAggregator() *Aggregator {
	return &Aggregator{conversations: map[domain.ConversationKey]*domain.Conversation{}}
}

// Ingest appends a chat event to its conversation, creating it lazily,
// and recomputes that conversation only. Non-chat events and chat events
// without a key are ignored.
func (a *Aggregator) Ingest(ev domain.NotificationEvent) {
	if !ev.Category.IsChat() || ev.ConversationKey.Zero() {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	conv, ok := a.conversations[ev.ConversationKey]
	if !ok {
		conv = &domain.Conversation{Key: ev.ConversationKey}
		a.conversations[ev.ConversationKey] = conv
	}

	// An event already aggregated under the same persisted id only
	// refreshes the read flag; it must not count twice.
	if !ev.Synthesized() {
		for i := range conv.Messages {
			if conv.Messages[i].ID == ev.ID {
				if ev.Read {
					conv.Messages[i].Read = true
				}
				conv.Recompute()
				return
			}
		}
	}

	conv.Messages = append(conv.Messages, ev)
	conv.Recompute()
}

// Snapshot returns one synthesized summary per conversation that still
// has unread members, newest first. Admin-flagged events are kept in the
// conversation but never counted toward its unread badge.
func (a *Aggregator) Snapshot() []domain.ConversationSummary {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]domain.ConversationSummary, 0, len(a.conversations))
	for _, conv := range a.conversations {
		if !conv.HasUnread {
			continue
		}
		out = append(out, domain.ConversationSummary{
			Key:              conv.Key,
			CounterpartyName: conv.Key.Counterparty,
			UnreadCount:      conv.UnreadCount,
			LatestMessage:    conv.LatestMessage.Message,
			LatestTimestamp:  conv.LatestMessage.CreatedAt,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].LatestTimestamp.After(out[j].LatestTimestamp)
	})
	return out
}

// MarkConversationRead acknowledges every member event of one conversation.
func (a *Aggregator) MarkConversationRead(key domain.ConversationKey) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	conv, ok := a.conversations[key]
	if !ok {
		return false
	}
	for i := range conv.Messages {
		conv.Messages[i].Read = true
	}
	conv.Recompute()
	return true
}

// MarkChatRead acknowledges every conversation belonging to a chat id,
// regardless of counterparty spelling.
func (a *Aggregator) MarkChatRead(chatID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	found := false
	for key, conv := range a.conversations {
		if key.ChatID != chatID {
			continue
		}
		for i := range conv.Messages {
			conv.Messages[i].Read = true
		}
		conv.Recompute()
		found = true
	}
	return found
}
