package service

import (
	"sort"

	"github.com/strogmv/unread/internal/domain"
)

// Reconciler merges the live push-derived general set and the last-known
// pulled set into the final badge view. Recompute is a pure function of
// its inputs: same sets in, same view out, regardless of arrival order.
type Reconciler struct {
	userID       string
	generalRules domain.RuleSet
}

func NewReconciler(userID string, generalRules domain.RuleSet) *Reconciler {
	return &Reconciler{userID: userID, generalRules: generalRules}
}

// Recompute derives the consumer-facing view. chat summaries come from
// the aggregator, which the ingestion path has already fed; the general
// path is recomputed here from scratch on every call.
func (r *Reconciler) Recompute(push, pulled []domain.NotificationEvent, chat []domain.ConversationSummary) domain.UnreadView {
	general := r.generalList(push, pulled)

	chatUnread := 0
	for _, c := range chat {
		chatUnread += c.UnreadCount
	}

	return domain.UnreadView{
		GeneralList:        general,
		GeneralUnreadCount: len(general),
		ChatSummaries:      chat,
		ChatUnreadCount:    chatUnread,
	}
}

func (r *Reconciler) generalList(push, pulled []domain.NotificationEvent) []domain.NotificationEvent {
	// Collapse by persisted id first. A read flag from either twin wins:
	// the pulled copy is authoritative for persisted events, and a local
	// acknowledgement must never be undone by a later pull.
	byID := map[string]int{}
	merged := make([]domain.NotificationEvent, 0, len(push)+len(pulled))

	for _, ev := range append(append([]domain.NotificationEvent{}, push...), pulled...) {
		if ev.Category.IsChat() {
			continue
		}
		if ev.RecipientID != r.userID {
			continue
		}
		if r.generalRules.Excluded(ev) {
			continue
		}

		if !ev.Synthesized() {
			if i, ok := byID[ev.ID]; ok {
				if ev.Read {
					merged[i].Read = true
				}
				continue
			}
			byID[ev.ID] = len(merged)
		}
		merged = append(merged, ev)
	}

	// Secondary near-duplicate filter: a pushed event and its later
	// persisted twin can carry different ids, so (category, title,
	// 1s bucket) collapses them too. Read state merges the same way.
	type nearKey struct {
		category domain.Category
		title    string
		bucket   int64
	}
	byNear := map[nearKey]int{}
	out := make([]domain.NotificationEvent, 0, len(merged))
	for _, ev := range merged {
		k := nearKey{ev.Category, ev.Title, ev.CreatedAt.Unix()}
		if i, ok := byNear[k]; ok {
			if ev.Read {
				out[i].Read = true
			}
			continue
		}
		byNear[k] = len(out)
		out = append(out, ev)
	}

	// Only unread items surface; each counts as one.
	unread := out[:0]
	for _, ev := range out {
		if !ev.Read {
			unread = append(unread, ev)
		}
	}

	sort.SliceStable(unread, func(i, j int) bool {
		if unread[i].CreatedAt.Equal(unread[j].CreatedAt) {
			return unread[i].ID < unread[j].ID
		}
		return unread[i].CreatedAt.After(unread[j].CreatedAt)
	})
	return unread
}
