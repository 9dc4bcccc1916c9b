package service

import (
	"testing"
	"time"

	"github.com/strogmv/unread/internal/domain"
)

func generalEvent(id, title string, at time.Time, source domain.Source) domain.NotificationEvent {
	return domain.NotificationEvent{
		ID:          id,
		Category:    domain.CategoryGeneral,
		Title:       title,
		RecipientID: "u1",
		CreatedAt:   at,
		Source:      source,
	}
}

func TestRecomputeCollapsesByID(t *testing.T) {
	r := NewReconciler("u1", nil)
	at := time.Unix(1000, 0)

	push := []domain.NotificationEvent{generalEvent("n1", "Order shipped", at, domain.SourcePush)}
	pulled := []domain.NotificationEvent{generalEvent("n1", "Order shipped", at, domain.SourcePull)}

	view := r.Recompute(push, pulled, nil)
	if view.GeneralUnreadCount != 1 {
		t.Errorf("GeneralUnreadCount = %d, want 1", view.GeneralUnreadCount)
	}

	ids := map[string]int{}
	for _, ev := range view.GeneralList {
		ids[ev.ID]++
		if ids[ev.ID] > 1 {
			t.Fatalf("duplicate id %s survived into generalList", ev.ID)
		}
	}
}

func TestRecomputeNearDuplicateCollapse(t *testing.T) {
	r := NewReconciler("u1", nil)
	at := time.Unix(1000, 0)

	// Pushed event with synthesized id, then its persisted twin with a
	// real id, 400ms later: same title, same 1s bucket.
	push := []domain.NotificationEvent{generalEvent("push-abc", "Payment received", at, domain.SourcePush)}
	pulled := []domain.NotificationEvent{generalEvent("n7", "Payment received", at.Add(400*time.Millisecond), domain.SourcePull)}

	view := r.Recompute(push, pulled, nil)
	if view.GeneralUnreadCount != 1 {
		t.Errorf("GeneralUnreadCount = %d, want 1 (near-duplicate must collapse)", view.GeneralUnreadCount)
	}
}

func TestRecomputeDropsReadAndForeign(t *testing.T) {
	r := NewReconciler("u1", nil)
	at := time.Unix(1000, 0)

	read := generalEvent("n1", "Old news", at, domain.SourcePull)
	read.Read = true
	foreign := generalEvent("n2", "Not yours", at, domain.SourcePull)
	foreign.RecipientID = "u2"
	keep := generalEvent("n3", "Fresh", at.Add(time.Second), domain.SourcePull)

	view := r.Recompute(nil, []domain.NotificationEvent{read, foreign, keep}, nil)
	if view.GeneralUnreadCount != 1 || view.GeneralList[0].ID != "n3" {
		t.Errorf("generalList = %+v, want only n3", view.GeneralList)
	}
}

func TestRecomputeReadTwinAcknowledges(t *testing.T) {
	r := NewReconciler("u1", nil)
	at := time.Unix(1000, 0)

	push := []domain.NotificationEvent{generalEvent("n1", "Order shipped", at, domain.SourcePush)}
	pulledTwin := generalEvent("n1", "Order shipped", at, domain.SourcePull)
	pulledTwin.Read = true

	view := r.Recompute(push, []domain.NotificationEvent{pulledTwin}, nil)
	if view.GeneralUnreadCount != 0 {
		t.Errorf("GeneralUnreadCount = %d, want 0 (read pulled twin acknowledges)", view.GeneralUnreadCount)
	}
}

func TestRecomputeSortsDescending(t *testing.T) {
	r := NewReconciler("u1", nil)
	base := time.Unix(1000, 0)

	pulled := []domain.NotificationEvent{
		generalEvent("n1", "first", base, domain.SourcePull),
		generalEvent("n2", "third", base.Add(20*time.Second), domain.SourcePull),
		generalEvent("n3", "second", base.Add(10*time.Second), domain.SourcePull),
	}

	view := r.Recompute(nil, pulled, nil)
	want := []string{"n2", "n3", "n1"}
	for i, id := range want {
		if view.GeneralList[i].ID != id {
			t.Errorf("generalList[%d] = %s, want %s", i, view.GeneralList[i].ID, id)
		}
	}
}

func TestRecomputeCategoryPartition(t *testing.T) {
	r := NewReconciler("u1", nil)
	at := time.Unix(1000, 0)

	chat := generalEvent("m1", "hello", at, domain.SourcePush)
	chat.Category = domain.CategoryChatMessage
	chat.ConversationKey = domain.ConversationKey{ChatID: "c1", Counterparty: "Alice"}

	view := r.Recompute([]domain.NotificationEvent{chat}, nil, []domain.ConversationSummary{{
		Key:         chat.ConversationKey,
		UnreadCount: 1,
	}})

	// A chat event belongs to chatSummaries, never to the general list.
	if len(view.GeneralList) != 0 {
		t.Errorf("chat event leaked into generalList: %+v", view.GeneralList)
	}
	if view.ChatUnreadCount != 1 {
		t.Errorf("ChatUnreadCount = %d, want 1", view.ChatUnreadCount)
	}
}

func TestRecomputeGeneralExclusionRules(t *testing.T) {
	rules := domain.RuleSet{{TitleContains: "maintenance"}}
	r := NewReconciler("u1", rules)
	at := time.Unix(1000, 0)

	pulled := []domain.NotificationEvent{
		generalEvent("n1", "Scheduled maintenance window", at, domain.SourcePull),
		generalEvent("n2", "Your invoice", at, domain.SourcePull),
	}

	view := r.Recompute(nil, pulled, nil)
	if view.GeneralUnreadCount != 1 || view.GeneralList[0].ID != "n2" {
		t.Errorf("generalList = %+v, want only n2", view.GeneralList)
	}
}

func TestRecomputeDeterministic(t *testing.T) {
	r := NewReconciler("u1", nil)
	base := time.Unix(1000, 0)

	push := []domain.NotificationEvent{
		generalEvent("push-x", "a", base, domain.SourcePush),
		generalEvent("n1", "b", base.Add(time.Second), domain.SourcePush),
	}
	pulled := []domain.NotificationEvent{
		generalEvent("n1", "b", base.Add(time.Second), domain.SourcePull),
		generalEvent("n2", "c", base.Add(2*time.Second), domain.SourcePull),
	}

	first := r.Recompute(push, pulled, nil)
	for i := 0; i < 10; i++ {
		again := r.Recompute(push, pulled, nil)
		if again.GeneralUnreadCount != first.GeneralUnreadCount {
			t.Fatalf("recompute %d: count %d, first %d", i, again.GeneralUnreadCount, first.GeneralUnreadCount)
		}
		for j := range first.GeneralList {
			if again.GeneralList[j].ID != first.GeneralList[j].ID {
				t.Fatalf("recompute %d: order diverged at %d", i, j)
			}
		}
	}
}
