package domain

import "strings"

// ExclusionRule is one data-driven predicate evaluated against an event's
// sender and title. Empty fields match anything; a rule matches when every
// non-empty field matches.
type ExclusionRule struct {
	SenderID       string `json:"senderId,omitempty"`
	SenderRole     string `json:"senderRole,omitempty"`
	SenderContains string `json:"senderContains,omitempty"`
	TitleContains  string `json:"titleContains,omitempty"`
	CategoryEquals string `json:"category,omitempty"`
}

// Matches evaluates the rule against an event.
func (r ExclusionRule) Matches(e NotificationEvent) bool {
	if r.SenderID != "" && !strings.EqualFold(r.SenderID, e.SenderID) {
		return false
	}
	if r.SenderRole != "" && !strings.EqualFold(r.SenderRole, e.SenderRole) {
		return false
	}
	if r.SenderContains != "" && !containsFold(e.SenderName, r.SenderContains) {
		return false
	}
	if r.TitleContains != "" && !containsFold(e.Title, r.TitleContains) {
		return false
	}
	if r.CategoryEquals != "" && !strings.EqualFold(r.CategoryEquals, string(e.Category)) {
		return false
	}
	return true
}

// RuleSet is an ordered list of exclusion rules. The general badge and the
// chat badge each carry their own set; the two are configured independently
// because the backend has never confirmed they are the same rule.
type RuleSet []ExclusionRule

// Excluded reports whether any rule in the set matches the event.
func (s RuleSet) Excluded(e NotificationEvent) bool {
	for _, r := range s {
		if r.Matches(e) {
			return true
		}
	}
	return false
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
