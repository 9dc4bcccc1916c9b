package port

import "context"

// Signal names emitted by the engine for cross-surface refresh. These are
// fire-and-forget, at most once per recompute, not a durable event log.
const (
	SignalUnreadChanged    = "unread.changed"
	SignalConversationRead = "conversation.read"
	SignalSessionDegraded  = "session.degraded"
)

// SignalPublisher fans engine signals out to interested surfaces.
type SignalPublisher interface {
	Publish(ctx context.Context, signal string, payload any) error
}
