package port

import "time"

// CancelFunc cancels a scheduled task. Calling it after the task fired
// is a no-op.
type CancelFunc func()

// Scheduler abstracts one-shot timers so reconnect backoff, cooldowns and
// the fallback recompute interval are all drivable by a fake clock in tests.
type Scheduler interface {
	Schedule(fn func(), delay time.Duration) CancelFunc
	Now() time.Time
}
