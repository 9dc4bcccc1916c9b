package scheduler

import (
	"sort"
	"sync"
	"time"

	"github.com/strogmv/unread/internal/port"
)

// Real schedules tasks on the wall clock.
type Real struct{}

func New() *Real {
	return &Real{}
}

func (Real) Schedule(fn func(), delay time.Duration) port.CancelFunc {
	t := time.AfterFunc(delay, fn)
	return func() { t.Stop() }
}

func (Real) Now() time.Time {
	return time.Now()
}

// Fake is a manually advanced clock for tests. Tasks fire synchronously
// from Advance, in due-time order.
type Fake struct {
	mu    sync.Mutex
	now   time.Time
	next  int
	tasks map[int]*fakeTask
}

type fakeTask struct {
	due time.Time
	fn  func()
}

// NewFake creates a fake scheduler starting at the given instant.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start, tasks: map[int]*fakeTask{}}
}

func (f *Fake) Schedule(fn func(), delay time.Duration) port.CancelFunc {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	f.tasks[id] = &fakeTask{due: f.now.Add(delay), fn: fn}
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.tasks, id)
	}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the clock forward and fires every task due on the way,
// in chronological order. Tasks scheduled by fired tasks fire too if
// they fall within the window.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		f.mu.Lock()
		id, task := f.nextDue(target)
		if task == nil {
			f.now = target
			f.mu.Unlock()
			return
		}
		delete(f.tasks, id)
		if task.due.After(f.now) {
			f.now = task.due
		}
		f.mu.Unlock()
		task.fn()
	}
}

// Pending returns the number of scheduled, unfired tasks.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}

func (f *Fake) nextDue(target time.Time) (int, *fakeTask) {
	ids := make([]int, 0, len(f.tasks))
	for id := range f.tasks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ti, tj := f.tasks[ids[i]], f.tasks[ids[j]]
		if ti.due.Equal(tj.due) {
			return ids[i] < ids[j]
		}
		return ti.due.Before(tj.due)
	})
	for _, id := range ids {
		if !f.tasks[id].due.After(target) {
			return id, f.tasks[id]
		}
	}
	return 0, nil
}
