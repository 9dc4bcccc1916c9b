package scheduler

import (
	"testing"
	"time"
)

func TestFakeFiresInDueOrder(t *testing.T) {
	f := NewFake(time.Unix(0, 0))

	var order []string
	f.Schedule(func() { order = append(order, "b") }, 2*time.Second)
	f.Schedule(func() { order = append(order, "a") }, 1*time.Second)
	f.Schedule(func() { order = append(order, "c") }, 3*time.Second)

	f.Advance(5 * time.Second)

	want := []string{"a", "b", "c"}
	if len(order) != len(want) {
		t.Fatalf("fired %d tasks, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestFakeCancelPreventsFire(t *testing.T) {
	f := NewFake(time.Unix(0, 0))

	fired := false
	cancel := f.Schedule(func() { fired = true }, time.Second)
	cancel()

	f.Advance(2 * time.Second)
	if fired {
		t.Error("cancelled task fired")
	}
	if f.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", f.Pending())
	}
}

func TestFakeChainedSchedule(t *testing.T) {
	f := NewFake(time.Unix(0, 0))

	count := 0
	var tick func()
	tick = func() {
		count++
		if count < 3 {
			f.Schedule(tick, time.Second)
		}
	}
	f.Schedule(tick, time.Second)

	f.Advance(10 * time.Second)
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
	if got := f.Now(); !got.Equal(time.Unix(10, 0)) {
		t.Errorf("Now() = %v, want %v", got, time.Unix(10, 0))
	}
}
