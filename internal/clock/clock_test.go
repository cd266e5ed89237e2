package clock

import (
	"testing"
	"time"
)

func TestFake_AdvanceFiresDueTimers(t *testing.T) {
	f := NewFake()

	var fired []string
	f.AfterFunc(10*time.Millisecond, func() { fired = append(fired, "a") })
	f.AfterFunc(20*time.Millisecond, func() { fired = append(fired, "b") })
	f.AfterFunc(30*time.Millisecond, func() { fired = append(fired, "c") })

	f.Advance(20 * time.Millisecond)

	if len(fired) != 2 || fired[0] != "a" || fired[1] != "b" {
		t.Fatalf("fired = %v, want [a b]", fired)
	}
	if f.Pending() != 1 {
		t.Errorf("Pending = %d, want 1", f.Pending())
	}

	f.Advance(10 * time.Millisecond)
	if len(fired) != 3 || fired[2] != "c" {
		t.Fatalf("fired = %v, want [a b c]", fired)
	}
}

func TestFake_StopPreventsFiring(t *testing.T) {
	f := NewFake()

	fired := false
	timer := f.AfterFunc(10*time.Millisecond, func() { fired = true })

	if !timer.Stop() {
		t.Error("Stop returned false for pending timer")
	}
	f.Advance(time.Hour)

	if fired {
		t.Error("stopped timer fired")
	}
	if timer.Stop() {
		t.Error("Stop returned true for already-stopped timer")
	}
}

func TestFake_CallbackSchedulesWithinWindow(t *testing.T) {
	f := NewFake()

	var fired []int
	f.AfterFunc(10*time.Millisecond, func() {
		fired = append(fired, 1)
		f.AfterFunc(10*time.Millisecond, func() { fired = append(fired, 2) })
	})

	// Both the outer and the chained timer fall within the advanced window.
	f.Advance(25 * time.Millisecond)

	if len(fired) != 2 || fired[0] != 1 || fired[1] != 2 {
		t.Fatalf("fired = %v, want [1 2]", fired)
	}
}

func TestFake_NowTracksAdvance(t *testing.T) {
	f := NewFake()
	start := f.Now()

	f.Advance(90 * time.Second)

	if got := f.Now().Sub(start); got != 90*time.Second {
		t.Errorf("advanced by %v, want 90s", got)
	}
}

func TestFake_EqualDeadlinesFireInScheduleOrder(t *testing.T) {
	f := NewFake()

	var fired []string
	f.AfterFunc(10*time.Millisecond, func() { fired = append(fired, "first") })
	f.AfterFunc(10*time.Millisecond, func() { fired = append(fired, "second") })

	f.Advance(10 * time.Millisecond)

	if len(fired) != 2 || fired[0] != "first" || fired[1] != "second" {
		t.Fatalf("fired = %v, want [first second]", fired)
	}
}
