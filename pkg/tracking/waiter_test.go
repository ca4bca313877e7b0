package tracking

import (
	"sync"
	"testing"
	"time"
)

func TestWaitForUpdateZeroTimeoutPolls(t *testing.T) {
	s := NewFrameSlot()
	w := NewWaiter(s)

	last := NullDataTimestamp
	start := time.Now()
	if w.WaitForUpdate(&last, 0) {
		t.Error("WaitForUpdate(0) on empty slot = true")
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("WaitForUpdate(0) blocked for %v", elapsed)
	}

	s.Publish(frameAt(1), 1)
	if !w.WaitForUpdate(&last, 0) {
		t.Fatal("WaitForUpdate(0) after publish = false")
	}
	if last != 1 {
		t.Errorf("last = %v, want 1", last)
	}
}

func TestWaitForUpdateTimeout(t *testing.T) {
	s := NewFrameSlot()
	s.Publish(frameAt(4), 4)
	w := NewWaiter(s)

	last := Timestamp(4)
	timeout := 60 * time.Millisecond
	start := time.Now()
	if w.WaitForUpdate(&last, timeout) {
		t.Fatal("WaitForUpdate without publish = true")
	}
	if elapsed := time.Since(start); elapsed < timeout {
		t.Errorf("returned after %v, want >= %v", elapsed, timeout)
	}
	if last != 4 {
		t.Errorf("last changed to %v on timeout", last)
	}
}

func TestWaitForUpdateWakesOnPublish(t *testing.T) {
	s := NewFrameSlot()
	w := NewWaiter(s)

	done := make(chan Timestamp, 1)
	go func() {
		last := NullDataTimestamp
		if w.WaitForUpdate(&last, 2*time.Second) {
			done <- last
			return
		}
		done <- NullDataTimestamp
	}()

	time.Sleep(20 * time.Millisecond)
	s.Publish(frameAt(7), 7)

	select {
	case got := <-done:
		if got != 7 {
			t.Errorf("waiter saw %v, want 7", got)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter not woken by publish")
	}
}

func TestWaitForUpdateIgnoresSameTimestamp(t *testing.T) {
	s := NewFrameSlot()
	s.Publish(frameAt(2), 2)
	w := NewWaiter(s)

	go func() {
		time.Sleep(10 * time.Millisecond)
		s.Publish(frameAt(2), 2)
	}()

	last := Timestamp(2)
	if w.WaitForUpdate(&last, 80*time.Millisecond) {
		t.Error("republishing the same timestamp woke the waiter with success")
	}
}

func TestWaitForUpdateConcurrentWaiters(t *testing.T) {
	s := NewFrameSlot()
	s.Publish(frameAt(1), 1)
	w := NewWaiter(s)

	seen := []Timestamp{1, 1, NullDataTimestamp, 1}
	results := make([]bool, len(seen))

	var wg sync.WaitGroup
	for i := range seen {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = w.WaitForUpdate(&seen[i], time.Second)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	s.Publish(frameAt(2), 2)
	wg.Wait()

	for i, ok := range results {
		if !ok {
			t.Errorf("waiter %d timed out", i)
		}
	}
	// Waiter 2 started from null and returns the value present at its first check.
	if seen[2] != 1 && seen[2] != 2 {
		t.Errorf("waiter 2 saw %v", seen[2])
	}
	for _, i := range []int{0, 1, 3} {
		if seen[i] != 2 {
			t.Errorf("waiter %d saw %v, want 2", i, seen[i])
		}
	}
}
