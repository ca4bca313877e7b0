package tracking

import "time"

// Waiter blocks callers until the slot holds a frame they have not seen.
// Any number of goroutines may wait concurrently, each against its own timestamp.
type Waiter struct {
	slot *FrameSlot
}

// NewWaiter returns a Waiter over slot.
func NewWaiter(slot *FrameSlot) *Waiter {
	return &Waiter{slot: slot}
}

// WaitForUpdate waits until the slot timestamp differs from *lastSeen or timeout elapses.
//
// On success it stores the new timestamp in *lastSeen and returns true. On timeout it
// leaves *lastSeen unchanged and returns false. A timeout of zero or less polls once
// without waiting. The deadline uses the monotonic clock.
func (w *Waiter) WaitForUpdate(lastSeen *Timestamp, timeout time.Duration) bool {
	snap := w.slot.load()
	if snap.ts != *lastSeen {
		*lastSeen = snap.ts
		return true
	}
	if timeout <= 0 {
		return false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-snap.changed:
			snap = w.slot.load()
			if snap.ts != *lastSeen {
				*lastSeen = snap.ts
				return true
			}
		case <-timer.C:
			return false
		}
	}
}
