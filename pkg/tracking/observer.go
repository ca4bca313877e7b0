package tracking

import "time"

// Observer receives engine events for metrics. Implementations must be fast and
// safe for concurrent use; hooks are called from the ingest and fan-out goroutines.
type Observer interface {
	// FramePublished is called after a new frame lands in the slot.
	FramePublished(ts Timestamp)
	// FramesCoalesced is called when n queued frame events were replaced by a newer one.
	FramesCoalesced(n int)
	// StatusChanged is called on every reception status transition.
	StatusChanged(from, to ReceptionStatus)
	// ListenerPanicked is called when a listener callback panics.
	ListenerPanicked(h ListenerHandle)
	// FanOutCompleted is called after one event was delivered to every listener.
	FanOutCompleted(elapsed time.Duration, listeners int)
	// ListenerCount is called whenever the number of registered listeners changes.
	ListenerCount(n int)
}

// NopObserver discards every event.
type NopObserver struct{}

func (NopObserver) FramePublished(Timestamp) {}
func (NopObserver) FramesCoalesced(int) {}
func (NopObserver) StatusChanged(ReceptionStatus, ReceptionStatus) {}
func (NopObserver) ListenerPanicked(ListenerHandle) {}
func (NopObserver) FanOutCompleted(time.Duration, int) {}
func (NopObserver) ListenerCount(int) {}
