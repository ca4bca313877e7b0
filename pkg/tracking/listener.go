package tracking

// ListenerHandle identifies one registration. Handles are never reused.
type ListenerHandle uint64

// InvalidListenerHandle is never returned by a successful registration.
const InvalidListenerHandle ListenerHandle = 0

// Listener receives pushed tracking updates.
//
// Callbacks run on the engine's fan-out goroutine and must return in bounded time.
// The frame pointer is borrowed for the duration of the call and must be treated
// as read-only; copy the value to keep it. A listener must not unregister itself
// from inside its own callback: Unregister waits for the in-flight callback.
type Listener interface {
	OnReceptionStatusChanged(status ReceptionStatus)
	OnTrackingFrame(frame *Frame, ts Timestamp)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Status func(ReceptionStatus)
	Frame  func(*Frame, Timestamp)
}

func (l ListenerFuncs) OnReceptionStatusChanged(status ReceptionStatus) {
	if l.Status != nil {
		l.Status(status)
	}
}

func (l ListenerFuncs) OnTrackingFrame(frame *Frame, ts Timestamp) {
	if l.Frame != nil {
		l.Frame(frame, ts)
	}
}
