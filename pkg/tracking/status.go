package tracking

import "sync"

// StatusTracker holds the reception status state machine.
//
//	NOT_RECEIVING         --RequestAutoStart-->  ATTEMPTING_AUTO_START
//	ATTEMPTING_AUTO_START --Streaming-->         RECEIVING
//	ATTEMPTING_AUTO_START --AutoStartFailed-->   NOT_RECEIVING
//	NOT_RECEIVING         --Streaming-->         RECEIVING
//	RECEIVING             --Disconnected-->      NOT_RECEIVING
//
// Every other input leaves the status unchanged. In particular a Disconnected
// report while an auto-start attempt is pending keeps the attempt alive.
type StatusTracker struct {
	mu     sync.RWMutex
	status ReceptionStatus
}

// NewStatusTracker returns a tracker in NOT_RECEIVING.
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{status: NotReceiving}
}

// Status returns the current status.
func (t *StatusTracker) Status() ReceptionStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// Observe applies a producer connectivity report.
func (t *StatusTracker) Observe(c Connectivity) (from, to ReceptionStatus, changed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	from = t.status
	to = nextStatus(from, c)
	t.status = to
	return from, to, from != to
}

// RequestAutoStart moves NOT_RECEIVING to ATTEMPTING_AUTO_START. Other states are kept.
func (t *StatusTracker) RequestAutoStart() (from, to ReceptionStatus, changed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	from = t.status
	if from == NotReceiving {
		t.status = AttemptingAutoStart
	}
	return from, t.status, from != t.status
}

func nextStatus(cur ReceptionStatus, c Connectivity) ReceptionStatus {
	switch cur {
	case NotReceiving:
		if c == Streaming {
			return Receiving
		}
	case Receiving:
		if c == Disconnected {
			return NotReceiving
		}
	case AttemptingAutoStart:
		switch c {
		case Streaming:
			return Receiving
		case AutoStartFailed:
			return NotReceiving
		}
	}
	return cur
}
