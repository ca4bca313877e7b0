package camera

import (
	"log/slog"
	"sync"

	"github.com/teslashibe/go-gaze/internal/log"
)

// RecenterState is the state of the recenter sequence.
type RecenterState int

const (
	Idle RecenterState = iota
	Recentering
)

func (s RecenterState) String() string {
	if s == Recentering {
		return "recentering"
	}
	return "idle"
}

// Recenterer queues recenter requests with the tracker.
// tracking.Producer satisfies it.
type Recenterer interface {
	RequestRecenterStart() error
	RequestRecenterEnd() error
}

// Recenter sequences recenter start/end against a Recenterer.
//
// Start captures the user's current pose as the new neutral pose; the tracker keeps
// sampling until End. Start while already recentering and End while idle do nothing.
type Recenter struct {
	target Recenterer
	logger *slog.Logger

	mu    sync.Mutex
	state RecenterState
}

// NewRecenter returns an idle recenter sequence over target.
func NewRecenter(target Recenterer, logger *slog.Logger) *Recenter {
	if logger == nil {
		logger = log.Component("camera")
	}
	return &Recenter{target: target, logger: logger}
}

// Start moves Idle to Recentering and asks the tracker to capture a reference pose.
// It returns false, staying Idle, when the request could not be queued. While
// already Recentering it returns true without sending anything.
func (r *Recenter) Start() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == Recentering {
		return true
	}
	if err := r.target.RequestRecenterStart(); err != nil {
		r.logger.Warn("recenter start rejected", "error", err)
		return false
	}
	r.state = Recentering
	return true
}

// End moves Recentering back to Idle. The transition happens even if the tracker
// cannot be told; the error is only logged.
func (r *Recenter) End() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == Idle {
		return
	}
	r.state = Idle
	if err := r.target.RequestRecenterEnd(); err != nil {
		r.logger.Warn("recenter end not delivered", "error", err)
	}
}

// State returns the current recenter state.
func (r *Recenter) State() RecenterState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}
