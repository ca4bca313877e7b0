package tracking

import (
	"sync"
	"sync/atomic"
)

// snapshot is one immutable publication. changed is closed by the next Publish,
// which wakes every goroutine waiting on this snapshot.
type snapshot struct {
	frame   Frame
	ts      Timestamp
	seq     uint64
	changed chan struct{}
}

// FrameSlot holds the latest frame. It keeps no history: each Publish replaces
// the previous frame.
//
// One writer and any number of readers may use it concurrently. Reads are a
// single atomic load and never block the writer.
type FrameSlot struct {
	mu  sync.Mutex // serializes publishers
	cur atomic.Pointer[snapshot]
}

// NewFrameSlot returns a slot holding EmptyFrame at NullDataTimestamp, sequence 0.
func NewFrameSlot() *FrameSlot {
	s := &FrameSlot{}
	s.cur.Store(&snapshot{
		frame:   EmptyFrame(),
		ts:      NullDataTimestamp,
		changed: make(chan struct{}),
	})
	return s
}

// Publish stores frame with its timestamp, bumps the sequence number and wakes waiters.
// It returns the new sequence number.
func (s *FrameSlot) Publish(frame Frame, ts Timestamp) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.cur.Load()
	next := &snapshot{
		frame:   frame,
		ts:      ts,
		seq:     prev.seq + 1,
		changed: make(chan struct{}),
	}
	s.cur.Store(next)
	close(prev.changed)
	return next.seq
}

// Read returns a copy of the latest frame and its timestamp.
func (s *FrameSlot) Read() (Frame, Timestamp) {
	snap := s.cur.Load()
	return snap.frame, snap.ts
}

// ReadSeq is Read plus the sequence number of the publication.
func (s *FrameSlot) ReadSeq() (Frame, Timestamp, uint64) {
	snap := s.cur.Load()
	return snap.frame, snap.ts, snap.seq
}

// Timestamp returns the timestamp of the latest publication.
func (s *FrameSlot) Timestamp() Timestamp {
	return s.cur.Load().ts
}

// Seq returns the number of publications so far.
func (s *FrameSlot) Seq() uint64 {
	return s.cur.Load().seq
}

// HasUpdateSince reports whether the stored timestamp differs from lastSeen.
//
// The test is plain inequality, not ordering. After a tracking restart a new
// frame that happens to carry an already seen timestamp is not reported.
func (s *FrameSlot) HasUpdateSince(lastSeen Timestamp) bool {
	return s.cur.Load().ts != lastSeen
}

func (s *FrameSlot) load() *snapshot {
	return s.cur.Load()
}
