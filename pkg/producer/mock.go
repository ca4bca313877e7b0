package producer

import (
	"sync"
	"time"

	"github.com/teslashibe/go-gaze/pkg/tracking"
)

// Mock implements tracking.Producer for testing.
// Request methods can be customized via function fields; frames and connectivity
// are driven with Emit and SetConnectivity.
type Mock struct {
	// AutoStartFunc is called when RequestAutoStart is invoked.
	// If nil, returns nil (request queued).
	AutoStartFunc func() error

	// RecenterStartFunc is called when RequestRecenterStart is invoked.
	// If nil, returns nil.
	RecenterStartFunc func() error

	// RecenterEndFunc is called when RequestRecenterEnd is invoked.
	// If nil, returns nil.
	RecenterEndFunc func() error

	// ViewportFunc is called when UpdateViewport is invoked.
	// If nil, returns nil.
	ViewportFunc func(tracking.ViewportGeometry) error

	mu        sync.Mutex
	sample    tracking.Sample
	updates   chan struct{}
	closed    bool
	closeOnce sync.Once

	// Tracking
	calls []MockCall
}

// MockCall records a method invocation for verification.
type MockCall struct {
	Method   string
	Viewport tracking.ViewportGeometry
	Time     time.Time
}

var _ tracking.Producer = (*Mock)(nil)

// NewMock creates a disconnected mock with no frames.
func NewMock() *Mock {
	return &Mock{
		sample: tracking.Sample{
			Frame:        tracking.EmptyFrame(),
			Timestamp:    tracking.NullDataTimestamp,
			Connectivity: tracking.Disconnected,
		},
		updates: make(chan struct{}, 1),
	}
}

// WithError returns a mock whose request methods all fail with err.
func WithError(err error) *Mock {
	m := NewMock()
	m.AutoStartFunc = func() error { return err }
	m.RecenterStartFunc = func() error { return err }
	m.RecenterEndFunc = func() error { return err }
	m.ViewportFunc = func(tracking.ViewportGeometry) error { return err }
	return m
}

// Emit publishes frame at ts and marks the link as streaming.
func (m *Mock) Emit(frame tracking.Frame, ts tracking.Timestamp) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.sample.Seq++
	m.sample.Frame = frame
	m.sample.Timestamp = ts
	m.sample.Connectivity = tracking.Streaming
	m.notify()
	m.mu.Unlock()
}

// SetConnectivity changes the reported connectivity without a new frame.
func (m *Mock) SetConnectivity(c tracking.Connectivity) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.sample.Connectivity = c
	m.notify()
	m.mu.Unlock()
}

// notify must be called with m.mu held so it cannot race Close.
func (m *Mock) notify() {
	select {
	case m.updates <- struct{}{}:
	default:
	}
}

// Updates implements tracking.Producer.
func (m *Mock) Updates() <-chan struct{} { return m.updates }

// Fetch implements tracking.Producer.
func (m *Mock) Fetch() tracking.Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sample
}

// RequestAutoStart calls AutoStartFunc and records the call.
func (m *Mock) RequestAutoStart() error {
	m.recordCall("RequestAutoStart", tracking.ViewportGeometry{})
	if m.AutoStartFunc != nil {
		return m.AutoStartFunc()
	}
	return nil
}

// RequestRecenterStart calls RecenterStartFunc and records the call.
func (m *Mock) RequestRecenterStart() error {
	m.recordCall("RequestRecenterStart", tracking.ViewportGeometry{})
	if m.RecenterStartFunc != nil {
		return m.RecenterStartFunc()
	}
	return nil
}

// RequestRecenterEnd calls RecenterEndFunc and records the call.
func (m *Mock) RequestRecenterEnd() error {
	m.recordCall("RequestRecenterEnd", tracking.ViewportGeometry{})
	if m.RecenterEndFunc != nil {
		return m.RecenterEndFunc()
	}
	return nil
}

// UpdateViewport calls ViewportFunc and records the call.
func (m *Mock) UpdateViewport(g tracking.ViewportGeometry) error {
	m.recordCall("UpdateViewport", g)
	if m.ViewportFunc != nil {
		return m.ViewportFunc(g)
	}
	return nil
}

// Close records the call and closes the Updates channel.
func (m *Mock) Close() error {
	m.recordCall("Close", tracking.ViewportGeometry{})
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		close(m.updates)
		m.mu.Unlock()
	})
	return nil
}

// recordCall adds a call to the tracking list.
func (m *Mock) recordCall(method string, g tracking.ViewportGeometry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{
		Method:   method,
		Viewport: g,
		Time:     time.Now(),
	})
}

// Calls returns all recorded method calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns the number of times a method was called.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// LastCall returns the most recent call, or nil if none.
func (m *Mock) LastCall() *MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	call := m.calls[len(m.calls)-1]
	return &call
}

// Reset clears all recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}
