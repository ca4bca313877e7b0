package tracking

import "fmt"

// Connectivity is what the producer currently knows about the tracker link.
type Connectivity int

const (
	// Disconnected means no data is flowing from the tracker.
	Disconnected Connectivity = iota
	// Streaming means the tracker is connected and sending frames.
	Streaming
	// AutoStartFailed means the last auto-start attempt did not bring tracking up.
	AutoStartFailed
)

// String returns the connectivity name.
func (c Connectivity) String() string {
	switch c {
	case Disconnected:
		return "disconnected"
	case Streaming:
		return "streaming"
	case AutoStartFailed:
		return "auto_start_failed"
	default:
		return fmt.Sprintf("Connectivity(%d)", int(c))
	}
}

// Sample is what a producer hands over on Fetch.
type Sample struct {
	Frame     Frame
	Timestamp Timestamp
	// Seq increases by one for every frame the producer received. It stays at
	// zero until the first frame and never goes backwards for one producer.
	Seq          uint64
	Connectivity Connectivity
}

// Producer is the transport that moves frames from the tracker process into this client.
//
// Updates must never block the producer: implementations send on a buffered
// channel of capacity one and drop the signal when one is already pending.
// Request methods return ErrProducerUnavailable when no connection path exists.
type Producer interface {
	Updates() <-chan struct{}
	Fetch() Sample
	RequestAutoStart() error
	RequestRecenterStart() error
	RequestRecenterEnd() error
	UpdateViewport(ViewportGeometry) error
	Close() error
}
