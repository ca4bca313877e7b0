package protocol

import (
	"time"

	"github.com/teslashibe/go-gaze/pkg/tracking"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewHelloMessage creates a session registration message
func NewHelloMessage(friendlyName, sessionID string, viewport tracking.ViewportGeometry) (*Message, error) {
	return NewMessage(TypeHello, HelloData{
		FriendlyName: friendlyName,
		SessionID:    sessionID,
		Viewport:     viewport,
		Version:      tracking.LibraryVersion,
	})
}

// NewViewportMessage creates a viewport update message
func NewViewportMessage(viewport tracking.ViewportGeometry) (*Message, error) {
	return NewMessage(TypeViewport, ViewportData{Viewport: viewport})
}

// NewAutoStartMessage creates an auto-start request
func NewAutoStartMessage() (*Message, error) {
	return NewMessage(TypeAutoStart, nil)
}

// NewRecenterStartMessage creates a recenter start request
func NewRecenterStartMessage() (*Message, error) {
	return NewMessage(TypeRecenterStart, nil)
}

// NewRecenterEndMessage creates a recenter end request
func NewRecenterEndMessage() (*Message, error) {
	return NewMessage(TypeRecenterEnd, nil)
}

// NewWelcomeMessage creates a hello acknowledgement
func NewWelcomeMessage(sessionID string, trackerVersion tracking.Version, streaming bool) (*Message, error) {
	return NewMessage(TypeWelcome, WelcomeData{
		SessionID:      sessionID,
		TrackerVersion: trackerVersion,
		Streaming:      streaming,
	})
}

// NewStatusMessage creates a streaming status message
func NewStatusMessage(streaming bool, reason string) (*Message, error) {
	return NewMessage(TypeStatus, StatusData{
		Streaming: streaming,
		Reason:    reason,
	})
}

// NewFrameMessage creates a tracking frame message
func NewFrameMessage(seq uint64, ts tracking.Timestamp, frame tracking.Frame) (*Message, error) {
	return NewMessage(TypeFrame, FrameData{
		Seq:       seq,
		Timestamp: ts,
		Frame:     frame,
	})
}

// NewAutoStartResultMessage creates an auto-start outcome message
func NewAutoStartResultMessage(started bool, reason string) (*Message, error) {
	return NewMessage(TypeAutoStartResult, AutoStartResultData{
		Started: started,
		Reason:  reason,
	})
}

// NewErrorMessage creates a rejection message for request
func NewErrorMessage(request MessageType, message string) (*Message, error) {
	return NewMessage(TypeError, ErrorData{
		Request: request,
		Message: message,
	})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetHelloData extracts hello data from a message
func (m *Message) GetHelloData() (*HelloData, error) {
	var data HelloData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetViewportData extracts viewport data from a message
func (m *Message) GetViewportData() (*ViewportData, error) {
	var data ViewportData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetWelcomeData extracts welcome data from a message
func (m *Message) GetWelcomeData() (*WelcomeData, error) {
	var data WelcomeData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetStatusData extracts status data from a message
func (m *Message) GetStatusData() (*StatusData, error) {
	var data StatusData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetFrameData extracts frame data from a message
func (m *Message) GetFrameData() (*FrameData, error) {
	data := FrameData{Timestamp: tracking.NullDataTimestamp, Frame: tracking.EmptyFrame()}
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetAutoStartResultData extracts auto-start result data from a message
func (m *Message) GetAutoStartResultData() (*AutoStartResultData, error) {
	var data AutoStartResultData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetErrorData extracts error data from a message
func (m *Message) GetErrorData() (*ErrorData, error) {
	var data ErrorData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
