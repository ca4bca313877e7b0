// Package protocol defines the WebSocket messages exchanged between a gaze client
// and the tracker process. The simulator and the websocket producer share it.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/teslashibe/go-gaze/pkg/tracking"
)

// ErrMalformed is returned for messages that cannot be decoded.
var ErrMalformed = errors.New("protocol: malformed message")

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Client → Tracker messages
	TypeHello         MessageType = "hello"          // Session registration
	TypeAutoStart     MessageType = "autostart"      // Ask the tracker to start the webcam
	TypeRecenterStart MessageType = "recenter_start" // Begin capturing a neutral pose
	TypeRecenterEnd   MessageType = "recenter_end"   // Stop capturing
	TypeViewport      MessageType = "viewport"       // Viewport geometry changed

	// Tracker → Client messages
	TypeWelcome         MessageType = "welcome"          // Hello accepted
	TypeStatus          MessageType = "status"           // Streaming on/off
	TypeFrame           MessageType = "frame"            // Tracking frame
	TypeAutoStartResult MessageType = "autostart_result" // Outcome of an auto-start attempt
	TypeError           MessageType = "error"            // Request rejected

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s data: %w", msgType, err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("%w: %s data: %v", ErrMalformed, m.Type, err)
	}
	return nil
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return &msg, nil
}

// =============================================================================
// Client → Tracker Message Types
// =============================================================================

// HelloData registers a client session with the tracker
type HelloData struct {
	FriendlyName string                    `json:"friendly_name"`
	SessionID    string                    `json:"session_id"`
	Viewport     tracking.ViewportGeometry `json:"viewport"`
	Version      tracking.Version          `json:"version"`
}

// ViewportData carries an updated viewport geometry
type ViewportData struct {
	Viewport tracking.ViewportGeometry `json:"viewport"`
}

// =============================================================================
// Tracker → Client Message Types
// =============================================================================

// WelcomeData acknowledges a hello
type WelcomeData struct {
	SessionID      string           `json:"session_id"`
	TrackerVersion tracking.Version `json:"tracker_version"`
	Streaming      bool             `json:"streaming"`
}

// StatusData reports whether the tracker is streaming
type StatusData struct {
	Streaming bool   `json:"streaming"`
	Reason    string `json:"reason,omitempty"` // "user_stopped", "webcam_lost", ...
}

// FrameData carries one tracking frame
type FrameData struct {
	Seq       uint64             `json:"seq"`
	Timestamp tracking.Timestamp `json:"timestamp"`
	Frame     tracking.Frame     `json:"frame"`
}

// AutoStartResultData reports the outcome of an auto-start attempt
type AutoStartResultData struct {
	Started bool   `json:"started"`
	Reason  string `json:"reason,omitempty"`
}

// ErrorData explains a rejected request
type ErrorData struct {
	Request MessageType `json:"request"`
	Message string      `json:"message"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
