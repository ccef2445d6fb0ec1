// Package protocol defines the WebSocket message types exchanged between the
// tracker and overlay renderers.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Tracker → Overlay messages
	TypePosition MessageType = "position" // One position per frame
	TypeSamples  MessageType = "samples"  // Every slot of a grid inference
	TypeState    MessageType = "state"    // Tracker state snapshot

	// Overlay → Tracker messages
	TypeSubscribe MessageType = "subscribe" // Preferred slot and sample stream

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
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
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
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// =============================================================================
// Tracker → Overlay Message Types
// =============================================================================

// PositionData is a normalized ball position (origin bottom-left).
type PositionData struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Found      bool    `json:"found"`
	Backend    string  `json:"backend"` // "color", "grid"
	State      string  `json:"state"`   // "no_fix", "tracking", "predicted"
	Slot       int     `json:"slot"`    // -1 for the color backend
	FrameMs    float64 `json:"frame_ms"`
	Confidence float64 `json:"confidence"`
}

// SampleData is one temporal slot of a grid inference.
type SampleData struct {
	Slot       int     `json:"slot"`
	FrameMs    float64 `json:"frame_ms"`
	X          float64 `json:"x,omitempty"`
	Y          float64 `json:"y,omitempty"`
	Found      bool    `json:"found"`
	Confidence float64 `json:"confidence"`
}

// SamplesData carries all slots of one inference, oldest first.
type SamplesData struct {
	Samples []SampleData `json:"samples"`
}

// StateData contains tracker state information
type StateData struct {
	Session   string `json:"session"`
	Backend   string `json:"backend"`
	State     string `json:"state"`
	GridReady bool   `json:"grid_ready"`
	Slot      int    `json:"slot"`
	Frames    int64  `json:"frames"`
}

// =============================================================================
// Overlay → Tracker Message Types
// =============================================================================

// SubscribeData selects what a connection receives.
type SubscribeData struct {
	Slot    *int `json:"slot,omitempty"` // preferred grid slot, nil for the default
	Samples bool `json:"samples"`        // also stream every slot
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
