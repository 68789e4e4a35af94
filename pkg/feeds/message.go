package feeds

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/teslashibe/go-patrol/pkg/geometry"
)

// MessageType identifies a feed message on the wire.
type MessageType string

const (
	// TypePose carries the robot's current pose.
	TypePose MessageType = "pose"

	// TypeSelector carries the marker value picked up by the vision system.
	TypeSelector MessageType = "selector"
)

// Message is the envelope for all feed traffic.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// SelectorData is the payload of a TypeSelector message.
type SelectorData struct {
	Value int64 `json:"value"`
}

// NewPoseMessage builds a pose message ready for marshaling.
func NewPoseMessage(p geometry.Pose) (Message, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return Message{}, fmt.Errorf("feeds: encoding pose: %w", err)
	}
	return Message{Type: TypePose, Timestamp: time.Now().UnixMilli(), Data: data}, nil
}

// NewSelectorMessage builds a selector message ready for marshaling.
func NewSelectorMessage(value int64) (Message, error) {
	data, err := json.Marshal(SelectorData{Value: value})
	if err != nil {
		return Message{}, fmt.Errorf("feeds: encoding selector: %w", err)
	}
	return Message{Type: TypeSelector, Timestamp: time.Now().UnixMilli(), Data: data}, nil
}

// ParseMessage decodes a feed envelope.
func ParseMessage(raw []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, fmt.Errorf("feeds: decoding message: %w", err)
	}
	if msg.Type == "" {
		return Message{}, fmt.Errorf("feeds: message without type")
	}
	return msg, nil
}
