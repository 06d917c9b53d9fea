package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/woodguard/server/domain/entities"
)

// MessageType defines the type of a WebSocket control message.
type MessageType string

// Supported message types. Audio and ping arrive from clients; pong,
// timeout and response are emitted by the server. Detection results are
// emitted without a type field, matching the legacy wire contract.
const (
	MessageTypeAudio    MessageType = "audio"
	MessageTypePing     MessageType = "ping"
	MessageTypePong     MessageType = "pong"
	MessageTypeTimeout  MessageType = "timeout"
	MessageTypeResponse MessageType = "response"
)

// BaseMessage carries the type discriminator common to control messages.
type BaseMessage struct {
	Type MessageType `json:"type"`
}

// AudioMessage is an incoming chunk of base64-encoded 16-bit PCM samples.
type AudioMessage struct {
	BaseMessage
	// Audio is the base64-encoded little-endian PCM16 payload.
	Audio string `json:"audio"`
}

// PingMessage is the application-level keep-alive probe.
type PingMessage struct {
	BaseMessage
}

// PongMessage answers a ping.
type PongMessage struct {
	BaseMessage
}

// TimeoutMessage is the one-time idle notice; the connection stays open.
type TimeoutMessage struct {
	BaseMessage
}

// DetectionMessage is the per-window analysis result sent to the client.
type DetectionMessage struct {
	Detected       bool    `json:"detected"`
	Probability    float64 `json:"probability"`
	Classification string  `json:"classification"`
	Species        string  `json:"species,omitempty"`
	Chunk          int     `json:"chunk"`
	Detections     int     `json:"detections"`
	// BufferProgress is set while a long analysis window is still filling
	// (species mode), as a percentage.
	BufferProgress *float64 `json:"buffer_progress,omitempty"`
	Timestamp      string   `json:"timestamp"`
}

// ResponseMessage tells the client to play a deterrent sound.
type ResponseMessage struct {
	BaseMessage
	Category string `json:"category"`
	Filename string `json:"filename"`
}

// ParseMessage decodes an incoming client message into its typed form.
func ParseMessage(messageBytes []byte) (interface{}, error) {
	var base BaseMessage
	if err := json.Unmarshal(messageBytes, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON message: %w", err)
	}

	switch base.Type {
	case MessageTypeAudio:
		var msg AudioMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid audio message: %w", err)
		}
		if msg.Audio == "" {
			return nil, fmt.Errorf("audio message missing payload")
		}
		return &msg, nil

	case MessageTypePing:
		var msg PingMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid ping message: %w", err)
		}
		return &msg, nil

	default:
		return nil, fmt.Errorf("unsupported message type: %q", base.Type)
	}
}

// NewPongMessage creates the answer to a ping.
func NewPongMessage() *PongMessage {
	return &PongMessage{BaseMessage{Type: MessageTypePong}}
}

// NewTimeoutMessage creates the idle timeout notice.
func NewTimeoutMessage() *TimeoutMessage {
	return &TimeoutMessage{BaseMessage{Type: MessageTypeTimeout}}
}

// NewDetectionMessage converts a DetectionResult to its wire form.
func NewDetectionMessage(result entities.DetectionResult) *DetectionMessage {
	return &DetectionMessage{
		Detected:       result.Detected,
		Probability:    result.Confidence,
		Classification: string(result.Classification),
		Species:        result.Species,
		Chunk:          result.Chunk,
		Detections:     result.Detections,
		Timestamp:      result.Timestamp.Format(time.RFC3339),
	}
}

// NewBufferingMessage reports window-fill progress while a long analysis
// window accumulates.
func NewBufferingMessage(chunk, detections, buffered, windowSize int) *DetectionMessage {
	progress := 100 * float64(buffered) / float64(windowSize)
	return &DetectionMessage{
		Detected:       false,
		Probability:    0,
		Classification: string(entities.ClassificationNone),
		Chunk:          chunk,
		Detections:     detections,
		BufferProgress: &progress,
		Timestamp:      time.Now().Format(time.RFC3339),
	}
}

// NewResponseMessage tells the client which deterrent sound to play.
func NewResponseMessage(category, filename string) *ResponseMessage {
	return &ResponseMessage{
		BaseMessage: BaseMessage{Type: MessageTypeResponse},
		Category:    category,
		Filename:    filename,
	}
}
