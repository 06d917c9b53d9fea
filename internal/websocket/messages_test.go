package websocket

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/woodguard/server/domain/entities"
)

func TestParseMessage(t *testing.T) {
	tests := []struct {
		name    string
		message string
		wantErr bool
	}{
		{
			name:    "valid audio",
			message: `{"type": "audio", "audio": "SGVsbG8gV29ybGQ="}`,
			wantErr: false,
		},
		{
			name:    "audio missing payload",
			message: `{"type": "audio"}`,
			wantErr: true,
		},
		{
			name:    "valid ping",
			message: `{"type": "ping"}`,
			wantErr: false,
		},
		{
			name:    "unsupported type",
			message: `{"type": "selfdestruct"}`,
			wantErr: true,
		},
		{
			name:    "missing type",
			message: `{"audio": "SGVsbG8="}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMessage([]byte(tt.message))
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseMessage_InvalidJSON(t *testing.T) {
	invalidMessages := []string{
		`{invalid json}`,
		`{"type": "audio", "audio":}`,
		``,
		`{"type": }`,
	}

	for i, msg := range invalidMessages {
		t.Run(fmt.Sprintf("invalid_json_%d", i), func(t *testing.T) {
			if _, err := ParseMessage([]byte(msg)); err == nil {
				t.Error("Expected error for invalid JSON, got nil")
			}
		})
	}
}

func TestParseMessage_AudioPayload(t *testing.T) {
	result, err := ParseMessage([]byte(`{"type": "audio", "audio": "AADAPw=="}`))
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}

	audioMsg, ok := result.(*AudioMessage)
	if !ok {
		t.Fatalf("Expected *AudioMessage, got %T", result)
	}
	if audioMsg.Audio != "AADAPw==" {
		t.Errorf("Expected audio payload 'AADAPw==', got '%s'", audioMsg.Audio)
	}
}

func TestNewDetectionMessageWireFormat(t *testing.T) {
	result := entities.DetectionResult{
		Detected:       true,
		Confidence:     0.82,
		Classification: entities.ClassificationDrumming,
		Chunk:          7,
		Detections:     3,
		Timestamp:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(NewDetectionMessage(result))
	if err != nil {
		t.Fatalf("Failed to marshal detection message: %v", err)
	}

	var wire map[string]interface{}
	if err := json.Unmarshal(data, &wire); err != nil {
		t.Fatalf("Failed to unmarshal detection message: %v", err)
	}

	if wire["detected"] != true {
		t.Errorf("Expected detected true, got %v", wire["detected"])
	}
	if wire["probability"] != 0.82 {
		t.Errorf("Expected probability 0.82, got %v", wire["probability"])
	}
	if wire["chunk"] != float64(7) {
		t.Errorf("Expected chunk 7, got %v", wire["chunk"])
	}
	if wire["detections"] != float64(3) {
		t.Errorf("Expected detections 3, got %v", wire["detections"])
	}
	if wire["classification"] != "drumming" {
		t.Errorf("Expected classification drumming, got %v", wire["classification"])
	}
	if _, err := time.Parse(time.RFC3339, wire["timestamp"].(string)); err != nil {
		t.Errorf("Invalid timestamp format: %v", err)
	}

	// Detection results carry no type field and omit empty species.
	if _, exists := wire["type"]; exists {
		t.Error("Detection message must not carry a type field")
	}
	if _, exists := wire["species"]; exists {
		t.Error("Empty species must be omitted")
	}
	if _, exists := wire["buffer_progress"]; exists {
		t.Error("buffer_progress must be omitted when unset")
	}
}

func TestNewBufferingMessage(t *testing.T) {
	msg := NewBufferingMessage(4, 1, 33075, 66150)

	if msg.Detected {
		t.Error("Buffering message must not report a detection")
	}
	if msg.BufferProgress == nil || *msg.BufferProgress != 50.0 {
		t.Errorf("Expected 50%% buffer progress, got %v", msg.BufferProgress)
	}
	if msg.Chunk != 4 || msg.Detections != 1 {
		t.Errorf("Expected chunk 4 / detections 1, got %d / %d", msg.Chunk, msg.Detections)
	}
}

func TestControlMessageTypes(t *testing.T) {
	if msg := NewPongMessage(); msg.Type != MessageTypePong {
		t.Errorf("Expected type %s, got %s", MessageTypePong, msg.Type)
	}
	if msg := NewTimeoutMessage(); msg.Type != MessageTypeTimeout {
		t.Errorf("Expected type %s, got %s", MessageTypeTimeout, msg.Type)
	}
	msg := NewResponseMessage("predator_hawk", "hawk_cry.mp3")
	if msg.Type != MessageTypeResponse {
		t.Errorf("Expected type %s, got %s", MessageTypeResponse, msg.Type)
	}
	if msg.Category != "predator_hawk" || msg.Filename != "hawk_cry.mp3" {
		t.Errorf("Unexpected response payload: %+v", msg)
	}
}
