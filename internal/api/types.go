package api

import (
	"time"

	"github.com/woodguard/server/domain/entities"
)

// DeviceAuthRequest is the device provisioning request.
type DeviceAuthRequest struct {
	DeviceID     string `json:"device_id"`
	ProvisionKey string `json:"provision_key"`
}

// DeviceAuthResponse carries the issued device token.
type DeviceAuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	DeviceID  string    `json:"device_id"`
}

// StatusResponse describes the running detection configuration.
type StatusResponse struct {
	Status          string   `json:"status"`
	Analyzer        string   `json:"analyzer"`
	Threshold       float64  `json:"threshold"`
	ActiveSessions  int      `json:"active_sessions"`
	SoundCategories []string `json:"sound_categories"`
}

// SoundsResponse lists the deterrent sound library.
type SoundsResponse struct {
	Categories map[string][]string `json:"categories"`
}

// DetectionsResponse lists recent detection events, newest first.
type DetectionsResponse struct {
	Detections []entities.DetectionEvent `json:"detections"`
	Count      int                       `json:"count"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
