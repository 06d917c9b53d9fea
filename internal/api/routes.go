package api

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/woodguard/server/domain/entities"
	"github.com/woodguard/server/domain/repositories"
	"github.com/woodguard/server/internal/auth"
	"github.com/woodguard/server/internal/websocket"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Hub        *websocket.Hub
	Detections repositories.DetectionRepository
	Sounds     repositories.SoundLibrary
	Issuer     *auth.TokenIssuer

	Analyzer     string
	Threshold    float64
	ProvisionKey string

	Logger *zap.Logger
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, deps Deps) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "woodguard-server",
		})
	})

	// API v1 routes
	v1 := e.Group("/api/v1")

	v1.GET("/status", func(c echo.Context) error {
		return getStatus(c, deps)
	})

	// Device APIs
	v1.POST("/device/auth", func(c echo.Context) error {
		return deviceAuth(c, deps)
	})

	// Sound library APIs
	v1.GET("/sounds", func(c echo.Context) error {
		return getSounds(c, deps)
	})
	v1.GET("/sounds/:category/:filename", func(c echo.Context) error {
		return getSoundFile(c, deps)
	})

	// Detection history API
	v1.GET("/detections", func(c echo.Context) error {
		return getDetections(c, deps)
	})

	// WebSocket endpoint with JWT validation when a secret is configured
	e.GET("/ws", func(c echo.Context) error {
		return websocketEndpoint(c, deps)
	})
}

func getStatus(c echo.Context, deps Deps) error {
	categories := make([]string, 0)
	for cat := range deps.Sounds.Categories() {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	return c.JSON(http.StatusOK, StatusResponse{
		Status:          "ok",
		Analyzer:        deps.Analyzer,
		Threshold:       deps.Threshold,
		ActiveSessions:  deps.Hub.ClientCount(),
		SoundCategories: categories,
	})
}

// deviceAuth exchanges the shared provisioning key for a device JWT.
func deviceAuth(c echo.Context, deps Deps) error {
	var req DeviceAuthRequest

	if err := c.Bind(&req); err != nil {
		deps.Logger.Error("Failed to bind device auth request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	if req.DeviceID == "" || req.ProvisionKey == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Device ID and provision key are required",
		})
	}

	if !deps.Issuer.Enabled() {
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "auth_disabled",
			Message: "Device authentication is not configured",
		})
	}

	if deps.ProvisionKey == "" || req.ProvisionKey != deps.ProvisionKey {
		deps.Logger.Warn("Device authentication failed",
			zap.String("device_id", req.DeviceID))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "authentication_failed",
			Message: "Invalid provision key",
		})
	}

	token, err := deps.Issuer.GenerateDeviceToken(req.DeviceID)
	if err != nil {
		deps.Logger.Error("Failed to generate device token",
			zap.String("device_id", req.DeviceID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate authentication token",
		})
	}

	// Expiration mirrors the 24h JWT claim.
	expiresAt := time.Now().Add(24 * time.Hour)

	deps.Logger.Info("Device authenticated successfully",
		zap.String("device_id", req.DeviceID))

	return c.JSON(http.StatusOK, DeviceAuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		DeviceID:  req.DeviceID,
	})
}

func getSounds(c echo.Context, deps Deps) error {
	return c.JSON(http.StatusOK, SoundsResponse{
		Categories: deps.Sounds.Categories(),
	})
}

// getSoundFile streams one deterrent sound. Resolve only returns paths for
// indexed entries, so arbitrary filesystem access is not possible.
func getSoundFile(c echo.Context, deps Deps) error {
	path, err := deps.Sounds.Resolve(c.Param("category"), c.Param("filename"))
	if err != nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "sound_not_found",
			Message: err.Error(),
		})
	}
	return c.File(path)
}

func getDetections(c echo.Context, deps Deps) error {
	limit := 50
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_limit",
				Message: "limit must be an integer in [1,500]",
			})
		}
		limit = n
	}

	events, err := deps.Detections.Recent(c.Request().Context(), limit)
	if err != nil {
		deps.Logger.Error("Failed to query detection history", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "query_failed",
			Message: "Failed to query detection history",
		})
	}
	if events == nil {
		events = []entities.DetectionEvent{}
	}

	return c.JSON(http.StatusOK, DetectionsResponse{
		Detections: events,
		Count:      len(events),
	})
}

// websocketEndpoint upgrades the detection stream. When JWT auth is
// configured the device must present a valid token; otherwise connections
// are accepted with a self-declared device ID.
func websocketEndpoint(c echo.Context, deps Deps) error {
	if !deps.Issuer.Enabled() {
		return websocket.HandleWebSocket(deps.Hub, c, deps.Logger)
	}

	var token string
	authHeader := c.Request().Header.Get("Authorization")
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		token = authHeader[7:]
	}
	if token == "" {
		// Browser websocket clients cannot set headers.
		token = c.QueryParam("token")
	}

	if token == "" {
		deps.Logger.Warn("WebSocket connection rejected: missing token")
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "missing_token",
			Message: "JWT token is required in Authorization header or token query parameter",
		})
	}

	claims, err := deps.Issuer.ValidateToken(token)
	if err != nil {
		deps.Logger.Warn("WebSocket connection rejected: invalid token", zap.Error(err))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired JWT token",
		})
	}

	if claims.Role != "device" {
		deps.Logger.Warn("WebSocket connection rejected: invalid role",
			zap.String("role", claims.Role))
		return c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "invalid_role",
			Message: "Only device tokens are allowed for WebSocket connections",
		})
	}

	if claims.DeviceID == "" {
		deps.Logger.Error("WebSocket connection rejected: missing device ID in token")
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_token_claims",
			Message: "Device ID not found in token",
		})
	}

	deps.Logger.Info("WebSocket connection authenticated",
		zap.String("device_id", claims.DeviceID))

	return websocket.HandleWebSocketWithAuth(deps.Hub, c, claims.DeviceID, deps.Logger)
}
