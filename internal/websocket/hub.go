package websocket

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/woodguard/server/domain/entities"
	"github.com/woodguard/server/domain/repositories"
	"github.com/woodguard/server/internal/audio"
	"github.com/woodguard/server/internal/detect"
	"github.com/woodguard/server/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Base64 PCM16 chunks at the
	// negotiated 8000-sample size are ~21KB; leave generous headroom.
	maxMessageSize = 512 * 1024

	// Pending analysis windows per client. When the queue is full further
	// windows are dropped and counted; the read path never blocks on it.
	windowQueueSize = 8

	// How often the idle watchdog checks for a silent session.
	idleCheckPeriod = time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Implement proper origin checking
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Config carries the per-connection tunables the hub hands to each client.
type Config struct {
	// AmplifyGain scales decoded samples before analysis.
	AmplifyGain float64
	// BufferCapacity caps the per-connection sample buffer.
	BufferCapacity int
	// Gate holds the threshold and mute/cooldown tuning.
	Gate detect.GateConfig
	// IdleTimeout is how long a session may stay silent before the one-time
	// timeout notice.
	IdleTimeout time.Duration
	// ResponseMode selects which deterrent sound categories may play.
	ResponseMode repositories.ResponseMode
	// EmitBufferProgress enables window-fill progress messages while a long
	// analysis window accumulates (species mode).
	EmitBufferProgress bool
}

// Hub maintains the set of active clients and owns the shared detection
// dependencies. Per-session state lives with each Client.
type Hub struct {
	// Registered clients, keyed by session ID.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	detector *usecase.DetectionService
	sounds   repositories.SoundLibrary
	cfg      Config

	logger *zap.Logger
}

// NewHub creates a new WebSocket hub.
func NewHub(
	detector *usecase.DetectionService,
	sounds repositories.SoundLibrary,
	cfg Config,
	logger *zap.Logger,
) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		detector:   detector,
		sounds:     sounds,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.session.ID] = client
			h.mu.Unlock()
			h.logger.Info("Client registered",
				zap.String("deviceID", client.deviceID),
				zap.String("sessionID", client.session.ID))

		case client := <-h.unregister:
			// send is never closed: writePump exits via the done channel, so
			// a straggling analysis or watchdog emit cannot hit a closed
			// channel.
			h.mu.Lock()
			delete(h.clients, client.session.ID)
			h.mu.Unlock()
			h.logger.Info("Client unregistered",
				zap.String("deviceID", client.deviceID),
				zap.String("sessionID", client.session.ID),
				zap.Int("chunks", client.session.ChunkCount),
				zap.Int("detections", client.gate.Detections()),
				zap.Uint64("samplesDropped", client.buffer.Dropped()),
				zap.Uint64("windowsDropped", atomic.LoadUint64(&client.windowsDropped)))
		}
	}
}

// ClientCount returns the number of active sessions.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

type WriteData struct {
	// MessageType is the type of the websocket message.
	// Expect websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// analysisJob pairs a full analysis window with the chunk counter value at
// the time the window filled.
type analysisJob struct {
	window []float64
	chunk  int
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan WriteData

	// Device ID for this client
	deviceID string

	// Logger
	logger *zap.Logger

	// Detection session state, owned by this connection.
	session *entities.Session
	buffer  *audio.SampleBuffer
	gate    *detect.Gate

	// Pending analysis windows, consumed in order by analysisPump.
	windows chan analysisJob

	// Windows discarded because analysis fell behind the queue.
	windowsDropped uint64

	// Closed when the connection goes away; abandons in-flight analysis.
	done chan struct{}

	cancel context.CancelFunc
	ctx    context.Context

	// Guards session against the idle watchdog.
	mutex sync.Mutex
}

// HandleWebSocket handles websocket requests from an unauthenticated peer.
// The device identifies itself with a query parameter; anonymous devices get
// a generated ID so their detections are still attributable per connection.
func HandleWebSocket(hub *Hub, c echo.Context, logger *zap.Logger) error {
	deviceID := c.QueryParam("device_id")
	if deviceID == "" {
		deviceID = "anonymous"
	}
	return HandleWebSocketWithAuth(hub, c, deviceID, logger)
}

// HandleWebSocketWithAuth handles websocket requests with a pre-authenticated
// device ID.
func HandleWebSocketWithAuth(hub *Hub, c echo.Context, deviceID string, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan WriteData, 256),
		deviceID: deviceID,
		logger:   logger,
		session:  entities.NewSession(deviceID),
		buffer:   audio.NewSampleBuffer(hub.cfg.BufferCapacity),
		gate:     detect.NewGate(hub.cfg.Gate, nil),
		windows:  make(chan analysisJob, windowQueueSize),
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}

	client.hub.register <- client

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.analysisPump()
	go client.idleWatch()
	go client.readPump()

	return nil
}

// readPump pumps messages from the websocket connection through the
// detection pipeline.
func (c *Client) readPump() {
	defer func() {
		c.cancel()
		close(c.done)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		if messageType != websocket.TextMessage {
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
			continue
		}

		c.processMessage(message)
	}
}

// writePump pumps messages from the client's send channel to the websocket
// connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// processMessage handles one inbound JSON message. Malformed messages are
// logged and skipped; they never tear down the session.
func (c *Client) processMessage(message []byte) {
	msg, err := ParseMessage(message)
	if err != nil {
		c.logger.Warn("Skipping malformed message",
			zap.String("deviceID", c.deviceID),
			zap.Error(err))
		return
	}

	switch m := msg.(type) {
	case *AudioMessage:
		c.handleAudio(m)
	case *PingMessage:
		c.handlePing()
	}
}

// handlePing answers the application-level keep-alive and counts as session
// activity.
func (c *Client) handlePing() {
	c.mutex.Lock()
	c.session.Touch(time.Now())
	c.mutex.Unlock()

	c.enqueueControl(NewPongMessage())
}

// handleAudio decodes one chunk, accumulates it, and queues any analysis
// windows that became complete. Windows are queued in arrival order so
// results go out in the order the audio came in.
func (c *Client) handleAudio(msg *AudioMessage) {
	raw, err := base64.StdEncoding.DecodeString(msg.Audio)
	if err != nil {
		c.logger.Warn("Skipping audio chunk with invalid base64",
			zap.String("deviceID", c.deviceID),
			zap.Error(err))
		return
	}

	samples, err := audio.DecodePCM16(raw)
	if err != nil {
		c.logger.Warn("Skipping undecodable audio chunk",
			zap.String("deviceID", c.deviceID),
			zap.Int("bytes", len(raw)),
			zap.Error(err))
		return
	}
	audio.Amplify(samples, c.hub.cfg.AmplifyGain)

	c.mutex.Lock()
	c.session.Touch(time.Now())
	chunk := c.session.CountChunk()
	c.mutex.Unlock()

	c.buffer.Push(samples)

	windowSize := c.hub.detector.WindowSize()
	took := false
	for {
		window, ok := c.buffer.TryTakeWindow(windowSize)
		if !ok {
			break
		}
		took = true
		// Never block the read path on a slow analyzer: a full queue sheds
		// the window and counts it, keeping pings answered.
		select {
		case c.windows <- analysisJob{window: window, chunk: chunk}:
		case <-c.done:
			return
		default:
			atomic.AddUint64(&c.windowsDropped, 1)
			c.logger.Warn("Analysis queue full, dropping window",
				zap.String("deviceID", c.deviceID),
				zap.Int("chunk", chunk))
		}
	}

	if !took && c.hub.cfg.EmitBufferProgress {
		c.enqueueJSON(NewBufferingMessage(chunk, c.gate.Detections(), c.buffer.Len(), windowSize))
	}
}

// analysisPump classifies queued windows one at a time, preserving arrival
// order, and emits the per-window result. Disconnection abandons whatever is
// still queued.
func (c *Client) analysisPump() {
	for {
		select {
		case <-c.done:
			return
		case job := <-c.windows:
			c.analyzeWindow(job)
		}
	}
}

func (c *Client) analyzeWindow(job analysisJob) {
	analysis := c.hub.detector.ClassifyWindow(c.ctx, job.window)
	decision := c.gate.Evaluate(analysis.Confidence)

	result := entities.DetectionResult{
		Detected:       decision.Detected,
		Confidence:     analysis.Confidence,
		Classification: analysis.Classification,
		Species:        analysis.Species,
		Chunk:          job.chunk,
		Detections:     decision.Detections,
		Timestamp:      time.Now(),
	}
	c.enqueueJSON(NewDetectionMessage(result))

	if decision.Counted {
		c.hub.detector.RecordDetection(c.ctx, c.session, analysis, job.chunk)
	}

	if decision.Respond {
		c.respond(analysis)
	}
}

// respond picks a deterrent sound and tells the client to play it.
func (c *Client) respond(analysis entities.Analysis) {
	category, filename, ok := c.hub.sounds.Pick(c.hub.cfg.ResponseMode)
	if !ok {
		return
	}

	c.logger.Info("Triggering deterrent response",
		zap.String("deviceID", c.deviceID),
		zap.String("sessionID", c.session.ID),
		zap.String("classification", string(analysis.Classification)),
		zap.Float64("confidence", analysis.Confidence),
		zap.String("sound", category+"/"+filename))

	c.enqueueControl(NewResponseMessage(category, filename))
}

// idleWatch sends the one-time timeout notice when the session has gone
// silent. The connection stays open; the next chunk or ping rearms the
// notice.
func (c *Client) idleWatch() {
	if c.hub.cfg.IdleTimeout <= 0 {
		return
	}

	ticker := time.NewTicker(idleCheckPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case now := <-ticker.C:
			c.checkIdle(now)
		}
	}
}

// checkIdle emits the timeout notice if the session idled past the limit and
// the notice was not already sent for this idle period. Reports whether the
// notice was sent.
func (c *Client) checkIdle(now time.Time) bool {
	c.mutex.Lock()
	expired := c.session.IdleFor(now) >= c.hub.cfg.IdleTimeout
	notify := expired && c.session.MarkTimeoutNotified()
	c.mutex.Unlock()

	if !notify {
		return false
	}

	c.logger.Info("Session idle timeout",
		zap.String("deviceID", c.deviceID),
		zap.String("sessionID", c.session.ID))
	c.enqueueControl(NewTimeoutMessage())
	return true
}

// enqueueJSON marshals a message onto the send channel. A full channel means
// the peer has stopped reading; the message is dropped rather than blocking
// the pipeline. Per-window results tolerate this; control messages go through
// enqueueControl instead.
func (c *Client) enqueueJSON(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to marshal outbound message", zap.Error(err))
		return
	}

	select {
	case c.send <- WriteData{Type: websocket.TextMessage, Payload: payload}:
	case <-c.done:
	default:
		c.logger.Warn("Dropping outbound message, send buffer full",
			zap.String("deviceID", c.deviceID))
	}
}

// enqueueControl marshals a control message (pong, timeout, response) onto
// the send channel, waiting up to writeWait for room so these are not shed
// under load the way per-window results are.
func (c *Client) enqueueControl(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to marshal outbound message", zap.Error(err))
		return
	}

	timer := time.NewTimer(writeWait)
	defer timer.Stop()

	select {
	case c.send <- WriteData{Type: websocket.TextMessage, Payload: payload}:
	case <-c.done:
	case <-timer.C:
		c.logger.Warn("Dropping control message, peer not reading",
			zap.String("deviceID", c.deviceID))
	}
}
