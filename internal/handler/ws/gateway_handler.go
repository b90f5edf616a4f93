package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/lucasmd12/0issues/internal/domain"
	"github.com/lucasmd12/0issues/internal/presence"
	"github.com/lucasmd12/0issues/pkg/constants"
	"github.com/lucasmd12/0issues/pkg/errors"
	"github.com/lucasmd12/0issues/pkg/logger"
	"github.com/lucasmd12/0issues/pkg/metrics"
)

// Gateway event names, client->server and server->client
const (
	EventUserConnected = "user_connected"
	EventWebRTCSignal  = "webrtc_signal"
	EventIncomingCall  = "incoming_call"
	EventCallAccepted  = "call_accepted"
	EventCallRejected  = "call_rejected"
	EventCallEnded     = "call_ended"
	EventUserOnline    = "user_online"
	EventUserOffline   = "user_offline"
	EventError         = "error"
)

// Envelope frames every gateway message
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// signalPayload is the inbound webrtc_signal body
type signalPayload struct {
	TargetUserID uuid.UUID      `json:"target_user_id"`
	SignalType   string         `json:"signal_type"`
	SignalData   map[string]any `json:"signal_data,omitempty"`
}

// PresenceMirror reflects online state into a shared directory (Redis).
// All writes are best-effort.
type PresenceMirror interface {
	SetUserOnline(ctx context.Context, userID uuid.UUID) error
	SetUserOffline(ctx context.Context, userID uuid.UUID) error
	RefreshPresence(ctx context.Context, userID uuid.UUID) error
}

// IdentityRecorder captures authenticated identities seen on the gateway;
// used in limited mode where the user table is unavailable.
type IdentityRecorder interface {
	Record(user *domain.User)
}

// GatewayHub owns every live client connection and the presence registry.
// It is both the signal relay and the notification dispatcher: REST-side
// components reach connected users exclusively through it.
type GatewayHub struct {
	registry *presence.Registry
	mirror   PresenceMirror   // may be nil
	recorder IdentityRecorder // may be nil
	metrics  *metrics.Metrics

	mu      sync.RWMutex
	clients map[string]*GatewayClient // connectionID -> client

	maxConnections int
	semaphore      chan struct{}
}

// GatewayClient represents one live WebSocket connection.
// The send channel is never closed; shutdown is signaled by closing done,
// and the write pump is the only goroutine that ever touches the socket's
// write side.
type GatewayClient struct {
	hub      *GatewayHub
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
	connID   string
	userID   uuid.UUID
	username string

	announced atomic.Bool

	closeOnce sync.Once
	closeCode int
	closeText string
}

// shutdown records the close frame to deliver and signals the pumps.
// Safe to call from any goroutine; only the first call wins.
func (c *GatewayClient) shutdown(code int, reason string) {
	c.closeOnce.Do(func() {
		c.closeCode = code
		c.closeText = reason
		close(c.done)
	})
}

var gatewayUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// Native mobile clients send no Origin header
			return true
		}
		for _, allowed := range strings.Split(os.Getenv("CORS_ALLOWED_ORIGINS"), ",") {
			if origin == strings.TrimSpace(allowed) {
				return true
			}
		}
		return false
	},
}

// NewGatewayHub creates a new gateway hub
func NewGatewayHub(registry *presence.Registry, mirror PresenceMirror, recorder IdentityRecorder, m *metrics.Metrics, maxConnections int) *GatewayHub {
	if maxConnections <= 0 {
		maxConnections = constants.DefaultMaxGatewayConnections
	}

	return &GatewayHub{
		registry:       registry,
		mirror:         mirror,
		recorder:       recorder,
		metrics:        m,
		clients:        make(map[string]*GatewayClient),
		maxConnections: maxConnections,
		semaphore:      make(chan struct{}, maxConnections),
	}
}

// ServeWS upgrades an authenticated request to a gateway connection
func (h *GatewayHub) ServeWS(c *gin.Context) {
	select {
	case h.semaphore <- struct{}{}:
	default:
		logger.Warn("Gateway connection rejected: max connections reached",
			zap.Int("max_connections", h.maxConnections))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Server at capacity, please try again later"})
		return
	}

	userIDVal, exists := c.Get("user_id")
	if !exists {
		<-h.semaphore
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	userID, ok := userIDVal.(uuid.UUID)
	if !ok {
		<-h.semaphore
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid user_id"})
		return
	}
	username := c.GetString("username")

	conn, err := gatewayUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		<-h.semaphore
		logger.Warn("Gateway upgrade failed",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return
	}

	client := &GatewayClient{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, constants.ClientSendBufferSize),
		done:     make(chan struct{}),
		connID:   uuid.New().String(),
		userID:   userID,
		username: username,
	}

	h.mu.Lock()
	h.clients[client.connID] = client
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.GatewayConnectionOpened()
	}

	go client.writePump()
	go client.readPump()
}

// handleAnnounce registers the client's presence. Called when the client
// sends user_connected; a second announce on the same connection is a no-op.
func (h *GatewayHub) handleAnnounce(client *GatewayClient) {
	if !client.announced.CompareAndSwap(false, true) {
		return
	}

	prevConnID, displaced := h.registry.Register(client.userID, client.connID)
	if displaced {
		h.mu.RLock()
		prev := h.clients[prevConnID]
		h.mu.RUnlock()
		if prev != nil {
			// The close frame is delivered by the displaced client's own
			// write pump; it owns the socket's write side
			prev.shutdown(websocket.ClosePolicyViolation, "session replaced by a newer connection")
		}
	}

	if h.recorder != nil {
		h.recorder.Record(&domain.User{
			UserID:   client.userID,
			Username: client.username,
		})
	}

	if h.mirror != nil {
		if err := h.mirror.SetUserOnline(context.Background(), client.userID); err != nil {
			logger.Warn("Presence mirror write failed",
				zap.String("user_id", client.userID.String()),
				zap.Error(err))
		}
	}

	// The displaced connection was the same user; only a fresh registration
	// is news to everyone else
	if !displaced {
		h.broadcastPresence(EventUserOnline, client.userID)
	}

	logger.Info("User announced on gateway",
		zap.String("user_id", client.userID.String()),
		zap.String("connection_id", client.connID))
}

// handleDisconnect tears the client down. The registry guards against
// removing a newer registration when disconnects arrive out of order.
func (h *GatewayHub) handleDisconnect(client *GatewayClient) {
	h.mu.Lock()
	delete(h.clients, client.connID)
	h.mu.Unlock()

	client.shutdown(websocket.CloseNormalClosure, "")

	if h.metrics != nil {
		h.metrics.GatewayConnectionClosed()
	}

	userID, removed := h.registry.Unregister(client.connID)
	if !removed {
		return
	}

	if h.mirror != nil {
		if err := h.mirror.SetUserOffline(context.Background(), userID); err != nil {
			logger.Warn("Presence mirror delete failed",
				zap.String("user_id", userID.String()),
				zap.Error(err))
		}
	}

	h.broadcastPresence(EventUserOffline, userID)

	logger.Info("User left gateway",
		zap.String("user_id", userID.String()),
		zap.String("connection_id", client.connID))
}

// Relay forwards an opaque signaling payload to the target's connection.
// At-most-once: when the target is offline the signal is dropped and the
// caller gets a TARGET_UNREACHABLE error.
func (h *GatewayHub) Relay(senderUserID, targetUserID uuid.UUID, signalType string, signalData map[string]any) error {
	err := h.push(targetUserID, EventWebRTCSignal, gin.H{
		"sender_user_id": senderUserID,
		"signal_type":    signalType,
		"signal_data":    signalData,
	})

	if h.metrics != nil {
		if err != nil {
			h.metrics.RecordSignalRelay("unreachable")
		} else {
			h.metrics.RecordSignalRelay("delivered")
		}
	}

	return err
}

// Notify pushes a named event to a specific user. Implements the dispatcher
// the call coordinator depends on.
func (h *GatewayHub) Notify(userID uuid.UUID, event string, payload any) error {
	err := h.push(userID, event, payload)

	if h.metrics != nil {
		if err != nil {
			h.metrics.RecordNotification(event, "unreachable")
		} else {
			h.metrics.RecordNotification(event, "delivered")
		}
	}

	return err
}

// push enqueues an envelope on the target's send channel. Per-connection
// ordering follows from the single channel; a stalled client is dropped
// rather than allowed to block the hub.
func (h *GatewayHub) push(userID uuid.UUID, event string, payload any) error {
	connID, ok := h.registry.Lookup(userID)
	if !ok {
		return errors.TargetUnreachableError("User has no live connection")
	}

	h.mu.RLock()
	client := h.clients[connID]
	h.mu.RUnlock()
	if client == nil {
		return errors.TargetUnreachableError("Connection is gone")
	}

	frame, err := marshalEnvelope(event, payload)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "Failed to encode gateway event", err)
	}

	select {
	case <-client.done:
		return errors.TargetUnreachableError("Connection is closing")
	default:
	}

	select {
	case client.send <- frame:
		if h.metrics != nil {
			h.metrics.RecordGatewayMessage(event, "outbound")
		}
		return nil
	default:
		client.shutdown(websocket.ClosePolicyViolation, "send buffer overflow")
		return errors.TargetUnreachableError("Connection send buffer is full")
	}
}

// broadcastPresence fans a presence change out to every connected client
func (h *GatewayHub) broadcastPresence(event string, userID uuid.UUID) {
	frame, err := marshalEnvelope(event, gin.H{"user_id": userID})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.userID == userID {
			continue
		}
		select {
		case client.send <- frame:
		default:
			// Stalled client; presence broadcasts are droppable
		}
	}
}

func marshalEnvelope(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&Envelope{Event: event, Data: data})
}

// sendError reports a failed inbound operation back to the same client
func (c *GatewayClient) sendError(code errors.ErrorCode, message string, extra gin.H) {
	payload := gin.H{"code": code, "message": message}
	for k, v := range extra {
		payload[k] = v
	}
	frame, err := marshalEnvelope(EventError, payload)
	if err != nil {
		return
	}
	select {
	case c.send <- frame:
	default:
	}
}

// readPump processes inbound events in arrival order
func (c *GatewayClient) readPump() {
	defer func() {
		c.hub.handleDisconnect(c)
		c.conn.Close()
		<-c.hub.semaphore
	}()

	c.conn.SetReadDeadline(time.Now().Add(constants.WebSocketPingInterval))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(constants.WebSocketPingInterval))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Debug("Gateway connection closed",
					zap.String("user_id", c.userID.String()),
					zap.Error(err))
			}
			break
		}

		var envelope Envelope
		if err := json.Unmarshal(message, &envelope); err != nil {
			logger.Warn("Invalid gateway frame",
				zap.String("user_id", c.userID.String()),
				zap.Error(err))
			continue
		}

		if c.hub.metrics != nil {
			c.hub.metrics.RecordGatewayMessage(envelope.Event, "inbound")
		}

		switch envelope.Event {
		case EventUserConnected:
			c.hub.handleAnnounce(c)

		case EventWebRTCSignal:
			if !c.announced.Load() {
				c.sendError(errors.ErrCodeValidation, "Announce with user_connected first", nil)
				continue
			}
			var signal signalPayload
			if err := json.Unmarshal(envelope.Data, &signal); err != nil || signal.TargetUserID == uuid.Nil {
				c.sendError(errors.ErrCodeValidation, "Invalid signal payload", nil)
				continue
			}
			if err := c.hub.Relay(c.userID, signal.TargetUserID, signal.SignalType, signal.SignalData); err != nil {
				appErr := errors.GetAppError(err)
				c.sendError(appErr.Code, appErr.Message, gin.H{"target_user_id": signal.TargetUserID})
			}

		default:
			logger.Debug("Unknown gateway event",
				zap.String("event", envelope.Event),
				zap.String("user_id", c.userID.String()))
		}
	}
}

// writePump serializes all writes to the socket and keeps the connection
// and the presence mirror alive
func (c *GatewayClient) writePump() {
	ticker := time.NewTicker(constants.WebSocketPingInterval / 2)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketWriteTimeout))
			msg := websocket.FormatCloseMessage(c.closeCode, c.closeText)
			c.conn.WriteMessage(websocket.CloseMessage, msg)
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketWriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			if c.announced.Load() && c.hub.mirror != nil {
				c.hub.mirror.RefreshPresence(context.Background(), c.userID)
			}
		}
	}
}
