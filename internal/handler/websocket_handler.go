// internal/handler/websocket_handler.go
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"macscan/internal/model"
	"macscan/internal/service"
	"macscan/internal/utils"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// WebSocketHandler streams registry change events to clients so a
// presentation layer can render incrementally without polling.
type WebSocketHandler struct {
	upgrader       websocket.Upgrader
	connections    *ConnectionManager
	monitorService *service.MonitorService
	logger         *utils.ServiceLogger
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(monitorService *service.MonitorService, logger *zap.Logger) *WebSocketHandler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Origin policy is enforced by the CORS middleware in front.
			return true
		},
	}

	return &WebSocketHandler{
		upgrader:       upgrader,
		connections:    NewConnectionManager(),
		monitorService: monitorService,
		logger:         utils.NewServiceLogger(logger, "websocket-handler"),
	}
}

// HandleEventConnection upgrades the connection and streams registry
// events until the client goes away.
func (h *WebSocketHandler) HandleEventConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	client := &Client{
		ID:          uuid.New().String(),
		Connection:  conn,
		Send:        make(chan []byte, 256),
		RemoteAddr:  c.Request.RemoteAddr,
		UserAgent:   c.Request.UserAgent(),
		ConnectedAt: time.Now(),
	}

	h.connections.Register(client)
	h.logger.Info("Event WebSocket client connected",
		zap.String("client_id", client.ID),
		zap.String("remote_addr", client.RemoteAddr),
	)

	events, unsubscribe := h.monitorService.Subscribe()

	go h.pumpEvents(client, events)
	go h.handleClientWrite(client)
	go h.handleClientRead(client, unsubscribe)
}

// pumpEvents forwards registry events into the client's send queue. It
// exits when the subscription is cancelled and its channel closes, then
// closes the send queue so the writer shuts down cleanly.
func (h *WebSocketHandler) pumpEvents(client *Client, events <-chan model.Event) {
	defer close(client.Send)
	for event := range events {
		h.enqueue(client, WebSocketMessage{
			Type:      string(event.Type),
			Data:      event,
			Timestamp: event.Timestamp,
		})
	}
}

// handleClientWrite drains the send queue and keeps the connection alive
// with pings.
func (h *WebSocketHandler) handleClientWrite(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Connection.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Connection.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Connection.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Connection.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			client.Connection.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleClientRead consumes control frames and tears the client down when
// the peer disconnects.
func (h *WebSocketHandler) handleClientRead(client *Client, unsubscribe func()) {
	defer func() {
		unsubscribe()
		h.connections.Unregister(client)
		client.Connection.Close()
		h.logger.Info("Event WebSocket client disconnected",
			zap.String("client_id", client.ID),
		)
	}()

	client.Connection.SetReadLimit(512)
	client.Connection.SetReadDeadline(time.Now().Add(pongWait))
	client.Connection.SetPongHandler(func(string) error {
		client.Connection.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := client.Connection.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}
	}
}

// enqueue marshals a message for a client, dropping it if the client is slow.
func (h *WebSocketHandler) enqueue(client *Client, msg WebSocketMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to marshal WebSocket message", zap.Error(err))
		return
	}

	select {
	case client.Send <- payload:
	default:
		h.logger.Warn("Slow WebSocket client, dropping message",
			zap.String("client_id", client.ID),
		)
	}
}
