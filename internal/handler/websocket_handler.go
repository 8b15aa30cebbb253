// internal/handler/websocket_handler.go
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"pyrometer-service/internal/model"
	"pyrometer-service/internal/service"
	"pyrometer-service/internal/utils"
)

const (
	wsSendQueue    = 256
	wsPongWait     = 60 * time.Second
	wsPingPeriod   = 54 * time.Second
	wsWriteWait    = 10 * time.Second
	wsCommandLimit = 30 * time.Second
)

// WebSocketHandler streams samples and device events and accepts commands
type WebSocketHandler struct {
	upgrader         websocket.Upgrader
	connections      *ConnectionManager
	pyrometerService *service.PyrometerService
	eventBus         *service.EventBus
	logger           *utils.ServiceLogger
}

// NewWebSocketHandler creates a new WebSocket handler. Origins are checked
// against allowedOrigins; an empty list or "*" accepts any origin.
func NewWebSocketHandler(
	pyrometerService *service.PyrometerService,
	eventBus *service.EventBus,
	allowedOrigins []string,
	logger *zap.Logger,
) *WebSocketHandler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}

	return &WebSocketHandler{
		upgrader:         upgrader,
		connections:      NewConnectionManager(),
		pyrometerService: pyrometerService,
		eventBus:         eventBus,
		logger:           utils.NewServiceLogger(logger, "websocket-handler"),
	}
}

func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return len(allowed) == 0 || allowed["*"] || origin == "" || allowed[origin]
	}
}

// RegisterRoutes registers WebSocket routes
func (h *WebSocketHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/samples", h.HandleConnection)
	router.GET("/stats", h.GetStats)
}

// Run forwards bus events to clients until ctx is done or the bus closes
func (h *WebSocketHandler) Run(ctx context.Context) {
	events := h.eventBus.Subscribe()
	defer func() {
		h.eventBus.Unsubscribe(events)
		h.connections.CloseAll()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			h.broadcastEvent(event)
		}
	}
}

// HandleConnection upgrades a client connection
// @Summary Live sample stream
// @Description WebSocket streaming temperature_sample, diagnostic, device and operation events. Accepts subscribe, unsubscribe, ping and device_command messages.
// @Tags WebSocket
// @Success 101 "Switching Protocols"
// @Router /ws/samples [get]
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	client := &Client{
		ID:          uuid.New().String(),
		Connection:  conn,
		Send:        make(chan []byte, wsSendQueue),
		UserAgent:   c.Request.UserAgent(),
		RemoteAddr:  c.Request.RemoteAddr,
		ConnectedAt: time.Now(),
	}
	for _, topic := range c.QueryArray("topic") {
		client.Subscribe(topic)
	}

	h.connections.Register(client)
	h.logger.Info("WebSocket client connected",
		zap.String("client_id", client.ID),
		zap.String("remote_addr", client.RemoteAddr),
	)

	h.sendMessage(client, &WebSocketMessage{
		Type:      "initial_status",
		Data:      h.pyrometerService.Status(),
		Timestamp: time.Now(),
	})

	go h.handleClientRead(client)
	go h.handleClientWrite(client)
}

// handleClientRead handles reading messages from WebSocket client
func (h *WebSocketHandler) handleClientRead(client *Client) {
	defer func() {
		h.connections.Unregister(client)
		client.Connection.Close()
		h.logger.Info("WebSocket client disconnected", zap.String("client_id", client.ID))
	}()

	client.Connection.SetReadDeadline(time.Now().Add(wsPongWait))
	client.Connection.SetPongHandler(func(string) error {
		client.Connection.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		_, messageBytes, err := client.Connection.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket read error",
					zap.Error(err),
					zap.String("client_id", client.ID),
				)
			}
			break
		}

		var message WebSocketMessage
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			h.sendError(client, "", "invalid message")
			continue
		}

		h.handleClientMessage(client, &message)
	}
}

// handleClientWrite handles writing messages to WebSocket client
func (h *WebSocketHandler) handleClientWrite(client *Client) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		client.Connection.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Connection.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				client.Connection.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.Connection.WriteMessage(websocket.TextMessage, message); err != nil {
				h.logger.Error("WebSocket write error",
					zap.Error(err),
					zap.String("client_id", client.ID),
				)
				return
			}

		case <-ticker.C:
			client.Connection.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.Connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleClientMessage handles incoming client messages
func (h *WebSocketHandler) handleClientMessage(client *Client, message *WebSocketMessage) {
	switch message.Type {
	case "subscribe":
		if topic, ok := messageTopic(message); ok {
			client.Subscribe(topic)
			h.sendMessage(client, &WebSocketMessage{
				Type:      "subscription_confirmed",
				Data:      map[string]interface{}{"topic": topic},
				Timestamp: time.Now(),
				RequestID: message.RequestID,
			})
		}
	case "unsubscribe":
		if topic, ok := messageTopic(message); ok {
			client.Unsubscribe(topic)
		}
	case "device_command":
		h.handleDeviceCommand(client, message)
	case "ping":
		h.sendMessage(client, &WebSocketMessage{
			Type:      "pong",
			Timestamp: time.Now(),
			RequestID: message.RequestID,
		})
	default:
		h.logger.Warn("Unknown message type",
			zap.String("type", message.Type),
			zap.String("client_id", client.ID),
		)
		h.sendError(client, message.RequestID, "unknown message type: "+message.Type)
	}
}

func messageTopic(message *WebSocketMessage) (string, bool) {
	data, ok := message.Data.(map[string]interface{})
	if !ok {
		return "", false
	}
	topic, ok := data["topic"].(string)
	return topic, ok && topic != ""
}

// handleDeviceCommand routes a device_command message through the service
func (h *WebSocketHandler) handleDeviceCommand(client *Client, message *WebSocketMessage) {
	data, ok := message.Data.(map[string]interface{})
	if !ok {
		h.sendError(client, message.RequestID, "invalid command data")
		return
	}

	kind, ok := data["kind"].(string)
	if !ok || kind == "" {
		h.sendError(client, message.RequestID, "kind is required")
		return
	}

	payload, _ := data["payload"].(map[string]interface{})
	go h.executeDeviceCommand(client, message.RequestID, model.CommandKind(kind), model.JSONObject(payload))
}

// executeDeviceCommand executes a device command
func (h *WebSocketHandler) executeDeviceCommand(client *Client, requestID string, kind model.CommandKind, payload model.JSONObject) {
	ctx, cancel := context.WithTimeout(context.Background(), wsCommandLimit)
	defer cancel()

	result, err := h.pyrometerService.IssueCommand(ctx, kind, payload)

	response := map[string]interface{}{
		"kind":    string(kind),
		"success": err == nil,
		"result":  result,
	}
	if err != nil {
		status, _ := deviceErrorStatus(err)
		response["error"] = err.Error()
		response["status"] = status
	}

	h.sendMessage(client, &WebSocketMessage{
		Type:      "command_response",
		Data:      response,
		Timestamp: time.Now(),
		RequestID: requestID,
	})
}

// sendMessage sends a message to a client
func (h *WebSocketHandler) sendMessage(client *Client, message *WebSocketMessage) {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal WebSocket message", zap.Error(err))
		return
	}

	if !h.connections.SendTo(client, messageBytes) {
		h.logger.Warn("Dropping message for client",
			zap.String("client_id", client.ID),
			zap.String("type", message.Type),
		)
	}
}

// sendError sends an error message to a client
func (h *WebSocketHandler) sendError(client *Client, requestID, errorMsg string) {
	h.sendMessage(client, &WebSocketMessage{
		Type:      "error",
		Data:      map[string]interface{}{"error": errorMsg},
		Timestamp: time.Now(),
		RequestID: requestID,
	})
}

// broadcastEvent sends a bus event to subscribed clients
func (h *WebSocketHandler) broadcastEvent(event model.DeviceEvent) {
	topic := eventTopic(event.EventType)
	messageBytes, err := json.Marshal(&WebSocketMessage{
		Type:      topic,
		Data:      event,
		Timestamp: event.Timestamp,
	})
	if err != nil {
		h.logger.Error("Failed to marshal broadcast message", zap.Error(err))
		return
	}

	h.connections.Broadcast(topic, messageBytes)
}

// GetConnectionStats returns connection statistics
func (h *WebSocketHandler) GetConnectionStats() *ConnectionStats {
	return h.connections.GetStats()
}

// GetStats reports connected WebSocket clients
// @Summary WebSocket statistics
// @Tags WebSocket
// @Produce json
// @Success 200 {object} utils.APIResponse{data=ConnectionStats} "WebSocket statistics retrieved successfully"
// @Router /ws/stats [get]
func (h *WebSocketHandler) GetStats(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "WebSocket statistics retrieved successfully", h.GetConnectionStats())
}
