package system

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

// Locals copied onto the upgraded connection; websocket locals are string keyed.
const (
	localTenantID = "ws_tenant_id"
	localUserID   = "ws_user_id"
)

const pingInterval = 30 * time.Second

type WebSocketController struct {
	Hub    *EventHub
	Logger *zap.Logger
}

func NewWebSocketController(hub *EventHub, logger *zap.Logger) *WebSocketController {
	return &WebSocketController{
		Hub:    hub,
		Logger: logger.Named("ws"),
	}
}

// HandleWebSocket streams the caller's tenant events until either side
// closes the connection. Incoming messages are ignored.
func (h *WebSocketController) HandleWebSocket(c *websocket.Conn) {
	tenantID, _ := c.Locals(localTenantID).(string)
	userID, _ := c.Locals(localUserID).(string)
	if tenantID == "" {
		_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "tenant required"))
		return
	}

	sub := h.Hub.Subscribe(tenantID)
	defer h.Hub.Unsubscribe(sub)
	h.Logger.Debug("subscriber connected", zap.String("tenant_id", tenantID), zap.String("user_id", userID))

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			h.Logger.Debug("subscriber disconnected", zap.String("tenant_id", tenantID), zap.String("user_id", userID))
			return
		case payload, ok := <-sub.Events:
			if !ok {
				return
			}
			if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.Logger.Warn("write failed", zap.String("tenant_id", tenantID), zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
