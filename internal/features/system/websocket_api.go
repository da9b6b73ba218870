package system

import (
	"go-approvals/internal/common/api"
	"go-approvals/internal/config"
	"go-approvals/internal/middleware"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type WebSocketApi struct {
	Controller *WebSocketController
	Config     *config.Config
}

func NewWebSocketApi(controller *WebSocketController, cfg *config.Config) api.Route {
	return &WebSocketApi{
		Controller: controller,
		Config:     cfg,
	}
}

func (h *WebSocketApi) Setup(app *fiber.App) {
	app.Get("/api/ws", tokenFromQuery, middleware.AuthMiddleware(h.Config.SkipAuth), upgrade, websocket.New(h.Controller.HandleWebSocket))
}

// Browsers cannot set headers on a websocket handshake, so ?token= is accepted.
func tokenFromQuery(c *fiber.Ctx) error {
	if token := c.Query("token"); token != "" && c.Get(fiber.HeaderAuthorization) == "" {
		c.Request().Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return c.Next()
}

func upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	claims, ok := middleware.Claims(c)
	if !ok {
		return fiber.ErrUnauthorized
	}
	c.Locals(localTenantID, claims.TenantID)
	c.Locals(localUserID, claims.UserID)
	return c.Next()
}
