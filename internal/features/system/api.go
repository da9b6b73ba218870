package system

import (
	"go-approvals/internal/common/api"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
)

type SystemApi struct {
	Controller *HealthController
}

func NewSystemApi(controller *HealthController) api.Route {
	return &SystemApi{Controller: controller}
}

func (h *SystemApi) Setup(app *fiber.App) {
	app.Get("/health", h.Controller.Health)
	app.Get("/swagger/*", swagger.HandlerDefault)
}
