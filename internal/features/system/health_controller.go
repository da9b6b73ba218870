package system

import (
	"context"
	"time"

	"go-approvals/internal/config"
	"go-approvals/internal/database"

	"github.com/gofiber/fiber/v2"
)

type HealthController struct {
	Mongo    *database.MongodbDB
	Postgres *database.PostgresDB
	Config   *config.Config
}

func NewHealthController(mongo *database.MongodbDB, postgres *database.PostgresDB, cfg *config.Config) *HealthController {
	return &HealthController{
		Mongo:    mongo,
		Postgres: postgres,
		Config:   cfg,
	}
}

// Health godoc
// @Summary      Service health
// @Description  Pings the backing stores
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]interface{}
// @Router       /health [get]
func (h *HealthController) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	checks := fiber.Map{}
	healthy := true
	if h.Mongo != nil && h.Mongo.DB != nil {
		if err := h.Mongo.DB.Client().Ping(ctx, nil); err != nil {
			checks["mongo"] = err.Error()
			healthy = false
		} else {
			checks["mongo"] = "ok"
		}
	}
	if h.Postgres != nil && h.Postgres.DB != nil {
		if err := h.Postgres.DB.PingContext(ctx); err != nil {
			checks["postgres"] = err.Error()
			healthy = false
		} else {
			checks["postgres"] = "ok"
		}
	}

	status := fiber.StatusOK
	state := "ok"
	if !healthy {
		status = fiber.StatusServiceUnavailable
		state = "degraded"
	}
	return c.Status(status).JSON(fiber.Map{
		"status":         state,
		"storage_driver": h.Config.StorageDriver,
		"checks":         checks,
	})
}
