package approval

import (
	"go-approvals/internal/config"
	"go-approvals/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ProcessApi struct {
	controller *ProcessController
	config     *config.Config
}

func NewProcessApi(controller *ProcessController, config *config.Config) *ProcessApi {
	return &ProcessApi{
		controller: controller,
		config:     config,
	}
}

func (h *ProcessApi) Setup(app *fiber.App) {
	processes := app.Group("/api/approval-processes", middleware.AuthMiddleware(h.config.SkipAuth))
	admin := middleware.AdminMiddleware()

	processes.Get("/", h.controller.ListProcesses)
	processes.Get("/:id", h.controller.GetProcess)
	processes.Get("/:id/history", h.controller.ProcessHistory)

	processes.Post("/", admin, h.controller.CreateProcess)
	processes.Put("/:id", admin, h.controller.UpdateProcess)
	processes.Patch("/:id/status", admin, h.controller.SetProcessStatus)
	processes.Delete("/:id", admin, h.controller.DeleteProcess)
}

type RequestApi struct {
	controller *RequestController
	config     *config.Config
}

func NewRequestApi(controller *RequestController, config *config.Config) *RequestApi {
	return &RequestApi{
		controller: controller,
		config:     config,
	}
}

func (h *RequestApi) Setup(app *fiber.App) {
	requests := app.Group("/api/approval-requests", middleware.AuthMiddleware(h.config.SkipAuth))

	requests.Post("/", h.controller.SubmitRequest)
	requests.Get("/", h.controller.ListRequests)
	// Static paths before /:id
	requests.Get("/eligibility", h.controller.Eligibility)
	requests.Get("/inbox", h.controller.Inbox)

	requests.Get("/:id", h.controller.GetRequest)
	requests.Get("/:id/approvers", h.controller.CurrentApprovers)
	requests.Post("/:id/approve", h.controller.Approve)
	requests.Post("/:id/reject", h.controller.Reject)
	requests.Post("/:id/recall", h.controller.Recall)
	requests.Post("/:id/act", h.controller.Act)
	requests.Get("/:id/history", h.controller.History)
	requests.Get("/:id/history/export", h.controller.ExportHistory)
	requests.Post("/:id/verify", middleware.AdminMiddleware(), h.controller.Verify)
}
