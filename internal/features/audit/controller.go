package audit

import (
	"strconv"

	common_models "go-approvals/internal/common/models"
	"go-approvals/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type AuditController struct {
	Service AuditService
}

func NewAuditController(service AuditService) *AuditController {
	return &AuditController{Service: service}
}

// ListActions godoc
// @Summary List approval actions
// @Description Tenant-wide feed of approval decisions, newest first
// @Tags audit
// @Produce json
// @Param process_id query string false "Process ID"
// @Param request_id query string false "Request ID"
// @Param actor_id query string false "Actor ID"
// @Param action query string false "SUBMIT, APPROVE, REJECT or RECALL"
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {array} models.ApprovalAction
// @Failure 500 {object} map[string]string
// @Router /api/approval-actions [get]
func (ctrl *AuditController) ListActions(c *fiber.Ctx) error {
	page, _ := strconv.ParseInt(c.Query("page", "1"), 10, 64)
	limit, _ := strconv.ParseInt(c.Query("limit", "20"), 10, 64)

	filter := ActionFilter{
		ProcessID: c.Query("process_id"),
		RequestID: c.Query("request_id"),
		ActorID:   c.Query("actor_id"),
		Action:    common_models.ActionType(c.Query("action")),
	}
	if filter.Action != "" && !filter.Action.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "unknown action type",
			"code":  "VALIDATION",
		})
	}

	claims, ok := middleware.Claims(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	actions, err := ctrl.Service.ListActions(c.UserContext(), claims.TenantID, filter, page, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "INTERNAL",
		})
	}

	return c.JSON(actions)
}
