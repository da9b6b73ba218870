package approval

import (
	"strconv"

	"go-approvals/internal/features/audit"

	"github.com/gofiber/fiber/v2"
)

type ProcessController struct {
	Registry     ProcessRegistry
	AuditService audit.AuditService
}

func NewProcessController(registry ProcessRegistry, auditService audit.AuditService) *ProcessController {
	return &ProcessController{
		Registry:     registry,
		AuditService: auditService,
	}
}

// CreateProcess godoc
// @Summary Create an approval process
// @Description Create a process in DRAFT status
// @Tags approval-processes
// @Accept json
// @Produce json
// @Param process body ProcessInput true "Process definition"
// @Success 201 {object} ApprovalProcess
// @Failure 400 {object} map[string]string "Invalid definition"
// @Failure 500 {object} map[string]string "Internal server error"
// @Failure 403 {object} map[string]string "Admin role required"
// @Router /api/approval-processes [post]
func (ctrl *ProcessController) CreateProcess(c *fiber.Ctx) error {
	claims, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	var input ProcessInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body")
	}

	process, err := ctrl.Registry.Create(c.UserContext(), claims.TenantID, claims.UserID, input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(process)
}

// ListProcesses godoc
// @Summary List approval processes
// @Tags approval-processes
// @Produce json
// @Param object_type query string false "Object type"
// @Param status query string false "DRAFT, ACTIVE or INACTIVE"
// @Success 200 {array} ApprovalProcess
// @Router /api/approval-processes [get]
func (ctrl *ProcessController) ListProcesses(c *fiber.Ctx) error {
	claims, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	filter := ProcessFilter{
		ObjectType: c.Query("object_type"),
		Status:     ProcessStatus(c.Query("status")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return badRequest(c, "unknown status")
	}

	processes, err := ctrl.Registry.List(c.UserContext(), claims.TenantID, filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(processes)
}

// GetProcess godoc
// @Summary Get an approval process
// @Tags approval-processes
// @Produce json
// @Param id path string true "Process ID"
// @Success 200 {object} ApprovalProcess
// @Failure 404 {object} map[string]string "Process not found"
// @Router /api/approval-processes/{id} [get]
func (ctrl *ProcessController) GetProcess(c *fiber.Ctx) error {
	claims, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	process, err := ctrl.Registry.Get(c.UserContext(), claims.TenantID, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(process)
}

// UpdateProcess godoc
// @Summary Update an approval process
// @Tags approval-processes
// @Accept json
// @Produce json
// @Param id path string true "Process ID"
// @Param process body ProcessInput true "Process definition"
// @Success 200 {object} ApprovalProcess
// @Failure 400 {object} map[string]string "Invalid definition"
// @Failure 409 {object} map[string]string "Pending requests or concurrent edit"
// @Failure 403 {object} map[string]string "Admin role required"
// @Router /api/approval-processes/{id} [put]
func (ctrl *ProcessController) UpdateProcess(c *fiber.Ctx) error {
	claims, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	var input ProcessInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body")
	}

	process, err := ctrl.Registry.Update(c.UserContext(), claims.TenantID, c.Params("id"), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(process)
}

// SetProcessStatus godoc
// @Summary Change process status
// @Description DRAFT->ACTIVE, ACTIVE->INACTIVE and INACTIVE->ACTIVE are allowed
// @Tags approval-processes
// @Accept json
// @Produce json
// @Param id path string true "Process ID"
// @Param body body map[string]string true "{\"status\": \"ACTIVE\"}"
// @Success 200 {object} ApprovalProcess
// @Failure 409 {object} map[string]string "Transition not allowed"
// @Failure 403 {object} map[string]string "Admin role required"
// @Router /api/approval-processes/{id}/status [patch]
func (ctrl *ProcessController) SetProcessStatus(c *fiber.Ctx) error {
	claims, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	var body struct {
		Status ProcessStatus `json:"status"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}

	process, err := ctrl.Registry.SetStatus(c.UserContext(), claims.TenantID, c.Params("id"), body.Status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(process)
}

// DeleteProcess godoc
// @Summary Delete an approval process
// @Description Soft delete. With force=true pending requests are recalled first.
// @Tags approval-processes
// @Produce json
// @Param id path string true "Process ID"
// @Param force query bool false "Recall pending requests"
// @Success 200 {object} map[string]int "Number of recalled requests"
// @Failure 409 {object} map[string]string "Process has pending requests"
// @Failure 403 {object} map[string]string "Admin role required"
// @Router /api/approval-processes/{id} [delete]
func (ctrl *ProcessController) DeleteProcess(c *fiber.Ctx) error {
	claims, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	force := c.QueryBool("force", false)

	recalled, err := ctrl.Registry.Delete(c.UserContext(), claims.TenantID, c.Params("id"), claims.UserID, force)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"recalled": recalled})
}

// ProcessHistory godoc
// @Summary Decisions taken under a process
// @Tags approval-processes
// @Produce json
// @Param id path string true "Process ID"
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {array} models.ApprovalAction
// @Router /api/approval-processes/{id}/history [get]
func (ctrl *ProcessController) ProcessHistory(c *fiber.Ctx) error {
	claims, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	id := c.Params("id")
	if _, err := ctrl.Registry.Get(c.UserContext(), claims.TenantID, id); err != nil {
		return respondError(c, err)
	}

	page, _ := strconv.ParseInt(c.Query("page", "1"), 10, 64)
	limit, _ := strconv.ParseInt(c.Query("limit", "20"), 10, 64)
	actions, err := ctrl.AuditService.ProcessHistory(c.UserContext(), claims.TenantID, id, page, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(actions)
}
