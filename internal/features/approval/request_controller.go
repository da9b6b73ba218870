package approval

import (
	"strconv"

	common_models "go-approvals/internal/common/models"
	"go-approvals/internal/features/audit"

	"github.com/gofiber/fiber/v2"
)

type RequestController struct {
	Lifecycle    LifecycleManager
	AuditService audit.AuditService
	Checker      *ConsistencyChecker
}

func NewRequestController(lifecycle LifecycleManager, auditService audit.AuditService, checker *ConsistencyChecker) *RequestController {
	return &RequestController{
		Lifecycle:    lifecycle,
		AuditService: auditService,
		Checker:      checker,
	}
}

type submitBody struct {
	ProcessID string `json:"process_id"`
	RecordID  string `json:"record_id"`
	Comment   string `json:"comment"`
}

type actBody struct {
	Action       ActionType `json:"action"`
	Comment      string     `json:"comment"`
	ExpectedStep int        `json:"expected_step"`
}

// SubmitRequest godoc
// @Summary Submit a record for approval
// @Tags approval-requests
// @Accept json
// @Produce json
// @Param body body submitBody true "Process and record"
// @Success 201 {object} ApprovalRequest
// @Failure 409 {object} map[string]string "Record already pending"
// @Failure 422 {object} map[string]string "Criteria not met, process not active or no approver"
// @Router /api/approval-requests [post]
func (ctrl *RequestController) SubmitRequest(c *fiber.Ctx) error {
	claims, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	var body submitBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if body.ProcessID == "" || body.RecordID == "" {
		return badRequest(c, "process_id and record_id are required")
	}

	req, err := ctrl.Lifecycle.Submit(c.UserContext(), SubmitInput{
		TenantID:    claims.TenantID,
		ProcessID:   body.ProcessID,
		RecordID:    body.RecordID,
		SubmitterID: claims.UserID,
		Comment:     body.Comment,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(req)
}

// ListRequests godoc
// @Summary List approval requests
// @Tags approval-requests
// @Produce json
// @Param process_id query string false "Process ID"
// @Param record_id query string false "Record ID"
// @Param submitter_id query string false "Submitter ID"
// @Param status query string false "PENDING, APPROVED, REJECTED or RECALLED"
// @Param limit query int false "Maximum results"
// @Success 200 {array} ApprovalRequest
// @Router /api/approval-requests [get]
func (ctrl *RequestController) ListRequests(c *fiber.Ctx) error {
	claims, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	limit, _ := strconv.ParseInt(c.Query("limit", "0"), 10, 64)
	requests, err := ctrl.Lifecycle.ListRequests(c.UserContext(), RequestFilter{
		TenantID:    claims.TenantID,
		ProcessID:   c.Query("process_id"),
		ObjectType:  c.Query("object_type"),
		RecordID:    c.Query("record_id"),
		SubmitterID: c.Query("submitter_id"),
		Status:      RequestStatus(c.Query("status")),
		Limit:       limit,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(requests)
}

// Eligibility godoc
// @Summary Does a record require approval
// @Description Evaluates the process entry criteria against the record without submitting
// @Tags approval-requests
// @Produce json
// @Param process_id query string true "Process ID"
// @Param record_id query string true "Record ID"
// @Success 200 {object} Eligibility
// @Router /api/approval-requests/eligibility [get]
func (ctrl *RequestController) Eligibility(c *fiber.Ctx) error {
	claims, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	processID, recordID := c.Query("process_id"), c.Query("record_id")
	if processID == "" || recordID == "" {
		return badRequest(c, "process_id and record_id are required")
	}

	result, err := ctrl.Lifecycle.RequiresApproval(c.UserContext(), claims.TenantID, processID, recordID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// Inbox godoc
// @Summary Requests awaiting the caller
// @Tags approval-requests
// @Produce json
// @Success 200 {array} ApprovalRequest
// @Router /api/approval-requests/inbox [get]
func (ctrl *RequestController) Inbox(c *fiber.Ctx) error {
	claims, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	requests, err := ctrl.Lifecycle.Inbox(c.UserContext(), claims.TenantID, claims.UserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(requests)
}

// GetRequest godoc
// @Summary Get an approval request
// @Tags approval-requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} ApprovalRequest
// @Failure 404 {object} map[string]string "Request not found"
// @Router /api/approval-requests/{id} [get]
func (ctrl *RequestController) GetRequest(c *fiber.Ctx) error {
	claims, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	req, err := ctrl.Lifecycle.GetRequest(c.UserContext(), claims.TenantID, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(req)
}

// CurrentApprovers godoc
// @Summary Who may act on the current step
// @Tags approval-requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {array} string
// @Router /api/approval-requests/{id}/approvers [get]
func (ctrl *RequestController) CurrentApprovers(c *fiber.Ctx) error {
	claims, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	approvers, err := ctrl.Lifecycle.CurrentApprovers(c.UserContext(), claims.TenantID, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(approvers)
}

// Approve godoc
// @Summary Approve the current step
// @Tags approval-requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param body body actBody false "Comment and expected step"
// @Success 200 {object} ApprovalRequest
// @Failure 403 {object} map[string]string "Not an approver of this step"
// @Failure 409 {object} map[string]string "Finalized, moved on or contended"
// @Router /api/approval-requests/{id}/approve [post]
func (ctrl *RequestController) Approve(c *fiber.Ctx) error {
	return ctrl.decide(c, common_models.ActionApprove)
}

// Reject godoc
// @Summary Reject the request
// @Tags approval-requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param body body actBody false "Comment and expected step"
// @Success 200 {object} ApprovalRequest
// @Router /api/approval-requests/{id}/reject [post]
func (ctrl *RequestController) Reject(c *fiber.Ctx) error {
	return ctrl.decide(c, common_models.ActionReject)
}

// Recall godoc
// @Summary Withdraw a pending request
// @Description Only the submitter may recall
// @Tags approval-requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param body body actBody false "Comment"
// @Success 200 {object} ApprovalRequest
// @Router /api/approval-requests/{id}/recall [post]
func (ctrl *RequestController) Recall(c *fiber.Ctx) error {
	return ctrl.decide(c, common_models.ActionRecall)
}

// Act godoc
// @Summary Apply an action to a request
// @Tags approval-requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param body body actBody true "APPROVE, REJECT or RECALL"
// @Success 200 {object} ApprovalRequest
// @Router /api/approval-requests/{id}/act [post]
func (ctrl *RequestController) Act(c *fiber.Ctx) error {
	return ctrl.decide(c, "")
}

func (ctrl *RequestController) decide(c *fiber.Ctx, action ActionType) error {
	claims, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	var body actBody
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}
	if action == "" {
		action = body.Action
	}

	req, err := ctrl.Lifecycle.Act(c.UserContext(), ActInput{
		TenantID:     claims.TenantID,
		RequestID:    c.Params("id"),
		ActorID:      claims.UserID,
		Action:       action,
		Comment:      body.Comment,
		ExpectedStep: body.ExpectedStep,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(req)
}

// History godoc
// @Summary Ordered action trail of a request
// @Tags approval-requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {array} models.ApprovalAction
// @Router /api/approval-requests/{id}/history [get]
func (ctrl *RequestController) History(c *fiber.Ctx) error {
	claims, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	id := c.Params("id")
	if _, err := ctrl.Lifecycle.GetRequest(c.UserContext(), claims.TenantID, id); err != nil {
		return respondError(c, err)
	}
	actions, err := ctrl.AuditService.History(c.UserContext(), claims.TenantID, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(actions)
}

// ExportHistory godoc
// @Summary Download a request's trail as xlsx
// @Tags approval-requests
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Request ID"
// @Success 200 {file} file
// @Router /api/approval-requests/{id}/history/export [get]
func (ctrl *RequestController) ExportHistory(c *fiber.Ctx) error {
	claims, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	id := c.Params("id")
	if _, err := ctrl.Lifecycle.GetRequest(c.UserContext(), claims.TenantID, id); err != nil {
		return respondError(c, err)
	}
	data, filename, err := ctrl.AuditService.ExportHistory(c.UserContext(), claims.TenantID, id)
	if err != nil {
		return respondError(c, err)
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, "attachment; filename="+filename)
	return c.Send(data)
}

// Verify godoc
// @Summary Replay a request's log and repair its projection
// @Tags approval-requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} map[string]bool
// @Failure 403 {object} map[string]string "Admin role required"
// @Router /api/approval-requests/{id}/verify [post]
func (ctrl *RequestController) Verify(c *fiber.Ctx) error {
	claims, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	repaired, err := ctrl.Checker.Verify(c.UserContext(), claims.TenantID, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"repaired": repaired})
}
