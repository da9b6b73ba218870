package approval

import (
	"errors"

	"go-approvals/internal/middleware"
	"go-approvals/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

// HTTPStatus maps an error from this package to a response status.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrCriteriaSyntax),
		errors.Is(err, ErrCriteriaField),
		errors.Is(err, ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrNotAuthorized):
		return fiber.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrRequestAlreadyFinalized),
		errors.Is(err, ErrConcurrentModification),
		errors.Is(err, ErrProcessHasOpenRequests),
		errors.Is(err, ErrStepAdvanced),
		errors.Is(err, ErrRequestAlreadyOpen),
		errors.Is(err, ErrInvalidStatusTransition):
		return fiber.StatusConflict
	case errors.Is(err, ErrCriteriaNotMet),
		errors.Is(err, ErrProcessNotActive),
		errors.Is(err, ErrNoEligibleApprover):
		return fiber.StatusUnprocessableEntity
	}
	return fiber.StatusInternalServerError
}

func respondError(c *fiber.Ctx, err error) error {
	return c.Status(HTTPStatus(err)).JSON(fiber.Map{
		"error": err.Error(),
		"code":  ErrorCode(err),
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
		"code":  "VALIDATION",
	})
}

func caller(c *fiber.Ctx) (*utils.UserClaims, bool) {
	claims, ok := middleware.Claims(c)
	if !ok || claims.UserID == "" || claims.TenantID == "" {
		return nil, false
	}
	return claims, true
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
}
