package approval

import (
	"errors"
	"fmt"
	"strings"

	"go-approvals/pkg/criteria"
)

var (
	ErrNotFound                = errors.New("not found")
	ErrValidation              = errors.New("validation failed")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrProcessNotActive        = errors.New("process is not active")
	ErrProcessHasOpenRequests  = errors.New("process has open requests")
	ErrCriteriaNotMet          = errors.New("record does not meet entry criteria")
	ErrNoEligibleApprover      = errors.New("no eligible approver")
	ErrNotAuthorized           = errors.New("actor is not authorized for this step")
	ErrRequestAlreadyFinalized = errors.New("request already finalized")
	ErrRequestAlreadyOpen      = errors.New("record already has a pending request")
	ErrStepAdvanced            = errors.New("request has moved past the expected step")
	ErrConcurrentModification  = errors.New("concurrent modification")

	ErrCriteriaSyntax = criteria.ErrCriteriaSyntax
	ErrCriteriaField  = criteria.ErrCriteriaField
)

// Storage-level signals. They never leave the package.
var (
	errVersionConflict = errors.New("version conflict")
	errProjectionStale = errors.New("action recorded but projection not updated")
)

// ValidationError lists every problem found in a process definition.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// ErrorCode maps an error to the stable code returned to API clients.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCriteriaSyntax):
		return "CRITERIA_SYNTAX"
	case errors.Is(err, ErrCriteriaField):
		return "CRITERIA_FIELD"
	case errors.Is(err, ErrValidation):
		return "VALIDATION"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrInvalidStatusTransition):
		return "INVALID_STATUS_TRANSITION"
	case errors.Is(err, ErrProcessNotActive):
		return "PROCESS_NOT_ACTIVE"
	case errors.Is(err, ErrProcessHasOpenRequests):
		return "PROCESS_HAS_OPEN_REQUESTS"
	case errors.Is(err, ErrCriteriaNotMet):
		return "CRITERIA_NOT_MET"
	case errors.Is(err, ErrNoEligibleApprover):
		return "NO_ELIGIBLE_APPROVER"
	case errors.Is(err, ErrNotAuthorized):
		return "NOT_AUTHORIZED"
	case errors.Is(err, ErrRequestAlreadyFinalized):
		return "REQUEST_ALREADY_FINALIZED"
	case errors.Is(err, ErrRequestAlreadyOpen):
		return "REQUEST_ALREADY_OPEN"
	case errors.Is(err, ErrStepAdvanced):
		return "STEP_ADVANCED"
	case errors.Is(err, ErrConcurrentModification):
		return "CONCURRENT_MODIFICATION"
	}
	return "INTERNAL"
}
