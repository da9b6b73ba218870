package approval

import (
	"time"

	common_models "go-approvals/internal/common/models"
)

type ActionType = common_models.ActionType

type ProcessStatus string

const (
	ProcessDraft    ProcessStatus = "DRAFT"
	ProcessActive   ProcessStatus = "ACTIVE"
	ProcessInactive ProcessStatus = "INACTIVE"
)

func (s ProcessStatus) Valid() bool {
	switch s {
	case ProcessDraft, ProcessActive, ProcessInactive:
		return true
	}
	return false
}

type ApproverType string

const (
	ApproverRole         ApproverType = "ROLE"
	ApproverManager      ApproverType = "MANAGER"
	ApproverSpecificUser ApproverType = "SPECIFIC_USER"
)

type RequestStatus string

const (
	RequestPending  RequestStatus = "PENDING"
	RequestApproved RequestStatus = "APPROVED"
	RequestRejected RequestStatus = "REJECTED"
	RequestRecalled RequestStatus = "RECALLED"
)

// IsTerminal reports whether no further action may be taken.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestApproved || s == RequestRejected || s == RequestRecalled
}

// ApprovalStep is one stage of a process. StepNumber is 1-based and the
// steps of a process form a contiguous range.
type ApprovalStep struct {
	StepNumber   int          `bson:"step_number" json:"step_number" yaml:"step_number"`
	Name         string       `bson:"name" json:"name" yaml:"name"`
	ApproverType ApproverType `bson:"approver_type" json:"approver_type" yaml:"approver_type"`
	ApproverRole string       `bson:"approver_role,omitempty" json:"approver_role,omitempty" yaml:"approver_role,omitempty"`
	ApproverUser string       `bson:"approver_user,omitempty" json:"approver_user,omitempty" yaml:"approver_user,omitempty"`
}

// ApprovalProcess defines which records need approval and who approves them.
type ApprovalProcess struct {
	ID            string         `bson:"_id" json:"id"`
	TenantID      string         `bson:"tenant_id" json:"tenant_id"`
	Name          string         `bson:"name" json:"name"`
	Description   string         `bson:"description,omitempty" json:"description,omitempty"`
	ObjectType    string         `bson:"object_type" json:"object_type"`
	EntryCriteria string         `bson:"entry_criteria,omitempty" json:"entry_criteria,omitempty"`
	Steps         []ApprovalStep `bson:"steps" json:"steps"`
	Status        ProcessStatus  `bson:"status" json:"status"`
	Revision      int64          `bson:"revision" json:"revision"`
	CreatedBy     string         `bson:"created_by" json:"created_by"`
	CreatedAt     time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `bson:"updated_at" json:"updated_at"`
	Deleted       bool           `bson:"deleted" json:"-"`
	DeletedAt     *time.Time     `bson:"deleted_at,omitempty" json:"-"`
	DeletedBy     string         `bson:"deleted_by,omitempty" json:"-"`
}

func (p *ApprovalProcess) TotalSteps() int {
	return len(p.Steps)
}

// Step returns the step with the given number.
func (p *ApprovalProcess) Step(n int) (ApprovalStep, bool) {
	for _, s := range p.Steps {
		if s.StepNumber == n {
			return s, true
		}
	}
	return ApprovalStep{}, false
}

// ApprovalRequest is the current projection of a record travelling through a
// process. Version equals the sequence of the last action applied to it.
type ApprovalRequest struct {
	ID            string        `bson:"_id" json:"id"`
	TenantID      string        `bson:"tenant_id" json:"tenant_id"`
	ProcessID     string        `bson:"process_id" json:"process_id"`
	ObjectType    string        `bson:"object_type" json:"object_type"`
	RecordID      string        `bson:"record_id" json:"record_id"`
	SubmitterID   string        `bson:"submitter_id" json:"submitter_id"`
	SubmitComment string        `bson:"submit_comment,omitempty" json:"submit_comment,omitempty"`
	CurrentStep   int           `bson:"current_step" json:"current_step"`
	TotalSteps    int           `bson:"total_steps" json:"total_steps"`
	Status        RequestStatus `bson:"status" json:"status"`
	Version       int64         `bson:"version" json:"version"`
	CreatedAt     time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `bson:"updated_at" json:"updated_at"`
	CompletedAt   *time.Time    `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}

// ProcessInput carries the administrator-editable fields of a process.
type ProcessInput struct {
	Name          string         `json:"name" yaml:"name"`
	Description   string         `json:"description" yaml:"description"`
	ObjectType    string         `json:"object_type" yaml:"object_type"`
	EntryCriteria string         `json:"entry_criteria" yaml:"entry_criteria"`
	Steps         []ApprovalStep `json:"steps" yaml:"steps"`
}

type ProcessFilter struct {
	ObjectType string
	Status     ProcessStatus
}

// RequestFilter narrows request listings. An empty TenantID spans all
// tenants and is only used by background jobs.
type RequestFilter struct {
	TenantID    string
	ProcessID   string
	ObjectType  string
	RecordID    string
	SubmitterID string
	Status      RequestStatus
	Limit       int64
}

type SubmitInput struct {
	TenantID    string
	ProcessID   string
	RecordID    string
	SubmitterID string
	Comment     string
}

// ActInput describes one decision. ExpectedStep, when set, pins the step the
// caller saw; zero pins the step observed on first read.
type ActInput struct {
	TenantID     string
	RequestID    string
	ActorID      string
	Action       ActionType
	Comment      string
	ExpectedStep int
}

// Eligibility is the result of probing a record against a process.
type Eligibility struct {
	ProcessID        string   `json:"process_id"`
	RecordID         string   `json:"record_id"`
	RequiresApproval bool     `json:"requires_approval"`
	MissingFields    []string `json:"missing_fields,omitempty"`
}
