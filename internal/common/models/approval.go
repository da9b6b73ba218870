package models

import "time"

// ActionType is a decision recorded against an approval request.
type ActionType string

const (
	ActionSubmit  ActionType = "SUBMIT"
	ActionApprove ActionType = "APPROVE"
	ActionReject  ActionType = "REJECT"
	ActionRecall  ActionType = "RECALL"
)

func (a ActionType) Valid() bool {
	switch a {
	case ActionSubmit, ActionApprove, ActionReject, ActionRecall:
		return true
	}
	return false
}

// ApprovalAction is one immutable entry of a request's audit trail.
// Sequence 0 is the submission marker; every later action carries the
// request version it produced.
type ApprovalAction struct {
	ID         string     `bson:"_id" json:"id"`
	TenantID   string     `bson:"tenant_id" json:"tenant_id"`
	RequestID  string     `bson:"request_id" json:"request_id"`
	ProcessID  string     `bson:"process_id" json:"process_id"`
	ActorID    string     `bson:"actor_id" json:"actor_id"`
	ActorName  string     `bson:"-" json:"actor_name,omitempty"` // Populated on read
	Action     ActionType `bson:"action" json:"action"`
	StepNumber int        `bson:"step_number" json:"step_number"`
	Sequence   int64      `bson:"sequence" json:"sequence"`
	Comment    string     `bson:"comment,omitempty" json:"comment,omitempty"`
	System     bool       `bson:"system" json:"system"`
	CreatedAt  time.Time  `bson:"created_at" json:"created_at"`
}

// ApprovalEventType names what happened to a request.
type ApprovalEventType string

const (
	EventSubmitted ApprovalEventType = "approval.submitted"
	EventAdvanced  ApprovalEventType = "approval.advanced"
	EventApproved  ApprovalEventType = "approval.approved"
	EventRejected  ApprovalEventType = "approval.rejected"
	EventRecalled  ApprovalEventType = "approval.recalled"
)

// ApprovalEvent is published after a transition has been committed.
type ApprovalEvent struct {
	Type        ApprovalEventType `json:"type"`
	TenantID    string            `json:"tenant_id"`
	RequestID   string            `json:"request_id"`
	ProcessID   string            `json:"process_id"`
	RecordID    string            `json:"record_id"`
	ObjectType  string            `json:"object_type"`
	ActorID     string            `json:"actor_id"`
	Status      string            `json:"status"`
	CurrentStep int               `json:"current_step"`
	Version     int64             `json:"version"`
	Timestamp   time.Time         `json:"timestamp"`
}
