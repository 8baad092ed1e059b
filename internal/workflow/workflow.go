// Package workflow holds the rules shared by every case kind: which actions a
// kind supports, who may perform them, and which status each one leads to.
// It does no I/O. Services load a Subject, ask Evaluate for a Decision, and
// only then write.
package workflow

import (
	"slices"

	"github.com/google/uuid"
)

type Kind string

const (
	KindFatwa          Kind = "fatwa"
	KindMarriage       Kind = "marriage"
	KindReconciliation Kind = "reconciliation"
)

func (k Kind) Valid() bool {
	return k == KindFatwa || k == KindMarriage || k == KindReconciliation
}

type Status string

const (
	StatusPending    Status = "pending"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in-progress"
	StatusAnswered   Status = "answered"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
	StatusCompleted  Status = "completed"
	StatusResolved   Status = "resolved"
	StatusUnresolved Status = "unresolved"
	StatusCancelled  Status = "cancelled"
)

type Role string

const (
	RoleUser   Role = "user"
	RoleShaykh Role = "shaykh"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleShaykh || r == RoleAdmin
}

type Action string

const (
	ActionView                Action = "view"
	ActionAssign              Action = "assign"
	ActionUnassign            Action = "unassign"
	ActionAnswer              Action = "answer"
	ActionApprove             Action = "approve"
	ActionUnapprove           Action = "unapprove"
	ActionScheduleMeeting     Action = "schedule-meeting"
	ActionUpdateMeeting       Action = "update-meeting"
	ActionAddFeedback         Action = "add-feedback"
	ActionAddNotes            Action = "add-notes"
	ActionComplete            Action = "complete"
	ActionCancel              Action = "cancel"
	ActionDelete              Action = "delete"
	ActionGenerateCertificate Action = "generate-certificate"
	ActionUploadCertificate   Action = "upload-certificate"
)

// Principal is the authenticated caller.
type Principal struct {
	ID   uuid.UUID
	Role Role
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// Subject is the view of a case the rules need.
type Subject struct {
	Kind      Kind
	OwnerID   uuid.UUID
	Status    Status
	Assignees []uuid.UUID
}

func (s Subject) HasAssignee(id uuid.UUID) bool {
	return slices.Contains(s.Assignees, id)
}

// SoleAssignee reports whether id is the one and only assignee.
func (s Subject) SoleAssignee(id uuid.UUID) bool {
	return len(s.Assignees) == 1 && s.Assignees[0] == id
}

// Terminal reports whether no further status transition is possible.
func Terminal(k Kind, s Status) bool {
	return slices.Contains(terminalStatuses[k], s)
}

var terminalStatuses = map[Kind][]Status{
	KindFatwa:          {StatusApproved, StatusRejected},
	KindMarriage:       {StatusCompleted, StatusCancelled},
	KindReconciliation: {StatusResolved, StatusUnresolved, StatusCancelled},
}

// AssigneeVisible lists the statuses in which an assignee sees a case in
// their assignment list.
func AssigneeVisible(k Kind) []Status {
	return assigneeVisible[k]
}

var assigneeVisible = map[Kind][]Status{
	KindFatwa:          {StatusAssigned, StatusAnswered, StatusApproved},
	KindMarriage:       {StatusAssigned, StatusInProgress},
	KindReconciliation: {StatusAssigned, StatusInProgress, StatusResolved, StatusUnresolved},
}

// ActiveStatuses are the statuses that count towards a shaykh's workload.
var ActiveStatuses = []Status{StatusPending, StatusAssigned, StatusInProgress, StatusAnswered}

// Statuses lists every status a kind can be in.
func Statuses(k Kind) []Status {
	switch k {
	case KindFatwa:
		return []Status{StatusPending, StatusAssigned, StatusAnswered, StatusApproved, StatusRejected}
	case KindMarriage:
		return []Status{StatusPending, StatusAssigned, StatusInProgress, StatusCompleted, StatusCancelled}
	case KindReconciliation:
		return []Status{StatusPending, StatusAssigned, StatusInProgress, StatusResolved, StatusUnresolved, StatusCancelled}
	}
	return nil
}
