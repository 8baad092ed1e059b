package workflow

import (
	"fmt"

	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/apperr"
)

// Can is the single capability check for case actions. It returns nil or an
// authorization error. Status only matters here for answering: a shaykh may
// answer only the fatwa they alone hold while it is assigned.
func Can(p Principal, a Action, s Subject) error {
	if allowed(p, a, s) {
		return nil
	}
	return apperr.Forbidden(fmt.Sprintf("not authorized to %s this %s", verb(a), s.Kind))
}

func allowed(p Principal, a Action, s Subject) bool {
	admin := p.IsAdmin()
	owner := p.ID == s.OwnerID
	assignee := p.Role == RoleShaykh && s.HasAssignee(p.ID)

	switch a {
	case ActionView:
		return admin || owner || assignee || (s.Kind == KindFatwa && s.Status == StatusApproved)
	case ActionAssign, ActionUnassign, ActionApprove, ActionUnapprove, ActionDelete:
		return admin
	case ActionAnswer:
		return admin || (p.Role == RoleShaykh && s.SoleAssignee(p.ID) && s.Status == StatusAssigned)
	case ActionScheduleMeeting, ActionUpdateMeeting, ActionComplete, ActionAddNotes,
		ActionGenerateCertificate, ActionUploadCertificate:
		return admin || assignee
	case ActionAddFeedback:
		return admin || owner || assignee
	case ActionCancel:
		return admin || owner
	}
	return false
}

func verb(a Action) string {
	switch a {
	case ActionScheduleMeeting:
		return "schedule a meeting for"
	case ActionUpdateMeeting:
		return "update a meeting of"
	case ActionAddFeedback:
		return "add feedback to"
	case ActionAddNotes:
		return "add notes to"
	case ActionGenerateCertificate:
		return "generate a certificate for"
	case ActionUploadCertificate:
		return "upload a certificate for"
	}
	return string(a)
}
