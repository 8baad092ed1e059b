package workflow

import (
	"fmt"
	"strings"

	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/apperr"
)

// outcome marks a transition whose target is the outcome supplied with the
// request.
const outcome Status = "<outcome>"

// transitions maps action -> source status -> target status. A source that
// is missing from the map is a conflict.
type transitions map[Action]map[Status]Status

var tables = map[Kind]transitions{
	KindFatwa: {
		ActionAssign: {
			StatusPending:  StatusAssigned,
			StatusAssigned: StatusAssigned,
			StatusAnswered: StatusAssigned,
		},
		ActionUnassign: {
			StatusPending:  StatusPending,
			StatusAssigned: StatusPending,
			StatusAnswered: StatusPending,
		},
		ActionAnswer: {
			StatusPending:  StatusAnswered,
			StatusAssigned: StatusAnswered,
			StatusAnswered: StatusAnswered,
		},
		ActionApprove: {
			StatusAnswered: StatusApproved,
		},
		ActionUnapprove: {
			StatusAnswered: StatusAssigned,
		},
		ActionCancel: {
			StatusPending:  StatusRejected,
			StatusAssigned: StatusRejected,
			StatusAnswered: StatusRejected,
		},
	},
	KindMarriage: {
		ActionAssign: {
			StatusPending:    StatusAssigned,
			StatusAssigned:   StatusAssigned,
			StatusInProgress: StatusInProgress,
		},
		ActionScheduleMeeting: {
			StatusPending:    StatusInProgress,
			StatusAssigned:   StatusInProgress,
			StatusInProgress: StatusInProgress,
		},
		ActionGenerateCertificate: {
			StatusPending:    StatusInProgress,
			StatusAssigned:   StatusInProgress,
			StatusInProgress: StatusInProgress,
		},
		ActionUploadCertificate: {
			StatusPending:    StatusCompleted,
			StatusAssigned:   StatusCompleted,
			StatusInProgress: StatusCompleted,
		},
		ActionComplete: {
			StatusPending:    StatusCompleted,
			StatusAssigned:   StatusCompleted,
			StatusInProgress: StatusCompleted,
		},
		ActionCancel: {
			StatusPending:    StatusCancelled,
			StatusAssigned:   StatusCancelled,
			StatusInProgress: StatusCancelled,
		},
	},
	KindReconciliation: {
		ActionAssign: {
			StatusPending:    StatusAssigned,
			StatusAssigned:   StatusAssigned,
			StatusInProgress: StatusInProgress,
		},
		ActionScheduleMeeting: {
			StatusPending:    StatusInProgress,
			StatusAssigned:   StatusInProgress,
			StatusInProgress: StatusInProgress,
		},
		ActionComplete: {
			StatusPending:    outcome,
			StatusAssigned:   outcome,
			StatusInProgress: outcome,
		},
		ActionCancel: {
			StatusPending:    StatusCancelled,
			StatusAssigned:   StatusCancelled,
			StatusInProgress: StatusCancelled,
		},
	},
}

// annotations are actions that never change status.
var annotations = map[Kind][]Action{
	KindFatwa:          {ActionView, ActionAddFeedback, ActionDelete},
	KindMarriage:       {ActionView, ActionAddFeedback, ActionUpdateMeeting},
	KindReconciliation: {ActionView, ActionAddFeedback, ActionUpdateMeeting, ActionAddNotes},
}

// Supports reports whether kind k knows action a at all.
func Supports(k Kind, a Action) bool {
	if _, ok := tables[k][a]; ok {
		return true
	}
	for _, x := range annotations[k] {
		if x == a {
			return true
		}
	}
	return false
}

// Request is what the caller wants done. Text carries the comment, answer or
// notes the action requires; Outcome is only read for reconciliation
// completion.
type Request struct {
	Action  Action
	Text    string
	Outcome Status
}

// Decision is the result of a successful evaluation.
type Decision struct {
	Action Action
	From   Status
	To     Status
	// Transition is false for actions that leave status alone; the caller
	// then skips the guarded status write.
	Transition bool
}

// Evaluate runs the checks every action goes through, in a fixed order:
// kind support, capability, input, then the transition table. It does not
// mutate anything.
func Evaluate(p Principal, req Request, s Subject) (Decision, error) {
	if !Supports(s.Kind, req.Action) {
		return Decision{}, apperr.Validation(fmt.Sprintf("%s does not support %s", s.Kind, req.Action))
	}
	if err := Can(p, req.Action, s); err != nil {
		return Decision{}, err
	}
	if err := validateInput(s.Kind, req); err != nil {
		return Decision{}, err
	}

	table, ok := tables[s.Kind][req.Action]
	if !ok {
		return Decision{Action: req.Action, From: s.Status, To: s.Status}, nil
	}
	to, ok := table[s.Status]
	if !ok {
		return Decision{}, apperr.Conflict(fmt.Sprintf("cannot %s %s %s %s", verb(req.Action), article(s.Status), s.Status, s.Kind))
	}
	if to == outcome {
		to = req.Outcome
	}
	// An unapproved fatwa nobody is assigned to goes back to the queue.
	if req.Action == ActionUnapprove && len(s.Assignees) == 0 {
		to = StatusPending
	}
	return Decision{Action: req.Action, From: s.Status, To: to, Transition: true}, nil
}

func validateInput(k Kind, req Request) error {
	text := strings.TrimSpace(req.Text)
	switch req.Action {
	case ActionUnapprove:
		if text == "" {
			return apperr.Validation("a comment is required when unapproving")
		}
	case ActionAddFeedback:
		if text == "" {
			return apperr.Validation("comment is required")
		}
	case ActionAnswer:
		if text == "" {
			return apperr.Validation("answer is required")
		}
	case ActionAddNotes:
		if text == "" {
			return apperr.Validation("notes are required")
		}
	case ActionComplete:
		if k == KindReconciliation && req.Outcome != StatusResolved && req.Outcome != StatusUnresolved {
			return apperr.Validation("outcome must be resolved or unresolved")
		}
	}
	return nil
}

func article(s Status) string {
	switch s {
	case StatusAssigned, StatusAnswered, StatusApproved, StatusInProgress, StatusUnresolved:
		return "an"
	}
	return "a"
}
