package dto

import "github.com/google/uuid"

// AssignRequest accepts either a single shaykh (fatwa, marriage) or a list
// (reconciliation). Both fields may be sent; they are merged.
type AssignRequest struct {
	ShaykhID  string      `json:"shaykh_id"`
	ShaykhIDs []uuid.UUID `json:"shaykh_ids"`
}

type MeetingRequest struct {
	Date     string `json:"date"`
	Time     string `json:"time"`
	Location string `json:"location"`
	Notes    string `json:"notes"`
}

// MeetingPatch updates only the fields that are present.
type MeetingPatch struct {
	Date           *string `json:"date"`
	Time           *string `json:"time"`
	Location       *string `json:"location"`
	Notes          *string `json:"notes"`
	Status         *string `json:"status"`
	CompletedNotes *string `json:"completed_notes"`
}

type FeedbackRequest struct {
	Comment string `json:"comment"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type CompleteRequest struct {
	Outcome        string `json:"outcome"`
	OutcomeDetails string `json:"outcome_details"`
	Notes          string `json:"notes"`
}

type ListQuery struct {
	Status string `query:"status"`
	Search string `query:"q"`
	Page   int    `query:"page"`
	Limit  int    `query:"limit"`
}

// MaxPage bounds Page so that Offset cannot overflow.
const MaxPage = 10000

// Normalize clamps paging to sane values.
func (q *ListQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Page > MaxPage {
		q.Page = MaxPage
	}
	if q.Limit < 1 || q.Limit > 100 {
		q.Limit = 20
	}
}

func (q ListQuery) Offset() int { return (q.Page - 1) * q.Limit }

type ListResponse[T any] struct {
	Data  []T   `json:"data"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}
