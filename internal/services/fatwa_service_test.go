package services

import (
	"strings"

	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/workflow"
)

// TestFatwaReviewCycle walks a fatwa through assignment, an answer that is
// sent back, a second answer and approval.
func (s *caseSuite) TestFatwaReviewCycle() {
	c := s.newFatwa()
	s.Equal(string(workflow.StatusPending), c.Status)

	got, err := s.fatwas.Assign(s.ctx, c.ID, principal(s.admin), dto.AssignRequest{ShaykhID: s.shaykh.ID.String()})
	s.Require().NoError(err)
	s.Equal(string(workflow.StatusAssigned), got.Status)

	got, err = s.fatwas.Answer(s.ctx, c.ID, principal(s.shaykh), "It is permitted.")
	s.Require().NoError(err)
	s.Equal(string(workflow.StatusAnswered), got.Status)
	s.Require().NotNil(got.Fatwa.AnsweredBy)
	s.Equal(s.shaykh.ID, *got.Fatwa.AnsweredBy)

	got, err = s.fatwas.Unapprove(s.ctx, c.ID, principal(s.admin), "needs citation")
	s.Require().NoError(err)
	s.Equal(string(workflow.StatusAssigned), got.Status)
	s.Require().Len(got.Feedback, 1)
	s.Equal("needs citation", got.Feedback[0].Comment)
	s.Equal(s.admin.ID, got.Feedback[0].AuthorID)

	got, err = s.fatwas.Answer(s.ctx, c.ID, principal(s.shaykh), "It is permitted, as reported in Sahih Muslim.")
	s.Require().NoError(err)
	s.Equal(string(workflow.StatusAnswered), got.Status)

	got, err = s.fatwas.Approve(s.ctx, c.ID, principal(s.admin), "")
	s.Require().NoError(err)
	s.Equal(string(workflow.StatusApproved), got.Status)
	s.Contains(got.Fatwa.Answer, "Sahih Muslim")
	s.Require().NotNil(got.Fatwa.ApprovedBy)
	s.Equal(s.admin.ID, *got.Fatwa.ApprovedBy)
	s.Len(got.Feedback, 1)
	s.Require().NotNil(got.StatusChangedBy)
	s.Equal(s.admin.ID, *got.StatusChangedBy)
}

func (s *caseSuite) TestApproveRequiresAnswer() {
	pending := s.newFatwa()
	_, err := s.fatwas.Approve(s.ctx, pending.ID, principal(s.admin), "")
	s.requireCode(err, apperr.CodeConflict)

	assigned := s.newFatwa()
	_, err = s.fatwas.Assign(s.ctx, assigned.ID, principal(s.admin), dto.AssignRequest{ShaykhID: s.shaykh.ID.String()})
	s.Require().NoError(err)
	_, err = s.fatwas.Approve(s.ctx, assigned.ID, principal(s.admin), "")
	s.requireCode(err, apperr.CodeConflict)
	s.Equal(workflow.StatusAssigned, s.status(assigned.ID))
}

func (s *caseSuite) TestUnapproveRequiresComment() {
	c := s.answeredFatwa()

	_, err := s.fatwas.Unapprove(s.ctx, c.ID, principal(s.admin), "  ")
	s.requireCode(err, apperr.CodeValidation)
	s.Equal(workflow.StatusAnswered, s.status(c.ID))

	var n int64
	s.Require().NoError(s.db.Model(&models.Feedback{}).Where("case_id = ?", c.ID).Count(&n).Error)
	s.Zero(n)
}

func (s *caseSuite) TestApproveKeepsComment() {
	c := s.answeredFatwa()

	got, err := s.fatwas.Approve(s.ctx, c.ID, principal(s.admin), "Well sourced")
	s.Require().NoError(err)
	s.Require().Len(got.Feedback, 1)
	s.Equal("Well sourced", got.Feedback[0].Comment)
}

func (s *caseSuite) TestAnswerRules() {
	c := s.newFatwa()
	_, err := s.fatwas.Assign(s.ctx, c.ID, principal(s.admin), dto.AssignRequest{ShaykhID: s.shaykh.ID.String()})
	s.Require().NoError(err)

	_, err = s.fatwas.Answer(s.ctx, c.ID, principal(s.shaykh2), "Another opinion")
	s.requireCode(err, apperr.CodeAuthorization)

	_, err = s.fatwas.Answer(s.ctx, c.ID, principal(s.owner), "My own answer")
	s.requireCode(err, apperr.CodeAuthorization)

	_, err = s.fatwas.Answer(s.ctx, c.ID, principal(s.shaykh), "")
	s.requireCode(err, apperr.CodeValidation)

	// Admins may answer directly, even before anyone is assigned.
	unassigned := s.newFatwa()
	got, err := s.fatwas.Answer(s.ctx, unassigned.ID, principal(s.admin), "Answered by the office")
	s.Require().NoError(err)
	s.Equal(string(workflow.StatusAnswered), got.Status)
}

func (s *caseSuite) TestCreateFatwaValidation() {
	_, err := s.fatwas.Create(s.ctx, principal(s.owner), dto.CreateFatwaRequest{Title: "No question"})
	s.requireCode(err, apperr.CodeValidation)

	_, err = s.fatwas.Create(s.ctx, principal(s.owner), dto.CreateFatwaRequest{Title: strings.Repeat("a", 201), Question: "q"})
	s.requireCode(err, apperr.CodeValidation)

	_, err = s.fatwas.Create(s.ctx, principal(s.owner), dto.CreateFatwaRequest{Title: "t", Question: "q", Privacy: "friends"})
	s.requireCode(err, apperr.CodeValidation)

	_, err = s.fatwas.Create(s.ctx, principal(s.shaykh), dto.CreateFatwaRequest{Title: "t", Question: "q"})
	s.requireCode(err, apperr.CodeAuthorization)

	c, err := s.fatwas.Create(s.ctx, principal(s.admin), dto.CreateFatwaRequest{Title: strings.Repeat("a", 200), Question: "q"})
	s.Require().NoError(err)
	s.Equal("public", c.Fatwa.Privacy)
	s.Equal("normal", c.Fatwa.Urgency)
}

func (s *caseSuite) TestUnassignReturnsToPending() {
	c := s.newFatwa()
	_, err := s.fatwas.Assign(s.ctx, c.ID, principal(s.admin), dto.AssignRequest{ShaykhID: s.shaykh.ID.String()})
	s.Require().NoError(err)

	got, err := s.fatwas.Assign(s.ctx, c.ID, principal(s.admin), dto.AssignRequest{ShaykhID: "unassigned"})
	s.Require().NoError(err)
	s.Equal(string(workflow.StatusPending), got.Status)
	s.Empty(got.Assignees)

	// Clients send the capitalised form too.
	_, err = s.fatwas.Assign(s.ctx, c.ID, principal(s.admin), dto.AssignRequest{ShaykhID: s.shaykh.ID.String()})
	s.Require().NoError(err)
	got, err = s.fatwas.Assign(s.ctx, c.ID, principal(s.admin), dto.AssignRequest{ShaykhID: "Unassigned"})
	s.Require().NoError(err)
	s.Equal(string(workflow.StatusPending), got.Status)
	s.Empty(got.Assignees)
}

func (s *caseSuite) TestReassignAnsweredFatwa() {
	c := s.answeredFatwa()

	got, err := s.fatwas.Assign(s.ctx, c.ID, principal(s.admin), dto.AssignRequest{ShaykhID: s.shaykh2.ID.String()})
	s.Require().NoError(err)
	s.Equal(string(workflow.StatusAssigned), got.Status)
	s.Equal([]uuid.UUID{s.shaykh2.ID}, got.AssigneeIDs())

	// The previous shaykh lost the case; the new one can answer it.
	_, err = s.fatwas.Answer(s.ctx, c.ID, principal(s.shaykh), "Second opinion")
	s.requireCode(err, apperr.CodeAuthorization)
	got, err = s.fatwas.Answer(s.ctx, c.ID, principal(s.shaykh2), "Permitted within the distance of travel.")
	s.Require().NoError(err)
	s.Equal(string(workflow.StatusAnswered), got.Status)

	_, err = s.fatwas.Approve(s.ctx, c.ID, principal(s.admin), "")
	s.Require().NoError(err)
	_, err = s.fatwas.Assign(s.ctx, c.ID, principal(s.admin), dto.AssignRequest{ShaykhID: s.shaykh.ID.String()})
	s.requireCode(err, apperr.CodeConflict)
}

func (s *caseSuite) TestUnapproveUnassignedAnswerReturnsToQueue() {
	c := s.newFatwa()
	_, err := s.fatwas.Answer(s.ctx, c.ID, principal(s.admin), "Answered by the office")
	s.Require().NoError(err)

	got, err := s.fatwas.Unapprove(s.ctx, c.ID, principal(s.admin), "needs a scholar's review")
	s.Require().NoError(err)
	s.Equal(string(workflow.StatusPending), got.Status)
	s.Empty(got.Assignees)

	got, err = s.fatwas.Assign(s.ctx, c.ID, principal(s.admin), dto.AssignRequest{ShaykhID: s.shaykh.ID.String()})
	s.Require().NoError(err)
	s.Equal(string(workflow.StatusAssigned), got.Status)
}

func (s *caseSuite) TestCancelledFatwaIsRejected() {
	c := s.newFatwa()

	got, err := s.cases.Cancel(s.ctx, workflow.KindFatwa, c.ID, principal(s.owner), "Found the answer elsewhere")
	s.Require().NoError(err)
	s.Equal(string(workflow.StatusRejected), got.Status)
	s.Equal("Found the answer elsewhere", got.CancelReason)

	_, err = s.cases.Cancel(s.ctx, workflow.KindFatwa, c.ID, principal(s.admin), "")
	s.requireCode(err, apperr.CodeConflict)
}

func (s *caseSuite) TestPublicListShowsApprovedPublicFatwas() {
	approved := s.answeredFatwa()
	_, err := s.fatwas.Approve(s.ctx, approved.ID, principal(s.admin), "")
	s.Require().NoError(err)

	private, err := s.fatwas.Create(s.ctx, principal(s.owner), dto.CreateFatwaRequest{Title: "Family matter", Question: "Private question", Privacy: "private"})
	s.Require().NoError(err)
	_, err = s.fatwas.Answer(s.ctx, private.ID, principal(s.admin), "Answer")
	s.Require().NoError(err)
	_, err = s.fatwas.Approve(s.ctx, private.ID, principal(s.admin), "")
	s.Require().NoError(err)
	s.newFatwa()

	cases, total, err := s.fatwas.ListPublic(s.ctx, dto.ListQuery{})
	s.Require().NoError(err)
	s.EqualValues(1, total)
	s.Equal(approved.ID, cases[0].ID)

	_, total, err = s.fatwas.ListPublic(s.ctx, dto.ListQuery{Search: "zakat"})
	s.Require().NoError(err)
	s.Zero(total)

	// Anyone may read an approved fatwa.
	_, err = s.cases.Get(s.ctx, workflow.KindFatwa, approved.ID, principal(s.stranger))
	s.NoError(err)
}

func (s *caseSuite) TestDeleteFatwa() {
	c := s.answeredFatwa()
	_, err := s.fatwas.Unapprove(s.ctx, c.ID, principal(s.admin), "needs work")
	s.Require().NoError(err)

	err = s.fatwas.Delete(s.ctx, c.ID, principal(s.owner))
	s.requireCode(err, apperr.CodeAuthorization)

	s.Require().NoError(s.fatwas.Delete(s.ctx, c.ID, principal(s.admin)))

	for _, model := range []interface{}{&models.Case{}, &models.FatwaDetail{}, &models.CaseAssignee{}, &models.Feedback{}} {
		var n int64
		q := s.db.Model(model)
		if _, isCase := model.(*models.Case); isCase {
			q = q.Where("id = ?", c.ID)
		} else {
			q = q.Where("case_id = ?", c.ID)
		}
		s.Require().NoError(q.Count(&n).Error)
		s.Zero(n, "%T rows left behind", model)
	}

	err = s.fatwas.Delete(s.ctx, uuid.New(), principal(s.admin))
	s.requireCode(err, apperr.CodeNotFound)
}
