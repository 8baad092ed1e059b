package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/notify"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/workflow"
)

// CaseService applies workflow actions to stored cases. Every action loads
// the case, asks the workflow for a decision and, only if it is allowed,
// performs its writes and a status update guarded on the status it read, all
// in one transaction.
type CaseService struct {
	db      *gorm.DB
	metrics *metrics.Metrics
	mailer  notify.Mailer
	now     func() time.Time
}

func NewCaseService(db *gorm.DB, m *metrics.Metrics, mailer notify.Mailer) *CaseService {
	return &CaseService{
		db:      db,
		metrics: m,
		mailer:  mailer,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// mutation is the action-specific write. It runs after the workflow has
// accepted the request and before the guarded status update.
type mutation func(tx *gorm.DB, c *models.Case, d workflow.Decision) error

func (s *CaseService) execute(ctx context.Context, kind workflow.Kind, id uuid.UUID, p workflow.Principal, req workflow.Request, mutate mutation) (workflow.Decision, error) {
	var decision workflow.Decision
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := findCase(tx, kind, id)
		if err != nil {
			return err
		}
		decision, err = workflow.Evaluate(p, req, c.Subject())
		if err != nil {
			return err
		}
		if mutate != nil {
			if err := mutate(tx, c, decision); err != nil {
				return err
			}
		}
		return s.writeStatus(tx, c.ID, decision, p)
	})
	if err != nil {
		code := apperr.CodeOf(err)
		if code == apperr.CodeInternal {
			slog.Error("case action failed", "case_id", id.String(), "case_kind", string(kind),
				"action", string(req.Action), "principal_id", p.ID.String(), "error", err)
		} else {
			s.metrics.IncrementDenied(string(kind), string(req.Action), string(code))
		}
		return workflow.Decision{}, err
	}

	s.metrics.IncrementTransition(string(kind), string(req.Action), string(decision.To))
	slog.Info("case action applied", "case_id", id.String(), "case_kind", string(kind),
		"action", string(req.Action), "from", string(decision.From), "to", string(decision.To))
	return decision, nil
}

// writeStatus touches the case row. For status transitions the update only
// matches while the row still holds the status the decision was made on;
// if another request moved it first, nothing matches and the whole
// transaction is rolled back with a conflict.
func (s *CaseService) writeStatus(tx *gorm.DB, id uuid.UUID, d workflow.Decision, p workflow.Principal) error {
	now := s.now()
	updates := map[string]interface{}{"updated_at": now}
	q := tx.Model(&models.Case{}).Where("id = ?", id)
	if d.Transition {
		q = q.Where("status = ?", string(d.From))
		if d.To != d.From {
			updates["status"] = string(d.To)
			updates["status_changed_at"] = now
			updates["status_changed_by"] = p.ID
		}
	}

	result := q.Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("update case status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.Conflict("case was modified by another request, please retry")
	}
	return nil
}

func findCase(tx *gorm.DB, kind workflow.Kind, id uuid.UUID) (*models.Case, error) {
	var c models.Case
	err := tx.
		Preload("Assignees").
		Preload("Fatwa").
		Preload("Marriage").
		Preload("Reconciliation").
		Where("id = ? AND kind = ?", id, string(kind)).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound(fmt.Sprintf("%s not found", kind))
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", kind, err)
	}
	return &c, nil
}

func withDetails(db *gorm.DB) *gorm.DB {
	return withSummary(db).
		Preload("Meetings", func(db *gorm.DB) *gorm.DB { return db.Order("date ASC") }).
		Preload("Feedback", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Feedback.Author")
}

func withSummary(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Owner").
		Preload("Assignees", func(db *gorm.DB) *gorm.DB { return db.Order("assigned_at ASC") }).
		Preload("Assignees.Shaykh").
		Preload("Fatwa").
		Preload("Marriage").
		Preload("Reconciliation")
}

func (s *CaseService) load(ctx context.Context, kind workflow.Kind, id uuid.UUID) (*models.Case, error) {
	var c models.Case
	err := withDetails(s.db.WithContext(ctx)).
		Where("cases.id = ? AND cases.kind = ?", id, string(kind)).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound(fmt.Sprintf("%s not found", kind))
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", kind, err)
	}
	return &c, nil
}

// Get returns a case with its meetings, feedback and people, if p may see it.
func (s *CaseService) Get(ctx context.Context, kind workflow.Kind, id uuid.UUID, p workflow.Principal) (*models.Case, error) {
	c, err := s.load(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if err := workflow.Can(p, workflow.ActionView, c.Subject()); err != nil {
		return nil, err
	}
	return c, nil
}

// List returns the cases of kind that p may see.
func (s *CaseService) List(ctx context.Context, kind workflow.Kind, p workflow.Principal, q dto.ListQuery) ([]models.Case, int64, error) {
	return s.list(ctx, kind, q, identity.VisibleTo(p))
}

// Mine returns the cases p opened.
func (s *CaseService) Mine(ctx context.Context, kind workflow.Kind, p workflow.Principal, q dto.ListQuery) ([]models.Case, int64, error) {
	return s.list(ctx, kind, q, identity.OwnedBy(p))
}

func (s *CaseService) list(ctx context.Context, kind workflow.Kind, q dto.ListQuery, scopes ...func(*gorm.DB) *gorm.DB) ([]models.Case, int64, error) {
	q.Normalize()
	scopes = append(scopes, identity.OfKind(kind))
	if q.Status != "" {
		scopes = append(scopes, identity.WithStatus(workflow.Status(q.Status)))
	}
	if search := strings.TrimSpace(q.Search); search != "" && kind == workflow.KindFatwa {
		scopes = append(scopes, fatwaSearch(search))
	}

	db := s.db.WithContext(ctx)
	var total int64
	if err := db.Model(&models.Case{}).Scopes(scopes...).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", kind, err)
	}

	var cases []models.Case
	err := withSummary(db).Scopes(scopes...).
		Order("cases.created_at DESC").
		Offset(q.Offset()).Limit(q.Limit).
		Find(&cases).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", kind, err)
	}
	return cases, total, nil
}

func fatwaSearch(term string) func(db *gorm.DB) *gorm.DB {
	pattern := "%" + strings.ToLower(term) + "%"
	return func(db *gorm.DB) *gorm.DB {
		sub := db.Session(&gorm.Session{NewDB: true}).
			Model(&models.FatwaDetail{}).
			Select("case_id").
			Where("LOWER(title) LIKE ? OR LOWER(question) LIKE ?", pattern, pattern)
		return db.Where("cases.id IN (?)", sub)
	}
}

// Assign sets the assignees of a case. Fatwas and marriages hold one shaykh
// and are replaced; reconciliations accumulate.
func (s *CaseService) Assign(ctx context.Context, kind workflow.Kind, id uuid.UUID, p workflow.Principal, shaykhIDs []uuid.UUID) (*models.Case, error) {
	var added []uuid.UUID
	_, err := s.execute(ctx, kind, id, p, workflow.Request{Action: workflow.ActionAssign},
		func(tx *gorm.DB, c *models.Case, _ workflow.Decision) error {
			current := c.AssigneeIDs()
			next, err := workflow.MergeAssignees(kind, current, shaykhIDs)
			if err != nil {
				return err
			}
			added = difference(next, current)
			if err := ensureShaykhs(tx, added); err != nil {
				return err
			}
			if removed := difference(current, next); len(removed) > 0 {
				if err := tx.Where("case_id = ? AND shaykh_id IN ?", c.ID, removed).Delete(&models.CaseAssignee{}).Error; err != nil {
					return fmt.Errorf("remove assignees: %w", err)
				}
			}
			return insertAssignees(tx, c.ID, added, p.ID, s.now())
		})
	if err != nil {
		return nil, err
	}

	s.notifyAssigned(ctx, kind, id, added)
	return s.load(ctx, kind, id)
}

// Unassign clears every assignee of a fatwa and returns it to pending.
func (s *CaseService) Unassign(ctx context.Context, kind workflow.Kind, id uuid.UUID, p workflow.Principal) (*models.Case, error) {
	_, err := s.execute(ctx, kind, id, p, workflow.Request{Action: workflow.ActionUnassign},
		func(tx *gorm.DB, c *models.Case, _ workflow.Decision) error {
			if err := tx.Where("case_id = ?", c.ID).Delete(&models.CaseAssignee{}).Error; err != nil {
				return fmt.Errorf("clear assignees: %w", err)
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, kind, id)
}

func insertAssignees(tx *gorm.DB, caseID uuid.UUID, shaykhIDs []uuid.UUID, by uuid.UUID, at time.Time) error {
	if len(shaykhIDs) == 0 {
		return nil
	}
	rows := make([]models.CaseAssignee, 0, len(shaykhIDs))
	for _, sid := range shaykhIDs {
		rows = append(rows, models.CaseAssignee{CaseID: caseID, ShaykhID: sid, AssignedBy: by, AssignedAt: at})
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return fmt.Errorf("insert assignees: %w", err)
	}
	return nil
}

// ensureShaykhs checks that every id belongs to an active shaykh account.
func ensureShaykhs(tx *gorm.DB, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	var n int64
	if err := tx.Model(&models.User{}).Where("id IN ? AND role = ?", ids, models.RoleShaykh).Count(&n).Error; err != nil {
		return fmt.Errorf("check shaykhs: %w", err)
	}
	if int(n) != len(ids) {
		return apperr.Validation("every assignee must be a registered shaykh")
	}
	return nil
}

func difference(a, b []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(b))
	for _, id := range b {
		seen[id] = struct{}{}
	}
	var out []uuid.UUID
	for _, id := range a {
		if _, ok := seen[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func (s *CaseService) notifyAssigned(ctx context.Context, kind workflow.Kind, caseID uuid.UUID, shaykhIDs []uuid.UUID) {
	if len(shaykhIDs) == 0 {
		return
	}
	var shaykhs []models.User
	err := s.db.WithContext(ctx).
		Where("id IN ? AND settings_email_notifications = ?", shaykhIDs, true).
		Find(&shaykhs).Error
	if err != nil {
		slog.Warn("assignment notice skipped", "case_id", caseID.String(), "error", err)
		return
	}
	subject, body := notify.CaseAssigned(string(kind), caseID.String())
	for _, u := range shaykhs {
		if err := s.mailer.Send(ctx, u.Email, subject, body); err != nil {
			slog.Warn("assignment notice failed", "case_id", caseID.String(), "to", u.Email, "error", err)
		}
	}
}

// ScheduleMeeting appends a meeting and moves an open case to in-progress.
func (s *CaseService) ScheduleMeeting(ctx context.Context, kind workflow.Kind, id uuid.UUID, p workflow.Principal, req dto.MeetingRequest) (*models.Meeting, error) {
	var meeting models.Meeting
	_, err := s.execute(ctx, kind, id, p, workflow.Request{Action: workflow.ActionScheduleMeeting},
		func(tx *gorm.DB, c *models.Case, _ workflow.Decision) error {
			if c.Marriage != nil && c.Marriage.Type != models.MarriageReservation {
				return apperr.Validation("meetings can only be scheduled for marriage reservations")
			}
			date, err := parseDate(req.Date)
			if err != nil {
				return err
			}
			if strings.TrimSpace(req.Time) == "" || strings.TrimSpace(req.Location) == "" {
				return apperr.Validation("date, time and location are required")
			}
			meeting = models.Meeting{
				CaseID:    c.ID,
				Date:      date,
				Time:      strings.TrimSpace(req.Time),
				Location:  strings.TrimSpace(req.Location),
				Notes:     req.Notes,
				Status:    models.MeetingScheduled,
				CreatedBy: p.ID,
			}
			if err := tx.Create(&meeting).Error; err != nil {
				return fmt.Errorf("create meeting: %w", err)
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	return &meeting, nil
}

// UpdateMeeting patches one meeting of the case.
func (s *CaseService) UpdateMeeting(ctx context.Context, kind workflow.Kind, id, meetingID uuid.UUID, p workflow.Principal, patch dto.MeetingPatch) (*models.Meeting, error) {
	var meeting models.Meeting
	_, err := s.execute(ctx, kind, id, p, workflow.Request{Action: workflow.ActionUpdateMeeting},
		func(tx *gorm.DB, c *models.Case, _ workflow.Decision) error {
			err := tx.Where("id = ? AND case_id = ?", meetingID, c.ID).First(&meeting).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("meeting not found")
			}
			if err != nil {
				return fmt.Errorf("load meeting: %w", err)
			}

			updates, err := meetingUpdates(patch)
			if err != nil {
				return err
			}
			if len(updates) == 0 {
				return nil
			}
			if err := tx.Model(&meeting).Updates(updates).Error; err != nil {
				return fmt.Errorf("update meeting: %w", err)
			}
			return tx.First(&meeting, "id = ?", meeting.ID).Error
		})
	if err != nil {
		return nil, err
	}
	return &meeting, nil
}

func meetingUpdates(patch dto.MeetingPatch) (map[string]interface{}, error) {
	updates := map[string]interface{}{}
	if patch.Status != nil {
		if !models.ValidMeetingStatus(*patch.Status) {
			return nil, apperr.Validation("status must be one of scheduled, completed, cancelled, rescheduled")
		}
		updates["status"] = *patch.Status
	}
	if patch.Date != nil {
		date, err := parseDate(*patch.Date)
		if err != nil {
			return nil, err
		}
		updates["date"] = date
	}
	if patch.Time != nil {
		if strings.TrimSpace(*patch.Time) == "" {
			return nil, apperr.Validation("time cannot be empty")
		}
		updates["time"] = strings.TrimSpace(*patch.Time)
	}
	if patch.Location != nil {
		if strings.TrimSpace(*patch.Location) == "" {
			return nil, apperr.Validation("location cannot be empty")
		}
		updates["location"] = strings.TrimSpace(*patch.Location)
	}
	if patch.Notes != nil {
		updates["notes"] = *patch.Notes
	}
	if patch.CompletedNotes != nil {
		updates["completed_notes"] = *patch.CompletedNotes
	}
	return updates, nil
}

// AddFeedback appends a comment. Status is never touched.
func (s *CaseService) AddFeedback(ctx context.Context, kind workflow.Kind, id uuid.UUID, p workflow.Principal, comment string) (*models.Feedback, error) {
	var fb *models.Feedback
	_, err := s.execute(ctx, kind, id, p, workflow.Request{Action: workflow.ActionAddFeedback, Text: comment},
		func(tx *gorm.DB, c *models.Case, _ workflow.Decision) error {
			var err error
			fb, err = appendFeedback(tx, c.ID, p.ID, comment)
			return err
		})
	if err != nil {
		return nil, err
	}
	return fb, nil
}

func appendFeedback(tx *gorm.DB, caseID, authorID uuid.UUID, comment string) (*models.Feedback, error) {
	fb := &models.Feedback{CaseID: caseID, AuthorID: authorID, Comment: strings.TrimSpace(comment)}
	if err := tx.Create(fb).Error; err != nil {
		return nil, fmt.Errorf("append feedback: %w", err)
	}
	return fb, nil
}

// Complete closes a marriage, or records a reconciliation's outcome.
func (s *CaseService) Complete(ctx context.Context, kind workflow.Kind, id uuid.UUID, p workflow.Principal, req dto.CompleteRequest) (*models.Case, error) {
	request := workflow.Request{Action: workflow.ActionComplete, Outcome: workflow.Status(req.Outcome)}
	_, err := s.execute(ctx, kind, id, p, request, func(tx *gorm.DB, c *models.Case, d workflow.Decision) error {
		switch kind {
		case workflow.KindReconciliation:
			err := tx.Model(&models.ReconciliationDetail{}).Where("case_id = ?", c.ID).
				Updates(map[string]interface{}{"outcome": string(d.To), "outcome_details": req.OutcomeDetails}).Error
			if err != nil {
				return fmt.Errorf("record outcome: %w", err)
			}
		default:
			if notes := strings.TrimSpace(req.Notes); notes != "" {
				if err := tx.Model(&models.Case{}).Where("id = ?", c.ID).Update("admin_notes", notes).Error; err != nil {
					return fmt.Errorf("save notes: %w", err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, kind, id)
}

// Cancel withdraws a case. A fatwa ends up rejected, the others cancelled.
func (s *CaseService) Cancel(ctx context.Context, kind workflow.Kind, id uuid.UUID, p workflow.Principal, reason string) (*models.Case, error) {
	_, err := s.execute(ctx, kind, id, p, workflow.Request{Action: workflow.ActionCancel},
		func(tx *gorm.DB, c *models.Case, _ workflow.Decision) error {
			if err := tx.Model(&models.Case{}).Where("id = ?", c.ID).Update("cancel_reason", strings.TrimSpace(reason)).Error; err != nil {
				return fmt.Errorf("save cancel reason: %w", err)
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, kind, id)
}

// parseDate accepts a calendar date or an RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, apperr.Validation("date is required")
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, apperr.Validation("date must be YYYY-MM-DD or RFC 3339")
}
