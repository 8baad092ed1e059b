package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/workflow"
)

const maxFatwaTitle = 200

var (
	fatwaPrivacy = map[string]bool{"public": true, "private": true}
	fatwaUrgency = map[string]bool{"low": true, "normal": true, "high": true, "urgent": true}
)

type FatwaService struct {
	cases *CaseService
}

func NewFatwaService(cases *CaseService) *FatwaService {
	return &FatwaService{cases: cases}
}

func (s *FatwaService) Create(ctx context.Context, p workflow.Principal, req dto.CreateFatwaRequest) (*models.Case, error) {
	if p.Role == workflow.RoleShaykh {
		return nil, apperr.Forbidden("shaykhs cannot submit fatwa questions")
	}
	title := strings.TrimSpace(req.Title)
	question := strings.TrimSpace(req.Question)
	if title == "" || question == "" {
		return nil, apperr.Validation("title and question are required")
	}
	if utf8.RuneCountInString(title) > maxFatwaTitle {
		return nil, apperr.Newf(apperr.CodeValidation, "title cannot exceed %d characters", maxFatwaTitle)
	}
	privacy := defaultString(strings.ToLower(req.Privacy), "public")
	if !fatwaPrivacy[privacy] {
		return nil, apperr.Validation("privacy must be public or private")
	}
	urgency := defaultString(strings.ToLower(req.Urgency), "normal")
	if !fatwaUrgency[urgency] {
		return nil, apperr.Validation("urgency must be low, normal, high or urgent")
	}

	c := models.Case{
		Kind:    string(workflow.KindFatwa),
		OwnerID: p.ID,
		Status:  string(workflow.StatusPending),
		Fatwa: &models.FatwaDetail{
			Title:    title,
			Question: question,
			Category: strings.TrimSpace(req.Category),
			Privacy:  privacy,
			Urgency:  urgency,
		},
	}
	if err := s.cases.db.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, fmt.Errorf("create fatwa: %w", err)
	}
	s.cases.metrics.IncrementCaseCreated(c.Kind)
	slog.Info("case created", "case_id", c.ID.String(), "case_kind", c.Kind)
	return s.cases.load(ctx, workflow.KindFatwa, c.ID)
}

// ListPublic returns approved public fatwas, optionally filtered by a search
// term over title and question.
func (s *FatwaService) ListPublic(ctx context.Context, q dto.ListQuery) ([]models.Case, int64, error) {
	q.Status = string(workflow.StatusApproved)
	return s.cases.list(ctx, workflow.KindFatwa, q, publicFatwas)
}

func publicFatwas(db *gorm.DB) *gorm.DB {
	sub := db.Session(&gorm.Session{NewDB: true}).
		Model(&models.FatwaDetail{}).
		Select("case_id").
		Where("privacy = ?", "public")
	return db.Where("cases.id IN (?)", sub)
}

// Assign sets the fatwa's shaykh. An empty or "unassigned" id clears it.
func (s *FatwaService) Assign(ctx context.Context, id uuid.UUID, p workflow.Principal, req dto.AssignRequest) (*models.Case, error) {
	ids, unassign, err := assigneesFrom(req)
	if err != nil {
		return nil, err
	}
	if unassign {
		return s.cases.Unassign(ctx, workflow.KindFatwa, id, p)
	}
	return s.cases.Assign(ctx, workflow.KindFatwa, id, p, ids)
}

func (s *FatwaService) Answer(ctx context.Context, id uuid.UUID, p workflow.Principal, answer string) (*models.Case, error) {
	req := workflow.Request{Action: workflow.ActionAnswer, Text: answer}
	_, err := s.cases.execute(ctx, workflow.KindFatwa, id, p, req,
		func(tx *gorm.DB, c *models.Case, _ workflow.Decision) error {
			err := tx.Model(&models.FatwaDetail{}).Where("case_id = ?", c.ID).Updates(map[string]interface{}{
				"answer":      strings.TrimSpace(answer),
				"answered_by": p.ID,
				"answered_at": s.cases.now(),
			}).Error
			if err != nil {
				return fmt.Errorf("save answer: %w", err)
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	return s.cases.load(ctx, workflow.KindFatwa, id)
}

// Approve publishes an answered fatwa. A non-empty comment is kept as
// feedback.
func (s *FatwaService) Approve(ctx context.Context, id uuid.UUID, p workflow.Principal, comment string) (*models.Case, error) {
	req := workflow.Request{Action: workflow.ActionApprove, Text: comment}
	_, err := s.cases.execute(ctx, workflow.KindFatwa, id, p, req,
		func(tx *gorm.DB, c *models.Case, _ workflow.Decision) error {
			err := tx.Model(&models.FatwaDetail{}).Where("case_id = ?", c.ID).Updates(map[string]interface{}{
				"approved_by": p.ID,
				"approved_at": s.cases.now(),
			}).Error
			if err != nil {
				return fmt.Errorf("stamp approval: %w", err)
			}
			if strings.TrimSpace(comment) == "" {
				return nil
			}
			_, err = appendFeedback(tx, c.ID, p.ID, comment)
			return err
		})
	if err != nil {
		return nil, err
	}
	return s.cases.load(ctx, workflow.KindFatwa, id)
}

// Unapprove sends an answer back to its shaykh with a mandatory comment.
func (s *FatwaService) Unapprove(ctx context.Context, id uuid.UUID, p workflow.Principal, comment string) (*models.Case, error) {
	req := workflow.Request{Action: workflow.ActionUnapprove, Text: comment}
	_, err := s.cases.execute(ctx, workflow.KindFatwa, id, p, req,
		func(tx *gorm.DB, c *models.Case, _ workflow.Decision) error {
			_, err := appendFeedback(tx, c.ID, p.ID, comment)
			return err
		})
	if err != nil {
		return nil, err
	}
	return s.cases.load(ctx, workflow.KindFatwa, id)
}

// Delete removes a fatwa and everything it owns. Fatwas are the only case
// kind that can be physically deleted.
func (s *FatwaService) Delete(ctx context.Context, id uuid.UUID, p workflow.Principal) error {
	err := s.cases.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := findCase(tx, workflow.KindFatwa, id)
		if err != nil {
			return err
		}
		if _, err := workflow.Evaluate(p, workflow.Request{Action: workflow.ActionDelete}, c.Subject()); err != nil {
			return err
		}
		for _, owned := range []interface{}{&models.Feedback{}, &models.Meeting{}, &models.CaseAssignee{}, &models.FatwaDetail{}} {
			if err := tx.Where("case_id = ?", c.ID).Delete(owned).Error; err != nil {
				return fmt.Errorf("delete fatwa rows: %w", err)
			}
		}
		if err := tx.Delete(&models.Case{}, "id = ?", c.ID).Error; err != nil {
			return fmt.Errorf("delete fatwa: %w", err)
		}
		return nil
	})
	if err != nil {
		if code := apperr.CodeOf(err); code != apperr.CodeInternal {
			s.cases.metrics.IncrementDenied(string(workflow.KindFatwa), string(workflow.ActionDelete), string(code))
		}
		return err
	}
	slog.Info("case deleted", "case_id", id.String(), "case_kind", string(workflow.KindFatwa), "principal_id", p.ID.String())
	return nil
}

// assigneesFrom collects the ids of an assignment body. unassign is set when
// the body names no shaykh at all or the literal "unassigned".
func assigneesFrom(req dto.AssignRequest) (ids []uuid.UUID, unassign bool, err error) {
	single := strings.TrimSpace(req.ShaykhID)
	if single != "" && !strings.EqualFold(single, "unassigned") {
		id, err := uuid.Parse(single)
		if err != nil {
			return nil, false, apperr.Validation("invalid shaykh id")
		}
		ids = append(ids, id)
	}
	ids = append(ids, req.ShaykhIDs...)
	return ids, len(ids) == 0, nil
}

func defaultString(s, fallback string) string {
	if s = strings.TrimSpace(s); s == "" {
		return fallback
	}
	return s
}
