package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/workflow"
)

type ReconciliationService struct {
	cases *CaseService
}

func NewReconciliationService(cases *CaseService) *ReconciliationService {
	return &ReconciliationService{cases: cases}
}

func (s *ReconciliationService) Create(ctx context.Context, p workflow.Principal, req dto.ReconciliationRequest) (*models.Case, error) {
	if p.Role == workflow.RoleShaykh {
		return nil, apperr.Forbidden("shaykhs cannot open reconciliation cases")
	}
	husband, err := spouseFrom("husband", req.Husband)
	if err != nil {
		return nil, err
	}
	wife, err := spouseFrom("wife", req.Wife)
	if err != nil {
		return nil, err
	}
	issue := strings.TrimSpace(req.IssueDescription)
	if issue == "" {
		return nil, apperr.Validation("issue description is required")
	}

	c := models.Case{
		Kind:    string(workflow.KindReconciliation),
		OwnerID: p.ID,
		Status:  string(workflow.StatusPending),
		Reconciliation: &models.ReconciliationDetail{
			Husband:               husband,
			Wife:                  wife,
			IssueDescription:      issue,
			AdditionalInformation: strings.TrimSpace(req.AdditionalInformation),
			Outcome:               string(workflow.StatusInProgress),
		},
	}
	if err := s.cases.db.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, fmt.Errorf("create reconciliation: %w", err)
	}

	s.cases.metrics.IncrementCaseCreated(c.Kind)
	slog.Info("case created", "case_id", c.ID.String(), "case_kind", c.Kind)
	return s.cases.load(ctx, workflow.KindReconciliation, c.ID)
}

// Assign adds shaykhs to the case. Shaykhs already assigned stay assigned.
func (s *ReconciliationService) Assign(ctx context.Context, id uuid.UUID, p workflow.Principal, req dto.AssignRequest) (*models.Case, error) {
	ids, _, err := assigneesFrom(req)
	if err != nil {
		return nil, err
	}
	return s.cases.Assign(ctx, workflow.KindReconciliation, id, p, ids)
}

// AddNotes replaces the shaykh notes. The status is left alone.
func (s *ReconciliationService) AddNotes(ctx context.Context, id uuid.UUID, p workflow.Principal, notes string) (*models.Case, error) {
	req := workflow.Request{Action: workflow.ActionAddNotes, Text: notes}
	_, err := s.cases.execute(ctx, workflow.KindReconciliation, id, p, req,
		func(tx *gorm.DB, c *models.Case, _ workflow.Decision) error {
			err := tx.Model(&models.ReconciliationDetail{}).Where("case_id = ?", c.ID).
				Update("shaykh_notes", strings.TrimSpace(notes)).Error
			if err != nil {
				return fmt.Errorf("save notes: %w", err)
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	return s.cases.load(ctx, workflow.KindReconciliation, id)
}

func spouseFrom(role string, in dto.SpouseInput) (models.Spouse, error) {
	sp := models.Spouse{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Phone:     strings.TrimSpace(in.Phone),
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
	}
	if sp.FirstName == "" || sp.LastName == "" || sp.Phone == "" || sp.Email == "" {
		return sp, apperr.Newf(apperr.CodeValidation, "%s first name, last name, phone and email are required", role)
	}
	if !strings.Contains(sp.Email, "@") {
		return sp, apperr.Newf(apperr.CodeValidation, "%s email is invalid", role)
	}
	return sp, nil
}
