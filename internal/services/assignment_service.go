package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/workflow"
)

// AssignmentService answers "what is on my plate" for shaykhs and builds the
// admin dashboard.
type AssignmentService struct {
	cases *CaseService
}

func NewAssignmentService(cases *CaseService) *AssignmentService {
	return &AssignmentService{cases: cases}
}

// Assigned lists the cases of kind assigned to a shaykh that are still
// actionable or recently concluded.
func (s *AssignmentService) Assigned(ctx context.Context, kind workflow.Kind, p workflow.Principal, q dto.ListQuery) ([]models.Case, int64, error) {
	if p.Role != workflow.RoleShaykh {
		return nil, 0, apperr.Forbidden("only shaykhs have assignments")
	}
	return s.cases.list(ctx, kind, q,
		identity.AssignedTo(p),
		identity.WithStatus(workflow.AssigneeVisible(kind)...),
	)
}

// Dashboard loads a snapshot in parallel and derives the admin dashboard.
func (s *AssignmentService) Dashboard(ctx context.Context, p workflow.Principal) (*dto.Dashboard, error) {
	if !p.IsAdmin() {
		return nil, apperr.Forbidden("only admins can view the dashboard")
	}
	start := time.Now()
	defer s.cases.metrics.ObserveDashboard(start)

	now := s.cases.now()
	since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var snap DashboardSnapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := s.cases.db.WithContext(gctx).
			Preload("Assignees").
			Preload("Marriage").
			Find(&snap.Cases).Error
		if err != nil {
			return fmt.Errorf("load cases: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		err := s.cases.db.WithContext(gctx).
			Where("status = ? AND date >= ?", models.MeetingScheduled, since).
			Order("date ASC").
			Find(&snap.Meetings).Error
		if err != nil {
			return fmt.Errorf("load meetings: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		err := s.cases.db.WithContext(gctx).
			Where("role = ?", models.RoleShaykh).
			Find(&snap.Shaykhs).Error
		if err != nil {
			return fmt.Errorf("load shaykhs: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d := BuildDashboard(snap, now)
	return &d, nil
}
