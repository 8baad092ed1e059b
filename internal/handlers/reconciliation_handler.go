package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/workflow"
)

type ReconciliationHandler struct {
	caseHandler
	reconciliations *services.ReconciliationService
}

func NewReconciliationHandler(cases *services.CaseService, assignments *services.AssignmentService, reconciliations *services.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{
		caseHandler:     caseHandler{kind: workflow.KindReconciliation, cases: cases, assignments: assignments},
		reconciliations: reconciliations,
	}
}

func (h *ReconciliationHandler) Create(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.ReconciliationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	item, err := h.reconciliations.Create(c.UserContext(), p, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

// Assign adds to the current assignees; it never removes anyone.
func (h *ReconciliationHandler) Assign(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	item, err := h.reconciliations.Assign(c.UserContext(), id, p, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(item)
}

func (h *ReconciliationHandler) AddNotes(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req dto.NotesRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	item, err := h.reconciliations.AddNotes(c.UserContext(), id, p, req.Notes)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(item)
}
