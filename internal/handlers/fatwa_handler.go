package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/workflow"
)

type FatwaHandler struct {
	caseHandler
	fatwas *services.FatwaService
}

func NewFatwaHandler(cases *services.CaseService, assignments *services.AssignmentService, fatwas *services.FatwaService) *FatwaHandler {
	return &FatwaHandler{
		caseHandler: caseHandler{kind: workflow.KindFatwa, cases: cases, assignments: assignments},
		fatwas:      fatwas,
	}
}

// Public lists approved public fatwas without authentication.
func (h *FatwaHandler) Public(c *fiber.Ctx) error {
	q, err := listQuery(c)
	if err != nil {
		return respondError(c, err)
	}
	items, total, err := h.fatwas.ListPublic(c.UserContext(), q)
	if err != nil {
		return respondError(c, err)
	}
	return listResponse(c, items, total, q)
}

func (h *FatwaHandler) Create(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.CreateFatwaRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	item, err := h.fatwas.Create(c.UserContext(), p, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

func (h *FatwaHandler) Assign(c *fiber.Ctx) error {
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

	item, err := h.fatwas.Assign(c.UserContext(), id, p, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(item)
}

func (h *FatwaHandler) Unassign(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	item, err := h.cases.Unassign(c.UserContext(), workflow.KindFatwa, id, p)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(item)
}

func (h *FatwaHandler) Answer(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req dto.AnswerRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	item, err := h.fatwas.Answer(c.UserContext(), id, p, req.Answer)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(item)
}

func (h *FatwaHandler) Approve(c *fiber.Ctx) error {
	return h.review(c, h.fatwas.Approve)
}

func (h *FatwaHandler) Unapprove(c *fiber.Ctx) error {
	return h.review(c, h.fatwas.Unapprove)
}

type reviewFunc func(ctx context.Context, id uuid.UUID, p workflow.Principal, comment string) (*models.Case, error)

func (h *FatwaHandler) review(c *fiber.Ctx, fn reviewFunc) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req dto.ReviewRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}

	item, err := fn(c.UserContext(), id, p, req.Comment)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(item)
}

func (h *FatwaHandler) Delete(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	if err := h.fatwas.Delete(c.UserContext(), id, p); err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Fatwa deleted"})
}
