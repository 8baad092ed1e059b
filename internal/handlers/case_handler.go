package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/workflow"
)

// caseHandler serves the endpoints every case kind shares. The per-kind
// handlers embed it.
type caseHandler struct {
	kind        workflow.Kind
	cases       *services.CaseService
	assignments *services.AssignmentService
}

func (h *caseHandler) List(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	q, err := listQuery(c)
	if err != nil {
		return respondError(c, err)
	}
	items, total, err := h.cases.List(c.UserContext(), h.kind, p, q)
	if err != nil {
		return respondError(c, err)
	}
	return listResponse(c, items, total, q)
}

func (h *caseHandler) Mine(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	q, err := listQuery(c)
	if err != nil {
		return respondError(c, err)
	}
	items, total, err := h.cases.Mine(c.UserContext(), h.kind, p, q)
	if err != nil {
		return respondError(c, err)
	}
	return listResponse(c, items, total, q)
}

func (h *caseHandler) Assigned(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	q, err := listQuery(c)
	if err != nil {
		return respondError(c, err)
	}
	items, total, err := h.assignments.Assigned(c.UserContext(), h.kind, p, q)
	if err != nil {
		return respondError(c, err)
	}
	return listResponse(c, items, total, q)
}

func (h *caseHandler) Get(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	item, err := h.cases.Get(c.UserContext(), h.kind, id, p)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(item)
}

func (h *caseHandler) ScheduleMeeting(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req dto.MeetingRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	meeting, err := h.cases.ScheduleMeeting(c.UserContext(), h.kind, id, p, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(meeting)
}

func (h *caseHandler) UpdateMeeting(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	meetingID, err := paramID(c, "meetingId")
	if err != nil {
		return respondError(c, err)
	}
	var patch dto.MeetingPatch
	if err := c.BodyParser(&patch); err != nil {
		return badRequest(c, "Invalid request body")
	}

	meeting, err := h.cases.UpdateMeeting(c.UserContext(), h.kind, id, meetingID, p, patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(meeting)
}

func (h *caseHandler) AddFeedback(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req dto.FeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	fb, err := h.cases.AddFeedback(c.UserContext(), h.kind, id, p, req.Comment)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fb)
}

func (h *caseHandler) Complete(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req dto.CompleteRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	item, err := h.cases.Complete(c.UserContext(), h.kind, id, p, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(item)
}

// Cancel accepts an empty body.
func (h *caseHandler) Cancel(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req dto.CancelRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}

	item, err := h.cases.Cancel(c.UserContext(), h.kind, id, p, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(item)
}
