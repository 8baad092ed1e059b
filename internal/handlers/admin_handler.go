package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/services"
)

type AdminHandler struct {
	assignments *services.AssignmentService
}

func NewAdminHandler(assignments *services.AssignmentService) *AdminHandler {
	return &AdminHandler{assignments: assignments}
}

func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	d, err := h.assignments.Dashboard(c.UserContext(), p)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(d)
}
