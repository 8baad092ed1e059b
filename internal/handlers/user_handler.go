package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/services"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) Profile(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	user, err := h.userService.Profile(c.UserContext(), p.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, err := h.userService.UpdateProfile(c.UserContext(), p.ID, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

func (h *UserHandler) UpdateSettings(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	settings, err := h.userService.UpdateSettings(c.UserContext(), p.ID, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(settings)
}

func (h *UserHandler) ChangePassword(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.userService.ChangePassword(c.UserContext(), p.ID, req); err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Password updated"})
}

// ListShaykhs is public so requesters can pick an officiant.
func (h *UserHandler) ListShaykhs(c *fiber.Ctx) error {
	shaykhs, err := h.userService.ListShaykhs(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.ShaykhSummary, 0, len(shaykhs))
	for i := range shaykhs {
		s := &shaykhs[i]
		out = append(out, dto.ShaykhSummary{
			ID:                     s.ID,
			Name:                   s.FullName(),
			YearsOfExperience:      s.YearsOfExperience,
			EducationalInstitution: s.EducationalInstitution,
			About:                  s.About,
		})
	}
	return c.JSON(out)
}

func (h *UserHandler) RegisterShaykh(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.ShaykhRegistrationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, err := h.userService.RegisterShaykh(c.UserContext(), p, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

func (h *UserHandler) DeleteShaykh(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	if err := h.userService.DeleteShaykh(c.UserContext(), p, id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Shaykh removed"})
}
