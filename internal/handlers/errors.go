package handlers

import (
	"errors"
	"log/slog"

	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/workflow"
)

var statusByCode = map[apperr.Code]int{
	apperr.CodeValidation:    fiber.StatusBadRequest,
	apperr.CodeAuthorization: fiber.StatusForbidden,
	apperr.CodeNotFound:      fiber.StatusNotFound,
	apperr.CodeConflict:      fiber.StatusConflict,
	apperr.CodeExternal:      fiber.StatusBadGateway,
}

// respondError writes err as the JSON error envelope. Anything that is not
// a coded client error is logged, reported to Sentry and answered with a
// generic message.
func respondError(c *fiber.Ctx, err error) error {
	if errors.Is(err, services.ErrInvalidCredentials) || errors.Is(err, services.ErrInvalidToken) {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Code: "unauthenticated", Message: err.Error(),
		})
	}

	code := apperr.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		status = fiber.StatusInternalServerError
	}
	if status >= fiber.StatusInternalServerError || code == apperr.CodeExternal {
		slog.Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"request_id", requestID(c),
			"error", err,
		)
		if hub := sentryfiber.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
	}

	return c.Status(status).JSON(dto.ErrorResponse{
		Error:   true,
		Code:    string(code),
		Message: apperr.Message(err),
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: true, Code: string(apperr.CodeValidation), Message: message,
	})
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals("requestid").(string)
	return id
}

// principal returns the caller resolved by the principal middleware. The
// error is a fiber error for the app error handler.
func principal(c *fiber.Ctx) (workflow.Principal, error) {
	p, err := identity.GetPrincipal(c)
	if err != nil {
		return p, fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}
	return p, nil
}

func paramID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid " + name)
	}
	return id, nil
}

func listQuery(c *fiber.Ctx) (dto.ListQuery, error) {
	var q dto.ListQuery
	if err := c.QueryParser(&q); err != nil {
		return q, apperr.Validation("invalid query parameters")
	}
	q.Normalize()
	return q, nil
}

func listResponse[T any](c *fiber.Ctx, items []T, total int64, q dto.ListQuery) error {
	if items == nil {
		items = []T{}
	}
	return c.JSON(dto.ListResponse[T]{Data: items, Total: total, Page: q.Page, Limit: q.Limit})
}
