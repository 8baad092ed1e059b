package middleware

import (
	"slices"

	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/workflow"
)

// RequireRole admits principals holding one of roles. It must run after
// Principal.
func RequireRole(roles ...workflow.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := identity.GetPrincipal(c)
		if err != nil {
			return unauthorized(c, "Unauthorized")
		}
		if !slices.Contains(roles, p.Role) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error: true, Code: "authorization", Message: "Insufficient role for this resource",
			})
		}
		return c.Next()
	}
}

func AdminRequired() fiber.Handler {
	return RequireRole(workflow.RoleAdmin)
}
