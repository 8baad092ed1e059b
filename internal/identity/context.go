// Package identity turns the verified JWT on a request into the principal
// the workflow rules reason about.
package identity

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/workflow"
)

const principalKey = "principal"

var ErrNoPrincipal = errors.New("no authenticated principal")

// GetUserID extracts the user UUID from JWT claims in context.
func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return uuid.Nil, errors.New("invalid token in context")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, errors.New("invalid claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, errors.New("missing sub claim")
	}

	return uuid.Parse(sub)
}

// SetPrincipal stores the resolved principal for later handlers.
func SetPrincipal(c *fiber.Ctx, p workflow.Principal) {
	c.Locals(principalKey, p)
}

// GetPrincipal returns the principal resolved by the principal middleware.
func GetPrincipal(c *fiber.Ctx) (workflow.Principal, error) {
	p, ok := c.Locals(principalKey).(workflow.Principal)
	if !ok || p.ID == uuid.Nil {
		return workflow.Principal{}, ErrNoPrincipal
	}
	return p, nil
}
