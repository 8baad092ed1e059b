package middleware

import (
	"errors"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/workflow"
)

func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return unauthorized(c, "Unauthorized: invalid or expired token")
		},
	})
}

// Principal resolves the token subject to a live account and stores its id
// and role for the handlers. The role is read from the database, not the
// token, so a demoted or deleted account loses access immediately.
func Principal(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := identity.GetUserID(c)
		if err != nil {
			return unauthorized(c, "Unauthorized")
		}

		var user models.User
		err = db.WithContext(c.UserContext()).Select("id", "role").First(&user, "id = ?", userID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return unauthorized(c, "Unauthorized: account no longer exists")
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
				Error: true, Code: "internal", Message: "Internal server error",
			})
		}

		identity.SetPrincipal(c, workflow.Principal{ID: user.ID, Role: workflow.Role(user.Role)})
		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error: true, Code: "unauthenticated", Message: message,
	})
}
