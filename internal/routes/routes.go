package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/workflow"
)

type Handlers struct {
	Auth           *handlers.AuthHandler
	Users          *handlers.UserHandler
	Health         *handlers.HealthHandler
	Fatwas         *handlers.FatwaHandler
	Marriages      *handlers.MarriageHandler
	Reconciliation *handlers.ReconciliationHandler
	Registration   *handlers.RegistrationHandler
	Admin          *handlers.AdminHandler
}

func Setup(app *fiber.App, cfg *config.Config, db *gorm.DB, m *metrics.Metrics, h Handlers) {
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", h.Health.Check)

	authed := []fiber.Handler{middleware.JWTProtected(cfg), middleware.Principal(db)}
	staff := middleware.RequireRole(workflow.RoleAdmin, workflow.RoleShaykh)
	shaykh := middleware.RequireRole(workflow.RoleShaykh)
	admin := middleware.AdminRequired()

	// Auth-specific rate limit: 10 req/min per IP (stricter)
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", h.Auth.Register)
	auth.Post("/register-admin", h.Auth.RegisterAdmin)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/refresh", h.Auth.Refresh)
	auth.Post("/forgot-password", h.Auth.ForgotPassword)
	auth.Put("/reset-password/:token", h.Auth.ResetPassword)
	auth.Post("/logout", append(authed, h.Auth.Logout)...)
	auth.Get("/profile", append(authed, h.Users.Profile)...)

	users := api.Group("/users", authed...)
	users.Get("/profile", h.Users.Profile)
	users.Put("/profile", h.Users.UpdateProfile)
	users.Put("/settings", h.Users.UpdateSettings)
	users.Put("/password", h.Users.ChangePassword)
	users.Delete("/account", h.Auth.DeleteAccount)

	api.Get("/shaykhs", h.Users.ListShaykhs)
	api.Get("/registration/:token", h.Registration.Verify)
	api.Post("/registration/:token", h.Registration.Register)

	// Public fatwas must be registered before the authenticated group.
	api.Get("/fatwas/public", h.Fatwas.Public)
	fatwas := api.Group("/fatwas", authed...)
	fatwas.Get("/", h.Fatwas.List)
	fatwas.Get("/mine", h.Fatwas.Mine)
	fatwas.Get("/assigned", shaykh, h.Fatwas.Assigned)
	fatwas.Get("/:id", h.Fatwas.Get)
	fatwas.Post("/", h.Fatwas.Create)
	fatwas.Put("/:id/assign", admin, h.Fatwas.Assign)
	fatwas.Put("/:id/unassign", admin, h.Fatwas.Unassign)
	fatwas.Put("/:id/answer", staff, h.Fatwas.Answer)
	fatwas.Put("/:id/approve", admin, h.Fatwas.Approve)
	fatwas.Put("/:id/unapprove", admin, h.Fatwas.Unapprove)
	fatwas.Put("/:id/cancel", h.Fatwas.Cancel)
	fatwas.Post("/:id/feedback", h.Fatwas.AddFeedback)
	fatwas.Delete("/:id", admin, h.Fatwas.Delete)

	marriages := api.Group("/marriages", authed...)
	marriages.Get("/", staff, h.Marriages.List)
	marriages.Get("/mine", h.Marriages.Mine)
	marriages.Get("/assignments", shaykh, h.Marriages.Assigned)
	marriages.Get("/:id", h.Marriages.Get)
	marriages.Post("/reservation", h.Marriages.CreateReservation)
	marriages.Post("/certificate", h.Marriages.CreateCertificate)
	marriages.Put("/:id/assign", admin, h.Marriages.Assign)
	marriages.Post("/:id/meetings", staff, h.Marriages.ScheduleMeeting)
	marriages.Put("/:id/meetings/:meetingId", staff, h.Marriages.UpdateMeeting)
	marriages.Put("/:id/complete", staff, h.Marriages.Complete)
	marriages.Post("/:id/feedback", h.Marriages.AddFeedback)
	marriages.Put("/:id/cancel", h.Marriages.Cancel)
	marriages.Post("/:id/certificate/generate", staff, h.Marriages.GenerateCertificate)
	marriages.Put("/:id/certificate/upload", staff, h.Marriages.UploadCertificate)
	marriages.Get("/:id/certificate/url", h.Marriages.CertificateURL)
	marriages.Get("/:id/certificate/download", h.Marriages.DownloadCertificate)

	reconciliations := api.Group("/reconciliations", authed...)
	reconciliations.Get("/", staff, h.Reconciliation.List)
	reconciliations.Get("/mine", h.Reconciliation.Mine)
	reconciliations.Get("/assignments", shaykh, h.Reconciliation.Assigned)
	reconciliations.Get("/:id", h.Reconciliation.Get)
	reconciliations.Post("/", h.Reconciliation.Create)
	reconciliations.Put("/:id/assign", admin, h.Reconciliation.Assign)
	reconciliations.Post("/:id/meetings", staff, h.Reconciliation.ScheduleMeeting)
	reconciliations.Put("/:id/meetings/:meetingId", staff, h.Reconciliation.UpdateMeeting)
	reconciliations.Put("/:id/notes", staff, h.Reconciliation.AddNotes)
	reconciliations.Put("/:id/complete", staff, h.Reconciliation.Complete)
	reconciliations.Post("/:id/feedback", h.Reconciliation.AddFeedback)
	reconciliations.Put("/:id/cancel", h.Reconciliation.Cancel)

	adminGroup := api.Group("/admin", append(authed, admin)...)
	adminGroup.Get("/dashboard", h.Admin.Dashboard)
	adminGroup.Post("/shaykhs", h.Users.RegisterShaykh)
	adminGroup.Delete("/shaykhs/:id", h.Users.DeleteShaykh)
	adminGroup.Post("/shaykhs/registration-tokens", h.Registration.Issue)
	adminGroup.Get("/shaykhs/registration-tokens", h.Registration.List)
	adminGroup.Delete("/shaykhs/registration-tokens/:id", h.Registration.Revoke)
}
