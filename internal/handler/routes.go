package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/fusecpt/ats/internal/access"
	"github.com/fusecpt/ats/internal/middleware"
)

// Handlers groups the HTTP handlers mounted under /api.
type Handlers struct {
	Auth       *AuthHandler
	Candidates *CandidateHandler
	Jobs       *JobHandler
	Users      *UserHandler
	Uploads    *UploadHandler
}

// RouteOptions carries the middleware shared by the API routes.
type RouteOptions struct {
	Auth          *middleware.AuthMiddleware
	Limiter       *middleware.RateLimiter
	LoginPerMin   int
	ForgotPerHour int
}

// RegisterRoutes mounts the /api routes on app.
func RegisterRoutes(app *fiber.App, h *Handlers, opts RouteOptions) {
	authenticate := opts.Auth.Authenticate()
	can := middleware.RequireCapability

	api := app.Group("/api")

	// Auth routes
	authGroup := api.Group("/auth")
	authGroup.Post("/login", opts.Limiter.LoginLimit(opts.LoginPerMin), h.Auth.Login)
	authGroup.Post("/refresh-token", h.Auth.Refresh)
	authGroup.Post("/logout", h.Auth.Logout)
	authGroup.Post("/forgot-password",
		opts.Limiter.Limit("forgot", middleware.ByIP, opts.ForgotPerHour, time.Hour),
		h.Auth.ForgotPassword,
	)
	authGroup.Post("/reset-password", h.Auth.ResetPassword)
	authGroup.Get("/me", authenticate, h.Auth.Me)

	// Candidate routes
	candidates := api.Group("/candidates", authenticate)
	candidates.Post("/", can(access.CandidatesWrite), h.Candidates.Create)
	candidates.Get("/", can(access.CandidatesRead), h.Candidates.List)
	candidates.Get("/search", can(access.CandidatesRead), h.Candidates.Search)
	candidates.Post("/resume", can(access.CandidatesWrite), h.Uploads.Resume)
	candidates.Delete("/resume", can(access.CandidatesWrite), h.Uploads.DeleteResume)
	candidates.Get("/:id", can(access.CandidatesRead), h.Candidates.Get)
	candidates.Get("/:id/timeline", can(access.CandidatesRead), h.Candidates.Timeline)
	candidates.Patch("/:id", can(access.CandidatesWrite), h.Candidates.Update)
	candidates.Patch("/:id/reject", can(access.CandidatesWrite), h.Candidates.Reject)
	candidates.Patch("/:id/reactivate", can(access.CandidatesWrite), h.Candidates.Reactivate)
	candidates.Delete("/:id", can(access.CandidatesDelete), h.Candidates.Delete)

	// Job routes
	jobs := api.Group("/job", authenticate)
	jobs.Post("/create", can(access.JobsWrite), h.Jobs.Create)
	jobs.Get("/", can(access.JobsRead), h.Jobs.List)
	jobs.Get("/history", can(access.HistoryRead), h.Jobs.History)
	jobs.Get("/:id", can(access.JobsRead), h.Jobs.Get)
	jobs.Patch("/:id", can(access.JobsWrite), h.Jobs.Update)
	jobs.Delete("/:id", can(access.JobsDelete), h.Jobs.Delete)

	// User routes
	users := api.Group("/users", authenticate)
	users.Post("/", can(access.UsersManage), h.Users.Create)
	users.Get("/", can(access.UsersRead), h.Users.List)
	users.Get("/:id", can(access.UsersRead), h.Users.Get)
	users.Patch("/:id", can(access.UsersManage), h.Users.Update)
	users.Delete("/:id", can(access.UsersManage), h.Users.Delete)
}
