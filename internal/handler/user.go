package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/fusecpt/ats/internal/middleware"
	"github.com/fusecpt/ats/internal/model"
	"github.com/fusecpt/ats/internal/service"
	"github.com/fusecpt/ats/pkg/response"
)

type UserHandler struct {
	service   *service.UserService
	validator *validator.Validate
}

func NewUserHandler(svc *service.UserService, v *validator.Validate) *UserHandler {
	return &UserHandler{
		service:   svc,
		validator: v,
	}
}

func currentActor(c *fiber.Ctx) service.Actor {
	return service.Actor{ID: middleware.GetUserID(c), Role: middleware.GetRole(c)}
}

// Create handles POST /api/users
func (h *UserHandler) Create(c *fiber.Ctx) error {
	var req model.CreateUserRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}

	user, err := h.service.Create(c.UserContext(), &req, currentActor(c))
	if err != nil {
		return err
	}

	return response.Created(c, user)
}

// List handles GET /api/users
func (h *UserHandler) List(c *fiber.Ctx) error {
	var q model.UserListQuery
	if err := parseQuery(c, &q); err != nil {
		return err
	}

	page, err := h.service.List(c.UserContext(), &q)
	if err != nil {
		return err
	}

	return response.OK(c, page)
}

// Get handles GET /api/users/:id
func (h *UserHandler) Get(c *fiber.Ctx) error {
	id, err := requireParam(c, "id", "User ID is required")
	if err != nil {
		return err
	}

	user, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}

	return response.OK(c, user)
}

// Update handles PATCH /api/users/:id
func (h *UserHandler) Update(c *fiber.Ctx) error {
	id, err := requireParam(c, "id", "User ID is required")
	if err != nil {
		return err
	}

	var req model.UpdateUserRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}

	user, err := h.service.Update(c.UserContext(), id, &req, currentActor(c))
	if err != nil {
		return err
	}

	return response.OK(c, user)
}

// Delete handles DELETE /api/users/:id
func (h *UserHandler) Delete(c *fiber.Ctx) error {
	id, err := requireParam(c, "id", "User ID is required")
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.UserContext(), id, currentActor(c)); err != nil {
		return err
	}

	return response.Message(c, "User deleted successfully")
}
