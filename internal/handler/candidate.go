package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/fusecpt/ats/internal/middleware"
	"github.com/fusecpt/ats/internal/model"
	"github.com/fusecpt/ats/internal/service"
	"github.com/fusecpt/ats/pkg/response"
)

type CandidateHandler struct {
	service   *service.CandidateService
	validator *validator.Validate
}

func NewCandidateHandler(svc *service.CandidateService, v *validator.Validate) *CandidateHandler {
	return &CandidateHandler{
		service:   svc,
		validator: v,
	}
}

// Create handles POST /api/candidates
func (h *CandidateHandler) Create(c *fiber.Ctx) error {
	var req model.CreateCandidateRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}

	candidate, err := h.service.Add(c.UserContext(), &req, middleware.GetActor(c))
	if err != nil {
		return err
	}

	return response.Created(c, candidate)
}

// List handles GET /api/candidates
func (h *CandidateHandler) List(c *fiber.Ctx) error {
	var q model.CandidateSearchQuery
	if err := parseQuery(c, &q); err != nil {
		return err
	}

	page, err := h.service.List(c.UserContext(), q.Page, q.Limit)
	if err != nil {
		return err
	}

	return response.OK(c, page)
}

// Search handles GET /api/candidates/search
func (h *CandidateHandler) Search(c *fiber.Ctx) error {
	var q model.CandidateSearchQuery
	if err := parseQuery(c, &q); err != nil {
		return err
	}

	page, err := h.service.Search(c.UserContext(), &q)
	if err != nil {
		return err
	}

	return response.OK(c, page)
}

// Get handles GET /api/candidates/:id
func (h *CandidateHandler) Get(c *fiber.Ctx) error {
	id, err := requireParam(c, "id", "Candidate ID is required")
	if err != nil {
		return err
	}

	candidate, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}

	return response.OK(c, candidate)
}

// Timeline handles GET /api/candidates/:id/timeline
func (h *CandidateHandler) Timeline(c *fiber.Ctx) error {
	id, err := requireParam(c, "id", "Candidate ID is required")
	if err != nil {
		return err
	}

	items, err := h.service.Timeline(c.UserContext(), id)
	if err != nil {
		return err
	}

	return response.OK(c, items)
}

// Update handles PATCH /api/candidates/:id
func (h *CandidateHandler) Update(c *fiber.Ctx) error {
	id, err := requireParam(c, "id", "Candidate ID is required")
	if err != nil {
		return err
	}

	var patch model.CandidatePatch
	if err := parseBody(c, h.validator, &patch); err != nil {
		return err
	}

	candidate, err := h.service.Update(c.UserContext(), id, &patch, middleware.GetActor(c))
	if err != nil {
		return err
	}

	return response.OK(c, candidate)
}

// Reject handles PATCH /api/candidates/:id/reject
func (h *CandidateHandler) Reject(c *fiber.Ctx) error {
	id, err := requireParam(c, "id", "Candidate ID is required")
	if err != nil {
		return err
	}

	var req model.RemarksRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}

	candidate, err := h.service.Reject(c.UserContext(), id, req.RejRemarks, middleware.GetActor(c))
	if err != nil {
		return err
	}

	return response.OK(c, candidate)
}

// Reactivate handles PATCH /api/candidates/:id/reactivate
func (h *CandidateHandler) Reactivate(c *fiber.Ctx) error {
	id, err := requireParam(c, "id", "Candidate ID is required")
	if err != nil {
		return err
	}

	var req model.RemarksRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}

	candidate, err := h.service.Reactivate(c.UserContext(), id, req.RejRemarks, middleware.GetActor(c))
	if err != nil {
		return err
	}

	return response.OK(c, candidate)
}

// Delete handles DELETE /api/candidates/:id
func (h *CandidateHandler) Delete(c *fiber.Ctx) error {
	id, err := requireParam(c, "id", "Candidate ID is required")
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return err
	}

	return response.Message(c, "Candidate deleted successfully")
}
