package handler

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/fusecpt/ats/internal/middleware"
	"github.com/fusecpt/ats/internal/model"
	"github.com/fusecpt/ats/internal/service"
	"github.com/fusecpt/ats/pkg/apperr"
	"github.com/fusecpt/ats/pkg/response"
)

const maxLogoSize = 2 * 1024 * 1024 // 2MB

var logoTypes = map[string]bool{
	"image/png":     true,
	"image/jpeg":    true,
	"image/svg+xml": true,
	"image/webp":    true,
}

type JobHandler struct {
	service   *service.JobService
	validator *validator.Validate
}

func NewJobHandler(svc *service.JobService, v *validator.Validate) *JobHandler {
	return &JobHandler{
		service:   svc,
		validator: v,
	}
}

// Create handles POST /api/job/create. The body is multipart form data with
// an optional logo file; a JSON body is accepted too.
func (h *JobHandler) Create(c *fiber.Ctx) error {
	var req model.CreateJobRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("Invalid request body")
	}

	var logo *service.Upload
	if form, err := c.MultipartForm(); err == nil {
		regions := append(form.Value["region"], form.Value["region[]"]...)
		req.Region = model.ParseRegions(regions...)

		if files := form.File["logo"]; len(files) > 0 {
			file := files[0]
			if file.Size > maxLogoSize {
				return apperr.ValidationWithDetails("Logo exceeds 2MB limit", map[string]interface{}{
					"maxSize":  maxLogoSize,
					"fileSize": file.Size,
				})
			}
			contentType := file.Header.Get("Content-Type")
			if !logoTypes[contentType] {
				return apperr.ValidationWithDetails("Invalid logo type. Supported: PNG, JPEG, SVG, WEBP", map[string]interface{}{
					"contentType": contentType,
				})
			}
			f, err := file.Open()
			if err != nil {
				return apperr.Server("Failed to open file", err)
			}
			defer f.Close()
			logo = &service.Upload{Filename: file.Filename, ContentType: contentType, Body: f}
		}
	}

	if err := h.validator.Struct(&req); err != nil {
		return apperr.ValidationWithDetails("Validation failed", formatValidationErrors(err))
	}

	job, err := h.service.Create(c.UserContext(), &req, middleware.GetUserID(c), logo)
	if err != nil {
		return err
	}

	return response.Created(c, job)
}

// List handles GET /api/job
func (h *JobHandler) List(c *fiber.Ctx) error {
	var q model.JobListQuery
	if err := parseQuery(c, &q); err != nil {
		return err
	}

	page, err := h.service.List(c.UserContext(), &q)
	if err != nil {
		return err
	}

	return response.OK(c, page)
}

// History handles GET /api/job/history
func (h *JobHandler) History(c *fiber.Ctx) error {
	var q model.JobHistoryQuery
	if err := parseQuery(c, &q); err != nil {
		return err
	}

	page, err := h.service.History(c.UserContext(), &q)
	if err != nil {
		return err
	}

	return response.OK(c, page)
}

// Get handles GET /api/job/:id
func (h *JobHandler) Get(c *fiber.Ctx) error {
	id, err := requireParam(c, "id", "Job ID is required")
	if err != nil {
		return err
	}

	job, err := h.service.GetByID(c.UserContext(), id)
	if err != nil {
		return err
	}

	return response.OK(c, job)
}

// Update handles PATCH /api/job/:id
func (h *JobHandler) Update(c *fiber.Ctx) error {
	id, err := requireParam(c, "id", "Job ID is required")
	if err != nil {
		return err
	}

	var patch model.JobPatch
	if err := parseBody(c, h.validator, &patch); err != nil {
		return err
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return apperr.ValidationWithDetails("Validation failed", map[string]string{"Title": "required"})
	}

	job, err := h.service.Update(c.UserContext(), id, &patch, middleware.GetUserID(c))
	if err != nil {
		return err
	}

	return response.OK(c, job)
}

// Delete handles DELETE /api/job/:id
func (h *JobHandler) Delete(c *fiber.Ctx) error {
	id, err := requireParam(c, "id", "Job ID is required")
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return err
	}

	return response.Message(c, "Job deleted successfully")
}
