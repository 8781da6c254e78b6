package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/fusecpt/ats/internal/service"
	"github.com/fusecpt/ats/pkg/apperr"
	"github.com/fusecpt/ats/pkg/response"
)

const maxResumeSize = 10 * 1024 * 1024 // 10MB

var resumeTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

type UploadHandler struct {
	service   *service.UploadService
	validator *validator.Validate
}

func NewUploadHandler(svc *service.UploadService, v *validator.Validate) *UploadHandler {
	return &UploadHandler{
		service:   svc,
		validator: v,
	}
}

// Resume handles POST /api/candidates/resume
func (h *UploadHandler) Resume(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return apperr.Validation("File is required")
	}

	if file.Size > maxResumeSize {
		return apperr.ValidationWithDetails("File size exceeds 10MB limit", map[string]interface{}{
			"maxSize":  maxResumeSize,
			"fileSize": file.Size,
		})
	}

	contentType := file.Header.Get("Content-Type")
	if !resumeTypes[contentType] {
		return apperr.ValidationWithDetails("Invalid file type. Supported: PDF, DOC, DOCX", map[string]interface{}{
			"contentType": contentType,
		})
	}

	f, err := file.Open()
	if err != nil {
		return apperr.Server("Failed to open file", err)
	}
	defer f.Close()

	result, err := h.service.UploadResume(c.UserContext(), &service.Upload{
		Filename:    file.Filename,
		ContentType: contentType,
		Body:        f,
	}, file.Size)
	if err != nil {
		return err
	}

	return response.Created(c, result)
}

// DeleteResume handles DELETE /api/candidates/resume?key=
func (h *UploadHandler) DeleteResume(c *fiber.Ctx) error {
	key := c.Query("key")
	if key == "" {
		return apperr.Validation("key is required")
	}

	if err := h.service.DeleteResume(c.UserContext(), key); err != nil {
		return err
	}

	return response.Message(c, "Resume deleted successfully")
}
