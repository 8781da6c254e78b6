package response

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fusecpt/ats/pkg/apperr"
)

// Envelope is the body of every successful response.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

// ErrorResponse is the body of every failed response.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func Error(c *fiber.Ctx, status int, code apperr.Kind, message string, details interface{}) error {
	return c.Status(status).JSON(ErrorResponse{
		Success: false,
		Code:    string(code),
		Message: message,
		Details: details,
	})
}

func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusUnauthorized, apperr.KindUnauthorized, message, nil)
}

func Forbidden(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusForbidden, apperr.KindForbidden, message, nil)
}

func RateLimited(c *fiber.Ctx) error {
	return Error(c, fiber.StatusTooManyRequests, "RATE_LIMITED", "Rate limit exceeded", nil)
}

func ServiceError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, apperr.KindServer, message, nil)
}

// StatusFor maps an application error kind to its HTTP status. Conflicts are
// reported as 400 to stay compatible with existing clients.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindConflict:
		return fiber.StatusBadRequest
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	case apperr.KindUnauthorized:
		return fiber.StatusUnauthorized
	case apperr.KindForbidden:
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

// FromError writes the envelope for an application error. Server errors never
// expose the wrapped cause.
func FromError(c *fiber.Ctx, err *apperr.Error) error {
	message := err.Message
	if err.Kind == apperr.KindServer && message == "" {
		message = "Internal Server Error"
	}
	return Error(c, StatusFor(err.Kind), err.Kind, message, err.Details)
}

func OK(c *fiber.Ctx, data interface{}) error {
	return c.JSON(Envelope{Success: true, Data: data})
}

func Created(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(Envelope{Success: true, Data: data})
}

// Message responds 200 with a human readable message and no data.
func Message(c *fiber.Ctx, message string) error {
	return c.JSON(fiber.Map{"success": true, "message": message})
}
