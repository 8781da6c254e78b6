package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/fusecpt/ats/pkg/apperr"
	"github.com/fusecpt/ats/pkg/response"
)

// formatValidationErrors converts validation errors to a map
func formatValidationErrors(err error) interface{} {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		fields := make(map[string]string)
		for _, e := range validationErrors {
			fields[e.Field()] = e.Tag()
		}
		return fields
	}
	return nil
}

// parseBody decodes the request body into dst and validates it.
func parseBody(c *fiber.Ctx, v *validator.Validate, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return apperr.Validation("Invalid request body")
	}
	if err := v.Struct(dst); err != nil {
		return apperr.ValidationWithDetails("Validation failed", formatValidationErrors(err))
	}
	return nil
}

func parseQuery(c *fiber.Ctx, dst interface{}) error {
	if err := c.QueryParser(dst); err != nil {
		return apperr.Validation("Invalid query parameters")
	}
	return nil
}

func requireParam(c *fiber.Ctx, name, message string) (string, error) {
	value := c.Params(name)
	if value == "" {
		return "", apperr.Validation(message)
	}
	return value, nil
}

// ErrorHandler writes the error envelope for every error a handler returns.
// Unexpected errors are logged and reported without detail.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *fiber.Ctx, err error) error {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			if appErr.Kind == apperr.KindServer {
				logger.Error("request failed",
					zap.String("method", c.Method()),
					zap.String("path", c.Path()),
					zap.Error(err),
				)
			}
			return response.FromError(c, appErr)
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			kind := apperr.KindServer
			switch fiberErr.Code {
			case fiber.StatusNotFound:
				kind = apperr.KindNotFound
			case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge, fiber.StatusUpgradeRequired:
				kind = apperr.KindValidation
			case fiber.StatusUnauthorized:
				kind = apperr.KindUnauthorized
			case fiber.StatusForbidden:
				kind = apperr.KindForbidden
			}
			return response.Error(c, fiberErr.Code, kind, fiberErr.Message, nil)
		}

		logger.Error("unhandled error",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return response.ServiceError(c, "Internal Server Error")
	}
}
