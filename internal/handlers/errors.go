package handlers

import (
	"fmt"
	"log"

	"nikki/internal/common"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var statusByKind = map[string]int{
	"validation":            fiber.StatusBadRequest,
	"duplicate_user":        fiber.StatusConflict,
	"invalid_credentials":   fiber.StatusUnauthorized,
	"invalid_token":         fiber.StatusUnauthorized,
	"quota_exceeded":        fiber.StatusTooManyRequests,
	"not_found":             fiber.StatusNotFound,
	"classification_failed": fiber.StatusBadGateway,
	"persist_failed":        fiber.StatusInternalServerError,
}

// errorResponse writes err as JSON with the status its kind maps to.
func errorResponse(c *fiber.Ctx, message string, err error) error {
	kind := common.Kind(err)
	status, ok := statusByKind[kind]
	if !ok {
		status = fiber.StatusInternalServerError
	}
	if status >= fiber.StatusInternalServerError {
		log.Printf("%s %s failed: %v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"error":   err.Error(),
		"kind":    kind,
	})
}

// validationResponse reports the fields of req that failed validation.
func validationResponse(c *fiber.Ctx, err error) error {
	errorMessages := make(map[string]string)
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  errorMessages,
		"kind":    "validation",
	})
}

func badBody(c *fiber.Ctx, err error) error {
	log.Printf("Error parsing request body: %v", err)
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request body",
		"error":   err.Error(),
		"kind":    "validation",
	})
}
