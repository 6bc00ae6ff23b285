package api

import (
	"context"
	"errors"
	"log"

	domain "github.com/example/task-sync/domain/task"
	"github.com/example/task-sync/modules/auth"
	"github.com/gofiber/fiber/v2"
)

// Error codes produced by the API itself.
const (
	CodeBadRequest   = "invalid_input"
	CodeUnauthorized = "unauthorized"
	CodeForbidden    = "forbidden"
	CodeConflict     = "conflict"
	CodeTimeout      = "timeout"
	CodeInternal     = "internal_error"
)

// statusFor maps an error from a port to its HTTP status and wire code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, auth.ErrUserNotFound):
		return fiber.StatusNotFound, domain.CodeUserNotFound
	case errors.Is(err, domain.ErrTaskNotFound):
		return fiber.StatusNotFound, domain.CodeTaskNotFound
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrPasswordTooLong):
		return fiber.StatusBadRequest, CodeBadRequest
	case errors.Is(err, domain.ErrStoreUnavailable):
		return fiber.StatusServiceUnavailable, domain.CodeStoreUnavailable
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken):
		return fiber.StatusUnauthorized, CodeUnauthorized
	case errors.Is(err, auth.ErrUserExists):
		return fiber.StatusConflict, CodeConflict
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fiber.StatusGatewayTimeout, CodeTimeout
	default:
		return fiber.StatusInternalServerError, CodeInternal
	}
}

// writeError sends the envelope for err. Internal errors are logged and
// their details withheld.
func writeError(c *fiber.Ctx, err error) error {
	status, code := statusFor(err)
	message := err.Error()
	if status == fiber.StatusInternalServerError {
		log.Printf("[api] Internal error on %s %s: %v", c.Method(), c.Path(), err)
		message = "an internal error occurred"
	}
	return c.Status(status).JSON(ErrorResponse{
		Error:   code,
		Message: message,
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:   CodeBadRequest,
		Message: message,
	})
}

// customErrorHandler renders errors that escaped a handler.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}
