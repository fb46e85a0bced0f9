package serverutils

import (
	"errors"

	"coach-membership-be/internal/pkg/apperror"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware renders AppErrors with their stable code and HTTP
// status. Anything else becomes an opaque 500; internals never leak to the
// caller.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return ctx.Status(appErr.HTTPStatus()).JSON(ErrorResponse(string(appErr.Code), appErr.Message))
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse("HTTP_ERROR", fiberErr.Message))
		}

		return ctx.Status(fiber.StatusInternalServerError).
			JSON(ErrorResponse(string(apperror.CodeInternal), "internal server error"))
	}
}
