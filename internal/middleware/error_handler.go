package middleware

import (
	"errors"

	"estates-backend/internal/pkg/apperr"
	"estates-backend/internal/pkg/response"

	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// ErrorHandler is the global error handler. Returns the standard error format
// and reports server errors to Sentry when the Sentry middleware is installed.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		if response.StatusFor(ae.Kind) >= fiber.StatusInternalServerError {
			capture(c, err)
		}
		return response.FromError(c, err)
	}

	code := fiber.StatusInternalServerError
	message := "Internal Server Error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}
	if code >= fiber.StatusInternalServerError {
		log.Error().Err(err).Str("trace_id", GetTraceID(c)).Str("path", c.Path()).Msg("unhandled error")
		capture(c, err)
	}
	return response.Error(c, message, code, map[string]interface{}{})
}

func capture(c *fiber.Ctx, err error) {
	if hub := sentryfiber.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
	}
}
