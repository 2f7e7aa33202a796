package response

import (
	"errors"

	"estates-backend/internal/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

// SuccessBody is the standardized success JSON shape.
type SuccessBody struct {
	Status   string      `json:"status"`
	Message  string      `json:"message"`
	Data     interface{} `json:"data"`
	Metadata interface{} `json:"metadata,omitempty"`
}

// ErrorBody is the standardized error JSON shape.
type ErrorBody struct {
	Status string      `json:"status"`
	Error  ErrorDetail `json:"error"`
}

// ErrorDetail is the nested error object.
type ErrorDetail struct {
	Message    string      `json:"message"`
	StatusCode int         `json:"statusCode"`
	Details    interface{} `json:"details,omitempty"`
}

const statusSuccess = "success"
const statusError = "error"

// Success sends a 200 OK response with the standard success format.
func Success(c *fiber.Ctx, message string, data interface{}, metadata interface{}) error {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return c.Status(fiber.StatusOK).JSON(SuccessBody{
		Status:   statusSuccess,
		Message:  message,
		Data:     data,
		Metadata: metadata,
	})
}

// SuccessCreated sends a 201 Created response with the standard success format.
func SuccessCreated(c *fiber.Ctx, message string, data interface{}, metadata interface{}) error {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return c.Status(fiber.StatusCreated).JSON(SuccessBody{
		Status:   statusSuccess,
		Message:  message,
		Data:     data,
		Metadata: metadata,
	})
}

// Error sends a response with the standard error format.
func Error(c *fiber.Ctx, message string, statusCode int, details interface{}) error {
	if details == nil {
		details = map[string]interface{}{}
	}
	return c.Status(statusCode).JSON(ErrorBody{
		Status: statusError,
		Error: ErrorDetail{
			Message:    message,
			StatusCode: statusCode,
			Details:    details,
		},
	})
}

// Unauthorized sends 401 with the same shape as other errors (status "error", error.message).
func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, message, fiber.StatusUnauthorized, nil)
}

var kindStatus = map[apperr.Kind]int{
	apperr.KindValidation:        fiber.StatusBadRequest,
	apperr.KindAuthorization:     fiber.StatusForbidden,
	apperr.KindNotFound:          fiber.StatusNotFound,
	apperr.KindInvalidTransition: fiber.StatusConflict,
	apperr.KindInvalidState:      fiber.StatusConflict,
	apperr.KindAlreadyResponded:  fiber.StatusConflict,
	apperr.KindConflict:          fiber.StatusConflict,
	apperr.KindUnavailable:       fiber.StatusServiceUnavailable,
}

// StatusFor maps a workflow error kind to its HTTP status.
func StatusFor(kind apperr.Kind) int {
	if code, ok := kindStatus[kind]; ok {
		return code
	}
	return fiber.StatusInternalServerError
}

// FromError renders a workflow error with details {kind, field, reason}.
// Errors outside the taxonomy become a generic 500.
func FromError(c *fiber.Ctx, err error) error {
	var e *apperr.Error
	if !errors.As(err, &e) {
		return Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	details := map[string]interface{}{"kind": e.Kind}
	if e.Field != "" {
		details["field"] = e.Field
	}
	if e.Reason != "" {
		details["reason"] = e.Reason
	}
	return Error(c, e.Error(), StatusFor(e.Kind), details)
}
