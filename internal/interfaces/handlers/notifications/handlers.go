package notifications

import (
	notifsvc "estates-backend/internal/application/notifications"
	"estates-backend/internal/application/policies/access"
	"estates-backend/internal/middleware"
	"estates-backend/internal/pkg/apperr"
	"estates-backend/internal/pkg/request"
	"estates-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Outbox *notifsvc.OutboxSink
}

// GET /api/v1/notifications/recent?limit=n (admin)
func (h *Handlers) Recent(c *fiber.Ctx) error {
	if err := access.Require(middleware.ActorFromContext(c), access.ViewNotifications, access.Collection()); err != nil {
		return response.FromError(c, err)
	}
	limit, _, err := request.Page(c)
	if err != nil {
		return response.FromError(c, err)
	}
	events, err := h.Outbox.Recent(c.UserContext(), int64(limit))
	if err != nil {
		return response.FromError(c, apperr.Unavailable("fetch notifications", err))
	}
	return response.Success(c, "Notifications fetched successfully", events, request.PageMeta(limit, 0, len(events)))
}
