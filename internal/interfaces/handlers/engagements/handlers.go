package engagements

import (
	engsvc "estates-backend/internal/application/engagements"
	"estates-backend/internal/domain"
	"estates-backend/internal/middleware"
	"estates-backend/internal/pkg/apperr"
	"estates-backend/internal/pkg/request"
	"estates-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

type Handlers struct {
	Service *engsvc.Service
}

// POST /api/v1/engagements (anonymous visitors allowed)
func (h *Handlers) CreateEngagement(c *fiber.Ctx) error {
	var body engsvc.CreateInput
	if err := c.BodyParser(&body); err != nil {
		return response.FromError(c, apperr.Validation("", "Invalid request body"))
	}
	detach(&body)
	e, err := h.Service.Create(c.UserContext(), middleware.ActorFromContext(c), body)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Engagement submitted successfully", e, nil)
}

// detach copies the parsed strings off the request buffer. The engagement is
// handed to the notification dispatcher and outlives the request.
func detach(in *engsvc.CreateInput) {
	in.Kind = domain.EngagementKind(utils.CopyString(string(in.Kind)))
	in.Name = utils.CopyString(in.Name)
	in.Email = utils.CopyString(in.Email)
	in.Phone = utils.CopyString(in.Phone)
	in.Message = utils.CopyString(in.Message)
	in.Category = utils.CopyString(in.Category)
}

// GET /api/v1/engagements
func (h *Handlers) ListEngagements(c *fiber.Ctx) error {
	limit, offset, err := request.Page(c)
	if err != nil {
		return response.FromError(c, err)
	}
	listingID, err := request.OptionalUUIDQuery(c, "listing_id")
	if err != nil {
		return response.FromError(c, err)
	}
	items, err := h.Service.List(c.UserContext(), middleware.ActorFromContext(c), engsvc.ListQuery{
		ListingID: listingID,
		Status:    domain.EngagementStatus(c.Query("status")),
		Kind:      domain.EngagementKind(c.Query("kind")),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Engagements fetched successfully", items, request.PageMeta(limit, offset, len(items)))
}

// GET /api/v1/engagements/:engagement_id
func (h *Handlers) GetEngagement(c *fiber.Ctx) error {
	id, err := request.UUIDParam(c, "engagement_id")
	if err != nil {
		return response.FromError(c, err)
	}
	e, err := h.Service.Get(c.UserContext(), middleware.ActorFromContext(c), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Engagement fetched successfully", e, nil)
}

// POST /api/v1/engagements/:engagement_id/respond with {decision, response_message}
func (h *Handlers) RespondEngagement(c *fiber.Ctx) error {
	id, err := request.UUIDParam(c, "engagement_id")
	if err != nil {
		return response.FromError(c, err)
	}
	var body engsvc.RespondInput
	if err := c.BodyParser(&body); err != nil {
		return response.FromError(c, apperr.Validation("decision", "Invalid request body"))
	}
	e, err := h.Service.Respond(c.UserContext(), middleware.ActorFromContext(c), id, body)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Engagement responded successfully", e, nil)
}
