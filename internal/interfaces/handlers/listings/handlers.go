package listings

import (
	"context"

	listsvc "estates-backend/internal/application/listings"
	"estates-backend/internal/domain"
	"estates-backend/internal/middleware"
	"estates-backend/internal/pkg/apperr"
	"estates-backend/internal/pkg/request"
	"estates-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *listsvc.Service
}

type transitionFunc func(ctx context.Context, actor *domain.Actor, id uuid.UUID) (*domain.Listing, error)

// POST /api/v1/listings
func (h *Handlers) CreateListing(c *fiber.Ctx) error {
	var body listsvc.CreateListingInput
	if err := c.BodyParser(&body); err != nil {
		return response.FromError(c, apperr.Validation("", "Invalid request body"))
	}
	detach(&body.ListingInput)
	listing, err := h.Service.CreateListing(c.UserContext(), middleware.ActorFromContext(c), body)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Listing created successfully", listing, nil)
}

// detach copies the parsed strings off the request buffer; a submitted listing
// is handed to the notification dispatcher.
func detach(in *listsvc.ListingInput) {
	for _, p := range []**string{
		&in.Title, &in.Description, &in.PropertyType, &in.Category,
		&in.Currency, &in.Address, &in.Area, &in.City,
	} {
		if *p != nil {
			v := utils.CopyString(**p)
			*p = &v
		}
	}
	if in.Images != nil {
		images := make([]string, len(*in.Images))
		for i, img := range *in.Images {
			images[i] = utils.CopyString(img)
		}
		in.Images = &images
	}
}

// GET /api/v1/listings (admins see all, agents their own)
func (h *Handlers) ListListings(c *fiber.Ctx) error {
	limit, offset, err := request.Page(c)
	if err != nil {
		return response.FromError(c, err)
	}
	published, err := request.OptionalBoolQuery(c, "published")
	if err != nil {
		return response.FromError(c, err)
	}
	listings, err := h.Service.ListListings(c.UserContext(), middleware.ActorFromContext(c), listsvc.ListQuery{
		Status:    domain.ReviewStatus(c.Query("status")),
		Published: published,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Listings fetched successfully", listings, request.PageMeta(limit, offset, len(listings)))
}

// GET /api/v1/listings/:listing_id
func (h *Handlers) GetListing(c *fiber.Ctx) error {
	id, err := request.UUIDParam(c, "listing_id")
	if err != nil {
		return response.FromError(c, err)
	}
	listing, err := h.Service.GetListing(c.UserContext(), middleware.ActorFromContext(c), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Listing fetched successfully", listing, nil)
}

// PUT /api/v1/listings/:listing_id
func (h *Handlers) EditListing(c *fiber.Ctx) error {
	id, err := request.UUIDParam(c, "listing_id")
	if err != nil {
		return response.FromError(c, err)
	}
	var body listsvc.ListingInput
	if err := c.BodyParser(&body); err != nil {
		return response.FromError(c, apperr.Validation("", "Invalid request body"))
	}
	detach(&body)
	listing, err := h.Service.EditListing(c.UserContext(), middleware.ActorFromContext(c), id, body)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Listing updated successfully", listing, nil)
}

// POST /api/v1/listings/:listing_id/submit
func (h *Handlers) SubmitListing(c *fiber.Ctx) error {
	return h.transition(c, "Listing submitted for review", h.Service.SubmitListing)
}

// POST /api/v1/listings/:listing_id/approve
func (h *Handlers) ApproveListing(c *fiber.Ctx) error {
	return h.transition(c, "Listing approved", h.Service.ApproveListing)
}

// POST /api/v1/listings/:listing_id/reject with {review_notes}
func (h *Handlers) RejectListing(c *fiber.Ctx) error {
	var body struct {
		ReviewNotes string `json:"review_notes"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return response.FromError(c, apperr.Validation("review_notes", "Invalid request body"))
		}
	}
	return h.transition(c, "Listing rejected", func(ctx context.Context, actor *domain.Actor, id uuid.UUID) (*domain.Listing, error) {
		return h.Service.RejectListing(ctx, actor, id, body.ReviewNotes)
	})
}

// POST /api/v1/listings/:listing_id/reopen
func (h *Handlers) ReopenListing(c *fiber.Ctx) error {
	return h.transition(c, "Listing reopened", h.Service.ReopenListing)
}

// POST /api/v1/listings/:listing_id/publish
func (h *Handlers) PublishListing(c *fiber.Ctx) error {
	return h.transition(c, "Listing published", h.Service.PublishListing)
}

// POST /api/v1/listings/:listing_id/unpublish
func (h *Handlers) UnpublishListing(c *fiber.Ctx) error {
	return h.transition(c, "Listing unpublished", h.Service.UnpublishListing)
}

func (h *Handlers) transition(c *fiber.Ctx, message string, fn transitionFunc) error {
	id, err := request.UUIDParam(c, "listing_id")
	if err != nil {
		return response.FromError(c, err)
	}
	listing, err := fn(c.UserContext(), middleware.ActorFromContext(c), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, message, listing, nil)
}

// DELETE /api/v1/listings/:listing_id
func (h *Handlers) ArchiveListing(c *fiber.Ctx) error {
	id, err := request.UUIDParam(c, "listing_id")
	if err != nil {
		return response.FromError(c, err)
	}
	if err := h.Service.ArchiveListing(c.UserContext(), middleware.ActorFromContext(c), id); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Listing archived successfully", fiber.Map{"listing_id": id}, nil)
}

// GET /api/v1/listings/:listing_id/events
func (h *Handlers) ListListingEvents(c *fiber.Ctx) error {
	id, err := request.UUIDParam(c, "listing_id")
	if err != nil {
		return response.FromError(c, err)
	}
	events, err := h.Service.ListListingEvents(c.UserContext(), middleware.ActorFromContext(c), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Listing events fetched successfully", events, nil)
}

// GET /api/v1/listings/public
func (h *Handlers) ListPublicListings(c *fiber.Ctx) error {
	limit, offset, err := request.Page(c)
	if err != nil {
		return response.FromError(c, err)
	}
	listings, err := h.Service.ListPublicListings(c.UserContext(), limit, offset)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Listings fetched successfully", listings, request.PageMeta(limit, offset, len(listings)))
}

// GET /api/v1/listings/public/:listing_id
func (h *Handlers) GetPublicListing(c *fiber.Ctx) error {
	id, err := request.UUIDParam(c, "listing_id")
	if err != nil {
		return response.FromError(c, err)
	}
	listing, err := h.Service.GetPublicListing(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Listing fetched successfully", listing, nil)
}
