package engagements

import (
	"context"
	"errors"
	"strings"
	"time"

	"estates-backend/internal/application/notifications"
	"estates-backend/internal/application/policies/access"
	"estates-backend/internal/domain"
	"estates-backend/internal/infrastructure/store"
	"estates-backend/internal/pkg/apperr"
	"estates-backend/internal/pkg/constants"
	"estates-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Decisions an agent or admin can record.
const (
	DecisionAccept  = "accept"
	DecisionReject  = "reject"
	DecisionRespond = "respond"
)

const maxMessageLen = 5000

type Service struct {
	Engagements store.EngagementStore
	Listings    store.ListingStore
	Notifier    notifications.Dispatcher
	Now         func() time.Time
}

func NewService(engagements store.EngagementStore, listings store.ListingStore, notifier notifications.Dispatcher) *Service {
	if notifier == nil {
		notifier = notifications.Nop{}
	}
	return &Service{
		Engagements: engagements,
		Listings:    listings,
		Notifier:    notifier,
		Now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now()
}

type CreateInput struct {
	Kind      domain.EngagementKind `json:"kind" form:"kind"`
	ListingID *uuid.UUID            `json:"listing_id" form:"listing_id"`
	Name      string                `json:"name" form:"name"`
	Email     string                `json:"email" form:"email"`
	Phone     string                `json:"phone" form:"phone"`
	Message   string                `json:"message" form:"message"`
	Category  string                `json:"category" form:"category"`
}

// Create records an enquiry or application. actor may be nil for anonymous visitors.
func (s *Service) Create(ctx context.Context, actor *domain.Actor, in CreateInput) (*domain.Engagement, error) {
	if actor != nil {
		if err := access.Require(actor, access.CreateEngagement, access.NewEntity()); err != nil {
			return nil, err
		}
	}
	kind := in.Kind
	if kind == "" {
		kind = domain.KindEnquiry
	}
	if kind != domain.KindEnquiry && kind != domain.KindApplication {
		return nil, apperr.Validation("kind", "kind must be enquiry or application")
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if !validation.IsValidEmail(email) {
		return nil, apperr.Validation("email", "A valid email is required")
	}
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return nil, apperr.Validation("message", "message is required")
	}
	if len(message) > maxMessageLen {
		return nil, apperr.Validation("message", "message must be at most %d characters", maxMessageLen)
	}
	// Phone is optional free text.
	phone := strings.TrimSpace(in.Phone)
	if kind == domain.KindApplication && in.ListingID == nil {
		return nil, apperr.Validation("listing_id", "an application must reference a listing")
	}

	var listing *domain.Listing
	if in.ListingID != nil {
		l, err := s.Listings.Get(ctx, *in.ListingID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, apperr.NotFound("Listing")
			}
			return nil, apperr.Unavailable("fetch listing", err)
		}
		if !l.Published || l.ReviewStatus != domain.ReviewApproved {
			return nil, apperr.NotFound("Listing")
		}
		listing = l
	}

	e := &domain.Engagement{
		Kind:      kind,
		ListingID: in.ListingID,
		Name:      strings.TrimSpace(in.Name),
		Email:     email,
		Phone:     phone,
		Message:   message,
		Category:  strings.TrimSpace(in.Category),
		Status:    domain.EngagementPending,
	}
	if actor != nil {
		submitter := actor.UserID
		e.SubmitterID = &submitter
	}
	if err := s.Engagements.Create(ctx, e); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Listing")
		}
		return nil, apperr.Unavailable("create engagement", err)
	}
	log.Info().Str("engagement_id", e.EngagementID.String()).Str("kind", string(kind)).Msg("engagement created")

	s.Notifier.Dispatch(ctx, notifications.Event{
		Type:       notifications.EngagementCreated,
		ActorID:    e.SubmitterID,
		Listing:    listing,
		Engagement: e,
	})
	return e, nil
}

type RespondInput struct {
	Decision        string `json:"decision"`
	ResponseMessage string `json:"response_message"`
}

// Respond records the single terminal decision on a pending engagement.
func (s *Service) Respond(ctx context.Context, actor *domain.Actor, id uuid.UUID, in RespondInput) (*domain.Engagement, error) {
	e, listing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.Require(actor, access.RespondEngagement, access.EngagementTarget(e, listing)); err != nil {
		return nil, err
	}
	status, err := statusFor(e.Kind, strings.ToLower(strings.TrimSpace(in.Decision)))
	if err != nil {
		return nil, err
	}
	if e.Status != domain.EngagementPending {
		return nil, apperr.AlreadyResponded()
	}

	fields := map[string]interface{}{
		"status":       status,
		"responder_id": actor.UserID,
		"responded_at": s.now(),
	}
	if msg := strings.TrimSpace(in.ResponseMessage); msg != "" {
		fields["response_message"] = msg
	}
	updated, err := s.Engagements.Update(ctx, id, fields, domain.EngagementPending)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrStatusChanged):
			return nil, apperr.AlreadyResponded()
		case errors.Is(err, store.ErrNotFound):
			return nil, apperr.NotFound("Engagement")
		}
		return nil, apperr.Unavailable("update engagement", err)
	}
	log.Info().
		Str("engagement_id", id.String()).
		Str("status", string(updated.Status)).
		Str("responder_id", actor.UserID.String()).
		Msg("engagement responded")

	s.Notifier.Dispatch(ctx, notifications.Event{
		Type:       notifications.EngagementResponded,
		ActorID:    &actor.UserID,
		Listing:    listing,
		Engagement: updated,
	})
	return updated, nil
}

// statusFor maps a decision to the terminal status for the engagement kind.
func statusFor(kind domain.EngagementKind, decision string) (domain.EngagementStatus, error) {
	switch {
	case kind == domain.KindApplication && decision == DecisionAccept:
		return domain.EngagementAccepted, nil
	case kind == domain.KindApplication && decision == DecisionReject:
		return domain.EngagementRejected, nil
	case kind == domain.KindEnquiry && decision == DecisionRespond:
		return domain.EngagementResponded, nil
	case kind == domain.KindApplication:
		return "", apperr.Validation("decision", "decision must be accept or reject for an application")
	default:
		return "", apperr.Validation("decision", "decision must be respond for an enquiry")
	}
}

type ListQuery struct {
	ListingID *uuid.UUID
	Status    domain.EngagementStatus
	Kind      domain.EngagementKind
	Limit     int
	Offset    int
}

// List returns engagements newest first: all of them for admins, those on the
// agent's own listings, or the customer's own submissions.
func (s *Service) List(ctx context.Context, actor *domain.Actor, q ListQuery) ([]domain.Engagement, error) {
	if err := access.Require(actor, access.ViewEngagements, access.Collection()); err != nil {
		return nil, err
	}
	switch q.Status {
	case "", domain.EngagementPending, domain.EngagementAccepted, domain.EngagementRejected, domain.EngagementResponded:
	default:
		return nil, apperr.Validation("status", "unknown engagement status %q", q.Status)
	}
	if q.Kind != "" && q.Kind != domain.KindEnquiry && q.Kind != domain.KindApplication {
		return nil, apperr.Validation("kind", "kind must be enquiry or application")
	}

	f := store.EngagementFilter{ListingID: q.ListingID, Status: q.Status, Kind: q.Kind, Limit: q.Limit, Offset: q.Offset}
	self := actor.UserID
	switch actor.Role {
	case constants.Agent:
		f.OwnerID = &self
	case constants.Customer:
		f.SubmitterID = &self
	}
	out, err := s.Engagements.List(ctx, f)
	if err != nil {
		return nil, apperr.Unavailable("fetch engagements", err)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, actor *domain.Actor, id uuid.UUID) (*domain.Engagement, error) {
	e, listing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.Require(actor, access.ViewEngagements, access.EngagementTarget(e, listing)); err != nil {
		return nil, err
	}
	return e, nil
}

// load fetches the engagement and, when it references one, its listing. An
// archived listing loads as nil, leaving the engagement to admins.
func (s *Service) load(ctx context.Context, id uuid.UUID) (*domain.Engagement, *domain.Listing, error) {
	if id == uuid.Nil {
		return nil, nil, apperr.Validation("engagement_id", "engagement_id is required")
	}
	e, err := s.Engagements.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, apperr.NotFound("Engagement")
		}
		return nil, nil, apperr.Unavailable("fetch engagement", err)
	}
	if e.ListingID == nil {
		return e, nil, nil
	}
	l, err := s.Listings.Get(ctx, *e.ListingID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return e, nil, nil
		}
		return nil, nil, apperr.Unavailable("fetch listing", err)
	}
	return e, l, nil
}
