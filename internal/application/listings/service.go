package listings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
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
	"gorm.io/datatypes"
)

type Service struct {
	Listings store.ListingStore
	Notifier notifications.Dispatcher
	Now      func() time.Time
}

func NewService(listings store.ListingStore, notifier notifications.Dispatcher) *Service {
	if notifier == nil {
		notifier = notifications.Nop{}
	}
	return &Service{Listings: listings, Notifier: notifier, Now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now()
}

// ListingInput carries content fields. Nil means "leave unchanged" on edit.
type ListingInput struct {
	Title        *string   `json:"title"`
	Description  *string   `json:"description"`
	PropertyType *string   `json:"property_type"`
	Category     *string   `json:"category"`
	Price        *float64  `json:"price"`
	Currency     *string   `json:"currency"`
	Bedrooms     *int      `json:"bedrooms"`
	Bathrooms    *int      `json:"bathrooms"`
	AreaSqft     *float64  `json:"area_sqft"`
	Address      *string   `json:"address"`
	Area         *string   `json:"area"`
	City         *string   `json:"city"`
	Images       *[]string `json:"images"`
}

// fields validates the input and returns the column updates it implies.
func (in ListingInput) fields() (map[string]interface{}, error) {
	f := map[string]interface{}{}
	str := func(col string, v *string) {
		if v != nil {
			f[col] = strings.TrimSpace(*v)
		}
	}
	if in.Title != nil {
		if validation.IsBlank(*in.Title) {
			return nil, apperr.Validation("title", "title cannot be empty")
		}
		if len(*in.Title) > 200 {
			return nil, apperr.Validation("title", "title must be at most 200 characters")
		}
	}
	str("title", in.Title)
	str("description", in.Description)
	str("property_type", in.PropertyType)
	str("category", in.Category)
	str("address", in.Address)
	str("area", in.Area)
	str("city", in.City)
	if in.Price != nil {
		if *in.Price < 0 {
			return nil, apperr.Validation("price", "price cannot be negative")
		}
		f["price"] = *in.Price
	}
	if in.Currency != nil {
		c := strings.ToUpper(strings.TrimSpace(*in.Currency))
		if len(c) != 3 {
			return nil, apperr.Validation("currency", "currency must be a 3-letter code")
		}
		f["currency"] = c
	}
	for col, v := range map[string]*int{"bedrooms": in.Bedrooms, "bathrooms": in.Bathrooms} {
		if v == nil {
			continue
		}
		if *v < 0 {
			return nil, apperr.Validation(col, "%s cannot be negative", col)
		}
		f[col] = *v
	}
	if in.AreaSqft != nil {
		if *in.AreaSqft < 0 {
			return nil, apperr.Validation("area_sqft", "area_sqft cannot be negative")
		}
		f["area_sqft"] = *in.AreaSqft
	}
	if in.Images != nil {
		images := make(domain.ImageList, 0, len(*in.Images))
		for _, img := range *in.Images {
			if validation.IsBlank(img) {
				return nil, apperr.Validation("images", "image references cannot be empty")
			}
			images = append(images, strings.TrimSpace(img))
		}
		f["images"] = images
	}
	return f, nil
}

// apply copies validated fields onto a listing.
func apply(l *domain.Listing, f map[string]interface{}) {
	for col, v := range f {
		switch col {
		case "title":
			l.Title = v.(string)
		case "description":
			l.Description = v.(string)
		case "property_type":
			l.PropertyType = v.(string)
		case "category":
			l.Category = v.(string)
		case "address":
			l.Address = v.(string)
		case "area":
			l.Area = v.(string)
		case "city":
			l.City = v.(string)
		case "price":
			l.Price = v.(float64)
		case "currency":
			l.Currency = v.(string)
		case "bedrooms":
			l.Bedrooms = v.(int)
		case "bathrooms":
			l.Bathrooms = v.(int)
		case "area_sqft":
			l.AreaSqft = v.(float64)
		case "images":
			l.Images = v.(domain.ImageList)
		}
	}
}

type CreateListingInput struct {
	ListingInput
	// Submit sends the new listing straight to review.
	Submit bool `json:"submit"`
}

func (s *Service) CreateListing(ctx context.Context, actor *domain.Actor, in CreateListingInput) (*domain.Listing, error) {
	if err := access.Require(actor, access.CreateListing, access.NewEntity()); err != nil {
		return nil, err
	}
	if in.Title == nil {
		return nil, apperr.Validation("title", "title is required")
	}
	f, err := in.fields()
	if err != nil {
		return nil, err
	}
	listing := &domain.Listing{
		OwnerID:      actor.UserID,
		Currency:     "AED",
		Images:       domain.ImageList{},
		ReviewStatus: domain.ReviewDraft,
	}
	apply(listing, f)

	if in.Submit {
		if field := listing.MissingSubmissionField(); field != "" {
			return nil, missingField(field)
		}
		now := s.now()
		listing.ReviewStatus = domain.ReviewPendingReview
		listing.SubmittedAt = &now
	}

	event := &domain.ListingEvent{
		EventType: domain.EventCreated,
		ToStatus:  listing.ReviewStatus,
		ActorID:   &actor.UserID,
		EventData: eventData(map[string]interface{}{"submit": in.Submit}),
	}
	if err := s.Listings.Create(ctx, listing, event); err != nil {
		return nil, apperr.Unavailable("create listing", err)
	}
	log.Info().Str("listing_id", listing.ListingID.String()).Str("status", string(listing.ReviewStatus)).Msg("listing created")

	if in.Submit {
		s.Notifier.Dispatch(ctx, notifications.Event{Type: notifications.ListingSubmitted, ActorID: &actor.UserID, Listing: listing})
	}
	return listing, nil
}

// EditListing changes content. Allowed for the owner while the listing is a draft
// or has been reopened for changes.
func (s *Service) EditListing(ctx context.Context, actor *domain.Actor, id uuid.UUID, in ListingInput) (*domain.Listing, error) {
	l, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.Require(actor, access.EditListing, access.ListingTarget(l)); err != nil {
		return nil, err
	}
	editable := l.ReviewStatus == domain.ReviewDraft || (l.ReviewStatus == domain.ReviewPendingReview && l.Reopened)
	if !editable {
		return nil, apperr.InvalidState("Listing cannot be edited while %s", l.ReviewStatus)
	}
	f, err := in.fields()
	if err != nil {
		return nil, err
	}
	if len(f) == 0 {
		return l, nil
	}

	changed := make([]string, 0, len(f))
	for col := range f {
		changed = append(changed, col)
	}
	sort.Strings(changed)
	event := &domain.ListingEvent{
		EventType:  domain.EventUpdated,
		FromStatus: l.ReviewStatus,
		ToStatus:   l.ReviewStatus,
		ActorID:    &actor.UserID,
		EventData:  eventData(map[string]interface{}{"fields": changed}),
	}
	updated, err := s.Listings.Update(ctx, id, f, store.StateOf(l), event)
	if err != nil {
		return nil, storeErr("update listing", err)
	}
	return updated, nil
}

func (s *Service) SubmitListing(ctx context.Context, actor *domain.Actor, id uuid.UUID) (*domain.Listing, error) {
	return s.transition(ctx, actor, id, Submit, "")
}

func (s *Service) ApproveListing(ctx context.Context, actor *domain.Actor, id uuid.UUID) (*domain.Listing, error) {
	return s.transition(ctx, actor, id, Approve, "")
}

// RejectListing requires non-empty review notes.
func (s *Service) RejectListing(ctx context.Context, actor *domain.Actor, id uuid.UUID, notes string) (*domain.Listing, error) {
	return s.transition(ctx, actor, id, Reject, notes)
}

// ReopenListing moves a rejected listing back to review so its owner can revise it.
func (s *Service) ReopenListing(ctx context.Context, actor *domain.Actor, id uuid.UUID) (*domain.Listing, error) {
	return s.transition(ctx, actor, id, Reopen, "")
}

func (s *Service) PublishListing(ctx context.Context, actor *domain.Actor, id uuid.UUID) (*domain.Listing, error) {
	return s.transition(ctx, actor, id, Publish, "")
}

func (s *Service) UnpublishListing(ctx context.Context, actor *domain.Actor, id uuid.UUID) (*domain.Listing, error) {
	return s.transition(ctx, actor, id, Unpublish, "")
}

func (s *Service) transition(ctx context.Context, actor *domain.Actor, id uuid.UUID, t Transition, notes string) (*domain.Listing, error) {
	l, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.Require(actor, t.action(), access.ListingTarget(l)); err != nil {
		return nil, err
	}
	notes = strings.TrimSpace(notes)
	if t == Reject && notes == "" {
		return nil, apperr.Validation("review_notes", "review_notes is required when rejecting a listing")
	}
	st, err := plan(l, t)
	if err != nil {
		return nil, err
	}
	if st.noop {
		return l, nil
	}

	now := s.now()
	f := map[string]interface{}{"review_status": st.to}
	data := map[string]interface{}{}
	switch t {
	case Submit:
		if field := l.MissingSubmissionField(); field != "" {
			return nil, missingField(field)
		}
		f["submitted_at"] = now
		f["reopened"] = false
		if l.Reopened {
			data["resubmitted"] = true
		}
	case Approve:
		f["reviewed_at"] = now
		f["reviewer_id"] = actor.UserID
		f["reopened"] = false
	case Reject:
		f["reviewed_at"] = now
		f["reviewer_id"] = actor.UserID
		f["review_notes"] = notes
		f["published"] = false
		data["review_notes"] = notes
	case Reopen:
		f["reopened"] = true
	case Publish:
		f["published"] = true
	case Unpublish:
		f["published"] = false
	}

	event := &domain.ListingEvent{
		EventType:  t.eventType(),
		FromStatus: l.ReviewStatus,
		ToStatus:   st.to,
		ActorID:    &actor.UserID,
		EventData:  eventData(data),
	}
	updated, err := s.Listings.Update(ctx, id, f, store.StateOf(l), event)
	if err != nil {
		return nil, storeErr(string(t)+" listing", err)
	}
	if err := updated.CheckInvariants(); err != nil {
		log.Error().Err(err).Str("listing_id", id.String()).Msg("listing state inconsistent after update")
	}
	log.Info().
		Str("listing_id", id.String()).
		Str("transition", string(t)).
		Str("from", string(l.ReviewStatus)).
		Str("to", string(updated.ReviewStatus)).
		Bool("published", updated.Published).
		Msg("listing transition")

	if ev, ok := notificationFor(t); ok {
		s.Notifier.Dispatch(ctx, notifications.Event{Type: ev, ActorID: &actor.UserID, Listing: updated})
	}
	return updated, nil
}

func notificationFor(t Transition) (notifications.EventType, bool) {
	switch t {
	case Submit:
		return notifications.ListingSubmitted, true
	case Approve:
		return notifications.ListingApproved, true
	case Reject:
		return notifications.ListingRejected, true
	}
	return "", false
}

// ArchiveListing soft-deletes a listing. Refused while pending engagements reference it.
func (s *Service) ArchiveListing(ctx context.Context, actor *domain.Actor, id uuid.UUID) error {
	l, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := access.Require(actor, access.ArchiveListing, access.ListingTarget(l)); err != nil {
		return err
	}
	event := &domain.ListingEvent{
		EventType:  domain.EventArchived,
		FromStatus: l.ReviewStatus,
		ToStatus:   l.ReviewStatus,
		ActorID:    &actor.UserID,
	}
	if err := s.Listings.Archive(ctx, id, event); err != nil {
		return storeErr("archive listing", err)
	}
	log.Info().Str("listing_id", id.String()).Msg("listing archived")
	return nil
}

func (s *Service) GetListing(ctx context.Context, actor *domain.Actor, id uuid.UUID) (*domain.Listing, error) {
	l, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.Require(actor, access.ViewListing, access.ListingTarget(l)); err != nil {
		return nil, err
	}
	return l, nil
}

// ListQuery filters the dashboard listing view.
type ListQuery struct {
	Status    domain.ReviewStatus
	Published *bool
	Limit     int
	Offset    int
}

// ListListings returns every listing for admins and the caller's own for agents.
func (s *Service) ListListings(ctx context.Context, actor *domain.Actor, q ListQuery) ([]domain.Listing, error) {
	if err := access.Require(actor, access.ViewListing, access.Collection()); err != nil {
		return nil, err
	}
	if q.Status != "" && !validStatus(q.Status) {
		return nil, apperr.Validation("status", "unknown review status %q", q.Status)
	}
	f := store.ListingFilter{Status: q.Status, Published: q.Published, Limit: q.Limit, Offset: q.Offset}
	if actor.Role != constants.Admin {
		owner := actor.UserID
		f.OwnerID = &owner
	}
	listings, err := s.Listings.List(ctx, f)
	if err != nil {
		return nil, apperr.Unavailable("fetch listings", err)
	}
	return listings, nil
}

// ListPublicListings is the public catalogue: approved and published only.
func (s *Service) ListPublicListings(ctx context.Context, limit, offset int) ([]domain.Listing, error) {
	published := true
	listings, err := s.Listings.List(ctx, store.ListingFilter{
		Status:    domain.ReviewApproved,
		Published: &published,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return nil, apperr.Unavailable("fetch listings", err)
	}
	return listings, nil
}

// GetPublicListing hides anything not currently visible behind not_found.
func (s *Service) GetPublicListing(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	l, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !l.Published || l.ReviewStatus != domain.ReviewApproved {
		return nil, apperr.NotFound("Listing")
	}
	return l, nil
}

func (s *Service) ListListingEvents(ctx context.Context, actor *domain.Actor, id uuid.UUID) ([]domain.ListingEvent, error) {
	l, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.Require(actor, access.ViewListing, access.ListingTarget(l)); err != nil {
		return nil, err
	}
	events, err := s.Listings.Events(ctx, id)
	if err != nil {
		return nil, apperr.Unavailable("fetch listing events", err)
	}
	return events, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	if id == uuid.Nil {
		return nil, apperr.Validation("listing_id", "listing_id is required")
	}
	l, err := s.Listings.Get(ctx, id)
	if err != nil {
		return nil, storeErr("fetch listing", err)
	}
	return l, nil
}

func storeErr(op string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound("Listing")
	case errors.Is(err, store.ErrStatusChanged):
		return apperr.Conflict("Listing changed while the request was in flight; reload and retry")
	case errors.Is(err, store.ErrOpenEngagements):
		return apperr.Conflict("Listing has pending enquiries or applications")
	}
	return apperr.Unavailable(op, err)
}

func missingField(field string) error {
	return apperr.Validation(field, "%s is required before submitting for review", field)
}

func validStatus(s domain.ReviewStatus) bool {
	switch s {
	case domain.ReviewDraft, domain.ReviewPendingReview, domain.ReviewApproved, domain.ReviewRejected:
		return true
	}
	return false
}

func eventData(v map[string]interface{}) datatypes.JSON {
	if len(v) == 0 {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON(fmt.Sprintf(`{"error":%q}`, err.Error()))
	}
	return datatypes.JSON(b)
}
