package listings

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"estates-backend/internal/application/notifications"
	"estates-backend/internal/application/policies/access"
	"estates-backend/internal/domain"
	"estates-backend/internal/infrastructure/store"
	"estates-backend/internal/pkg/apperr"
	"estates-backend/internal/pkg/constants"
	"estates-backend/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (r *recorder) Dispatch(ctx context.Context, ev notifications.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) types() []notifications.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notifications.EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

var (
	agent      = &domain.Actor{UserID: uuid.New(), Role: constants.Agent}
	otherAgent = &domain.Actor{UserID: uuid.New(), Role: constants.Agent}
	admin      = &domain.Actor{UserID: uuid.New(), Role: constants.Admin}
	customer   = &domain.Actor{UserID: uuid.New(), Role: constants.Customer}
)

func newService(t *testing.T) (*Service, *recorder, *store.GormListingStore) {
	t.Helper()
	st := &store.GormListingStore{DB: testutil.NewDB(t)}
	rec := &recorder{}
	svc := NewService(st, rec)
	return svc, rec, st
}

func strp(s string) *string { return &s }
func floatp(f float64) *float64 { return &f }
func imagesp(s ...string) *[]string { return &s }

func villaA() ListingInput {
	return ListingInput{
		Title:   strp("Villa A"),
		Price:   floatp(5000000),
		Images:  imagesp("a.jpg"),
		Address: strp("Palm Jumeirah"),
	}
}

func createDraft(t *testing.T, svc *Service) *domain.Listing {
	t.Helper()
	l, err := svc.CreateListing(context.Background(), agent, CreateListingInput{ListingInput: villaA()})
	require.NoError(t, err)
	return l
}

func requireInvariant(t *testing.T, l *domain.Listing) {
	t.Helper()
	require.NoError(t, l.CheckInvariants())
	if l.ReviewStatus == domain.ReviewRejected {
		require.False(t, l.Published)
	}
}

func TestScenario_RejectReopenResubmitApprovePublish(t *testing.T) {
	svc, rec, st := newService(t)
	ctx := context.Background()

	l, err := svc.CreateListing(ctx, agent, CreateListingInput{ListingInput: villaA(), Submit: true})
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewPendingReview, l.ReviewStatus)
	require.NotNil(t, l.SubmittedAt)
	requireInvariant(t, l)

	l, err = svc.RejectListing(ctx, admin, l.ListingID, "Missing floor plan")
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewRejected, l.ReviewStatus)
	assert.NotNil(t, l.ReviewedAt)
	assert.False(t, l.Published)
	require.NotNil(t, l.ReviewNotes)
	assert.Equal(t, "Missing floor plan", *l.ReviewNotes)
	requireInvariant(t, l)

	l, err = svc.ReopenListing(ctx, admin, l.ListingID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewPendingReview, l.ReviewStatus)
	assert.True(t, l.Reopened)

	l, err = svc.EditListing(ctx, agent, l.ListingID, ListingInput{Description: strp("Floor plan attached"), Images: imagesp("a.jpg", "plan.jpg")})
	require.NoError(t, err)
	assert.Equal(t, domain.ImageList{"a.jpg", "plan.jpg"}, l.Images)

	l, err = svc.SubmitListing(ctx, agent, l.ListingID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewPendingReview, l.ReviewStatus)
	assert.False(t, l.Reopened)

	l, err = svc.ApproveListing(ctx, admin, l.ListingID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewApproved, l.ReviewStatus)
	assert.False(t, l.Published)
	require.NotNil(t, l.ReviewerID)
	assert.Equal(t, admin.UserID, *l.ReviewerID)

	l, err = svc.PublishListing(ctx, agent, l.ListingID)
	require.NoError(t, err)
	assert.True(t, l.Published)
	assert.Equal(t, domain.ReviewApproved, l.ReviewStatus)
	requireInvariant(t, l)

	assert.Equal(t, []notifications.EventType{
		notifications.ListingSubmitted,
		notifications.ListingRejected,
		notifications.ListingSubmitted,
		notifications.ListingApproved,
	}, rec.types())

	events, err := st.Events(ctx, l.ListingID)
	require.NoError(t, err)
	got := make([]string, 0, len(events))
	for _, e := range events {
		got = append(got, e.EventType)
	}
	assert.Equal(t, []string{
		domain.EventCreated, domain.EventRejected, domain.EventReopened, domain.EventUpdated,
		domain.EventSubmitted, domain.EventApproved, domain.EventPublished,
	}, got)
}

func TestRejectListing_RequiresNotes(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	l := createDraft(t, svc)
	_, err := svc.SubmitListing(ctx, agent, l.ListingID)
	require.NoError(t, err)

	_, err = svc.RejectListing(ctx, admin, l.ListingID, "   ")
	require.ErrorIs(t, err, apperr.ErrValidation)
	var ae *apperr.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "review_notes", ae.Field)

	got, err := svc.RejectListing(ctx, admin, l.ListingID, "Blurry photos")
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewRejected, got.ReviewStatus)
	assert.NotNil(t, got.ReviewedAt)
}

func TestApproveListing_IsIdempotent(t *testing.T) {
	svc, rec, st := newService(t)
	ctx := context.Background()
	l := createDraft(t, svc)
	_, err := svc.SubmitListing(ctx, agent, l.ListingID)
	require.NoError(t, err)

	first, err := svc.ApproveListing(ctx, admin, l.ListingID)
	require.NoError(t, err)
	second, err := svc.ApproveListing(ctx, admin, l.ListingID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewApproved, second.ReviewStatus)
	assert.Equal(t, first.ReviewedAt.Unix(), second.ReviewedAt.Unix())

	// one approval notification and one APPROVED audit row
	assert.Equal(t, []notifications.EventType{notifications.ListingSubmitted, notifications.ListingApproved}, rec.types())
	events, err := st.Events(ctx, l.ListingID)
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestApproveListing_AgentCannotSelfApprove(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	l := createDraft(t, svc)
	_, err := svc.SubmitListing(ctx, agent, l.ListingID)
	require.NoError(t, err)

	_, err = svc.ApproveListing(ctx, agent, l.ListingID)
	require.ErrorIs(t, err, apperr.ErrAuthorization)
	var ae *apperr.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, access.ReasonRoleForbidden, ae.Reason)

	got, err := svc.ApproveListing(ctx, admin, l.ListingID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewApproved, got.ReviewStatus)
}

func TestApproveListing_FromDraftIsInvalidTransition(t *testing.T) {
	svc, _, _ := newService(t)
	l := createDraft(t, svc)

	_, err := svc.ApproveListing(context.Background(), admin, l.ListingID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestPublishListing_RequiresApproved(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	l := createDraft(t, svc)

	_, err := svc.PublishListing(ctx, agent, l.ListingID)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	_, err = svc.SubmitListing(ctx, agent, l.ListingID)
	require.NoError(t, err)
	_, err = svc.RejectListing(ctx, admin, l.ListingID, "No")
	require.NoError(t, err)
	_, err = svc.PublishListing(ctx, agent, l.ListingID)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestPublishUnpublish_Toggle(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	l := createDraft(t, svc)
	_, err := svc.SubmitListing(ctx, agent, l.ListingID)
	require.NoError(t, err)
	_, err = svc.ApproveListing(ctx, admin, l.ListingID)
	require.NoError(t, err)

	got, err := svc.PublishListing(ctx, agent, l.ListingID)
	require.NoError(t, err)
	assert.True(t, got.Published)
	got, err = svc.PublishListing(ctx, agent, l.ListingID)
	require.NoError(t, err)
	assert.True(t, got.Published)

	_, err = svc.UnpublishListing(ctx, otherAgent, l.ListingID)
	assert.ErrorIs(t, err, apperr.ErrAuthorization)

	got, err = svc.UnpublishListing(ctx, agent, l.ListingID)
	require.NoError(t, err)
	assert.False(t, got.Published)
	assert.Equal(t, domain.ReviewApproved, got.ReviewStatus)
}

func TestSubmitListing_ReportsMissingField(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	in := villaA()
	in.Images = nil
	l, err := svc.CreateListing(ctx, agent, CreateListingInput{ListingInput: in})
	require.NoError(t, err)

	_, err = svc.SubmitListing(ctx, agent, l.ListingID)
	require.ErrorIs(t, err, apperr.ErrValidation)
	var ae *apperr.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "images", ae.Field)

	in.Images = imagesp("a.jpg")
	in.Price = floatp(0)
	_, err = svc.CreateListing(ctx, agent, CreateListingInput{ListingInput: in, Submit: true})
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "price", ae.Field)
}

func TestSubmitListing_RepeatIsNoop(t *testing.T) {
	svc, rec, _ := newService(t)
	ctx := context.Background()
	l := createDraft(t, svc)

	first, err := svc.SubmitListing(ctx, agent, l.ListingID)
	require.NoError(t, err)
	second, err := svc.SubmitListing(ctx, agent, l.ListingID)
	require.NoError(t, err)
	assert.Equal(t, first.SubmittedAt.Unix(), second.SubmittedAt.Unix())
	assert.Len(t, rec.types(), 1)
}

func TestReopenListing_OnlyFromRejected(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	l := createDraft(t, svc)

	_, err := svc.ReopenListing(ctx, admin, l.ListingID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	_, err = svc.SubmitListing(ctx, agent, l.ListingID)
	require.NoError(t, err)
	_, err = svc.RejectListing(ctx, admin, l.ListingID, "Wrong address")
	require.NoError(t, err)

	_, err = svc.ReopenListing(ctx, agent, l.ListingID)
	assert.ErrorIs(t, err, apperr.ErrAuthorization)

	got, err := svc.ReopenListing(ctx, admin, l.ListingID)
	require.NoError(t, err)
	assert.True(t, got.Reopened)
	got, err = svc.ReopenListing(ctx, admin, l.ListingID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewPendingReview, got.ReviewStatus)
}

func TestEditListing_Window(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	l := createDraft(t, svc)

	_, err := svc.EditListing(ctx, otherAgent, l.ListingID, ListingInput{Title: strp("Mine now")})
	var ae *apperr.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, apperr.KindAuthorization, ae.Kind)
	assert.Equal(t, access.ReasonNotOwner, ae.Reason)

	_, err = svc.EditListing(ctx, agent, l.ListingID, ListingInput{Title: strp(" ")})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	got, err := svc.EditListing(ctx, agent, l.ListingID, ListingInput{City: strp("Dubai"), Currency: strp("usd")})
	require.NoError(t, err)
	assert.Equal(t, "Dubai", got.City)
	assert.Equal(t, "USD", got.Currency)
	assert.Equal(t, "Villa A", got.Title)

	_, err = svc.SubmitListing(ctx, agent, l.ListingID)
	require.NoError(t, err)
	_, err = svc.EditListing(ctx, agent, l.ListingID, ListingInput{City: strp("Abu Dhabi")})
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestCreateListing_RoleChecked(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.CreateListing(context.Background(), customer, CreateListingInput{ListingInput: villaA()})
	assert.ErrorIs(t, err, apperr.ErrAuthorization)

	_, err = svc.CreateListing(context.Background(), agent, CreateListingInput{})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCreateListing_AdminCannotOwnListings(t *testing.T) {
	svc, _, st := newService(t)
	ctx := context.Background()

	_, err := svc.CreateListing(ctx, admin, CreateListingInput{ListingInput: villaA()})
	require.ErrorIs(t, err, apperr.ErrAuthorization)

	all, err := st.List(ctx, store.ListingFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestEditListing_AdminCannotRewriteContent(t *testing.T) {
	svc, _, st := newService(t)
	ctx := context.Background()
	l := createDraft(t, svc)

	_, err := svc.EditListing(ctx, admin, l.ListingID, ListingInput{Title: strp("Admin rewrote this")})
	require.ErrorIs(t, err, apperr.ErrAuthorization)

	got, err := st.Get(ctx, l.ListingID)
	require.NoError(t, err)
	assert.Equal(t, l.Title, got.Title)
}

func TestTransition_UnknownListingIsNotFound(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.ApproveListing(context.Background(), admin, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

// staleStore reports that the row moved on between read and write.
type staleStore struct {
	store.ListingStore
}

func (s staleStore) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}, expected store.ListingState, event *domain.ListingEvent) (*domain.Listing, error) {
	return nil, store.ErrStatusChanged
}

func TestTransition_StaleWriteIsConflict(t *testing.T) {
	svc, rec, st := newService(t)
	ctx := context.Background()
	l := createDraft(t, svc)
	_, err := svc.SubmitListing(ctx, agent, l.ListingID)
	require.NoError(t, err)

	stale := NewService(staleStore{st}, rec)
	_, err = stale.ApproveListing(ctx, admin, l.ListingID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, []notifications.EventType{notifications.ListingSubmitted}, rec.types())
}

// snapshotStore serves a listing as it was read before a concurrent write landed.
type snapshotStore struct {
	store.ListingStore
	snapshot *domain.Listing
}

func (s snapshotStore) Get(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	cp := *s.snapshot
	return &cp, nil
}

func TestEditListing_RacingResubmissionIsConflict(t *testing.T) {
	svc, rec, st := newService(t)
	ctx := context.Background()
	l, err := svc.CreateListing(ctx, agent, CreateListingInput{ListingInput: villaA(), Submit: true})
	require.NoError(t, err)
	_, err = svc.RejectListing(ctx, admin, l.ListingID, "Missing floor plan")
	require.NoError(t, err)
	reopened, err := svc.ReopenListing(ctx, admin, l.ListingID)
	require.NoError(t, err)
	require.True(t, reopened.Reopened)

	_, err = svc.SubmitListing(ctx, agent, l.ListingID)
	require.NoError(t, err)

	late := NewService(snapshotStore{ListingStore: st, snapshot: reopened}, rec)
	_, err = late.EditListing(ctx, agent, l.ListingID, ListingInput{Title: strp("Changed under review")})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	got, err := st.Get(ctx, l.ListingID)
	require.NoError(t, err)
	assert.Equal(t, "Villa A", got.Title)
	assert.False(t, got.Reopened)
}

func TestListListings_Scoping(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mine := createDraft(t, svc)
	theirs, err := svc.CreateListing(ctx, otherAgent, CreateListingInput{ListingInput: villaA()})
	require.NoError(t, err)
	svc.Now = func() time.Time { return clock }
	_, err = svc.SubmitListing(ctx, otherAgent, theirs.ListingID)
	require.NoError(t, err)
	_, err = svc.ApproveListing(ctx, admin, theirs.ListingID)
	require.NoError(t, err)
	_, err = svc.PublishListing(ctx, otherAgent, theirs.ListingID)
	require.NoError(t, err)

	got, err := svc.ListListings(ctx, agent, ListQuery{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, mine.ListingID, got[0].ListingID)

	got, err = svc.ListListings(ctx, admin, ListQuery{})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = svc.ListListings(ctx, admin, ListQuery{Status: domain.ReviewApproved})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, theirs.ListingID, got[0].ListingID)

	_, err = svc.ListListings(ctx, admin, ListQuery{Status: "sold"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.ListListings(ctx, customer, ListQuery{})
	assert.ErrorIs(t, err, apperr.ErrAuthorization)

	public, err := svc.ListPublicListings(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, theirs.ListingID, public[0].ListingID)

	_, err = svc.GetPublicListing(ctx, mine.ListingID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = svc.GetPublicListing(ctx, theirs.ListingID)
	assert.NoError(t, err)

	_, err = svc.GetListing(ctx, agent, theirs.ListingID)
	assert.ErrorIs(t, err, apperr.ErrAuthorization)
	events, err := svc.ListListingEvents(ctx, otherAgent, theirs.ListingID)
	require.NoError(t, err)
	assert.Len(t, events, 4)
}

func TestArchiveListing(t *testing.T) {
	svc, _, st := newService(t)
	ctx := context.Background()
	l := createDraft(t, svc)

	listingID := l.ListingID
	require.NoError(t, st.DB.Create(&domain.Engagement{
		ListingID: &listingID, Email: "c@example.com", Message: "Hi", Status: domain.EngagementPending,
	}).Error)

	err := svc.ArchiveListing(ctx, agent, l.ListingID)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	require.NoError(t, st.DB.Model(&domain.Engagement{}).Where("listing_id = ?", listingID).
		Update("status", domain.EngagementResponded).Error)

	assert.ErrorIs(t, svc.ArchiveListing(ctx, otherAgent, l.ListingID), apperr.ErrAuthorization)
	require.NoError(t, svc.ArchiveListing(ctx, agent, l.ListingID))

	_, err = svc.GetListing(ctx, admin, l.ListingID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

// Every sequence of three transitions, by whichever actor is allowed to request
// it, must leave published implying approved.
func TestInvariant_PublishedImpliesApproved(t *testing.T) {
	all := []Transition{Submit, Approve, Reject, Reopen, Publish, Unpublish}
	actorFor := func(tr Transition) *domain.Actor {
		switch tr {
		case Approve, Reject, Reopen:
			return admin
		}
		return agent
	}
	svc, _, st := newService(t)
	ctx := context.Background()

	for _, a := range all {
		for _, b := range all {
			for _, c := range all {
				l, err := svc.CreateListing(ctx, agent, CreateListingInput{ListingInput: villaA(), Submit: true})
				require.NoError(t, err)
				for _, tr := range []Transition{a, b, c} {
					_, _ = svc.transition(ctx, actorFor(tr), l.ListingID, tr, "notes")
					cur, err := st.Get(ctx, l.ListingID)
					require.NoError(t, err)
					requireInvariant(t, cur)
				}
			}
		}
	}
}
