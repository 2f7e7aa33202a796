package access

import (
	"testing"

	"estates-backend/internal/domain"
	"estates-backend/internal/pkg/apperr"
	"estates-backend/internal/pkg/constants"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func actor(role string) *domain.Actor {
	return &domain.Actor{UserID: uuid.New(), Role: role}
}

func TestDecide_AdminAllowedEverywhere(t *testing.T) {
	admin := actor(constants.Admin)
	listing := &domain.Listing{OwnerID: uuid.New()}
	for _, a := range []Action{ApproveListing, RejectListing, ReopenListing, PublishListing, UnpublishListing, ArchiveListing, RespondEngagement} {
		d, err := Decide(admin, a, ListingTarget(listing))
		require.NoError(t, err)
		assert.True(t, d.Allowed, a)
	}
	d, err := Decide(admin, RespondEngagement, EngagementTarget(&domain.Engagement{}, nil))
	require.NoError(t, err)
	assert.True(t, d.Allowed, "admins answer general enquiries")
}

func TestDecide_AgentCannotSelfApprove(t *testing.T) {
	agent := actor(constants.Agent)
	own := &domain.Listing{OwnerID: agent.UserID}
	for _, a := range []Action{ApproveListing, RejectListing, ReopenListing} {
		d, err := Decide(agent, a, ListingTarget(own))
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, ReasonRoleForbidden, d.Reason)
	}
}

func TestDecide_AgentOwnership(t *testing.T) {
	agent := actor(constants.Agent)
	own := &domain.Listing{OwnerID: agent.UserID}
	other := &domain.Listing{OwnerID: uuid.New()}

	d, _ := Decide(agent, SubmitListing, ListingTarget(own))
	assert.True(t, d.Allowed)
	d, _ = Decide(agent, PublishListing, ListingTarget(other))
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonNotOwner, d.Reason)

	eng := &domain.Engagement{ListingID: &own.ListingID}
	d, _ = Decide(agent, RespondEngagement, EngagementTarget(eng, own))
	assert.True(t, d.Allowed)
	d, _ = Decide(agent, RespondEngagement, EngagementTarget(eng, other))
	assert.Equal(t, ReasonNotOwner, d.Reason)

	d, _ = Decide(agent, RespondEngagement, EngagementTarget(&domain.Engagement{}, nil))
	assert.Equal(t, ReasonRoleForbidden, d.Reason, "general enquiries are admin-only")
}

func TestDecide_Customer(t *testing.T) {
	customer := actor(constants.Customer)
	d, _ := Decide(customer, CreateEngagement, NewEntity())
	assert.True(t, d.Allowed)
	d, _ = Decide(customer, ViewEngagements, Collection())
	assert.True(t, d.Allowed)

	mine := &domain.Engagement{SubmitterID: &customer.UserID}
	d, _ = Decide(customer, ViewEngagements, EngagementTarget(mine, nil))
	assert.True(t, d.Allowed)
	d, _ = Decide(customer, ViewEngagements, EngagementTarget(&domain.Engagement{}, nil))
	assert.Equal(t, ReasonNotOwner, d.Reason)

	for _, a := range []Action{EditListing, PublishListing, ApproveListing, RespondEngagement} {
		d, _ = Decide(customer, a, ListingTarget(&domain.Listing{OwnerID: customer.UserID}))
		assert.Equal(t, ReasonRoleForbidden, d.Reason, a)
	}
}

func TestDecide_UnknownRoleAndMissingEntity(t *testing.T) {
	d, err := Decide(actor("landlord"), ViewListing, NewEntity())
	require.NoError(t, err)
	assert.Equal(t, ReasonRoleForbidden, d.Reason)

	d, err = Decide(actor(constants.Admin), ApproveListing, ListingTarget(nil))
	require.NoError(t, err)
	assert.Equal(t, ReasonEntityNotFound, d.Reason)
}

func TestDecide_MalformedInput(t *testing.T) {
	_, err := Decide(nil, ApproveListing, NewEntity())
	assert.Equal(t, ErrMissingActor, err)
	_, err = Decide(&domain.Actor{Role: constants.Admin}, ApproveListing, NewEntity())
	assert.Equal(t, ErrMissingActor, err)
	_, err = Decide(actor(constants.Admin), ApproveListing, nil)
	assert.Equal(t, ErrMissingTarget, err)
}

func TestRequire_DenialIsAuthorizationError(t *testing.T) {
	agent := actor(constants.Agent)
	err := Require(agent, ApproveListing, ListingTarget(&domain.Listing{OwnerID: agent.UserID}))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrAuthorization)
	var e *apperr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, ReasonRoleForbidden, e.Reason)

	assert.NoError(t, Require(actor(constants.Admin), ApproveListing, ListingTarget(&domain.Listing{})))
}

func TestDecide_NotificationFeedIsAdminOnly(t *testing.T) {
	for role, want := range map[string]bool{constants.Admin: true, constants.Agent: false, constants.Customer: false} {
		d, err := Decide(actor(role), ViewNotifications, Collection())
		require.NoError(t, err)
		assert.Equal(t, want, d.Allowed, role)
	}
}

func TestDecide_ListingContentIsAgentOnly(t *testing.T) {
	admin := actor(constants.Admin)
	listing := &domain.Listing{OwnerID: uuid.New()}

	d, err := Decide(admin, CreateListing, NewEntity())
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonRoleForbidden, d.Reason)

	d, err = Decide(admin, EditListing, ListingTarget(listing))
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonRoleForbidden, d.Reason)

	owner := &domain.Actor{UserID: listing.OwnerID, Role: constants.Agent}
	d, _ = Decide(owner, EditListing, ListingTarget(listing))
	assert.True(t, d.Allowed)
	d, _ = Decide(owner, CreateListing, NewEntity())
	assert.True(t, d.Allowed)
}
