// Package access is the single authorization guard for listing and engagement
// transitions. Decide is pure: it reads only its arguments.
package access

import (
	"estates-backend/internal/domain"
	"estates-backend/internal/pkg/apperr"
	"estates-backend/internal/pkg/constants"

	"github.com/google/uuid"
)

// Action is a requested transition or read.
type Action string

const (
	CreateListing     Action = "create_listing"
	EditListing       Action = "edit_listing"
	SubmitListing     Action = "submit_listing"
	ApproveListing    Action = "approve_listing"
	RejectListing     Action = "reject_listing"
	ReopenListing     Action = "reopen_listing"
	PublishListing    Action = "publish_listing"
	UnpublishListing  Action = "unpublish_listing"
	ArchiveListing    Action = "archive_listing"
	ViewListing       Action = "view_listing"
	CreateEngagement  Action = "create_engagement"
	RespondEngagement Action = "respond_engagement"
	ViewEngagements   Action = "view_engagements"
	ViewNotifications Action = "view_notifications"
)

// Denial reason codes.
const (
	ReasonNotOwner       = "not_owner"
	ReasonRoleForbidden  = "role_forbidden"
	ReasonEntityNotFound = "entity_not_found"
)

// Ownership rule for an action granted to a role.
type scope int

const (
	anyEntity scope = iota
	ownListing
	ownSubmission
)

// agentOnly actions are refused to every other role, admins included:
// listings are authored by agents and admins only move them through review.
var agentOnly = map[Action]bool{
	CreateListing: true,
	EditListing:   true,
}

// agentActions and customerActions are the non-admin grants. Admins are allowed
// everything outside agentOnly.
var agentActions = map[Action]scope{
	CreateListing:     anyEntity,
	EditListing:       ownListing,
	SubmitListing:     ownListing,
	PublishListing:    ownListing,
	UnpublishListing:  ownListing,
	ArchiveListing:    ownListing,
	ViewListing:       ownListing,
	CreateEngagement:  anyEntity,
	RespondEngagement: ownListing,
	ViewEngagements:   ownListing,
}

var customerActions = map[Action]scope{
	CreateEngagement: anyEntity,
	ViewEngagements:  ownSubmission,
}

// Target describes the entity the action applies to.
type Target struct {
	// Exists is false when the referenced listing or engagement could not be found.
	Exists bool
	// ListingOwnerID is the agent owning the listing (or the engagement's listing).
	// Nil for a general enquiry or an action that creates a new entity.
	ListingOwnerID *uuid.UUID
	// SubmitterID is the customer who created the engagement, if any.
	SubmitterID *uuid.UUID
	// Collection marks a list read rather than a single entity.
	Collection bool
}

// ListingTarget builds a Target for a loaded listing (nil means not found).
func ListingTarget(l *domain.Listing) *Target {
	if l == nil {
		return &Target{}
	}
	owner := l.OwnerID
	return &Target{Exists: true, ListingOwnerID: &owner}
}

// EngagementTarget builds a Target for an engagement and its listing (nil for a general enquiry).
func EngagementTarget(e *domain.Engagement, l *domain.Listing) *Target {
	if e == nil {
		return &Target{}
	}
	t := &Target{Exists: true, SubmitterID: e.SubmitterID}
	if l != nil {
		owner := l.OwnerID
		t.ListingOwnerID = &owner
	}
	return t
}

// NewEntity is the Target for actions that create something.
func NewEntity() *Target {
	return &Target{Exists: true}
}

// Collection is the Target for list reads; the caller scopes the query to what
// the actor may see.
func Collection() *Target {
	return &Target{Exists: true, Collection: true}
}

// Decision is the guard's verdict.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string) Decision {
	return Decision{Reason: reason}
}

// Decide evaluates, in order: agent-only actions, admin, agent, customer, default deny.
// Only a missing actor or target is an error.
func Decide(actor *domain.Actor, action Action, target *Target) (Decision, error) {
	if actor == nil || actor.UserID == uuid.Nil {
		return Decision{}, ErrMissingActor
	}
	if target == nil {
		return Decision{}, ErrMissingTarget
	}
	if !target.Exists {
		return deny(ReasonEntityNotFound), nil
	}

	if agentOnly[action] && actor.Role != constants.Agent {
		return deny(ReasonRoleForbidden), nil
	}

	var grants map[Action]scope
	switch actor.Role {
	case constants.Admin:
		return allow(), nil
	case constants.Agent:
		grants = agentActions
	case constants.Customer:
		grants = customerActions
	default:
		return deny(ReasonRoleForbidden), nil
	}

	sc, ok := grants[action]
	if !ok {
		return deny(ReasonRoleForbidden), nil
	}
	if sc == anyEntity || target.Collection {
		return allow(), nil
	}
	switch sc {
	case ownListing:
		// A general enquiry has no owning agent; only admins answer those.
		if target.ListingOwnerID == nil {
			return deny(ReasonRoleForbidden), nil
		}
		if *target.ListingOwnerID != actor.UserID {
			return deny(ReasonNotOwner), nil
		}
	case ownSubmission:
		if target.SubmitterID == nil || *target.SubmitterID != actor.UserID {
			return deny(ReasonNotOwner), nil
		}
	}
	return allow(), nil
}

// Require runs Decide and turns a denial into an authorization error.
func Require(actor *domain.Actor, action Action, target *Target) error {
	d, err := Decide(actor, action, target)
	if err != nil {
		return err
	}
	if !d.Allowed {
		return apperr.Forbidden(d.Reason, deniedMessage(d.Reason))
	}
	return nil
}

func deniedMessage(reason string) string {
	switch reason {
	case ReasonNotOwner:
		return "You do not own this listing"
	case ReasonEntityNotFound:
		return "Target not found"
	default:
		return "User is Forbidden from performing this action"
	}
}
