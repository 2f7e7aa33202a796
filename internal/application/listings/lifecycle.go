package listings

import (
	"estates-backend/internal/application/policies/access"
	"estates-backend/internal/domain"
	"estates-backend/internal/pkg/apperr"
)

// Transition is a requested move in the review lifecycle.
type Transition string

const (
	Submit    Transition = "submit"
	Approve   Transition = "approve"
	Reject    Transition = "reject"
	Reopen    Transition = "reopen"
	Publish   Transition = "publish"
	Unpublish Transition = "unpublish"
)

func (t Transition) action() access.Action {
	switch t {
	case Submit:
		return access.SubmitListing
	case Approve:
		return access.ApproveListing
	case Reject:
		return access.RejectListing
	case Reopen:
		return access.ReopenListing
	case Publish:
		return access.PublishListing
	default:
		return access.UnpublishListing
	}
}

func (t Transition) eventType() string {
	switch t {
	case Submit:
		return domain.EventSubmitted
	case Approve:
		return domain.EventApproved
	case Reject:
		return domain.EventRejected
	case Reopen:
		return domain.EventReopened
	case Publish:
		return domain.EventPublished
	default:
		return domain.EventUnpublished
	}
}

// target is the review status a transition leads to.
func (t Transition) target() domain.ReviewStatus {
	switch t {
	case Submit, Reopen:
		return domain.ReviewPendingReview
	case Reject:
		return domain.ReviewRejected
	default:
		return domain.ReviewApproved
	}
}

// step is what a transition does to a listing in its current state.
type step struct {
	to   domain.ReviewStatus
	noop bool
}

// plan resolves a transition against the listing's current state. Re-issuing the
// transition that produced the current state is a no-op.
func plan(l *domain.Listing, t Transition) (step, error) {
	from := l.ReviewStatus
	switch t {
	case Submit:
		switch {
		case from == domain.ReviewDraft:
			return step{to: domain.ReviewPendingReview}, nil
		case from == domain.ReviewPendingReview && l.Reopened:
			return step{to: domain.ReviewPendingReview}, nil
		case from == domain.ReviewPendingReview:
			return step{noop: true}, nil
		}
	case Approve:
		switch from {
		case domain.ReviewPendingReview:
			return step{to: domain.ReviewApproved}, nil
		case domain.ReviewApproved:
			return step{noop: true}, nil
		}
	case Reject:
		switch from {
		case domain.ReviewPendingReview:
			return step{to: domain.ReviewRejected}, nil
		case domain.ReviewRejected:
			return step{noop: true}, nil
		}
	case Reopen:
		switch {
		case from == domain.ReviewRejected:
			return step{to: domain.ReviewPendingReview}, nil
		case from == domain.ReviewPendingReview && l.Reopened:
			return step{noop: true}, nil
		}
	case Publish, Unpublish:
		if from != domain.ReviewApproved {
			return step{}, apperr.InvalidState("Listing must be approved before it can be %sed", t)
		}
		if l.Published == (t == Publish) {
			return step{noop: true}, nil
		}
		return step{to: domain.ReviewApproved}, nil
	}
	return step{}, apperr.InvalidTransition(string(from), string(t.target()))
}
