package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"estates-backend/internal/application/emails"
	"estates-backend/internal/domain"

	"github.com/google/uuid"
)

// Directory resolves user ids to contact details.
type Directory interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// EmailSink sends the submitter confirmation and the owner/admin alert for each event.
type EmailSink struct {
	Mailer     emails.Mailer
	Templates  emails.Templates
	Users      Directory
	AdminEmail string
}

func (s *EmailSink) Name() string { return "email" }

func (s *EmailSink) Deliver(ctx context.Context, ev Event) error {
	switch ev.Type {
	case ListingSubmitted, ListingApproved, ListingRejected:
		if ev.Listing == nil {
			return fmt.Errorf("%s: missing listing", ev.Type)
		}
		return s.listingEvent(ctx, ev)
	case EngagementCreated, EngagementResponded:
		if ev.Engagement == nil {
			return fmt.Errorf("%s: missing engagement", ev.Type)
		}
		return s.engagementEvent(ctx, ev)
	}
	return fmt.Errorf("unknown event type %q", ev.Type)
}

func (s *EmailSink) listingEvent(ctx context.Context, ev Event) error {
	l := ev.Listing
	owner, err := s.Users.Get(ctx, l.OwnerID)
	if err != nil {
		return fmt.Errorf("lookup listing owner: %w", err)
	}

	var errs []error
	switch ev.Type {
	case ListingSubmitted:
		subject, html := s.Templates.ListingSubmittedAgent(owner.Fullname, l.Title)
		errs = append(errs, s.send(ctx, owner.Email, owner.Fullname, subject, html))
		if s.AdminEmail != "" {
			subject, html = s.Templates.ListingSubmittedAdmin(l.Title, l.ListingID.String())
			errs = append(errs, s.send(ctx, s.AdminEmail, "", subject, html))
		}
	case ListingApproved:
		subject, html := s.Templates.ListingApproved(owner.Fullname, l.Title, l.ListingID.String())
		errs = append(errs, s.send(ctx, owner.Email, owner.Fullname, subject, html))
	case ListingRejected:
		notes := ""
		if l.ReviewNotes != nil {
			notes = *l.ReviewNotes
		}
		subject, html := s.Templates.ListingRejected(owner.Fullname, l.Title, notes)
		errs = append(errs, s.send(ctx, owner.Email, owner.Fullname, subject, html))
	}
	return errors.Join(errs...)
}

func (s *EmailSink) engagementEvent(ctx context.Context, ev Event) error {
	e := ev.Engagement
	title := ""
	if ev.Listing != nil {
		title = ev.Listing.Title
	}

	if ev.Type == EngagementResponded {
		response := ""
		if e.ResponseMessage != nil {
			response = *e.ResponseMessage
		}
		subject, html := s.Templates.EngagementResponded(e.Name, string(e.Status), title, response)
		return s.send(ctx, e.Email, e.Name, subject, html)
	}

	var errs []error
	subject, html := s.Templates.EngagementReceived(e.Name, string(e.Kind), title)
	errs = append(errs, s.send(ctx, e.Email, e.Name, subject, html))

	to, name := s.AdminEmail, ""
	if ev.Listing != nil {
		owner, err := s.Users.Get(ctx, ev.Listing.OwnerID)
		if err != nil {
			errs = append(errs, fmt.Errorf("lookup listing owner: %w", err))
		} else {
			to, name = owner.Email, owner.Fullname
		}
	}
	if to != "" {
		subject, html = s.Templates.EngagementAlert(string(e.Kind), title, e.Name, e.Email, e.Message)
		errs = append(errs, s.send(ctx, to, name, subject, html))
	}
	return errors.Join(errs...)
}

func (s *EmailSink) send(ctx context.Context, to, name, subject, html string) error {
	if strings.TrimSpace(to) == "" {
		return nil
	}
	return s.Mailer.Send(ctx, emails.Message{ToEmail: to, ToName: name, Subject: subject, HTML: html})
}
