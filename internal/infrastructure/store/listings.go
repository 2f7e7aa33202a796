package store

import (
	"context"
	"errors"
	"fmt"

	"estates-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ListingFilter narrows List. Zero values mean "any".
type ListingFilter struct {
	Status    domain.ReviewStatus
	OwnerID   *uuid.UUID
	Published *bool
	Limit     int
	Offset    int
}

// ListingState is what a conditional update expects the row to still hold.
type ListingState struct {
	Status   domain.ReviewStatus
	Reopened bool
}

// StateOf captures the state a listing was read in.
func StateOf(l *domain.Listing) ListingState {
	return ListingState{Status: l.ReviewStatus, Reopened: l.Reopened}
}

// ListingStore is the Listing Record Store.
type ListingStore interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Listing, error)
	List(ctx context.Context, f ListingFilter) ([]domain.Listing, error)
	Create(ctx context.Context, listing *domain.Listing, event *domain.ListingEvent) error
	// Update applies fields only if the listing still matches expected.
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}, expected ListingState, event *domain.ListingEvent) (*domain.Listing, error)
	// Archive soft-deletes the listing unless pending engagements reference it.
	Archive(ctx context.Context, id uuid.UUID, event *domain.ListingEvent) error
	Events(ctx context.Context, id uuid.UUID) ([]domain.ListingEvent, error)
}

// GormListingStore implements ListingStore on GORM.
type GormListingStore struct {
	DB *gorm.DB
}

func (s *GormListingStore) Get(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	var listing domain.Listing
	if err := s.DB.WithContext(ctx).Where("listing_id = ?", id).First(&listing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get listing: %w", err)
	}
	return &listing, nil
}

func (s *GormListingStore) List(ctx context.Context, f ListingFilter) ([]domain.Listing, error) {
	q := s.DB.WithContext(ctx).Model(&domain.Listing{})
	if f.Status != "" {
		q = q.Where("review_status = ?", f.Status)
	}
	if f.OwnerID != nil {
		q = q.Where("owner_id = ?", *f.OwnerID)
	}
	if f.Published != nil {
		q = q.Where("published = ?", *f.Published)
	}
	listings := []domain.Listing{}
	err := q.Order("created_at DESC").Order("listing_id DESC").
		Limit(pageLimit(f.Limit)).Offset(f.Offset).
		Find(&listings).Error
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	return listings, nil
}

func (s *GormListingStore) Create(ctx context.Context, listing *domain.Listing, event *domain.ListingEvent) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(listing).Error; err != nil {
			return fmt.Errorf("create listing: %w", err)
		}
		if event != nil {
			event.ListingID = listing.ListingID
			if err := tx.Create(event).Error; err != nil {
				return fmt.Errorf("create listing event: %w", err)
			}
		}
		return nil
	})
}

func (s *GormListingStore) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}, expected ListingState, event *domain.ListingEvent) (*domain.Listing, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Listing{}).
			Where("listing_id = ? AND review_status = ? AND reopened = ?", id, expected.Status, expected.Reopened).
			Updates(fields)
		if res.Error != nil {
			return fmt.Errorf("update listing: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return missingOrChanged(tx, &domain.Listing{}, "listing_id = ?", id)
		}
		if event != nil {
			event.ListingID = id
			if err := tx.Create(event).Error; err != nil {
				return fmt.Errorf("create listing event: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *GormListingStore) Archive(ctx context.Context, id uuid.UUID, event *domain.ListingEvent) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Engagement inserts take a share lock on the same row.
		var locked domain.Listing
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("listing_id = ?", id).First(&locked).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("lock listing: %w", err)
		}
		var open int64
		if err := tx.Model(&domain.Engagement{}).
			Where("listing_id = ? AND status = ?", id, domain.EngagementPending).
			Count(&open).Error; err != nil {
			return fmt.Errorf("count open engagements: %w", err)
		}
		if open > 0 {
			return ErrOpenEngagements
		}
		res := tx.Where("listing_id = ?", id).Delete(&domain.Listing{})
		if res.Error != nil {
			return fmt.Errorf("archive listing: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if event != nil {
			event.ListingID = id
			if err := tx.Create(event).Error; err != nil {
				return fmt.Errorf("create listing event: %w", err)
			}
		}
		return nil
	})
}

func (s *GormListingStore) Events(ctx context.Context, id uuid.UUID) ([]domain.ListingEvent, error) {
	events := []domain.ListingEvent{}
	if err := s.DB.WithContext(ctx).Where("listing_id = ?", id).Order("created_at ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list listing events: %w", err)
	}
	return events, nil
}

// missingOrChanged distinguishes a vanished row from one whose status moved on.
func missingOrChanged(tx *gorm.DB, model interface{}, query string, id uuid.UUID) error {
	var count int64
	if err := tx.Model(model).Where(query, id).Count(&count).Error; err != nil {
		return fmt.Errorf("recheck row: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrStatusChanged
}
