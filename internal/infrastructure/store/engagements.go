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

// EngagementFilter narrows List. Zero values mean "any".
type EngagementFilter struct {
	ListingID *uuid.UUID
	// OwnerID restricts to engagements on listings owned by this agent.
	OwnerID     *uuid.UUID
	SubmitterID *uuid.UUID
	Status      domain.EngagementStatus
	Kind        domain.EngagementKind
	Limit       int
	Offset      int
}

// EngagementStore is the Engagement Record Store.
type EngagementStore interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Engagement, error)
	List(ctx context.Context, f EngagementFilter) ([]domain.Engagement, error)
	Create(ctx context.Context, e *domain.Engagement) error
	// Update applies fields only if the engagement is still in expected status.
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}, expected domain.EngagementStatus) (*domain.Engagement, error)
}

// GormEngagementStore implements EngagementStore on GORM.
type GormEngagementStore struct {
	DB *gorm.DB
}

func (s *GormEngagementStore) Get(ctx context.Context, id uuid.UUID) (*domain.Engagement, error) {
	var e domain.Engagement
	if err := s.DB.WithContext(ctx).Where("engagement_id = ?", id).First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get engagement: %w", err)
	}
	return &e, nil
}

func (s *GormEngagementStore) List(ctx context.Context, f EngagementFilter) ([]domain.Engagement, error) {
	db := s.DB.WithContext(ctx)
	q := db.Model(&domain.Engagement{})
	if f.ListingID != nil {
		q = q.Where("listing_id = ?", *f.ListingID)
	}
	if f.OwnerID != nil {
		owned := db.Model(&domain.Listing{}).Select("listing_id").Where("owner_id = ?", *f.OwnerID)
		q = q.Where("listing_id IN (?)", owned)
	}
	if f.SubmitterID != nil {
		q = q.Where("submitter_id = ?", *f.SubmitterID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Kind != "" {
		q = q.Where("kind = ?", f.Kind)
	}
	out := []domain.Engagement{}
	err := q.Order("created_at DESC").Order("engagement_id DESC").
		Limit(pageLimit(f.Limit)).Offset(f.Offset).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list engagements: %w", err)
	}
	return out, nil
}

// Create inserts the engagement. When it references a listing, the listing row is
// share-locked first so Archive cannot remove it underneath; ErrNotFound if it is gone.
func (s *GormEngagementStore) Create(ctx context.Context, e *domain.Engagement) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if e.ListingID != nil {
			var listing domain.Listing
			err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
				Select("listing_id").
				Where("listing_id = ?", *e.ListingID).
				First(&listing).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			if err != nil {
				return fmt.Errorf("lock listing: %w", err)
			}
		}
		if err := tx.Create(e).Error; err != nil {
			return fmt.Errorf("create engagement: %w", err)
		}
		return nil
	})
}

func (s *GormEngagementStore) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}, expected domain.EngagementStatus) (*domain.Engagement, error) {
	db := s.DB.WithContext(ctx)
	res := db.Model(&domain.Engagement{}).
		Where("engagement_id = ? AND status = ?", id, expected).
		Updates(fields)
	if res.Error != nil {
		return nil, fmt.Errorf("update engagement: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, missingOrChanged(db, &domain.Engagement{}, "engagement_id = ?", id)
	}
	return s.Get(ctx, id)
}
