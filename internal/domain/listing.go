package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReviewStatus is the admin-controlled moderation state of a listing.
type ReviewStatus string

const (
	ReviewDraft         ReviewStatus = "draft"
	ReviewPendingReview ReviewStatus = "pending_review"
	ReviewApproved      ReviewStatus = "approved"
	ReviewRejected      ReviewStatus = "rejected"
)

// ImageList stores ordered image URIs in a json column and marshals to a JSON array.
type ImageList []string

// Scan implements sql.Scanner for reading from DB (json column).
func (l *ImageList) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*l = ImageList{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("unsupported type for ImageList")
	}
	if len(raw) == 0 {
		*l = ImageList{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*l = out
	return nil
}

// Value implements driver.Valuer for writing to DB.
func (l ImageList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// MarshalJSON keeps an empty list as [] rather than null so dashboards can .map() it.
func (l ImageList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

// Listing is a property record with its moderation metadata.
type Listing struct {
	ListingID    uuid.UUID      `gorm:"column:listing_id;type:uuid;primaryKey" json:"listing_id"`
	Title        string         `gorm:"column:title;not null" json:"title"`
	Description  string         `gorm:"column:description" json:"description"`
	PropertyType string         `gorm:"column:property_type" json:"property_type"`
	Category     string         `gorm:"column:category" json:"category"`
	Price        float64        `gorm:"column:price;type:decimal(18,2)" json:"price"`
	Currency     string         `gorm:"column:currency;type:varchar(3);default:'AED'" json:"currency"`
	Bedrooms     int            `gorm:"column:bedrooms" json:"bedrooms"`
	Bathrooms    int            `gorm:"column:bathrooms" json:"bathrooms"`
	AreaSqft     float64        `gorm:"column:area_sqft" json:"area_sqft"`
	Address      string         `gorm:"column:address" json:"address"`
	Area         string         `gorm:"column:area" json:"area"`
	City         string         `gorm:"column:city" json:"city"`
	Images       ImageList      `gorm:"column:images;type:json" json:"images"`
	OwnerID      uuid.UUID      `gorm:"column:owner_id;type:uuid;not null;index" json:"owner_id"`
	ReviewerID   *uuid.UUID     `gorm:"column:reviewer_id;type:uuid" json:"reviewer_id"`
	ReviewStatus ReviewStatus   `gorm:"column:review_status;type:varchar(20);not null;default:'draft';index" json:"review_status"`
	Published    bool           `gorm:"column:published;not null;default:false" json:"published"`
	Reopened     bool           `gorm:"column:reopened;not null;default:false" json:"reopened"`
	ReviewNotes  *string        `gorm:"column:review_notes" json:"review_notes"`
	SubmittedAt  *time.Time     `gorm:"column:submitted_at" json:"submitted_at"`
	ReviewedAt   *time.Time     `gorm:"column:reviewed_at" json:"reviewed_at"`
	CreatedAt    time.Time      `gorm:"column:created_at;index" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Listing) TableName() string {
	return "Listings"
}

// BeforeCreate sets listing_id if not already set (DBs without default uuid).
func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ListingID == uuid.Nil {
		l.ListingID = uuid.New()
	}
	return nil
}

// ErrPublishedNotApproved is returned by CheckInvariants for a visible, unapproved listing.
var ErrPublishedNotApproved = errors.New("published listing must be approved")

// CheckInvariants reports a listing that is published without being approved.
func (l *Listing) CheckInvariants() error {
	if l.Published && l.ReviewStatus != ReviewApproved {
		return ErrPublishedNotApproved
	}
	return nil
}

// MissingSubmissionField returns the first mandatory field that is absent, or "".
func (l *Listing) MissingSubmissionField() string {
	switch {
	case l.Title == "":
		return "title"
	case l.Price <= 0:
		return "price"
	case len(l.Images) == 0:
		return "images"
	case l.Address == "":
		return "address"
	}
	return ""
}
