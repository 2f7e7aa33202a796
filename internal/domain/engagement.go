package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EngagementKind distinguishes an application from an enquiry.
type EngagementKind string

const (
	KindEnquiry     EngagementKind = "enquiry"
	KindApplication EngagementKind = "application"
)

// EngagementStatus is shared by both kinds; applications end in accepted/rejected,
// enquiries end in responded.
type EngagementStatus string

const (
	EngagementPending   EngagementStatus = "pending"
	EngagementAccepted  EngagementStatus = "accepted"
	EngagementRejected  EngagementStatus = "rejected"
	EngagementResponded EngagementStatus = "responded"
)

// Terminal reports whether no further transition is allowed from s.
func (s EngagementStatus) Terminal() bool {
	return s == EngagementAccepted || s == EngagementRejected || s == EngagementResponded
}

// Engagement is a customer enquiry or application, optionally tied to a listing.
type Engagement struct {
	EngagementID    uuid.UUID        `gorm:"column:engagement_id;type:uuid;primaryKey" json:"engagement_id"`
	Kind            EngagementKind   `gorm:"column:kind;type:varchar(20);not null;default:'enquiry'" json:"kind"`
	ListingID       *uuid.UUID       `gorm:"column:listing_id;type:uuid;index" json:"listing_id"`
	SubmitterID     *uuid.UUID       `gorm:"column:submitter_id;type:uuid;index" json:"submitter_id"`
	Name            string           `gorm:"column:name" json:"name"`
	Email           string           `gorm:"column:email;not null" json:"email"`
	Phone           string           `gorm:"column:phone" json:"phone"`
	Message         string           `gorm:"column:message;not null" json:"message"`
	Category        string           `gorm:"column:category" json:"category"`
	Status          EngagementStatus `gorm:"column:status;type:varchar(20);not null;default:'pending';index" json:"status"`
	ResponderID     *uuid.UUID       `gorm:"column:responder_id;type:uuid" json:"responder_id"`
	ResponseMessage *string          `gorm:"column:response_message" json:"response_message"`
	RespondedAt     *time.Time       `gorm:"column:responded_at" json:"responded_at"`
	CreatedAt       time.Time        `gorm:"column:created_at;index" json:"created_at"`
	UpdatedAt       time.Time        `gorm:"column:updated_at" json:"updated_at"`
}

func (Engagement) TableName() string {
	return "Engagements"
}

func (e *Engagement) BeforeCreate(tx *gorm.DB) error {
	if e.EngagementID == uuid.Nil {
		e.EngagementID = uuid.New()
	}
	return nil
}
