package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Listing event types, one per lifecycle transition.
const (
	EventCreated     = "CREATED"
	EventUpdated     = "UPDATED"
	EventSubmitted   = "SUBMITTED"
	EventApproved    = "APPROVED"
	EventRejected    = "REJECTED"
	EventReopened    = "REOPENED"
	EventPublished   = "PUBLISHED"
	EventUnpublished = "UNPUBLISHED"
	EventArchived    = "ARCHIVED"
)

// ListingEvent is the append-only audit trail of a listing, written in the
// same transaction as the change it records.
type ListingEvent struct {
	EventID    uuid.UUID      `gorm:"column:event_id;type:uuid;primaryKey" json:"event_id"`
	ListingID  uuid.UUID      `gorm:"column:listing_id;type:uuid;not null;index" json:"listing_id"`
	EventType  string         `gorm:"column:event_type;type:varchar(30);not null" json:"event_type"`
	FromStatus ReviewStatus   `gorm:"column:from_status;type:varchar(20)" json:"from_status"`
	ToStatus   ReviewStatus   `gorm:"column:to_status;type:varchar(20)" json:"to_status"`
	ActorID    *uuid.UUID     `gorm:"column:actor_id;type:uuid" json:"actor_id"`
	EventData  datatypes.JSON `gorm:"column:event_data;type:jsonb" json:"event_data"`
	CreatedAt  time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (ListingEvent) TableName() string {
	return "ListingEvents"
}

func (le *ListingEvent) BeforeCreate(tx *gorm.DB) error {
	if le.EventID == uuid.Nil {
		le.EventID = uuid.New()
	}
	return nil
}
