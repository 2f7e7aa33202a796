package domain

import "github.com/google/uuid"

// Actor is the authenticated identity attempting an operation. It is passed
// explicitly into every guarded call.
type Actor struct {
	UserID   uuid.UUID
	Role     string
	Email    string
	Fullname string
}
