// Package store is the persistence boundary for listings, engagements and users.
// Every state-changing write is a conditional update on the current status, which
// is the only concurrency primitive the workflows rely on.
package store

import "errors"

var (
	ErrNotFound = errors.New("record not found")
	// ErrStatusChanged means the row exists but no longer has the expected status.
	ErrStatusChanged = errors.New("status changed since it was read")
	// ErrOpenEngagements blocks archiving a listing that still has pending engagements.
	ErrOpenEngagements = errors.New("listing has open engagements")
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

func pageLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
