package access

import "errors"

var (
	ErrMissingActor  = errors.New("Actor is required for an authorization decision")
	ErrMissingTarget = errors.New("Target entity is required for an authorization decision")
)
