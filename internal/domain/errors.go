package domain

import "errors"

// Sentinel errors used throughout the application.
// API handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound         = errors.New("not found")
	ErrUnknownEventType = errors.New("unknown event type")
	ErrUnknownQueue     = errors.New("unknown queue name")
	ErrMissingRecipient = errors.New("event has no recipient")
	ErrMissingResource  = errors.New("event is missing resource_type or resource_id")
	ErrNoIDs            = errors.New("no notification ids provided")
	ErrInvalidDeadline  = errors.New("deadline is missing or not a valid timestamp")
	ErrInvalidDelivery  = errors.New("delivery methods must be a subset of {in-app, email}")
)
