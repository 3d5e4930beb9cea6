// Package common defines sentinel errors shared by the bot, the store
// backends and the admin tooling. Callers should use errors.Is to match
// these values; implementations wrap them with fmt.Errorf("...: %w").
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// ErrStoreUnavailable marks any failure to reach the persistent store.
	// The category service retries such errors once before surfacing them.
	ErrStoreUnavailable = errors.New("store unavailable")

	// Transport errors.
	ErrTransportDeliveryFailed = errors.New("transport delivery failed")

	// Conversation errors (never fatal).
	ErrInvalidTransition = errors.New("invalid transition")
	ErrDuplicateEvent    = errors.New("duplicate event")

	// Validation errors.
	ErrInvalidCategoryName = errors.New("invalid category name")
	ErrInvalidToken        = errors.New("invalid button token")
)
