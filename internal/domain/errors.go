package domain

import "errors"

var (
	// ErrValidation marks request or entity validation failures (HTTP 400).
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks missing entities (HTTP 404).
	ErrNotFound = errors.New("not found")
	// ErrConflict marks state conflicts, e.g. a campaign loop already running (HTTP 409).
	ErrConflict = errors.New("conflict")
	// ErrInvalidTransition marks pause/resume/cancel requests that are not legal
	// from the campaign's current status.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrExhausted is returned by the account router when no sending account
	// has remaining daily quota.
	ErrExhausted = errors.New("all sending accounts exhausted")
	// ErrStaleCampaign is returned when an optimistic version check fails while
	// persisting campaign progress.
	ErrStaleCampaign = errors.New("stale campaign version")
)
