package domain

import "errors"

var (
	// ErrNotFound is returned by repositories when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("duplicate")
	// ErrNotConfigured marks a component that lacks credentials or endpoints.
	ErrNotConfigured = errors.New("not configured")
	// ErrInvalidResponse marks a model response that failed decoding or validation.
	ErrInvalidResponse = errors.New("invalid model response")
)
