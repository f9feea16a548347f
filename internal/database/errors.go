package database

import "errors"

var (
	// ErrShortCodeExists is returned when an attempt is made to create
	// a link with a short code that is already taken, either by an active
	// link or by a historical archived one.
	ErrShortCodeExists = errors.New("short code exists")
	// ErrLinkNotFound is returned when an attempt is made to retrieve
	// a link using a short code that doesn't exist in the active set.
	ErrLinkNotFound = errors.New("link not found")
	// ErrPermissionDenied is returned when a mutation is attempted by a
	// caller that doesn't own the link.
	ErrPermissionDenied = errors.New("permission denied")
)
