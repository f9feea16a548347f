package models

import "time"

// Link represents an active shortened link and its usage metadata.
type Link struct {
	// ID is the unique identifier for the link record.
	ID int64
	// ShortCode is the short code associated with the original URL.
	// It is immutable once the link has been created.
	ShortCode string
	// OriginalURL is the original, full-length URL that the short code points to.
	OriginalURL string
	// VisitCount tracks the number of times the link has been resolved
	// through the store path. It only ever increases.
	VisitCount int64
	// CreatedAt is the timestamp indicating when the link was created.
	CreatedAt time.Time
	// LastUsedAt is the timestamp of the last resolve or URL update.
	// A nil value means the link has never been used.
	LastUsedAt *time.Time
	// ExpiresAt is the absolute expiration timestamp. A nil value means
	// the link never expires.
	ExpiresAt *time.Time
	// UserID identifies the owner of the link. A nil value means the link
	// was created anonymously.
	UserID *int64
}

// ExpiredAt reports whether the link is expired relative to the given time.
func (l *Link) ExpiredAt(t time.Time) bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(t)
}

// ArchivedLink is the immutable historical record of a link that was moved
// out of the active set by the lifecycle manager.
type ArchivedLink struct {
	ID          int64
	ShortCode   string
	OriginalURL string
	VisitCount  int64
	CreatedAt   time.Time
	LastUsedAt  *time.Time
	// ArchivedAt is the timestamp of the archival itself.
	ArchivedAt time.Time
	UserID     *int64
}
