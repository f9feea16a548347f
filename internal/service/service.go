package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/dkoryagin/shortlink/internal/database"
	"github.com/dkoryagin/shortlink/internal/models"
)

// shortCodeAlphabet is the 62-symbol alphabet short codes are drawn from.
const shortCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

var (
	// ErrMaxRetriesExceeded is returned when the maximum number of retries for generating a short code is exceeded.
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded for generating short code")
	// ErrLinkExpired is returned when a resolved link's expiration timestamp lies in the past.
	// Externally it is indistinguishable from a missing link.
	ErrLinkExpired = errors.New("link expired")
	// ErrInvalidURL is returned when the supplied original URL is not a valid absolute http(s) URL.
	ErrInvalidURL = errors.New("invalid url")
	// ErrExpiryInPast is returned when a link is created with an expiration timestamp that already passed.
	ErrExpiryInPast = errors.New("expiration timestamp in the past")
)

// LinkRepository defines the interface for the durable link store at the business logic layer.
type LinkRepository interface {
	// Create inserts a new link with the given short code.
	// Returns database.ErrShortCodeExists when the code is taken.
	Create(ctx context.Context, shortCode, originalURL string, expiresAt *time.Time, userID *int64) (*models.Link, error)

	// GetByShortCode retrieves a link by its short code without mutating it.
	GetByShortCode(ctx context.Context, shortCode string) (*models.Link, error)

	// GetByOriginalURL retrieves every active link for the given URL.
	GetByOriginalURL(ctx context.Context, originalURL string) ([]*models.Link, error)

	// RegisterVisit increments the visit count and stamps last_used_at.
	RegisterVisit(ctx context.Context, shortCode string) (*models.Link, error)

	// Update replaces the original URL after validating ownership.
	Update(ctx context.Context, shortCode, originalURL string, callerID *int64) (*models.Link, error)

	// Delete removes a link after validating ownership.
	Delete(ctx context.Context, shortCode string, callerID *int64) error

	// ArchiveAndRemove atomically moves a link into the archived set.
	ArchiveAndRemove(ctx context.Context, shortCode string) (*models.ArchivedLink, error)

	// ListUnusedSince returns the active links unused since the cutoff.
	ListUnusedSince(ctx context.Context, cutoff time.Time) ([]*models.Link, error)

	// ListArchived returns the archived records, newest first.
	ListArchived(ctx context.Context) ([]*models.ArchivedLink, error)
}

// LinkCache defines the interface for the short code to URL cache.
// The cache is best-effort: implementations report misses via the bool
// return and callers never fail a request on a cache error.
type LinkCache interface {
	Get(ctx context.Context, shortCode string) (string, bool, error)
	Set(ctx context.Context, shortCode, url string, ttl time.Duration) error
	Invalidate(ctx context.Context, shortCodes ...string) error
}

// ShortenParams carries the caller's input for creating a link.
type ShortenParams struct {
	OriginalURL string
	// CustomAlias, when non-empty, is used verbatim as the short code
	// instead of a generated one.
	CustomAlias string
	ExpiresAt   *time.Time
	UserID      *int64
}

// LinkService implements the link resolution and management operations on
// top of the durable store and the cache.
type LinkService struct {
	repo            LinkRepository
	cache           LinkCache
	logger          *slog.Logger
	shortCodeLength int
}

// NewLinkService creates a new LinkService with the provided store, cache and short code length.
func NewLinkService(repo LinkRepository, cache LinkCache, logger *slog.Logger, shortCodeLength int) *LinkService {
	return &LinkService{
		repo:            repo,
		cache:           cache,
		logger:          logger,
		shortCodeLength: shortCodeLength,
	}
}

// ShortenLink validates the input and stores a new link. A custom alias is
// tried exactly once; a generated code is retried up to a maximum number of
// attempts on collision. The cache is populated best-effort on success.
func (s *LinkService) ShortenLink(ctx context.Context, params ShortenParams) (*models.Link, error) {
	const op = "service.LinkService.ShortenLink"
	const maxRetries = 5

	if err := validateURL(params.OriginalURL); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if params.ExpiresAt != nil && params.ExpiresAt.Before(time.Now()) {
		return nil, fmt.Errorf("%s: %w", op, ErrExpiryInPast)
	}

	if params.CustomAlias != "" {
		link, err := s.repo.Create(ctx, params.CustomAlias, params.OriginalURL, params.ExpiresAt, params.UserID)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to shorten url: %w", op, err)
		}

		s.populateCache(ctx, link)
		return link, nil
	}

	for i := 0; i < maxRetries; i++ {
		shortCode, err := generateShortCode(s.shortCodeLength)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to generate short code: %w", op, err)
		}

		link, err := s.repo.Create(ctx, shortCode, params.OriginalURL, params.ExpiresAt, params.UserID)
		if err != nil {
			if errors.Is(err, database.ErrShortCodeExists) {
				continue
			}

			return nil, fmt.Errorf("%s: failed to shorten url: %w", op, err)
		}

		s.populateCache(ctx, link)
		return link, nil
	}

	return nil, fmt.Errorf("%s: %w", op, ErrMaxRetriesExceeded)
}

// ResolveShortCode returns the original URL for a short code.
//
// The cache is consulted first; a hit returns immediately without touching
// the store, so warm-cache resolves don't contribute to visit statistics.
// On a miss the store is authoritative: expired links resolve to
// ErrLinkExpired, valid ones get their visit registered and the cache entry
// repopulated with a TTL equal to the remaining lifetime.
func (s *LinkService) ResolveShortCode(ctx context.Context, shortCode string) (string, error) {
	const op = "service.LinkService.ResolveShortCode"

	cachedURL, ok, err := s.cache.Get(ctx, shortCode)
	if err != nil {
		s.logger.Warn("cache lookup failed",
			slog.String("short_code", shortCode), slog.Any("error", err))
	}
	if ok {
		return cachedURL, nil
	}

	link, err := s.repo.GetByShortCode(ctx, shortCode)
	if err != nil {
		return "", fmt.Errorf("%s: failed to resolve short code: %w", op, err)
	}

	if link.ExpiredAt(time.Now()) {
		return "", fmt.Errorf("%s: %w", op, ErrLinkExpired)
	}

	if _, err := s.repo.RegisterVisit(ctx, shortCode); err != nil {
		return "", fmt.Errorf("%s: failed to register visit: %w", op, err)
	}

	s.populateCache(ctx, link)
	return link.OriginalURL, nil
}

// ModifyLink replaces the original URL of a link owned by the caller and
// refreshes the cache entry so the old URL stops being served.
func (s *LinkService) ModifyLink(ctx context.Context, shortCode, originalURL string, callerID *int64) (*models.Link, error) {
	const op = "service.LinkService.ModifyLink"

	if err := validateURL(originalURL); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	link, err := s.repo.Update(ctx, shortCode, originalURL, callerID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to modify link: %w", op, err)
	}

	s.populateCache(ctx, link)
	return link, nil
}

// RemoveLink deletes a link owned by the caller and invalidates its cache entry.
func (s *LinkService) RemoveLink(ctx context.Context, shortCode string, callerID *int64) error {
	const op = "service.LinkService.RemoveLink"

	if err := s.repo.Delete(ctx, shortCode, callerID); err != nil {
		return fmt.Errorf("%s: failed to remove link: %w", op, err)
	}

	if err := s.cache.Invalidate(ctx, shortCode); err != nil {
		s.logger.Warn("cache invalidation failed",
			slog.String("short_code", shortCode), slog.Any("error", err))
	}

	return nil
}

// GetLinkStats retrieves a link's usage statistics without registering a visit.
func (s *LinkService) GetLinkStats(ctx context.Context, shortCode string) (*models.Link, error) {
	const op = "service.LinkService.GetLinkStats"

	link, err := s.repo.GetByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get link stats: %w", op, err)
	}

	return link, nil
}

// SearchByURL returns every active link pointing at the given original URL.
func (s *LinkService) SearchByURL(ctx context.Context, originalURL string) ([]*models.Link, error) {
	const op = "service.LinkService.SearchByURL"

	links, err := s.repo.GetByOriginalURL(ctx, originalURL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to search links: %w", op, err)
	}

	return links, nil
}

// ListArchivedLinks returns the archived link records.
func (s *LinkService) ListArchivedLinks(ctx context.Context) ([]*models.ArchivedLink, error) {
	const op = "service.LinkService.ListArchivedLinks"

	links, err := s.repo.ListArchived(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list archived links: %w", op, err)
	}

	return links, nil
}

// populateCache writes the link into the cache with a TTL equal to its
// remaining lifetime. Failures are logged, never surfaced.
func (s *LinkService) populateCache(ctx context.Context, link *models.Link) {
	var ttl time.Duration
	if link.ExpiresAt != nil {
		ttl = time.Until(*link.ExpiresAt)
		if ttl <= 0 {
			return
		}
	}

	if err := s.cache.Set(ctx, link.ShortCode, link.OriginalURL, ttl); err != nil {
		s.logger.Warn("cache populate failed",
			slog.String("short_code", link.ShortCode), slog.Any("error", err))
	}
}

// generateShortCode draws a code uniformly from the alphanumeric alphabet.
func generateShortCode(length int) (string, error) {
	return gonanoid.Generate(shortCodeAlphabet, length)
}

// validateURL requires an absolute http(s) URL with a host.
func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrInvalidURL
	}

	return nil
}
