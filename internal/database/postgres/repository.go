package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/dkoryagin/shortlink/internal/database"
	"github.com/dkoryagin/shortlink/internal/models"
)

type linkRecord struct {
	ID          int64      `db:"id"`
	ShortCode   string     `db:"short_code"`
	OriginalURL string     `db:"original_url"`
	VisitCount  int64      `db:"visit_count"`
	CreatedAt   time.Time  `db:"created_at"`
	LastUsedAt  *time.Time `db:"last_used_at"`
	ExpiresAt   *time.Time `db:"expires_at"`
	UserID      *int64     `db:"user_id"`
}

func (r *linkRecord) ToLink() *models.Link {
	return &models.Link{
		ID:          r.ID,
		ShortCode:   r.ShortCode,
		OriginalURL: r.OriginalURL,
		VisitCount:  r.VisitCount,
		CreatedAt:   r.CreatedAt,
		LastUsedAt:  r.LastUsedAt,
		ExpiresAt:   r.ExpiresAt,
		UserID:      r.UserID,
	}
}

type archivedLinkRecord struct {
	ID          int64      `db:"id"`
	ShortCode   string     `db:"short_code"`
	OriginalURL string     `db:"original_url"`
	VisitCount  int64      `db:"visit_count"`
	CreatedAt   time.Time  `db:"created_at"`
	LastUsedAt  *time.Time `db:"last_used_at"`
	ArchivedAt  time.Time  `db:"archived_at"`
	UserID      *int64     `db:"user_id"`
}

func (r *archivedLinkRecord) ToArchivedLink() *models.ArchivedLink {
	return &models.ArchivedLink{
		ID:          r.ID,
		ShortCode:   r.ShortCode,
		OriginalURL: r.OriginalURL,
		VisitCount:  r.VisitCount,
		CreatedAt:   r.CreatedAt,
		LastUsedAt:  r.LastUsedAt,
		ArchivedAt:  r.ArchivedAt,
		UserID:      r.UserID,
	}
}

type LinkRepository struct {
	db *sqlx.DB
}

func NewLinkRepository(db *sqlx.DB) *LinkRepository {
	return &LinkRepository{
		db: db,
	}
}

// Create inserts a new link. The uniqueness of the short code against
// active links is enforced by the storage constraint; archived short codes
// stay reserved via the NOT EXISTS guard in the same statement, so both
// collisions surface as database.ErrShortCodeExists.
func (r *LinkRepository) Create(ctx context.Context, shortCode, originalURL string, expiresAt *time.Time, userID *int64) (*models.Link, error) {
	const op = "database.postgres.LinkRepository.Create"

	rec := new(linkRecord)
	query := `INSERT INTO links(short_code, original_url, expires_at, user_id)
		SELECT $1, $2, $3, $4
		WHERE NOT EXISTS (SELECT 1 FROM archived_links WHERE short_code = $1)
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query, shortCode, originalURL, expiresAt, userID)
	if err != nil {
		if isUniqueViolationError(err) || errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrShortCodeExists)
		}

		return nil, fmt.Errorf("%s: failed to create link record: %w", op, err)
	}

	return rec.ToLink(), nil
}

// GetByShortCode retrieves an active link without touching its usage stats.
func (r *LinkRepository) GetByShortCode(ctx context.Context, shortCode string) (*models.Link, error) {
	const op = "database.postgres.LinkRepository.GetByShortCode"

	rec := new(linkRecord)
	query := `SELECT * FROM links WHERE short_code = $1`

	err := r.db.GetContext(ctx, rec, query, shortCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get link record: %w", op, err)
	}

	return rec.ToLink(), nil
}

// GetByOriginalURL retrieves every active link pointing at the given URL.
func (r *LinkRepository) GetByOriginalURL(ctx context.Context, originalURL string) ([]*models.Link, error) {
	const op = "database.postgres.LinkRepository.GetByOriginalURL"

	var recs []linkRecord
	query := `SELECT * FROM links WHERE original_url = $1 ORDER BY created_at`

	if err := r.db.SelectContext(ctx, &recs, query, originalURL); err != nil {
		return nil, fmt.Errorf("%s: failed to get link records: %w", op, err)
	}

	links := make([]*models.Link, 0, len(recs))
	for i := range recs {
		links = append(links, recs[i].ToLink())
	}

	return links, nil
}

// RegisterVisit increments the visit count and stamps last_used_at for a
// successful resolve.
func (r *LinkRepository) RegisterVisit(ctx context.Context, shortCode string) (*models.Link, error) {
	const op = "database.postgres.LinkRepository.RegisterVisit"

	rec := new(linkRecord)
	query := `UPDATE links
		SET visit_count = visit_count + 1,
			last_used_at = now()
		WHERE short_code = $1
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query, shortCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to register visit: %w", op, err)
	}

	return rec.ToLink(), nil
}

// Update replaces the original URL of a link owned by the caller. Ownership
// is validated against the same row the mutation operates on, under FOR
// UPDATE, so a concurrent ownership change can't slip between check and act.
func (r *LinkRepository) Update(ctx context.Context, shortCode, originalURL string, callerID *int64) (*models.Link, error) {
	const op = "database.postgres.LinkRepository.Update"

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer tx.Rollback() //nolint:errcheck

	rec, err := lockLink(ctx, tx, op, shortCode, callerID)
	if err != nil {
		return nil, err
	}

	query := `UPDATE links
		SET original_url = $1,
			last_used_at = now()
		WHERE short_code = $2
		RETURNING *`

	if err := tx.GetContext(ctx, rec, query, originalURL, shortCode); err != nil {
		return nil, fmt.Errorf("%s: failed to update link record: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	return rec.ToLink(), nil
}

// Delete removes a link owned by the caller from the active set.
func (r *LinkRepository) Delete(ctx context.Context, shortCode string, callerID *int64) error {
	const op = "database.postgres.LinkRepository.Delete"

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := lockLink(ctx, tx, op, shortCode, callerID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM links WHERE short_code = $1`, shortCode); err != nil {
		return fmt.Errorf("%s: failed to delete link record: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	return nil
}

// lockLink reads a link row FOR UPDATE and validates ownership. Anonymous
// links have no owner and anonymous callers own nothing, so both cases are
// rejected.
func lockLink(ctx context.Context, tx *sqlx.Tx, op, shortCode string, callerID *int64) (*linkRecord, error) {
	rec := new(linkRecord)
	query := `SELECT * FROM links WHERE short_code = $1 FOR UPDATE`

	err := tx.GetContext(ctx, rec, query, shortCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to lock link record: %w", op, err)
	}

	if rec.UserID == nil || callerID == nil || *rec.UserID != *callerID {
		return nil, fmt.Errorf("%s: %w", op, database.ErrPermissionDenied)
	}

	return rec, nil
}

// ArchiveAndRemove atomically moves a link from the active set into the
// archived set. The delete and the insert share one transaction, so no
// short code is ever observable as both active and archived.
func (r *LinkRepository) ArchiveAndRemove(ctx context.Context, shortCode string) (*models.ArchivedLink, error) {
	const op = "database.postgres.LinkRepository.ArchiveAndRemove"

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer tx.Rollback() //nolint:errcheck

	rec := new(linkRecord)
	query := `DELETE FROM links WHERE short_code = $1 RETURNING *`

	err = tx.GetContext(ctx, rec, query, shortCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to remove link record: %w", op, err)
	}

	archived := new(archivedLinkRecord)
	query = `INSERT INTO archived_links(short_code, original_url, visit_count, created_at, last_used_at, user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *`

	err = tx.GetContext(ctx, archived, query,
		rec.ShortCode, rec.OriginalURL, rec.VisitCount, rec.CreatedAt, rec.LastUsedAt, rec.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create archived link record: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	return archived.ToArchivedLink(), nil
}

// ListUnusedSince returns every active link whose last use predates the
// cutoff. Links that were never used age by their creation time.
func (r *LinkRepository) ListUnusedSince(ctx context.Context, cutoff time.Time) ([]*models.Link, error) {
	const op = "database.postgres.LinkRepository.ListUnusedSince"

	var recs []linkRecord
	query := `SELECT * FROM links WHERE COALESCE(last_used_at, created_at) < $1`

	if err := r.db.SelectContext(ctx, &recs, query, cutoff); err != nil {
		return nil, fmt.Errorf("%s: failed to list unused links: %w", op, err)
	}

	links := make([]*models.Link, 0, len(recs))
	for i := range recs {
		links = append(links, recs[i].ToLink())
	}

	return links, nil
}

// ListArchived returns the archived records, newest first.
func (r *LinkRepository) ListArchived(ctx context.Context) ([]*models.ArchivedLink, error) {
	const op = "database.postgres.LinkRepository.ListArchived"

	var recs []archivedLinkRecord
	query := `SELECT * FROM archived_links ORDER BY archived_at DESC`

	if err := r.db.SelectContext(ctx, &recs, query); err != nil {
		return nil, fmt.Errorf("%s: failed to list archived links: %w", op, err)
	}

	links := make([]*models.ArchivedLink, 0, len(recs))
	for i := range recs {
		links = append(links, recs[i].ToArchivedLink())
	}

	return links, nil
}
