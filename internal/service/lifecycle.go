package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// defaultCleanupTimeout bounds a background archival run.
const defaultCleanupTimeout = 5 * time.Minute

// LifecycleManager archives links that have been unused beyond a retention
// window, moving them from the active set into the archived set.
type LifecycleManager struct {
	repo    LinkRepository
	cache   LinkCache
	logger  *slog.Logger
	timeout time.Duration
}

// NewLifecycleManager creates a new LifecycleManager over the given store and cache.
func NewLifecycleManager(repo LinkRepository, cache LinkCache, logger *slog.Logger) *LifecycleManager {
	return &LifecycleManager{
		repo:    repo,
		cache:   cache,
		logger:  logger,
		timeout: defaultCleanupTimeout,
	}
}

// ScheduleCleanup starts an archival run in the background and returns
// immediately. The run uses a detached context so it outlives the request
// that triggered it; its outcome is only reported through the logs.
func (m *LifecycleManager) ScheduleCleanup(cleanupDays int) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		archived, err := m.ArchiveUnused(ctx, cleanupDays)
		if err != nil {
			m.logger.Error("cleanup run failed", slog.Any("error", err))
			return
		}

		m.logger.Info("cleanup run finished",
			slog.Int("cleanup_days", cleanupDays), slog.Int("archived", archived))
	}()
}

// ArchiveUnused moves every link unused for more than cleanupDays into the
// archived set and invalidates its cache entry. Each link's archival is
// independently transactional: a failure is logged and the run continues
// with the remaining links. It returns the number of links archived.
func (m *LifecycleManager) ArchiveUnused(ctx context.Context, cleanupDays int) (int, error) {
	const op = "service.LifecycleManager.ArchiveUnused"

	cutoff := time.Now().AddDate(0, 0, -cleanupDays)

	links, err := m.repo.ListUnusedSince(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to list unused links: %w", op, err)
	}

	var archived int
	for _, link := range links {
		if _, err := m.repo.ArchiveAndRemove(ctx, link.ShortCode); err != nil {
			m.logger.Error("failed to archive link",
				slog.String("short_code", link.ShortCode), slog.Any("error", err))
			continue
		}
		archived++

		if err := m.cache.Invalidate(ctx, link.ShortCode); err != nil {
			m.logger.Warn("cache invalidation failed",
				slog.String("short_code", link.ShortCode), slog.Any("error", err))
		}
	}

	return archived, nil
}
