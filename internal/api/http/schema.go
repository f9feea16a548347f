package http

import (
	"time"

	"github.com/dkoryagin/shortlink/internal/models"
)

// shortenRequest represents the request payload for creating a shortened link.
type shortenRequest struct {
	URL         string     `json:"url" validate:"required,url"`
	CustomAlias string     `json:"custom_alias" validate:"omitempty,alphanum,max=64"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// updateRequest represents the request payload for replacing a link's URL.
type updateRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// cleanupRequest represents the request payload for triggering a lifecycle run.
type cleanupRequest struct {
	CleanupDays int `json:"cleanup_days" validate:"required,min=1"`
}

// linkResponse represents the response payload for link creation and modification.
type linkResponse struct {
	ID        int64      `json:"id"`
	ShortCode string     `json:"short_code"`
	URL       string     `json:"url"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func toLinkResponse(link *models.Link) linkResponse {
	return linkResponse{
		ID:        link.ID,
		ShortCode: link.ShortCode,
		URL:       link.OriginalURL,
		ExpiresAt: link.ExpiresAt,
		CreatedAt: link.CreatedAt,
	}
}

// resolveResponse represents the response payload for a resolved short code.
type resolveResponse struct {
	RedirectURL string `json:"redirect_url"`
}

// linkStatsResponse represents the response payload for link statistics.
type linkStatsResponse struct {
	ShortCode  string     `json:"short_code"`
	URL        string     `json:"url"`
	VisitCount int64      `json:"visit_count"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

func toLinkStatsResponse(link *models.Link) linkStatsResponse {
	return linkStatsResponse{
		ShortCode:  link.ShortCode,
		URL:        link.OriginalURL,
		VisitCount: link.VisitCount,
		CreatedAt:  link.CreatedAt,
		LastUsedAt: link.LastUsedAt,
		ExpiresAt:  link.ExpiresAt,
	}
}

// searchResultResponse represents one match in a search-by-URL response.
type searchResultResponse struct {
	ShortCode string    `json:"short_code"`
	CreatedAt time.Time `json:"created_at"`
}

func toSearchResultResponses(links []*models.Link) []searchResultResponse {
	results := make([]searchResultResponse, 0, len(links))
	for _, link := range links {
		results = append(results, searchResultResponse{
			ShortCode: link.ShortCode,
			CreatedAt: link.CreatedAt,
		})
	}

	return results
}

// archivedLinkResponse represents one archived record.
type archivedLinkResponse struct {
	ShortCode  string     `json:"short_code"`
	URL        string     `json:"url"`
	VisitCount int64      `json:"visit_count"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	ArchivedAt time.Time  `json:"archived_at"`
}

func toArchivedLinkResponses(links []*models.ArchivedLink) []archivedLinkResponse {
	results := make([]archivedLinkResponse, 0, len(links))
	for _, link := range links {
		results = append(results, archivedLinkResponse{
			ShortCode:  link.ShortCode,
			URL:        link.OriginalURL,
			VisitCount: link.VisitCount,
			CreatedAt:  link.CreatedAt,
			LastUsedAt: link.LastUsedAt,
			ArchivedAt: link.ArchivedAt,
		})
	}

	return results
}
