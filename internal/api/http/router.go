package http

import (
	"context"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"

	"github.com/dkoryagin/shortlink/internal/models"
	"github.com/dkoryagin/shortlink/internal/service"
)

// LinkService defines the interface for the core link business logic.
type LinkService interface {
	// ShortenLink validates the input and creates a shortened link.
	ShortenLink(ctx context.Context, params service.ShortenParams) (*models.Link, error)

	// ResolveShortCode returns the original URL behind a short code.
	ResolveShortCode(ctx context.Context, shortCode string) (string, error)

	// ModifyLink replaces the URL behind a short code owned by the caller.
	ModifyLink(ctx context.Context, shortCode, originalURL string, callerID *int64) (*models.Link, error)

	// RemoveLink deletes a link owned by the caller.
	RemoveLink(ctx context.Context, shortCode string, callerID *int64) error

	// GetLinkStats retrieves a link's usage statistics.
	GetLinkStats(ctx context.Context, shortCode string) (*models.Link, error)

	// SearchByURL returns every active link for the given original URL.
	SearchByURL(ctx context.Context, originalURL string) ([]*models.Link, error)

	// ListArchivedLinks returns the archived link records.
	ListArchivedLinks(ctx context.Context) ([]*models.ArchivedLink, error)
}

// LifecycleScheduler triggers background archival runs.
type LifecycleScheduler interface {
	ScheduleCleanup(cleanupDays int)
}

// getValidate initializes a new validator instance for validating incoming request payloads.
// It customizes tag name extraction from struct fields to match JSON tags.
func getValidate() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return validate
}

// NewRouter initializes and returns a new HTTP router with all routes and middleware configured.
func NewRouter(logger *httplog.Logger, linkSvc LinkService, lifecycle LifecycleScheduler, authn Authenticator) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*"},
		AllowedMethods:   []string{"POST", "GET", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept", "Authorization"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		validate := getValidate()

		r.Get("/ping", handlePing)

		r.Route("/links", func(r chi.Router) {
			r.Use(identity(authn))

			r.Post("/", handleShortenLink(linkSvc, validate))
			r.Get("/search", handleSearchLinks(linkSvc))
			r.Get("/archived", handleListArchivedLinks(linkSvc))
			r.Post("/cleanup", handleTriggerCleanup(lifecycle, validate))

			r.Route("/{shortCode}", func(r chi.Router) {
				r.Get("/", handleResolveShortCode(linkSvc))
				r.Put("/", handleModifyLink(linkSvc, validate))
				r.Delete("/", handleRemoveLink(linkSvc))
				r.Get("/stats", handleGetLinkStats(linkSvc))
			})
		})
	})

	return r
}
