package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/dkoryagin/shortlink/internal/database"
	"github.com/dkoryagin/shortlink/internal/service"
	"github.com/dkoryagin/shortlink/pkg/response"
)

// handlePing handles health check requests to ensure the server is running.
func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "pong")
}

// handleShortenLink handles POST requests to create a shortened link.
//
// The request must contain a valid URL and may carry a custom alias and an
// expiration timestamp. A taken short code yields 409, an expiration in the
// past yields 400.
func handleShortenLink(svc LinkService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleShortenLink"
	const successMsg = "The URL has been shortened successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		var req shortenRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		link, err := svc.ShortenLink(r.Context(), service.ShortenParams{
			OriginalURL: req.URL,
			CustomAlias: req.CustomAlias,
			ExpiresAt:   req.ExpiresAt,
			UserID:      callerID(r.Context()),
		})
		if err != nil {
			switch {
			case errors.Is(err, database.ErrShortCodeExists):
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, response.ConflictResponse)
			case errors.Is(err, service.ErrExpiryInPast):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.PastExpirationResponse)
			case errors.Is(err, service.ErrInvalidURL):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.BadRequestResponse)
			default:
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.ServerErrorResponse)
			}
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.SuccessResponse(successMsg, toLinkResponse(link)))
	}
}

// handleResolveShortCode handles GET requests to resolve a short code into
// the original URL. Expired links are reported exactly like missing ones.
func handleResolveShortCode(svc LinkService) http.HandlerFunc {
	const op = "api.http.handleResolveShortCode"
	const successMsg = "The short code was successfully resolved."

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		redirectURL, err := svc.ResolveShortCode(r.Context(), shortCode)
		if err != nil {
			if errors.Is(err, database.ErrLinkNotFound) || errors.Is(err, service.ErrLinkExpired) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, resolveResponse{RedirectURL: redirectURL}))
	}
}

// handleModifyLink handles PUT requests to replace the URL behind a short
// code. The caller must own the link.
func handleModifyLink(svc LinkService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleModifyLink"
	const successMsg = "The link was successfully modified."

	return func(w http.ResponseWriter, r *http.Request) {
		var req updateRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		shortCode := chi.URLParam(r, "shortCode")

		link, err := svc.ModifyLink(r.Context(), shortCode, req.URL, callerID(r.Context()))
		if err != nil {
			switch {
			case errors.Is(err, database.ErrLinkNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
			case errors.Is(err, database.ErrPermissionDenied):
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.ForbiddenResponse)
			default:
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.ServerErrorResponse)
			}
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toLinkResponse(link)))
	}
}

// handleRemoveLink handles DELETE requests for a short code. The caller
// must own the link.
func handleRemoveLink(svc LinkService) http.HandlerFunc {
	const op = "api.http.handleRemoveLink"
	const successMsg = "The link was successfully deleted."

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		err := svc.RemoveLink(r.Context(), shortCode, callerID(r.Context()))
		if err != nil {
			switch {
			case errors.Is(err, database.ErrLinkNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
			case errors.Is(err, database.ErrPermissionDenied):
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.ForbiddenResponse)
			default:
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.ServerErrorResponse)
			}
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg))
	}
}

// handleGetLinkStats handles GET requests for usage statistics of a link.
// Reading statistics doesn't count as a visit.
func handleGetLinkStats(svc LinkService) http.HandlerFunc {
	const op = "api.http.handleGetLinkStats"
	const successMsg = "The link statistics retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		link, err := svc.GetLinkStats(r.Context(), shortCode)
		if err != nil {
			if errors.Is(err, database.ErrLinkNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toLinkStatsResponse(link)))
	}
}

// handleSearchLinks handles GET requests to find every short code pointing
// at the given original URL.
func handleSearchLinks(svc LinkService) http.HandlerFunc {
	const op = "api.http.handleSearchLinks"
	const successMsg = "The links retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		originalURL := r.URL.Query().Get("url")
		if originalURL == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		links, err := svc.SearchByURL(r.Context(), originalURL)
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		if len(links) == 0 {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.ResourceNotFoundResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toSearchResultResponses(links)))
	}
}

// handleTriggerCleanup handles POST requests that schedule a background
// archival run. The run's outcome is not delivered to the caller.
func handleTriggerCleanup(lifecycle LifecycleScheduler, validate *validator.Validate) http.HandlerFunc {
	const successMsg = "Cleanup started in background."

	return func(w http.ResponseWriter, r *http.Request) {
		var req cleanupRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		lifecycle.ScheduleCleanup(req.CleanupDays)

		render.Status(r, http.StatusAccepted)
		render.JSON(w, r, response.SuccessResponse(successMsg))
	}
}

// handleListArchivedLinks handles GET requests for the archived history.
func handleListArchivedLinks(svc LinkService) http.HandlerFunc {
	const op = "api.http.handleListArchivedLinks"
	const successMsg = "The archived links retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		links, err := svc.ListArchivedLinks(r.Context())
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toArchivedLinkResponses(links)))
	}
}
