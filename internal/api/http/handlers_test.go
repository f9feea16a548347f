package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/go-chi/httplog/v2"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/dkoryagin/shortlink/internal/auth"
	"github.com/dkoryagin/shortlink/internal/database"
	"github.com/dkoryagin/shortlink/internal/models"
	"github.com/dkoryagin/shortlink/internal/service"
	"github.com/dkoryagin/shortlink/pkg/response"
)

type MockLinkService struct {
	mock.Mock
}

func (s *MockLinkService) ShortenLink(ctx context.Context, params service.ShortenParams) (*models.Link, error) {
	args := s.Called(ctx, params)
	link, _ := args.Get(0).(*models.Link)
	return link, args.Error(1)
}

func (s *MockLinkService) ResolveShortCode(ctx context.Context, shortCode string) (string, error) {
	args := s.Called(ctx, shortCode)
	return args.String(0), args.Error(1)
}

func (s *MockLinkService) ModifyLink(ctx context.Context, shortCode, originalURL string, callerID *int64) (*models.Link, error) {
	args := s.Called(ctx, shortCode, originalURL, callerID)
	link, _ := args.Get(0).(*models.Link)
	return link, args.Error(1)
}

func (s *MockLinkService) RemoveLink(ctx context.Context, shortCode string, callerID *int64) error {
	args := s.Called(ctx, shortCode, callerID)
	return args.Error(0)
}

func (s *MockLinkService) GetLinkStats(ctx context.Context, shortCode string) (*models.Link, error) {
	args := s.Called(ctx, shortCode)
	link, _ := args.Get(0).(*models.Link)
	return link, args.Error(1)
}

func (s *MockLinkService) SearchByURL(ctx context.Context, originalURL string) ([]*models.Link, error) {
	args := s.Called(ctx, originalURL)
	links, _ := args.Get(0).([]*models.Link)
	return links, args.Error(1)
}

func (s *MockLinkService) ListArchivedLinks(ctx context.Context) ([]*models.ArchivedLink, error) {
	args := s.Called(ctx)
	links, _ := args.Get(0).([]*models.ArchivedLink)
	return links, args.Error(1)
}

type MockLifecycleScheduler struct {
	mock.Mock
}

func (s *MockLifecycleScheduler) ScheduleCleanup(cleanupDays int) {
	s.Called(cleanupDays)
}

const testJWTSecret = "test-secret"

type HandlersTestSuite struct {
	suite.Suite
	logger        *httplog.Logger
	authn         *auth.TokenAuthenticator
	linkSvcMock   *MockLinkService
	lifecycleMock *MockLifecycleScheduler
	server        *httptest.Server
	e             *httpexpect.Expect
}

func (suite *HandlersTestSuite) SetupSuite() {
	suite.logger = httplog.NewLogger("", httplog.Options{Writer: io.Discard})
	suite.authn = auth.NewTokenAuthenticator(testJWTSecret)
}

func (suite *HandlersTestSuite) SetupSubTest() {
	suite.linkSvcMock = new(MockLinkService)
	suite.lifecycleMock = new(MockLifecycleScheduler)
	router := NewRouter(suite.logger, suite.linkSvcMock, suite.lifecycleMock, suite.authn)
	suite.server = httptest.NewServer(router)
	suite.e = httpexpect.Default(suite.T(), suite.server.URL)
}

func (suite *HandlersTestSuite) TearDownSubTest() {
	suite.linkSvcMock.AssertExpectations(suite.T())
	suite.lifecycleMock.AssertExpectations(suite.T())
	suite.server.Close()
}

func (suite *HandlersTestSuite) bearerToken(userID int64) string {
	token, err := suite.authn.NewToken(userID, time.Minute)
	suite.Require().NoError(err)
	return "Bearer " + token
}

func (suite *HandlersTestSuite) TestPing() {
	const path = "/api/v1/ping"

	suite.Run("success", func() {
		suite.e.GET(path).
			Expect().
			Status(http.StatusOK).
			Text().IsEqual("pong\n")
	})
}

func (suite *HandlersTestSuite) TestShortenLink() {
	const path = "/api/v1/links"

	suite.Run("empty request body", func() {
		suite.e.POST(path).
			Expect().
			Status(http.StatusBadRequest).
			HasContentType("application/json").
			JSON().Object().
			HasValue("status", response.StatusError).
			HasValue("message", response.EmptyRequestBodyResponse.Message)
	})

	suite.Run("validation error", func() {
		suite.e.POST(path).
			WithJSON(map[string]string{
				"url": "invalid url",
			}).
			Expect().
			Status(http.StatusBadRequest).
			HasContentType("application/json").
			JSON().Object().
			HasValue("status", response.StatusError).
			ContainsKey("message").
			ContainsKey("details")
	})

	suite.Run("invalid token", func() {
		suite.e.POST(path).
			WithHeader("Authorization", "Bearer garbage").
			WithJSON(map[string]string{
				"url": "https://example.com",
			}).
			Expect().
			Status(http.StatusUnauthorized).
			HasContentType("application/json").
			JSON().Object().
			HasValue("status", response.StatusError).
			HasValue("message", response.UnauthorizedResponse.Message)
	})

	suite.Run("custom alias conflict", func() {
		suite.linkSvcMock.
			On("ShortenLink", mock.Anything, service.ShortenParams{
				OriginalURL: "https://example.com",
				CustomAlias: "docs",
			}).
			Times(1).
			Return(nil, database.ErrShortCodeExists)

		suite.e.POST(path).
			WithJSON(map[string]string{
				"url":          "https://example.com",
				"custom_alias": "docs",
			}).
			Expect().
			Status(http.StatusConflict).
			HasContentType("application/json").
			JSON().Object().
			HasValue("status", response.StatusError).
			HasValue("message", response.ConflictResponse.Message)
	})

	suite.Run("expiration in the past", func() {
		suite.linkSvcMock.
			On("ShortenLink", mock.Anything, mock.AnythingOfType("service.ShortenParams")).
			Times(1).
			Return(nil, service.ErrExpiryInPast)

		suite.e.POST(path).
			WithJSON(map[string]any{
				"url":        "https://example.com",
				"expires_at": time.Now().Add(-time.Hour).Format(time.RFC3339),
			}).
			Expect().
			Status(http.StatusBadRequest).
			HasContentType("application/json").
			JSON().Object().
			HasValue("status", response.StatusError).
			HasValue("message", response.PastExpirationResponse.Message)
	})

	suite.Run("server error", func() {
		suite.linkSvcMock.
			On("ShortenLink", mock.Anything, mock.AnythingOfType("service.ShortenParams")).
			Times(1).
			Return(nil, errors.New("unknown error"))

		suite.e.POST(path).
			WithJSON(map[string]string{
				"url": "https://example.com",
			}).
			Expect().
			Status(http.StatusInternalServerError).
			HasContentType("application/json").
			JSON().Object().
			HasValue("status", response.StatusError).
			HasValue("message", response.ServerErrorResponse.Message)
	})

	suite.Run("anonymous success", func() {
		suite.linkSvcMock.
			On("ShortenLink", mock.Anything, service.ShortenParams{
				OriginalURL: "https://example.com",
			}).
			Times(1).
			Return(&models.Link{
				ID:          1,
				ShortCode:   "abc123",
				OriginalURL: "https://example.com",
			}, nil)

		suite.e.POST(path).
			WithJSON(map[string]string{
				"url": "https://example.com",
			}).
			Expect().
			Status(http.StatusCreated).
			HasContentType("application/json").
			JSON().Object().
			HasValue("status", response.StatusSuccess).
			Value("data").Object().
			HasValue("short_code", "abc123").
			HasValue("url", "https://example.com")
	})

	suite.Run("authenticated caller becomes the owner", func() {
		userID := int64(42)

		suite.linkSvcMock.
			On("ShortenLink", mock.Anything, mock.MatchedBy(func(params service.ShortenParams) bool {
				return params.UserID != nil && *params.UserID == userID
			})).
			Times(1).
			Return(&models.Link{
				ID:          1,
				ShortCode:   "abc123",
				OriginalURL: "https://example.com",
				UserID:      &userID,
			}, nil)

		suite.e.POST(path).
			WithHeader("Authorization", suite.bearerToken(userID)).
			WithJSON(map[string]string{
				"url": "https://example.com",
			}).
			Expect().
			Status(http.StatusCreated)
	})
}

func (suite *HandlersTestSuite) TestResolveShortCode() {
	const path = "/api/v1/links/abc123"

	suite.Run("link not found", func() {
		suite.linkSvcMock.
			On("ResolveShortCode", mock.Anything, "abc123").
			Times(1).
			Return("", database.ErrLinkNotFound)

		suite.e.GET(path).
			Expect().
			Status(http.StatusNotFound).
			HasContentType("application/json").
			JSON().Object().
			HasValue("status", response.StatusError).
			HasValue("message", response.ResourceNotFoundResponse.Message)
	})

	suite.Run("expired link looks like a missing one", func() {
		suite.linkSvcMock.
			On("ResolveShortCode", mock.Anything, "abc123").
			Times(1).
			Return("", service.ErrLinkExpired)

		suite.e.GET(path).
			Expect().
			Status(http.StatusNotFound).
			HasContentType("application/json").
			JSON().Object().
			HasValue("status", response.StatusError).
			HasValue("message", response.ResourceNotFoundResponse.Message)
	})

	suite.Run("success", func() {
		suite.linkSvcMock.
			On("ResolveShortCode", mock.Anything, "abc123").
			Times(1).
			Return("https://example.com", nil)

		suite.e.GET(path).
			Expect().
			Status(http.StatusOK).
			HasContentType("application/json").
			JSON().Object().
			HasValue("status", response.StatusSuccess).
			Value("data").Object().
			HasValue("redirect_url", "https://example.com")
	})
}

func (suite *HandlersTestSuite) TestModifyLink() {
	const path = "/api/v1/links/abc123"

	suite.Run("permission denied", func() {
		userID := int64(7)

		suite.linkSvcMock.
			On("ModifyLink", mock.Anything, "abc123", "https://new.example.com", &userID).
			Times(1).
			Return(nil, database.ErrPermissionDenied)

		suite.e.PUT(path).
			WithHeader("Authorization", suite.bearerToken(userID)).
			WithJSON(map[string]string{
				"url": "https://new.example.com",
			}).
			Expect().
			Status(http.StatusForbidden).
			HasContentType("application/json").
			JSON().Object().
			HasValue("status", response.StatusError).
			HasValue("message", response.ForbiddenResponse.Message)
	})

	suite.Run("link not found", func() {
		userID := int64(42)

		suite.linkSvcMock.
			On("ModifyLink", mock.Anything, "abc123", "https://new.example.com", &userID).
			Times(1).
			Return(nil, database.ErrLinkNotFound)

		suite.e.PUT(path).
			WithHeader("Authorization", suite.bearerToken(userID)).
			WithJSON(map[string]string{
				"url": "https://new.example.com",
			}).
			Expect().
			Status(http.StatusNotFound)
	})

	suite.Run("success", func() {
		userID := int64(42)

		suite.linkSvcMock.
			On("ModifyLink", mock.Anything, "abc123", "https://new.example.com", &userID).
			Times(1).
			Return(&models.Link{
				ID:          1,
				ShortCode:   "abc123",
				OriginalURL: "https://new.example.com",
				UserID:      &userID,
			}, nil)

		suite.e.PUT(path).
			WithHeader("Authorization", suite.bearerToken(userID)).
			WithJSON(map[string]string{
				"url": "https://new.example.com",
			}).
			Expect().
			Status(http.StatusOK).
			HasContentType("application/json").
			JSON().Object().
			HasValue("status", response.StatusSuccess).
			Value("data").Object().
			HasValue("url", "https://new.example.com")
	})
}

func (suite *HandlersTestSuite) TestRemoveLink() {
	const path = "/api/v1/links/abc123"

	suite.Run("anonymous caller is forbidden", func() {
		suite.linkSvcMock.
			On("RemoveLink", mock.Anything, "abc123", (*int64)(nil)).
			Times(1).
			Return(database.ErrPermissionDenied)

		suite.e.DELETE(path).
			Expect().
			Status(http.StatusForbidden)
	})

	suite.Run("success", func() {
		userID := int64(42)

		suite.linkSvcMock.
			On("RemoveLink", mock.Anything, "abc123", &userID).
			Times(1).
			Return(nil)

		suite.e.DELETE(path).
			WithHeader("Authorization", suite.bearerToken(userID)).
			Expect().
			Status(http.StatusOK).
			HasContentType("application/json").
			JSON().Object().
			HasValue("status", response.StatusSuccess)
	})
}

func (suite *HandlersTestSuite) TestGetLinkStats() {
	const path = "/api/v1/links/abc123/stats"

	suite.Run("link not found", func() {
		suite.linkSvcMock.
			On("GetLinkStats", mock.Anything, "abc123").
			Times(1).
			Return(nil, database.ErrLinkNotFound)

		suite.e.GET(path).
			Expect().
			Status(http.StatusNotFound)
	})

	suite.Run("success", func() {
		lastUsed := time.Now()

		suite.linkSvcMock.
			On("GetLinkStats", mock.Anything, "abc123").
			Times(1).
			Return(&models.Link{
				ID:          1,
				ShortCode:   "abc123",
				OriginalURL: "https://example.com",
				VisitCount:  7,
				LastUsedAt:  &lastUsed,
			}, nil)

		suite.e.GET(path).
			Expect().
			Status(http.StatusOK).
			HasContentType("application/json").
			JSON().Object().
			HasValue("status", response.StatusSuccess).
			Value("data").Object().
			HasValue("short_code", "abc123").
			HasValue("visit_count", 7).
			ContainsKey("last_used_at")
	})
}

func (suite *HandlersTestSuite) TestSearchLinks() {
	const path = "/api/v1/links/search"

	suite.Run("missing url parameter", func() {
		suite.e.GET(path).
			Expect().
			Status(http.StatusBadRequest).
			HasContentType("application/json").
			JSON().Object().
			HasValue("status", response.StatusError).
			HasValue("message", response.BadRequestResponse.Message)
	})

	suite.Run("no links found", func() {
		suite.linkSvcMock.
			On("SearchByURL", mock.Anything, "https://example.com").
			Times(1).
			Return(nil, nil)

		suite.e.GET(path).
			WithQuery("url", "https://example.com").
			Expect().
			Status(http.StatusNotFound)
	})

	suite.Run("success", func() {
		suite.linkSvcMock.
			On("SearchByURL", mock.Anything, "https://example.com").
			Times(1).
			Return([]*models.Link{
				{ShortCode: "abc123", OriginalURL: "https://example.com"},
				{ShortCode: "def456", OriginalURL: "https://example.com"},
			}, nil)

		suite.e.GET(path).
			WithQuery("url", "https://example.com").
			Expect().
			Status(http.StatusOK).
			HasContentType("application/json").
			JSON().Object().
			HasValue("status", response.StatusSuccess).
			Value("data").Array().Length().IsEqual(2)
	})
}

func (suite *HandlersTestSuite) TestTriggerCleanup() {
	const path = "/api/v1/links/cleanup"

	suite.Run("validation error", func() {
		suite.e.POST(path).
			WithJSON(map[string]int{
				"cleanup_days": 0,
			}).
			Expect().
			Status(http.StatusBadRequest).
			HasContentType("application/json").
			JSON().Object().
			HasValue("status", response.StatusError).
			ContainsKey("details")
	})

	suite.Run("success", func() {
		suite.lifecycleMock.
			On("ScheduleCleanup", 30).
			Times(1).
			Return()

		suite.e.POST(path).
			WithJSON(map[string]int{
				"cleanup_days": 30,
			}).
			Expect().
			Status(http.StatusAccepted).
			HasContentType("application/json").
			JSON().Object().
			HasValue("status", response.StatusSuccess)
	})
}

func (suite *HandlersTestSuite) TestListArchivedLinks() {
	const path = "/api/v1/links/archived"

	suite.Run("server error", func() {
		suite.linkSvcMock.
			On("ListArchivedLinks", mock.Anything).
			Times(1).
			Return(nil, errors.New("unknown error"))

		suite.e.GET(path).
			Expect().
			Status(http.StatusInternalServerError)
	})

	suite.Run("success", func() {
		suite.linkSvcMock.
			On("ListArchivedLinks", mock.Anything).
			Times(1).
			Return([]*models.ArchivedLink{
				{
					ShortCode:   "abc123",
					OriginalURL: "https://example.com",
					VisitCount:  9,
					ArchivedAt:  time.Now(),
				},
			}, nil)

		suite.e.GET(path).
			Expect().
			Status(http.StatusOK).
			HasContentType("application/json").
			JSON().Object().
			HasValue("status", response.StatusSuccess).
			Value("data").Array().Length().IsEqual(1)
	})
}

func TestHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}
