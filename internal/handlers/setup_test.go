package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/alrena-group/amqms-portal/internal/auth"
	"github.com/alrena-group/amqms-portal/internal/cache"
	"github.com/alrena-group/amqms-portal/internal/config"
	"github.com/alrena-group/amqms-portal/internal/events"
	"github.com/alrena-group/amqms-portal/internal/repositories/postgres"
	"github.com/alrena-group/amqms-portal/internal/services"
	"github.com/alrena-group/amqms-portal/internal/testutil"
	"github.com/alrena-group/amqms-portal/internal/utils"
	"github.com/alrena-group/amqms-portal/internal/validator"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	db        *gorm.DB
	router    *gin.Engine
	sessions  *auth.SessionManager
	publisher *events.MockEventPublisher
}

type serverOption func(*HandlerManagerConfig)

func withRateLimit(limit int) serverOption {
	return func(cfg *HandlerManagerConfig) { cfg.RateLimitPerMinute = limit }
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()

	db := testutil.NewTestDB(t)
	client, _ := testutil.NewTestRedis(t)
	cacheManager := cache.NewCacheManager(client)
	slogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	logger := utils.NewSlogLogger(slogger)
	publisher := events.NewMockEventPublisher(slogger)

	repo := postgres.NewPostgreSQLRepository(postgres.RepositoryConfig{
		DB:           db,
		RedisClient:  client,
		CacheManager: cacheManager,
	})
	magicLinks := auth.NewMagicLinkIssuer(config.MagicLinkConfig{
		Secret: "test-magic-link-secret-0123456789abcdef",
		TTL:    15 * time.Minute,
	}, cacheManager.Token)

	serviceManager := services.NewServiceManager(services.ServiceManagerConfig{
		Repo:          repo,
		CacheManager:  cacheManager,
		Publisher:     publisher,
		MagicLinks:    magicLinks,
		PublicBaseURL: "http://portal.test",
		Location:      time.UTC,
	}, slogger, validator.New())
	require.NoError(t, serviceManager.Initialize(context.Background()))

	sessions := auth.NewSessionManager(config.SessionConfig{
		Secret:   "test-session-secret-0123456789abcdef",
		Name:     "amqms_session",
		MaxAge:   3600,
		SameSite: "lax",
	})

	cfg := HandlerManagerConfig{
		Sessions:    sessions,
		RateLimiter: cacheManager.RateLimit,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	router := gin.New()
	SetupMiddleware(router, logger, []string{"http://localhost:3000"})
	NewHandlerManager(serviceManager, cfg, logger).SetupRoutes(router)

	return &testServer{
		db:        db,
		router:    router,
		sessions:  sessions,
		publisher: publisher,
	}
}

// sessionCookies signs the profile in without going through a login endpoint
func (s *testServer) sessionCookies(t *testing.T, profileID uuid.UUID) []*http.Cookie {
	t.Helper()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, s.sessions.Start(rec, req, profileID))
	return rec.Result().Cookies()
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest), rec.Body.String())
}

func enrollBody(courseID uuid.UUID, email string) map[string]string {
	return map[string]string{
		"courseId": courseID.String(),
		"name":     "Grace Nakato",
		"company":  "Nile Breweries",
		"email":    email,
		"phone":    "+256 772 123456",
	}
}
