package services

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"gorm.io/gorm"

	"github.com/alrena-group/amqms-portal/internal/auth"
	"github.com/alrena-group/amqms-portal/internal/cache"
	"github.com/alrena-group/amqms-portal/internal/config"
	"github.com/alrena-group/amqms-portal/internal/events"
	"github.com/alrena-group/amqms-portal/internal/models"
	"github.com/alrena-group/amqms-portal/internal/repositories"
	"github.com/alrena-group/amqms-portal/internal/repositories/postgres"
	"github.com/alrena-group/amqms-portal/internal/testutil"
	"github.com/alrena-group/amqms-portal/internal/validator"
)

type testEnv struct {
	db        *gorm.DB
	redis     *miniredis.Miniredis
	repo      repositories.Repository
	cache     *cache.CacheManager
	publisher *events.MockEventPublisher
	logger    *slog.Logger
	validator *validator.Validator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewTestDB(t)
	client, mr := testutil.NewTestRedis(t)
	cacheManager := cache.NewCacheManager(client)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &testEnv{
		db:    db,
		redis: mr,
		repo: postgres.NewPostgreSQLRepository(postgres.RepositoryConfig{
			DB:           db,
			RedisClient:  client,
			CacheManager: cacheManager,
		}),
		cache:     cacheManager,
		publisher: events.NewMockEventPublisher(logger),
		logger:    logger,
		validator: validator.New(),
	}
}

func (e *testEnv) magicLinks() *auth.MagicLinkIssuer {
	return auth.NewMagicLinkIssuer(config.MagicLinkConfig{
		Secret: "test-magic-link-secret-0123456789abcdef",
		TTL:    15 * time.Minute,
	}, e.cache.Token)
}

func (e *testEnv) reloadCourse(t *testing.T, course *models.Course) *models.Course {
	t.Helper()

	var fresh models.Course
	if err := e.db.First(&fresh, "id = ?", course.ID).Error; err != nil {
		t.Fatalf("reload course: %v", err)
	}
	return &fresh
}

func validEnrollRequest(course *models.Course, email string) *EnrollRequest {
	return &EnrollRequest{
		CourseID: course.ID.String(),
		Name:     "Grace Nakato",
		Company:  "Nile Breweries",
		Email:    email,
		Phone:    "+256 772 123456",
	}
}
