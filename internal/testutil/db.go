package testutil

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/alrena-group/amqms-portal/internal/models"
)

// NewTestDB opens a migrated in-memory SQLite database private to the test.
// The pool is limited to one connection so every query sees the same memory database.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// NewTestRedis starts a miniredis server and returns a client for it.
func NewTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

// CreateCourse inserts an active course starting in 30 days with the given capacity.
func CreateCourse(t *testing.T, db *gorm.DB, title string, seats int) *models.Course {
	t.Helper()

	course := &models.Course{
		ID:           uuid.New(),
		Title:        title,
		Standard:     "ISO 9001:2015",
		Description:  "Five-day lead auditor course",
		StartDate:    datatypes.Date(time.Now().UTC().AddDate(0, 0, 30)),
		DurationDays: 5,
		Format:       "In-person",
		PriceUSD:     850,
		SeatsTotal:   seats,
		IsActive:     true,
	}
	if err := db.Create(course).Error; err != nil {
		t.Fatalf("create course: %v", err)
	}
	return course
}

// CreateProfile inserts a profile with the given role.
func CreateProfile(t *testing.T, db *gorm.DB, email string, role models.UserRole) *models.Profile {
	t.Helper()

	profile := &models.Profile{
		Email:    email,
		FullName: "Test User",
		Role:     role,
	}
	if err := db.Create(profile).Error; err != nil {
		t.Fatalf("create profile: %v", err)
	}
	return profile
}
