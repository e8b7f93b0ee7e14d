package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/alrena-group/amqms-portal/internal/models"
	"github.com/alrena-group/amqms-portal/internal/repositories"
	"github.com/alrena-group/amqms-portal/internal/testutil"
)

func newEnrollment(userID, courseID uuid.UUID, seat int, status models.EnrollmentStatus, at time.Time) *models.Enrollment {
	return &models.Enrollment{
		UserID:       userID,
		CourseID:     courseID,
		Status:       status,
		AmountPaid:   850,
		SeatNumber:   seat,
		ContactName:  "Grace Nakato",
		ContactEmail: "grace@example.com",
		EnrolledAt:   at,
	}
}

func TestEnrollmentRepository_NextSeatNumber(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewEnrollmentPostgreSQL(db)
	ctx := context.Background()

	course := testutil.CreateCourse(t, db, "ISO 9001", 10)
	user := testutil.CreateProfile(t, db, "grace@example.com", models.RoleStudent)

	seat, err := repo.NextSeatNumber(ctx, nil, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, seat)

	require.NoError(t, repo.Create(ctx, nil, newEnrollment(user.ID, course.ID, 1, models.EnrollmentPending, time.Now())))
	require.NoError(t, repo.Create(ctx, nil, newEnrollment(user.ID, course.ID, 2, models.EnrollmentCancelled, time.Now())))

	// Cancelled seats are never handed out again
	seat, err = repo.NextSeatNumber(ctx, nil, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, seat)
}

func TestEnrollmentRepository_SeatNumberUniquePerCourse(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewEnrollmentPostgreSQL(db)
	ctx := context.Background()

	course := testutil.CreateCourse(t, db, "ISO 9001", 10)
	other := testutil.CreateCourse(t, db, "ISO 14001", 10)
	user := testutil.CreateProfile(t, db, "grace@example.com", models.RoleStudent)

	require.NoError(t, repo.Create(ctx, nil, newEnrollment(user.ID, course.ID, 1, models.EnrollmentPending, time.Now())))
	require.NoError(t, repo.Create(ctx, nil, newEnrollment(user.ID, other.ID, 1, models.EnrollmentPending, time.Now())))

	err := repo.Create(ctx, nil, newEnrollment(user.ID, course.ID, 1, models.EnrollmentPending, time.Now()))
	require.Error(t, err)
	assert.True(t, repositories.IsDuplicateKeyError(err))
}

func TestEnrollmentRepository_UpdateStatusIsConditional(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewEnrollmentPostgreSQL(db)
	ctx := context.Background()

	course := testutil.CreateCourse(t, db, "ISO 9001", 10)
	user := testutil.CreateProfile(t, db, "grace@example.com", models.RoleStudent)
	enrollment := newEnrollment(user.ID, course.ID, 1, models.EnrollmentPending, time.Now())
	require.NoError(t, repo.Create(ctx, nil, enrollment))

	ok, err := repo.UpdateStatus(ctx, nil, enrollment.ID, models.EnrollmentPending, models.EnrollmentConfirmed, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.UpdateStatus(ctx, nil, enrollment.ID, models.EnrollmentPending, models.EnrollmentCancelled, time.Now())
	require.NoError(t, err)
	assert.False(t, ok, "stale from-status must not match")

	got, err := repo.GetByID(ctx, nil, enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentConfirmed, got.Status)
	assert.NotNil(t, got.StatusChangedAt)
	require.NotNil(t, got.Course)
	assert.Equal(t, "ISO 9001", got.Course.Title)
}

func TestEnrollmentRepository_FindActive(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewEnrollmentPostgreSQL(db)
	ctx := context.Background()

	course := testutil.CreateCourse(t, db, "ISO 9001", 10)
	user := testutil.CreateProfile(t, db, "grace@example.com", models.RoleStudent)

	require.NoError(t, repo.Create(ctx, nil, newEnrollment(user.ID, course.ID, 1, models.EnrollmentCancelled, time.Now())))
	_, err := repo.FindActiveByUserAndCourse(ctx, nil, user.ID, course.ID)
	assert.True(t, repositories.IsNotFoundError(err))

	active := newEnrollment(user.ID, course.ID, 2, models.EnrollmentConfirmed, time.Now())
	require.NoError(t, repo.Create(ctx, nil, active))
	got, err := repo.FindActiveByUserAndCourse(ctx, nil, user.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, active.ID, got.ID)
}

func TestEnrollmentRepository_ListStatsAndOrdering(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewEnrollmentPostgreSQL(db)
	ctx := context.Background()

	course := testutil.CreateCourse(t, db, "ISO 9001", 10)
	alice := testutil.CreateProfile(t, db, "alice@example.com", models.RoleStudent)
	bob := testutil.CreateProfile(t, db, "bob@example.com", models.RoleStudent)

	base := time.Now().Add(-time.Hour)
	first := newEnrollment(alice.ID, course.ID, 1, models.EnrollmentConfirmed, base)
	second := newEnrollment(bob.ID, course.ID, 2, models.EnrollmentPending, base.Add(time.Minute))
	third := newEnrollment(alice.ID, course.ID, 3, models.EnrollmentCancelled, base.Add(2*time.Minute))
	for _, e := range []*models.Enrollment{first, second, third} {
		require.NoError(t, repo.Create(ctx, nil, e))
	}

	all, total, err := repo.List(ctx, nil, repositories.EnrollmentFilters{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, all, 3)
	assert.Equal(t, third.ID, all[0].ID, "newest first")
	assert.NotNil(t, all[0].Course)

	pending := models.EnrollmentPending
	filtered, total, err := repo.List(ctx, nil, repositories.EnrollmentFilters{Status: &pending})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, filtered, 1)
	assert.Equal(t, second.ID, filtered[0].ID)

	page, total, err := repo.List(ctx, nil, repositories.EnrollmentFilters{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 1)
	assert.Equal(t, second.ID, page[0].ID)

	mine, err := repo.ListByUser(ctx, nil, alice.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, third.ID, mine[0].ID)

	stats, err := repo.Stats(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, repositories.EnrollmentStats{Total: 3, Confirmed: 1, Pending: 1, Cancelled: 1}, *stats)

	pendingList, err := repo.ListPending(ctx, nil)
	require.NoError(t, err)
	require.Len(t, pendingList, 1)
	assert.Equal(t, second.ID, pendingList[0].ID)
}

func TestEnrollmentRepository_RollbackOnError(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostgreSQLRepository(RepositoryConfig{DB: db})
	ctx := context.Background()

	course := testutil.CreateCourse(t, db, "ISO 9001", 10)

	err := repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		ok, err := repo.Course().ReserveSeat(ctx, tx, course.ID, true)
		require.NoError(t, err)
		require.True(t, ok)
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	got, err := repo.Course().GetByID(ctx, nil, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.SeatsTaken)
}
