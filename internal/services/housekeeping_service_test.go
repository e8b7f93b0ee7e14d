package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/alrena-group/amqms-portal/internal/events"
	"github.com/alrena-group/amqms-portal/internal/models"
	"github.com/alrena-group/amqms-portal/internal/testutil"
)

func TestHousekeepingService_DeactivateStartedCourses(t *testing.T) {
	env := newTestEnv(t)
	kampala, err := time.LoadLocation("Africa/Kampala")
	require.NoError(t, err)
	svc := NewHousekeepingService(env.repo, env.publisher, kampala, env.logger)

	at := time.Date(2026, 11, 2, 0, 15, 0, 0, kampala)
	started := testutil.CreateCourse(t, env.db, "Started yesterday", 10)
	today := testutil.CreateCourse(t, env.db, "Starts today", 10)
	future := testutil.CreateCourse(t, env.db, "Starts next week", 10)

	setStart := func(c *models.Course, day time.Time) {
		require.NoError(t, env.db.Model(&models.Course{}).Where("id = ?", c.ID).
			Update("start_date", datatypes.Date(day)).Error)
	}
	setStart(started, time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC))
	setStart(today, time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC))
	setStart(future, time.Date(2026, 11, 9, 0, 0, 0, 0, time.UTC))

	count, err := svc.DeactivateStartedCourses(context.Background(), at)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	assert.False(t, env.reloadCourse(t, started).IsActive)
	assert.True(t, env.reloadCourse(t, today).IsActive)
	assert.True(t, env.reloadCourse(t, future).IsActive)

	count, err = svc.DeactivateStartedCourses(context.Background(), at)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestHousekeepingService_PublishPendingDigest(t *testing.T) {
	env := newTestEnv(t)
	svc := NewHousekeepingService(env.repo, env.publisher, time.UTC, env.logger)
	enrollments := newEnrollmentService(env)
	ctx := context.Background()

	count, err := svc.PublishPendingDigest(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, env.publisher.GetPublishedEvents(), "no digest without pending enrollments")

	course := testutil.CreateCourse(t, env.db, "ISO 9001", 10)
	for _, email := range []string{"a@example.com", "b@example.com"} {
		_, err := enrollments.Enroll(ctx, validEnrollRequest(course, email), nil)
		require.NoError(t, err)
	}
	env.publisher.ClearEvents()

	count, err = svc.PublishPendingDigest(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	published := env.publisher.EventsOfType(events.TopicEnrollmentPendingDigest)
	require.Len(t, published, 1)
	var digest events.PendingDigest
	require.NoError(t, published[0].Decode(&digest))
	require.Len(t, digest.Items, 2)
	assert.Equal(t, "ISO 9001", digest.Items[0].CourseTitle)

	env.publisher.FailWith(errors.New("broker unavailable"))
	_, err = svc.PublishPendingDigest(ctx, time.Now())
	assert.Error(t, err)
}
