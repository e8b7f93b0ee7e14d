package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alrena-group/amqms-portal/internal/events"
	"github.com/alrena-group/amqms-portal/internal/models"
	"github.com/alrena-group/amqms-portal/internal/testutil"
)

func newEnrollmentService(env *testEnv) *enrollmentService {
	return NewEnrollmentService(env.repo, env.cache, env.publisher, env.logger, env.validator).(*enrollmentService)
}

func TestEnrollmentService_Enroll(t *testing.T) {
	env := newTestEnv(t)
	svc := newEnrollmentService(env)
	ctx := context.Background()

	course := testutil.CreateCourse(t, env.db, "ISO 9001:2015 Lead Auditor", 10)

	resp, err := svc.Enroll(ctx, validEnrollRequest(course, "Grace@Example.com"), nil)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.SeatNumber)
	assert.False(t, resp.Duplicate)

	var enrollments []models.Enrollment
	require.NoError(t, env.db.Find(&enrollments).Error)
	require.Len(t, enrollments, 1)
	enrollment := enrollments[0]
	assert.Equal(t, resp.EnrollmentID, enrollment.ID.String())
	assert.Equal(t, models.EnrollmentPending, enrollment.Status)
	assert.Equal(t, 850.0, enrollment.AmountPaid)
	assert.Equal(t, "grace@example.com", enrollment.ContactEmail)
	assert.Equal(t, "Nile Breweries", enrollment.Company)

	// A passwordless student profile is created for the new email
	var profile models.Profile
	require.NoError(t, env.db.First(&profile, "id = ?", enrollment.UserID).Error)
	assert.Equal(t, "grace@example.com", profile.Email)
	assert.Equal(t, models.RoleStudent, profile.Role)
	assert.Nil(t, profile.PasswordHash)

	assert.Equal(t, 1, env.reloadCourse(t, course).SeatsTaken)

	published := env.publisher.EventsOfType(events.TopicEnrollmentRequested)
	require.Len(t, published, 1)
	var payload events.EnrollmentRequested
	require.NoError(t, published[0].Decode(&payload))
	assert.Equal(t, resp.EnrollmentID, payload.EnrollmentID)
	assert.Equal(t, course.Title, payload.CourseTitle)
	assert.Equal(t, "Grace Nakato", payload.Name)
	assert.Equal(t, 1, payload.SeatNumber)
}

func TestEnrollmentService_EnrollDuplicateIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	svc := newEnrollmentService(env)
	ctx := context.Background()

	course := testutil.CreateCourse(t, env.db, "ISO 9001", 10)

	first, err := svc.Enroll(ctx, validEnrollRequest(course, "grace@example.com"), nil)
	require.NoError(t, err)

	second, err := svc.Enroll(ctx, validEnrollRequest(course, "GRACE@example.com"), nil)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.EnrollmentID, second.EnrollmentID)
	assert.Equal(t, first.SeatNumber, second.SeatNumber)

	assert.Equal(t, 1, env.reloadCourse(t, course).SeatsTaken)
	assert.Len(t, env.publisher.EventsOfType(events.TopicEnrollmentRequested), 1)
}

func TestEnrollmentService_EnrollSeatNumbersAreSequential(t *testing.T) {
	env := newTestEnv(t)
	svc := newEnrollmentService(env)
	ctx := context.Background()

	course := testutil.CreateCourse(t, env.db, "ISO 45001", 5)

	for i, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		resp, err := svc.Enroll(ctx, validEnrollRequest(course, email), nil)
		require.NoError(t, err)
		assert.Equal(t, i+1, resp.SeatNumber)
	}
	assert.Equal(t, 3, env.reloadCourse(t, course).SeatsTaken)
}

func TestEnrollmentService_EnrollParallelLastSeat(t *testing.T) {
	env := newTestEnv(t)
	svc := newEnrollmentService(env)
	ctx := context.Background()

	course := testutil.CreateCourse(t, env.db, "ISO 9001 Lead Auditor", 1)

	const submitters = 8
	errs := make([]error, submitters)
	var wg sync.WaitGroup
	for i := 0; i < submitters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Enroll(ctx, validEnrollRequest(course, fmt.Sprintf("student%d@example.com", i)), nil)
		}(i)
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrCourseFull)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, env.reloadCourse(t, course).SeatsTaken)

	var count int64
	require.NoError(t, env.db.Model(&models.Enrollment{}).Where("course_id = ?", course.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestEnrollmentService_EnrollParallelSameProfile(t *testing.T) {
	env := newTestEnv(t)
	svc := newEnrollmentService(env)
	ctx := context.Background()

	course := testutil.CreateCourse(t, env.db, "ISO 14001", 5)
	student := testutil.CreateProfile(t, env.db, "grace@example.com", models.RoleStudent)

	const submits = 6
	responses := make([]*EnrollResponse, submits)
	errs := make([]error, submits)
	var wg sync.WaitGroup
	for i := 0; i < submits; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			responses[i], errs[i] = svc.Enroll(ctx, validEnrollRequest(course, "grace@example.com"), &student.ID)
		}(i)
	}
	wg.Wait()

	var created int
	for i := range responses {
		require.NoError(t, errs[i])
		assert.Equal(t, responses[0].EnrollmentID, responses[i].EnrollmentID)
		if !responses[i].Duplicate {
			created++
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, env.reloadCourse(t, course).SeatsTaken)
	assert.Len(t, env.publisher.EventsOfType(events.TopicEnrollmentRequested), 1)
}

func TestEnrollmentService_EnrollRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("full course", func(t *testing.T) {
		env := newTestEnv(t)
		svc := newEnrollmentService(env)
		course := testutil.CreateCourse(t, env.db, "ISO 9001", 1)

		_, err := svc.Enroll(ctx, validEnrollRequest(course, "a@example.com"), nil)
		require.NoError(t, err)

		_, err = svc.Enroll(ctx, validEnrollRequest(course, "b@example.com"), nil)
		assert.ErrorIs(t, err, ErrCourseFull)
		assert.Equal(t, 1, env.reloadCourse(t, course).SeatsTaken)
	})

	t.Run("inactive course", func(t *testing.T) {
		env := newTestEnv(t)
		svc := newEnrollmentService(env)
		course := testutil.CreateCourse(t, env.db, "ISO 9001", 10)
		require.NoError(t, env.db.Model(&models.Course{}).Where("id = ?", course.ID).Update("is_active", false).Error)

		_, err := svc.Enroll(ctx, validEnrollRequest(course, "a@example.com"), nil)
		assert.ErrorIs(t, err, ErrCourseNotOpen)
	})

	t.Run("unknown course", func(t *testing.T) {
		env := newTestEnv(t)
		svc := newEnrollmentService(env)
		req := validEnrollRequest(&models.Course{ID: uuid.New()}, "a@example.com")

		_, err := svc.Enroll(ctx, req, nil)
		assert.ErrorIs(t, err, ErrCourseNotFound)
	})

	t.Run("invalid input", func(t *testing.T) {
		env := newTestEnv(t)
		svc := newEnrollmentService(env)
		course := testutil.CreateCourse(t, env.db, "ISO 9001", 10)
		req := validEnrollRequest(course, "not-an-email")
		req.Phone = ""

		_, err := svc.Enroll(ctx, req, nil)
		var validationErrors ValidationErrors
		require.True(t, errors.As(err, &validationErrors))
		fields := map[string]bool{}
		for _, fe := range validationErrors {
			fields[fe.Field] = true
		}
		assert.True(t, fields["email"])
		assert.True(t, fields["phone"])
		assert.Empty(t, env.publisher.GetPublishedEvents())
	})
}

func TestEnrollmentService_EnrollUsesSessionProfile(t *testing.T) {
	env := newTestEnv(t)
	svc := newEnrollmentService(env)
	ctx := context.Background()

	course := testutil.CreateCourse(t, env.db, "ISO 9001", 10)
	student := testutil.CreateProfile(t, env.db, "student@example.com", models.RoleStudent)

	resp, err := svc.Enroll(ctx, validEnrollRequest(course, "office@company.com"), &student.ID)
	require.NoError(t, err)

	var enrollment models.Enrollment
	require.NoError(t, env.db.First(&enrollment, "id = ?", resp.EnrollmentID).Error)
	assert.Equal(t, student.ID, enrollment.UserID)
	assert.Equal(t, "office@company.com", enrollment.ContactEmail)

	var count int64
	require.NoError(t, env.db.Model(&models.Profile{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestEnrollmentService_EnrollSurvivesPublishFailure(t *testing.T) {
	env := newTestEnv(t)
	svc := newEnrollmentService(env)
	env.publisher.FailWith(errors.New("broker unavailable"))

	course := testutil.CreateCourse(t, env.db, "ISO 9001", 10)

	resp, err := svc.Enroll(context.Background(), validEnrollRequest(course, "a@example.com"), nil)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 1, env.reloadCourse(t, course).SeatsTaken)
}

func TestEnrollmentService_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, seats int) (*testEnv, *enrollmentService, *models.Course, *models.Profile, string) {
		env := newTestEnv(t)
		svc := newEnrollmentService(env)
		course := testutil.CreateCourse(t, env.db, "ISO 9001", seats)
		admin := testutil.CreateProfile(t, env.db, "admin@amqms.example", models.RoleAdmin)

		resp, err := svc.Enroll(ctx, validEnrollRequest(course, "grace@example.com"), nil)
		require.NoError(t, err)
		env.publisher.ClearEvents()
		return env, svc, course, admin, resp.EnrollmentID
	}

	status := func(s models.EnrollmentStatus) *UpdateEnrollmentStatusRequest {
		return &UpdateEnrollmentStatusRequest{Status: s}
	}

	t.Run("cancel releases the seat", func(t *testing.T) {
		env, svc, course, admin, id := setup(t, 10)

		resp, err := svc.UpdateStatus(ctx, id, status(models.EnrollmentCancelled), admin.ID)
		require.NoError(t, err)
		assert.Equal(t, models.EnrollmentCancelled, resp.Status)
		assert.Equal(t, "Cancelled", resp.StatusLabel)
		assert.NotNil(t, resp.StatusChangedAt)
		assert.Equal(t, 0, env.reloadCourse(t, course).SeatsTaken)

		published := env.publisher.EventsOfType(events.TopicEnrollmentStatusChanged)
		require.Len(t, published, 1)
		var payload events.EnrollmentStatusChanged
		require.NoError(t, published[0].Decode(&payload))
		assert.Equal(t, "pending", payload.From)
		assert.Equal(t, "cancelled", payload.To)
		assert.Equal(t, "grace@example.com", payload.Email)
		assert.Equal(t, course.Title, payload.CourseTitle)
	})

	t.Run("confirm keeps the seat", func(t *testing.T) {
		env, svc, course, admin, id := setup(t, 10)

		resp, err := svc.UpdateStatus(ctx, id, status(models.EnrollmentConfirmed), admin.ID)
		require.NoError(t, err)
		assert.Equal(t, "Confirmed", resp.StatusLabel)
		assert.Equal(t, 1, env.reloadCourse(t, course).SeatsTaken)
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		env, svc, course, admin, id := setup(t, 10)

		resp, err := svc.UpdateStatus(ctx, id, status(models.EnrollmentPending), admin.ID)
		require.NoError(t, err)
		assert.Equal(t, models.EnrollmentPending, resp.Status)
		assert.Nil(t, resp.StatusChangedAt)
		assert.Equal(t, 1, env.reloadCourse(t, course).SeatsTaken)
		assert.Empty(t, env.publisher.GetPublishedEvents())
	})

	t.Run("back to pending is rejected", func(t *testing.T) {
		_, svc, _, admin, id := setup(t, 10)

		_, err := svc.UpdateStatus(ctx, id, status(models.EnrollmentConfirmed), admin.ID)
		require.NoError(t, err)

		_, err = svc.UpdateStatus(ctx, id, status(models.EnrollmentPending), admin.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("re-confirm ignores is_active but not capacity", func(t *testing.T) {
		env, svc, course, admin, id := setup(t, 1)

		_, err := svc.UpdateStatus(ctx, id, status(models.EnrollmentCancelled), admin.ID)
		require.NoError(t, err)
		require.NoError(t, env.db.Model(&models.Course{}).Where("id = ?", course.ID).Update("is_active", false).Error)

		_, err = svc.UpdateStatus(ctx, id, status(models.EnrollmentConfirmed), admin.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, env.reloadCourse(t, course).SeatsTaken)

		// Fill the only seat with someone else, then try to bring the first one back
		_, err = svc.UpdateStatus(ctx, id, status(models.EnrollmentCancelled), admin.ID)
		require.NoError(t, err)
		require.NoError(t, env.db.Model(&models.Course{}).Where("id = ?", course.ID).Update("seats_taken", 1).Error)

		_, err = svc.UpdateStatus(ctx, id, status(models.EnrollmentConfirmed), admin.ID)
		assert.ErrorIs(t, err, ErrCourseFull)

		var enrollment models.Enrollment
		require.NoError(t, env.db.First(&enrollment, "id = ?", id).Error)
		assert.Equal(t, models.EnrollmentCancelled, enrollment.Status)
	})

	t.Run("non-admin is forbidden", func(t *testing.T) {
		env, svc, _, _, id := setup(t, 10)
		student := testutil.CreateProfile(t, env.db, "student@example.com", models.RoleStudent)

		_, err := svc.UpdateStatus(ctx, id, status(models.EnrollmentConfirmed), student.ID)
		var permissionError *PermissionError
		assert.True(t, errors.As(err, &permissionError))
	})

	t.Run("unknown enrollment", func(t *testing.T) {
		_, svc, _, admin, _ := setup(t, 10)

		_, err := svc.UpdateStatus(ctx, uuid.NewString(), status(models.EnrollmentConfirmed), admin.ID)
		assert.ErrorIs(t, err, ErrEnrollmentNotFound)
	})

	t.Run("invalid status value", func(t *testing.T) {
		_, svc, _, admin, id := setup(t, 10)

		_, err := svc.UpdateStatus(ctx, id, status("refunded"), admin.ID)
		var validationErrors ValidationErrors
		assert.True(t, errors.As(err, &validationErrors))
	})
}
