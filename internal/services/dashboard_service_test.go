package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alrena-group/amqms-portal/internal/models"
	"github.com/alrena-group/amqms-portal/internal/testutil"
)

func TestDashboardService_GetDashboard(t *testing.T) {
	env := newTestEnv(t)
	svc := NewDashboardService(env.repo, env.logger)
	enrollments := newEnrollmentService(env)
	ctx := context.Background()

	student := testutil.CreateProfile(t, env.db, "grace@example.com", models.RoleStudent)
	first := testutil.CreateCourse(t, env.db, "ISO 9001", 10)
	second := testutil.CreateCourse(t, env.db, "ISO 14001", 10)

	_, err := enrollments.Enroll(ctx, validEnrollRequest(first, "grace@example.com"), &student.ID)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = enrollments.Enroll(ctx, validEnrollRequest(second, "grace@example.com"), &student.ID)
	require.NoError(t, err)

	// Someone else's enrollment must not show up
	_, err = enrollments.Enroll(ctx, validEnrollRequest(first, "other@example.com"), nil)
	require.NoError(t, err)

	dashboard, err := svc.GetDashboard(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test", dashboard.FirstName)
	assert.Equal(t, student.ID, dashboard.Profile.ID)
	require.Len(t, dashboard.Enrollments, 2)
	assert.Equal(t, "ISO 14001", dashboard.Enrollments[0].Course.Title)
	assert.Equal(t, "ISO 9001", dashboard.Enrollments[1].Course.Title)
	assert.Equal(t, "Pending Payment", dashboard.Enrollments[0].StatusLabel)
}

func TestDashboardService_AdminAndUnknown(t *testing.T) {
	env := newTestEnv(t)
	svc := NewDashboardService(env.repo, env.logger)
	admin := testutil.CreateProfile(t, env.db, "admin@amqms.example", models.RoleAdmin)

	_, err := svc.GetDashboard(context.Background(), admin.ID)
	assert.ErrorIs(t, err, ErrAdminRedirect)

	_, err = svc.GetDashboard(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrProfileNotFound)
}
