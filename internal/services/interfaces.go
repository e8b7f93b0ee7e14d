package services

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/alrena-group/amqms-portal/internal/auth"
	"github.com/alrena-group/amqms-portal/internal/models"
	"github.com/alrena-group/amqms-portal/internal/repositories"
	"github.com/alrena-group/amqms-portal/internal/validator"
)

// ===== REQUEST DTOs =====

type EnrollRequest = validator.EnrollRequest
type ConsultRequest = validator.ConsultRequest
type SignUpRequest = validator.SignUpRequest
type LoginRequest = validator.LoginRequest
type MagicLinkRequest = validator.MagicLinkRequest
type UpdateEnrollmentStatusRequest = validator.UpdateEnrollmentStatusRequest
type CreateCourseRequest = validator.CourseCreateRequest
type UpdateCourseRequest = validator.CourseUpdateRequest

// OverviewQuery filters the admin enrollment table
type OverviewQuery struct {
	Status string `form:"status"`
	Page   int    `form:"page"`
	Size   int    `form:"size"`
}

// ===== RESPONSE DTOs =====

type CourseResponse struct {
	ID             uuid.UUID `json:"id"`
	Title          string    `json:"title"`
	Standard       string    `json:"standard"`
	Description    string    `json:"description"`
	StartDate      time.Time `json:"start_date"`
	DurationDays   int       `json:"duration_days"`
	Format         string    `json:"format"`
	PriceUSD       float64   `json:"price_usd"`
	SeatsTotal     int       `json:"seats_total"`
	SeatsTaken     int       `json:"seats_taken"`
	SeatsRemaining int       `json:"seats_remaining"`
	IsActive       bool      `json:"is_active"`
}

// EnrollResponse is returned by POST /api/enroll
type EnrollResponse struct {
	Success      bool   `json:"success"`
	EnrollmentID string `json:"enrollment_id"`
	SeatNumber   int    `json:"seat_number"`
	// Duplicate is set when the submitter already held a live enrollment for the course
	Duplicate bool `json:"duplicate,omitempty"`
}

type EnrollmentResponse struct {
	ID              uuid.UUID               `json:"id"`
	UserID          uuid.UUID               `json:"user_id"`
	Status          models.EnrollmentStatus `json:"status"`
	StatusLabel     string                  `json:"status_label"`
	AmountPaid      float64                 `json:"amount_paid"`
	SeatNumber      int                     `json:"seat_number"`
	Company         string                  `json:"company"`
	ContactName     string                  `json:"contact_name"`
	ContactEmail    string                  `json:"contact_email"`
	ContactPhone    string                  `json:"contact_phone"`
	EnrolledAt      time.Time               `json:"enrolled_at"`
	StatusChangedAt *time.Time              `json:"status_changed_at,omitempty"`
	Course          *models.CourseSummary   `json:"course,omitempty"`
}

type ProfileResponse struct {
	ID       uuid.UUID       `json:"id"`
	Email    string          `json:"email"`
	FullName string          `json:"full_name"`
	Phone    string          `json:"phone"`
	Role     models.UserRole `json:"role"`
	IsAdmin  bool            `json:"is_admin"`
}

type DashboardResponse struct {
	Profile     *ProfileResponse      `json:"profile"`
	FirstName   string                `json:"first_name"`
	Enrollments []*EnrollmentResponse `json:"enrollments"`
}

type AdminOverviewResponse struct {
	Stats       repositories.EnrollmentStats `json:"stats"`
	Enrollments []*EnrollmentResponse        `json:"enrollments"`
	Total       int64                        `json:"total"`
	Page        int                          `json:"page"`
	Size        int                          `json:"size"`
}

type InquiryListResponse struct {
	Inquiries []*models.ConsultingInquiry `json:"inquiries"`
	Total     int64                       `json:"total"`
	Page      int                         `json:"page"`
	Size      int                         `json:"size"`
}

// ===== SERVICE INTERFACES =====

// CatalogService serves the course listings on the marketing and enroll pages
type CatalogService interface {
	ListActive(ctx context.Context) ([]*CourseResponse, error)
	GetCourse(ctx context.Context, id string) (*CourseResponse, error)

	// Admin course management
	CreateCourse(ctx context.Context, req *CreateCourseRequest, actorID uuid.UUID) (*CourseResponse, error)
	UpdateCourse(ctx context.Context, id string, req *UpdateCourseRequest, actorID uuid.UUID) (*CourseResponse, error)
}

type EnrollmentService interface {
	// Enroll reserves a seat for the form submitter. sessionUserID is nil for anonymous visitors.
	Enroll(ctx context.Context, req *EnrollRequest, sessionUserID *uuid.UUID) (*EnrollResponse, error)
	UpdateStatus(ctx context.Context, id string, req *UpdateEnrollmentStatusRequest, actorID uuid.UUID) (*EnrollmentResponse, error)
}

type ConsultService interface {
	Submit(ctx context.Context, req *ConsultRequest) (*models.ConsultingInquiry, error)
}

type AuthService interface {
	SignUp(ctx context.Context, req *SignUpRequest) (*models.Profile, error)
	Login(ctx context.Context, req *LoginRequest) (*models.Profile, error)
	RequestMagicLink(ctx context.Context, req *MagicLinkRequest) error
	// VerifyMagicLink consumes the token and returns the profile plus the path to land on
	VerifyMagicLink(ctx context.Context, token string) (*models.Profile, string, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	// SyncIdentity maps a hosted-identity user onto a profile, creating it on first login
	SyncIdentity(ctx context.Context, identity *auth.Identity) (*models.Profile, error)
}

type DashboardService interface {
	GetDashboard(ctx context.Context, userID uuid.UUID) (*DashboardResponse, error)
}

type AdminService interface {
	Overview(ctx context.Context, query OverviewQuery, actorID uuid.UUID) (*AdminOverviewResponse, error)
	ListInquiries(ctx context.Context, page, size int, actorID uuid.UUID) (*InquiryListResponse, error)
	ExportEnrollments(ctx context.Context, w io.Writer, actorID uuid.UUID) error
}

// HousekeepingService runs the scheduled maintenance jobs
type HousekeepingService interface {
	DeactivateStartedCourses(ctx context.Context, at time.Time) (int64, error)
	PublishPendingDigest(ctx context.Context, at time.Time) (int, error)
}

// ServiceManager owns every service and their shared dependencies
type ServiceManager interface {
	Catalog() CatalogService
	Enrollment() EnrollmentService
	Consult() ConsultService
	Auth() AuthService
	Dashboard() DashboardService
	Admin() AdminService
	Housekeeping() HousekeepingService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// ===== CONVERTERS =====

func NewCourseResponse(c *models.Course) *CourseResponse {
	return &CourseResponse{
		ID:             c.ID,
		Title:          c.Title,
		Standard:       c.Standard,
		Description:    c.Description,
		StartDate:      c.StartTime(),
		DurationDays:   c.DurationDays,
		Format:         c.Format,
		PriceUSD:       c.PriceUSD,
		SeatsTotal:     c.SeatsTotal,
		SeatsTaken:     c.SeatsTaken,
		SeatsRemaining: c.SeatsRemaining(),
		IsActive:       c.IsActive,
	}
}

func NewEnrollmentResponse(e *models.Enrollment) *EnrollmentResponse {
	return &EnrollmentResponse{
		ID:              e.ID,
		UserID:          e.UserID,
		Status:          e.Status,
		StatusLabel:     e.Status.Label(),
		AmountPaid:      e.AmountPaid,
		SeatNumber:      e.SeatNumber,
		Company:         e.Company,
		ContactName:     e.ContactName,
		ContactEmail:    e.ContactEmail,
		ContactPhone:    e.ContactPhone,
		EnrolledAt:      e.EnrolledAt,
		StatusChangedAt: e.StatusChangedAt,
		Course:          models.NewCourseSummary(e.Course),
	}
}

func NewEnrollmentResponses(enrollments []*models.Enrollment) []*EnrollmentResponse {
	responses := make([]*EnrollmentResponse, 0, len(enrollments))
	for _, e := range enrollments {
		responses = append(responses, NewEnrollmentResponse(e))
	}
	return responses
}

func NewProfileResponse(p *models.Profile) *ProfileResponse {
	return &ProfileResponse{
		ID:       p.ID,
		Email:    p.Email,
		FullName: p.FullName,
		Phone:    p.Phone,
		Role:     p.Role,
		IsAdmin:  p.IsAdmin(),
	}
}
