package validator

import (
	"time"

	"github.com/alrena-group/amqms-portal/internal/models"
)

// EnrollRequest is the enrollment form submitted from the enroll page
type EnrollRequest struct {
	CourseID string `json:"courseId" validate:"required,uuid"`
	Name     string `json:"name" validate:"required,notblank,max=100"`
	Company  string `json:"company" validate:"required,notblank,max=200"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Phone    string `json:"phone" validate:"required,phone"`
}

// ConsultRequest is the consulting enquiry form on the marketing page
type ConsultRequest struct {
	Name     string `json:"name" validate:"required,notblank,max=100"`
	Company  string `json:"company" validate:"required,notblank,max=200"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
	Standard string `json:"standard" validate:"required,notblank,max=100"`
	Message  string `json:"message" validate:"required,notblank,max=5000"`
}

type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	FullName string `json:"full_name" validate:"required,notblank,max=200"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type MagicLinkRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
	// Path to land on after verification; only relative paths are honoured
	RedirectTo string `json:"redirect_to" validate:"omitempty,max=200"`
}

type UpdateEnrollmentStatusRequest struct {
	Status models.EnrollmentStatus `json:"status" validate:"required,enrollment_status"`
}

// CourseCreateRequest represents the admin request for a new course offering
type CourseCreateRequest struct {
	Title        string    `json:"title" validate:"required,notblank,max=200"`
	Standard     string    `json:"standard" validate:"required,notblank,max=100"`
	Description  string    `json:"description" validate:"max=5000"`
	StartDate    time.Time `json:"start_date" validate:"required"`
	DurationDays int       `json:"duration_days" validate:"required,min=1,max=365"`
	Format       string    `json:"format" validate:"required,notblank,max=100"`
	PriceUSD     float64   `json:"price_usd" validate:"gte=0"`
	SeatsTotal   int       `json:"seats_total" validate:"required,min=1,max=10000"`
	IsActive     *bool     `json:"is_active"`
}

// CourseUpdateRequest carries optional fields; nil means unchanged
type CourseUpdateRequest struct {
	Title        *string    `json:"title" validate:"omitempty,notblank,max=200"`
	Standard     *string    `json:"standard" validate:"omitempty,notblank,max=100"`
	Description  *string    `json:"description" validate:"omitempty,max=5000"`
	StartDate    *time.Time `json:"start_date"`
	DurationDays *int       `json:"duration_days" validate:"omitempty,min=1,max=365"`
	Format       *string    `json:"format" validate:"omitempty,notblank,max=100"`
	PriceUSD     *float64   `json:"price_usd" validate:"omitempty,gte=0"`
	SeatsTotal   *int       `json:"seats_total" validate:"omitempty,min=1,max=10000"`
	IsActive     *bool      `json:"is_active"`
}
