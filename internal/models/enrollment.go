package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EnrollmentStatus string

const (
	EnrollmentPending   EnrollmentStatus = "pending"
	EnrollmentConfirmed EnrollmentStatus = "confirmed"
	EnrollmentCancelled EnrollmentStatus = "cancelled"
)

func (s EnrollmentStatus) IsValid() bool {
	switch s {
	case EnrollmentPending, EnrollmentConfirmed, EnrollmentCancelled:
		return true
	}
	return false
}

// HoldsSeat reports whether an enrollment in this status counts against seats_taken.
func (s EnrollmentStatus) HoldsSeat() bool {
	return s == EnrollmentPending || s == EnrollmentConfirmed
}

// Label is the student-facing wording of a status.
func (s EnrollmentStatus) Label() string {
	switch s {
	case EnrollmentConfirmed:
		return "Confirmed"
	case EnrollmentCancelled:
		return "Cancelled"
	default:
		return "Pending Payment"
	}
}

type Enrollment struct {
	ID         uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID        `json:"user_id" gorm:"type:uuid;not null;index"`
	CourseID   uuid.UUID        `json:"course_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_course_seat"`
	Status     EnrollmentStatus `json:"status" gorm:"not null;size:20;default:pending;index"`
	AmountPaid float64          `json:"amount_paid" gorm:"type:numeric(12,2);not null;default:0"`
	SeatNumber int              `json:"seat_number" gorm:"not null;uniqueIndex:idx_course_seat"`

	// Contact details as submitted on the enrollment form
	Company      string `json:"company" gorm:"size:200"`
	ContactName  string `json:"contact_name" gorm:"size:100"`
	ContactEmail string `json:"contact_email" gorm:"size:255"`
	ContactPhone string `json:"contact_phone" gorm:"size:40"`

	EnrolledAt      time.Time  `json:"enrolled_at" gorm:"autoCreateTime;index"`
	StatusChangedAt *time.Time `json:"status_changed_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	// Relations
	Course  *Course  `json:"course,omitempty" gorm:"foreignKey:CourseID"`
	Profile *Profile `json:"profile,omitempty" gorm:"foreignKey:UserID"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

func (e *Enrollment) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Status == "" {
		e.Status = EnrollmentPending
	}
	return nil
}
