package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRole string
type Role = UserRole // Alias for compatibility

const (
	RoleStudent UserRole = "student"
	RoleAdmin   UserRole = "admin"
)

func (r UserRole) IsValid() bool {
	return r == RoleStudent || r == RoleAdmin
}

// Profile is the application side of an auth user. ID equals the auth user id.
type Profile struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Email    string    `json:"email" gorm:"uniqueIndex;not null;size:255"`
	FullName string    `json:"full_name" gorm:"size:100"`
	Phone    string    `json:"phone" gorm:"size:40"`
	Role     UserRole  `json:"role" gorm:"not null;size:20;default:student;index"`

	// Credentials
	PasswordHash *string `json:"-" gorm:"size:255"`
	ExternalID   *string `json:"-" gorm:"uniqueIndex;size:255"` // hosted identity subject

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.Email = NormalizeEmail(p.Email)
	if p.Role == "" {
		p.Role = RoleStudent
	}
	return nil
}

func (p *Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// FirstName returns the first word of the full name, used for greetings.
func (p *Profile) FirstName() string {
	fields := strings.Fields(p.FullName)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// DisplayName falls back to the email when no name is on file.
func (p *Profile) DisplayName() string {
	if strings.TrimSpace(p.FullName) != "" {
		return p.FullName
	}
	return p.Email
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
