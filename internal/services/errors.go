package services

import (
	"errors"
	"fmt"

	"github.com/alrena-group/amqms-portal/internal/validator"
)

// ===== SENTINEL ERRORS =====

var (
	// Course errors
	ErrCourseNotFound = errors.New("course not found")
	ErrCourseFull     = errors.New("course is full")
	ErrCourseNotOpen  = errors.New("course is not open for enrollment")

	// Enrollment errors
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrInvalidTransition  = errors.New("invalid enrollment status transition")
	ErrEnrollmentConflict = errors.New("enrollment was modified concurrently")

	// Auth errors
	ErrProfileNotFound    = errors.New("profile not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrMagicLinkInvalid   = errors.New("sign-in link is invalid or has expired")

	// ErrAdminRedirect tells the caller that an admin asked for the student dashboard.
	ErrAdminRedirect = errors.New("admins use the admin overview")
)

type ValidationErrors = validator.ValidationErrors

// BusinessRuleError reports input that is well-formed but breaks a domain rule.
type BusinessRuleError struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Message: message, Context: context}
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule %s violated: %s", e.Rule, e.Message)
}

// PermissionError reports an authenticated caller acting outside their role.
type PermissionError struct {
	UserID     string `json:"user_id"`
	ResourceID string `json:"resource_id,omitempty"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func NewPermissionError(userID, resourceID, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s: %s", e.UserID, e.Action, e.Resource, e.Reason)
}
