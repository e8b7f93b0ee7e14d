package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/alrena-group/amqms-portal/internal/models"
	"github.com/alrena-group/amqms-portal/internal/services"
	"github.com/alrena-group/amqms-portal/internal/utils"
)

type ErrorResponse = models.ErrorResponse
type SuccessResponse = models.SuccessResponse

const genericErrorMessage = "Something went wrong. Please try again."

// BaseHandler carries what every handler shares
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// LogRequest logs an incoming operation with the request-scoped logger
func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	utils.GetLogger(c, h.logger).Info(msg, args...)
}

// LogError logs a failed operation with the request-scoped logger
func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	utils.GetLogger(c, h.logger).Error(msg, append(args, "error", err)...)
}

// bindJSON decodes the body and writes a 400 when it is not valid JSON
func (h *BaseHandler) bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request payload",
			Message: "The request body could not be read",
			Details: err.Error(),
		})
		return false
	}
	return true
}

// handleServiceError maps service errors to HTTP responses
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	var businessErr *services.BusinessRuleError
	var permissionErr *services.PermissionError

	switch {
	case errors.As(err, &validationErrors):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Validation failed",
			Message: "Please check the highlighted fields",
			Details: validationErrors,
		})
	case errors.As(err, &businessErr):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   businessErr.Message,
			Message: businessErr.Message,
			Details: businessErr,
		})
	case errors.As(err, &permissionErr):
		h.forbidden(c, permissionErr.Reason)

	case errors.Is(err, services.ErrCourseNotFound):
		h.respond(c, http.StatusNotFound, "Course not found", err)
	case errors.Is(err, services.ErrEnrollmentNotFound):
		h.respond(c, http.StatusNotFound, "Enrollment not found", err)
	case errors.Is(err, services.ErrProfileNotFound):
		h.respond(c, http.StatusNotFound, "Profile not found", err)

	case errors.Is(err, services.ErrCourseFull):
		h.respond(c, http.StatusConflict, "This course is full", err)
	case errors.Is(err, services.ErrCourseNotOpen):
		h.respond(c, http.StatusUnprocessableEntity, "This course is not open for enrollment", err)
	case errors.Is(err, services.ErrInvalidTransition):
		h.respond(c, http.StatusUnprocessableEntity, "This status change is not allowed", err)
	case errors.Is(err, services.ErrEnrollmentConflict):
		h.respond(c, http.StatusConflict, "The enrollment was changed by someone else, reload and retry", err)

	case errors.Is(err, services.ErrInvalidCredentials):
		h.respond(c, http.StatusUnauthorized, "Invalid email or password", err)
	case errors.Is(err, services.ErrMagicLinkInvalid):
		h.respond(c, http.StatusUnauthorized, "This sign-in link is invalid or has expired", err)
	case errors.Is(err, services.ErrEmailTaken):
		h.respond(c, http.StatusConflict, "An account with this email already exists", err)

	default:
		h.LogError(c, err, "Unhandled service error", "path", c.FullPath())
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   genericErrorMessage,
			Message: genericErrorMessage,
		})
	}
}

func (h *BaseHandler) respond(c *gin.Context, status int, display string, err error) {
	c.JSON(status, ErrorResponse{
		Error:   display,
		Message: err.Error(),
	})
}

// forbidden answers non-admins with a hint to their own dashboard
func (h *BaseHandler) forbidden(c *gin.Context, reason string) {
	c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
		Error:   "Forbidden",
		Message: reason,
		Details: gin.H{"redirect": services.DefaultRedirect},
	})
}

func success(message string, data interface{}) SuccessResponse {
	return SuccessResponse{
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// currentUserID returns the profile id set by the auth middleware
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// currentProfile returns the profile set by the auth middleware
func currentProfile(c *gin.Context) (*models.Profile, bool) {
	value, exists := c.Get("user")
	if !exists {
		return nil, false
	}
	profile, ok := value.(*models.Profile)
	return profile, ok
}
