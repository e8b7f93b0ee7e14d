package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/alrena-group/amqms-portal/internal/services"
	"github.com/alrena-group/amqms-portal/internal/utils"
)

type EnrollmentHandler struct {
	BaseHandler
	enrollmentService services.EnrollmentService
}

func NewEnrollmentHandler(enrollmentService services.EnrollmentService, logger utils.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{
		BaseHandler:       NewBaseHandler(logger),
		enrollmentService: enrollmentService,
	}
}

// Enroll reserves a seat for the submitter of the enroll form
// @Summary Enroll in a course
// @Description Reserves a seat and sends the admin notice and client confirmation emails
// @Tags enrollments
// @Accept json
// @Produce json
// @Param enrollment body services.EnrollRequest true "Enrollment form"
// @Success 200 {object} services.EnrollResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse "Course not found"
// @Failure 409 {object} ErrorResponse "Course is full"
// @Failure 422 {object} ErrorResponse "Course is not open"
// @Router /enroll [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req services.EnrollRequest
	if !h.bindJSON(c, &req) {
		return
	}

	var sessionUserID *uuid.UUID
	if id, ok := currentUserID(c); ok {
		sessionUserID = &id
	}

	h.LogRequest(c, "Enrollment submitted", "course_id", req.CourseID)

	resp, err := h.enrollmentService.Enroll(c.Request.Context(), &req, sessionUserID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
