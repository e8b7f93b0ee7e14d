package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/alrena-group/amqms-portal/internal/services"
	"github.com/alrena-group/amqms-portal/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AdminHandler struct {
	BaseHandler
	adminService      services.AdminService
	enrollmentService services.EnrollmentService
	catalogService    services.CatalogService
}

func NewAdminHandler(
	adminService services.AdminService,
	enrollmentService services.EnrollmentService,
	catalogService services.CatalogService,
	logger utils.Logger,
) *AdminHandler {
	return &AdminHandler{
		BaseHandler:       NewBaseHandler(logger),
		adminService:      adminService,
		enrollmentService: enrollmentService,
		catalogService:    catalogService,
	}
}

// Overview returns enrollment stats and the enrollment table
// @Summary Admin overview
// @Tags admin
// @Produce json
// @Param status query string false "pending, confirmed or cancelled"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 20)"
// @Success 200 {object} services.AdminOverviewResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /admin/overview [get]
func (h *AdminHandler) Overview(c *gin.Context) {
	var query services.OverviewQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid query parameters",
			Message: "page and size must be numbers",
			Details: err.Error(),
		})
		return
	}

	userID, _ := currentUserID(c)
	overview, err := h.adminService.Overview(c.Request.Context(), query, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, overview)
}

// UpdateEnrollmentStatus confirms, cancels or reinstates an enrollment
// @Summary Update enrollment status
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param body body services.UpdateEnrollmentStatusRequest true "New status"
// @Success 200 {object} SuccessResponse{data=services.EnrollmentResponse}
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /admin/enrollments/{id}/status [patch]
func (h *AdminHandler) UpdateEnrollmentStatus(c *gin.Context) {
	id := c.Param("id")

	var req services.UpdateEnrollmentStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}

	userID, _ := currentUserID(c)
	h.LogRequest(c, "Updating enrollment status", "enrollment_id", id, "status", req.Status)

	enrollment, err := h.enrollmentService.UpdateStatus(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, success("Enrollment status updated", enrollment))
}

// ExportEnrollments downloads every enrollment as an Excel workbook
func (h *AdminHandler) ExportEnrollments(c *gin.Context) {
	userID, _ := currentUserID(c)
	h.LogRequest(c, "Exporting enrollments")

	// Build in memory so a failure can still be reported as JSON
	var buf bytes.Buffer
	if err := h.adminService.ExportEnrollments(c.Request.Context(), &buf, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("enrollments-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ListInquiries returns consulting enquiries, newest first
func (h *AdminHandler) ListInquiries(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	userID, _ := currentUserID(c)
	inquiries, err := h.adminService.ListInquiries(c.Request.Context(), page, size, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, inquiries)
}

// CreateCourse publishes a new course offering
// @Summary Create course
// @Tags admin
// @Accept json
// @Produce json
// @Param course body services.CreateCourseRequest true "Course data"
// @Success 201 {object} services.CourseResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /admin/courses [post]
func (h *AdminHandler) CreateCourse(c *gin.Context) {
	var req services.CreateCourseRequest
	if !h.bindJSON(c, &req) {
		return
	}

	userID, _ := currentUserID(c)
	course, err := h.catalogService.CreateCourse(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Course created", "course_id", course.ID)
	c.JSON(http.StatusCreated, course)
}

func (h *AdminHandler) UpdateCourse(c *gin.Context) {
	id := c.Param("id")

	var req services.UpdateCourseRequest
	if !h.bindJSON(c, &req) {
		return
	}

	userID, _ := currentUserID(c)
	h.LogRequest(c, "Updating course", "course_id", id)

	course, err := h.catalogService.UpdateCourse(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, course)
}
