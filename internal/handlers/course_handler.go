package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alrena-group/amqms-portal/internal/services"
	"github.com/alrena-group/amqms-portal/internal/utils"
)

type CourseHandler struct {
	BaseHandler
	catalogService services.CatalogService
}

func NewCourseHandler(catalogService services.CatalogService, logger utils.Logger) *CourseHandler {
	return &CourseHandler{
		BaseHandler:    NewBaseHandler(logger),
		catalogService: catalogService,
	}
}

// ListCourses returns the open course offerings
// @Summary List active courses
// @Description Active courses ordered by start date, soonest first
// @Tags courses
// @Produce json
// @Success 200 {array} services.CourseResponse
// @Failure 500 {object} ErrorResponse
// @Router /courses [get]
func (h *CourseHandler) ListCourses(c *gin.Context) {
	courses, err := h.catalogService.ListActive(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, courses)
}

// GetCourse retrieves a course by ID
// @Summary Get course
// @Tags courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} services.CourseResponse
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id} [get]
func (h *CourseHandler) GetCourse(c *gin.Context) {
	id := c.Param("id")
	h.LogRequest(c, "Getting course", "course_id", id)

	course, err := h.catalogService.GetCourse(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, course)
}
