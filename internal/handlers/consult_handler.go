package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alrena-group/amqms-portal/internal/services"
	"github.com/alrena-group/amqms-portal/internal/utils"
)

type ConsultHandler struct {
	BaseHandler
	consultService services.ConsultService
}

func NewConsultHandler(consultService services.ConsultService, logger utils.Logger) *ConsultHandler {
	return &ConsultHandler{
		BaseHandler:    NewBaseHandler(logger),
		consultService: consultService,
	}
}

// Submit records a consulting enquiry from the marketing page
func (h *ConsultHandler) Submit(c *gin.Context) {
	var req services.ConsultRequest
	if !h.bindJSON(c, &req) {
		return
	}

	inquiry, err := h.consultService.Submit(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Consulting enquiry received", "inquiry_id", inquiry.ID, "standard", inquiry.Standard)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
