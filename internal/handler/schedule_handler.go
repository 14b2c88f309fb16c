package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushub/timetable-api/internal/service"
	appErrors "github.com/campushub/timetable-api/pkg/errors"
	"github.com/campushub/timetable-api/pkg/response"
)

// ScheduleHandler exposes group schedule endpoints.
type ScheduleHandler struct {
	service *service.ScheduleService
}

// NewScheduleHandler constructs a schedule handler.
func NewScheduleHandler(svc *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// GetBlocks godoc
// @Summary Get a group's weekly blocks
// @Tags Schedules
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /groups/{id}/blocks [get]
func (h *ScheduleHandler) GetBlocks(c *gin.Context) {
	blocks, err := h.service.GetBlocks(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, blocks, nil)
}

// ReplaceBlocks godoc
// @Summary Replace a group's weekly blocks
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Group ID"
// @Param payload body service.ReplaceBlocksRequest true "New block set"
// @Success 200 {object} response.Envelope
// @Router /groups/{id}/blocks [put]
func (h *ScheduleHandler) ReplaceBlocks(c *gin.Context) {
	var req service.ReplaceBlocksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	blocks, err := h.service.ReplaceBlocks(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, blocks, nil)
}
