package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushub/timetable-api/internal/service"
	appErrors "github.com/campushub/timetable-api/pkg/errors"
	"github.com/campushub/timetable-api/pkg/response"
)

// EnrollmentHandler exposes lab-section enrollment endpoints.
type EnrollmentHandler struct {
	service *service.EnrollmentService
}

// NewEnrollmentHandler constructs an enrollment handler.
func NewEnrollmentHandler(svc *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: svc}
}

// Availability godoc
// @Summary List lab sections the caller may join
// @Tags Enrollments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /enrollments/labs/available [get]
func (h *EnrollmentHandler) Availability(c *gin.Context) {
	student := requesterID(c)
	if student == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	labs, err := h.service.ListAvailability(c.Request.Context(), student)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, labs, nil)
}

// List godoc
// @Summary List the caller's lab enrollments
// @Tags Enrollments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /enrollments/labs [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	student := requesterID(c)
	if student == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	enrollments, err := h.service.ListByStudent(c.Request.Context(), student)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, nil)
}

// Enroll godoc
// @Summary Enroll the caller into a lab section
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.EnrollLabRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Router /enrollments/labs [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req service.EnrollLabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.StudentID = requesterID(c)
	if req.StudentID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	enrollment, err := h.service.Enroll(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}
