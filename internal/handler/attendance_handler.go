package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/schoolpad/schoolpad-api/internal/models"
	"github.com/schoolpad/schoolpad-api/internal/service"
	appErrors "github.com/schoolpad/schoolpad-api/pkg/errors"
	"github.com/schoolpad/schoolpad-api/pkg/response"
)

// AttendanceHandler exposes clock-in/clock-out endpoints. The student can be
// identified by a scanned QR payload or a typed admission number.
type AttendanceHandler struct {
	attendance *service.AttendanceService
	metrics    *service.MetricsService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance *service.AttendanceService, metrics *service.MetricsService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance, metrics: metrics}
}

type clockPayload struct {
	QR            string `json:"qr"`
	AdmissionNo   string `json:"admission_no"`
	GuardianName  string `json:"guardian_name"`
	GuardianPhone string `json:"guardian_phone"`
}

func (h *AttendanceHandler) resolveClockRequest(c *gin.Context) (service.ClockRequest, bool) {
	var payload clockPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return service.ClockRequest{}, false
	}
	admissionNo := payload.AdmissionNo
	if payload.QR != "" {
		parsed, err := service.ParseQRPayload(payload.QR)
		if err != nil {
			response.Error(c, err)
			return service.ClockRequest{}, false
		}
		if parsed.SchoolID != c.Param("schoolId") {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "this ID card belongs to a different school"))
			return service.ClockRequest{}, false
		}
		admissionNo = parsed.AdmissionNo
	}
	return service.ClockRequest{
		AdmissionNo:   admissionNo,
		GuardianName:  payload.GuardianName,
		GuardianPhone: payload.GuardianPhone,
	}, true
}

// ClockIn godoc
// @Summary Clock a student in for today
// @Tags Attendance
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body clockPayload true "Scan or admission number"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schools/{schoolId}/attendance/clock-in [post]
func (h *AttendanceHandler) ClockIn(c *gin.Context) {
	req, ok := h.resolveClockRequest(c)
	if !ok {
		return
	}
	entry, err := h.attendance.ClockIn(c.Request.Context(), c.Param("schoolId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.CountClockEvent("in")
	response.JSON(c, http.StatusOK, entry, nil)
}

// ClockOut godoc
// @Summary Clock a student out for today
// @Tags Attendance
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body clockPayload true "Scan or admission number"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schools/{schoolId}/attendance/clock-out [post]
func (h *AttendanceHandler) ClockOut(c *gin.Context) {
	req, ok := h.resolveClockRequest(c)
	if !ok {
		return
	}
	entry, err := h.attendance.ClockOut(c.Request.Context(), c.Param("schoolId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.CountClockEvent("out")
	response.JSON(c, http.StatusOK, entry, nil)
}

// List godoc
// @Summary List attendance entries
// @Tags Attendance
// @Produce json
// @Param schoolId path string true "School ID"
// @Param admissionNo query string false "Filter by admission number"
// @Param date query string false "Filter by date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	filter := models.AttendanceFilter{
		SchoolID:    c.Param("schoolId"),
		AdmissionNo: c.Query("admissionNo"),
		Date:        c.Query("date"),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}
	entries, pagination, err := h.attendance.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}
