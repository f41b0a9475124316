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

// CBTHandler exposes the exam lifecycle endpoints.
type CBTHandler struct {
	cbt     *service.CBTService
	metrics *service.MetricsService
}

// NewCBTHandler constructs CBTHandler.
func NewCBTHandler(cbt *service.CBTService, metrics *service.MetricsService) *CBTHandler {
	return &CBTHandler{cbt: cbt, metrics: metrics}
}

// CreateAssessment godoc
// @Summary Create a CBT exam
// @Tags CBT
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body service.CreateAssessmentRequest true "Assessment payload"
// @Success 201 {object} response.Envelope
// @Router /schools/{schoolId}/assessments [post]
func (h *CBTHandler) CreateAssessment(c *gin.Context) {
	var req service.CreateAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	assessment, err := h.cbt.CreateAssessment(c.Request.Context(), c.Param("schoolId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assessment)
}

// ListAssessments godoc
// @Summary List a school's CBT exams
// @Tags CBT
// @Produce json
// @Param schoolId path string true "School ID"
// @Param teacherId query string false "Filter by teacher"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/assessments [get]
func (h *CBTHandler) ListAssessments(c *gin.Context) {
	assessments, err := h.cbt.ListAssessments(c.Request.Context(), c.Param("schoolId"), c.Query("teacherId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assessments, nil)
}

type closeAssessmentRequest struct {
	TeacherCode string `json:"teacher_code"`
}

// CloseAssessment godoc
// @Summary Close a CBT exam to further entries
// @Tags CBT
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param examCode path string true "Exam code"
// @Param payload body closeAssessmentRequest true "Teacher code"
// @Success 204
// @Router /schools/{schoolId}/assessments/{examCode}/close [post]
func (h *CBTHandler) CloseAssessment(c *gin.Context) {
	var req closeAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.cbt.CloseAssessment(c.Request.Context(), c.Param("schoolId"), c.Param("examCode"), req.TeacherCode); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Redeem godoc
// @Summary Exchange an exam code for a sitting
// @Tags CBT
// @Accept json
// @Produce json
// @Param payload body service.RedeemRequest true "Redeem payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /cbt/redeem [post]
func (h *CBTHandler) Redeem(c *gin.Context) {
	var req service.RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	view, err := h.cbt.Redeem(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.CountAttemptStarted()
	response.JSON(c, http.StatusOK, view, nil)
}

type captureAnswerRequest struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

// CaptureAnswer godoc
// @Summary Record one answer on an open attempt
// @Tags CBT
// @Accept json
// @Produce json
// @Param attemptId path string true "Attempt ID"
// @Param payload body captureAnswerRequest true "Answer payload"
// @Success 204
// @Router /cbt/attempts/{attemptId}/answers [post]
func (h *CBTHandler) CaptureAnswer(c *gin.Context) {
	var req captureAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.cbt.CaptureAnswer(c.Request.Context(), c.Param("attemptId"), req.QuestionID, req.Answer); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

type submitRequest struct {
	Answers models.AnswerMap `json:"answers"`
}

// Submit godoc
// @Summary Submit an attempt for scoring
// @Tags CBT
// @Accept json
// @Produce json
// @Param attemptId path string true "Attempt ID"
// @Param payload body submitRequest true "Final answers"
// @Success 200 {object} response.Envelope
// @Router /cbt/attempts/{attemptId}/submit [post]
func (h *CBTHandler) Submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.cbt.Submit(c.Request.Context(), c.Param("attemptId"), req.Answers)
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Attempt.Outcome == models.OutcomeScored && result.Message == "" {
		h.metrics.CountAttemptScored()
	}
	meta := map[string]interface{}{"merged": result.Merged}
	if result.Message != "" {
		meta["message"] = result.Message
	}
	response.JSON(c, http.StatusOK, result.Attempt, nil, meta)
}

// ListLogs godoc
// @Summary List CBT submission logs
// @Tags CBT
// @Produce json
// @Param schoolId path string true "School ID"
// @Param examCode query string false "Filter by exam code"
// @Param admissionNo query string false "Filter by admission number"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/exam-logs [get]
func (h *CBTHandler) ListLogs(c *gin.Context) {
	filter := models.ExamLogFilter{
		SchoolID:    c.Param("schoolId"),
		ExamCode:    c.Query("examCode"),
		AdmissionNo: c.Query("admissionNo"),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}
	logs, pagination, err := h.cbt.ListLogs(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, pagination)
}
