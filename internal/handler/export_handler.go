package handler

import (
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/schoolpad/schoolpad-api/internal/models"
	"github.com/schoolpad/schoolpad-api/internal/service"
	appErrors "github.com/schoolpad/schoolpad-api/pkg/errors"
	"github.com/schoolpad/schoolpad-api/pkg/response"
)

// ExportHandler exposes async document rendering endpoints.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

type resultSheetExportRequest struct {
	AdmissionNo string `json:"admission_no"`
	Term        string `json:"term"`
	Session     string `json:"session"`
}

// ResultSheet godoc
// @Summary Queue a result sheet PDF render
// @Tags Exports
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body resultSheetExportRequest true "Result key"
// @Success 202 {object} response.Envelope
// @Router /schools/{schoolId}/exports/result-sheet [post]
func (h *ExportHandler) ResultSheet(c *gin.Context) {
	var req resultSheetExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if req.AdmissionNo == "" || req.Term == "" || req.Session == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "admission_no, term and session are required"))
		return
	}
	job, err := h.exports.EnqueueResultSheet(c.Param("schoolId"), req.AdmissionNo, req.Term, req.Session)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}

type idCardExportRequest struct {
	AdmissionNo string `json:"admission_no"`
}

// IDCard godoc
// @Summary Queue a student ID card render
// @Tags Exports
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body idCardExportRequest true "Student"
// @Success 202 {object} response.Envelope
// @Router /schools/{schoolId}/exports/id-card [post]
func (h *ExportHandler) IDCard(c *gin.Context) {
	var req idCardExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if req.AdmissionNo == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "admission_no is required"))
		return
	}
	job, err := h.exports.EnqueueIDCard(c.Param("schoolId"), req.AdmissionNo)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}

// Attendance godoc
// @Summary Queue an attendance CSV render
// @Tags Exports
// @Produce json
// @Param schoolId path string true "School ID"
// @Param admissionNo query string false "Filter by admission number"
// @Param date query string false "Filter by date (YYYY-MM-DD)"
// @Param format query string false "csv (default) or pdf"
// @Success 202 {object} response.Envelope
// @Router /schools/{schoolId}/exports/attendance [post]
func (h *ExportHandler) Attendance(c *gin.Context) {
	filter := models.AttendanceFilter{
		SchoolID:    c.Param("schoolId"),
		AdmissionNo: c.Query("admissionNo"),
		Date:        c.Query("date"),
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "200")); err == nil {
		filter.PageSize = size
	}
	job, err := h.exports.EnqueueAttendance(filter, c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}

// ExamLog godoc
// @Summary Queue a CBT submission log CSV render
// @Tags Exports
// @Produce json
// @Param schoolId path string true "School ID"
// @Param examCode query string false "Filter by exam code"
// @Param admissionNo query string false "Filter by admission number"
// @Success 202 {object} response.Envelope
// @Router /schools/{schoolId}/exports/exam-logs [post]
func (h *ExportHandler) ExamLog(c *gin.Context) {
	filter := models.ExamLogFilter{
		SchoolID:    c.Param("schoolId"),
		ExamCode:    c.Query("examCode"),
		AdmissionNo: c.Query("admissionNo"),
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "500")); err == nil {
		filter.PageSize = size
	}
	job, err := h.exports.EnqueueExamLog(filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}

type questionPaperExportRequest struct {
	ExamCode string `json:"exam_code"`
}

// QuestionPaper godoc
// @Summary Queue a printable question paper render
// @Tags Exports
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body questionPaperExportRequest true "Exam"
// @Success 202 {object} response.Envelope
// @Router /schools/{schoolId}/exports/question-paper [post]
func (h *ExportHandler) QuestionPaper(c *gin.Context) {
	var req questionPaperExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if req.ExamCode == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "exam_code is required"))
		return
	}
	job, err := h.exports.EnqueueQuestionPaper(c.Param("schoolId"), req.ExamCode)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}

// Status godoc
// @Summary Get export job status
// @Tags Exports
// @Produce json
// @Param jobId path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /exports/{jobId} [get]
func (h *ExportHandler) Status(c *gin.Context) {
	job, err := h.exports.Status(c.Param("jobId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Download godoc
// @Summary Download a rendered export via its signed token
// @Tags Exports
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200
// @Failure 403 {object} response.Envelope
// @Router /exports/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	file, relPath, err := h.exports.Download(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read export"))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filepath.Base(relPath)+`"`)
	c.DataFromReader(http.StatusOK, info.Size(), "application/octet-stream", file, nil)
}
