package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/schoolpad/schoolpad-api/internal/service"
	appErrors "github.com/schoolpad/schoolpad-api/pkg/errors"
	"github.com/schoolpad/schoolpad-api/pkg/response"
)

// ResultHandler exposes result computation and lookup endpoints.
type ResultHandler struct {
	results *service.ResultService
}

// NewResultHandler constructs ResultHandler.
func NewResultHandler(results *service.ResultService) *ResultHandler {
	return &ResultHandler{results: results}
}

// Save godoc
// @Summary Save or overwrite a student's term result
// @Tags Results
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body service.SaveResultRequest true "Result payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /schools/{schoolId}/results [post]
func (h *ResultHandler) Save(c *gin.Context) {
	var req service.SaveResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	view, err := h.results.Save(c.Request.Context(), c.Param("schoolId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Get godoc
// @Summary Get a student's term result
// @Tags Results
// @Produce json
// @Param schoolId path string true "School ID"
// @Param admissionNo path string true "Admission number"
// @Param term query string true "Term"
// @Param session query string true "Session"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/results/{admissionNo} [get]
func (h *ResultHandler) Get(c *gin.Context) {
	term := c.Query("term")
	session := c.Query("session")
	if term == "" || session == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "term and session are required"))
		return
	}
	view, err := h.results.Get(c.Request.Context(), c.Param("schoolId"), c.Param("admissionNo"), term, session)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// ListByStudent godoc
// @Summary List all term results for a student
// @Tags Results
// @Produce json
// @Param schoolId path string true "School ID"
// @Param admissionNo path string true "Admission number"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/results/{admissionNo}/history [get]
func (h *ResultHandler) ListByStudent(c *gin.Context) {
	views, err := h.results.ListByStudent(c.Request.Context(), c.Param("schoolId"), c.Param("admissionNo"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, nil)
}
