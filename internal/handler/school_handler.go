package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/schoolpad/schoolpad-api/internal/models"
	"github.com/schoolpad/schoolpad-api/internal/service"
	appErrors "github.com/schoolpad/schoolpad-api/pkg/errors"
	"github.com/schoolpad/schoolpad-api/pkg/response"
)

// SchoolHandler exposes school registration, profile and admin endpoints.
type SchoolHandler struct {
	schools *service.SchoolService
}

// NewSchoolHandler constructs SchoolHandler.
func NewSchoolHandler(schools *service.SchoolService) *SchoolHandler {
	return &SchoolHandler{schools: schools}
}

// Register godoc
// @Summary Register a school
// @Tags Schools
// @Accept json
// @Produce json
// @Param payload body service.RegisterSchoolRequest true "School payload"
// @Success 201 {object} response.Envelope
// @Router /schools [post]
func (h *SchoolHandler) Register(c *gin.Context) {
	var req service.RegisterSchoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	school, err := h.schools.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, school)
}

// List godoc
// @Summary List schools
// @Tags Schools
// @Produce json
// @Param search query string false "Search by name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schools [get]
func (h *SchoolHandler) List(c *gin.Context) {
	var filter models.SchoolFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	schools, pagination, err := h.schools.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schools, pagination)
}

// Get godoc
// @Summary Get school profile
// @Tags Schools
// @Produce json
// @Param schoolId path string true "School ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId} [get]
func (h *SchoolHandler) Get(c *gin.Context) {
	school, err := h.schools.Get(c.Request.Context(), c.Param("schoolId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, school, nil)
}

// Update godoc
// @Summary Update school profile
// @Tags Schools
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body service.UpdateSchoolRequest true "School payload"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId} [put]
func (h *SchoolHandler) Update(c *gin.Context) {
	var req service.UpdateSchoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	school, err := h.schools.Update(c.Request.Context(), c.Param("schoolId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, school, nil)
}

type changeAccessCodeRequest struct {
	AccessCode string `json:"access_code"`
}

// ChangeAccessCode godoc
// @Summary Replace the school master access code
// @Tags Schools
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body changeAccessCodeRequest true "New access code"
// @Success 204
// @Router /schools/{schoolId}/access-code [put]
func (h *SchoolHandler) ChangeAccessCode(c *gin.Context) {
	var req changeAccessCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.schools.ChangeAccessCode(c.Request.Context(), c.Param("schoolId"), req.AccessCode); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CreateSubAdmin godoc
// @Summary Create a delegated sub-admin credential
// @Tags Schools
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body service.CreateSubAdminRequest true "Admin payload"
// @Success 201 {object} response.Envelope
// @Router /schools/{schoolId}/admins [post]
func (h *SchoolHandler) CreateSubAdmin(c *gin.Context) {
	var req service.CreateSubAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	admin, err := h.schools.CreateSubAdmin(c.Request.Context(), c.Param("schoolId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, admin)
}

// ListSubAdmins godoc
// @Summary List delegated credentials
// @Tags Schools
// @Produce json
// @Param schoolId path string true "School ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/admins [get]
func (h *SchoolHandler) ListSubAdmins(c *gin.Context) {
	admins, err := h.schools.ListSubAdmins(c.Request.Context(), c.Param("schoolId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, admins, nil)
}

// RevokeSubAdmin godoc
// @Summary Revoke a delegated credential
// @Tags Schools
// @Produce json
// @Param schoolId path string true "School ID"
// @Param adminId path string true "Admin ID"
// @Success 204
// @Router /schools/{schoolId}/admins/{adminId} [delete]
func (h *SchoolHandler) RevokeSubAdmin(c *gin.Context) {
	if err := h.schools.RevokeSubAdmin(c.Request.Context(), c.Param("schoolId"), c.Param("adminId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CreateSuperAdmin godoc
// @Summary Register a cross-school super-admin key
// @Tags Schools
// @Accept json
// @Produce json
// @Param payload body service.CreateSuperAdminRequest true "Key payload"
// @Success 201 {object} response.Envelope
// @Router /super-admins [post]
func (h *SchoolHandler) CreateSuperAdmin(c *gin.Context) {
	var req service.CreateSuperAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	admin, err := h.schools.CreateSuperAdmin(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, admin)
}
