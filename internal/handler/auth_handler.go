package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/schoolpad/schoolpad-api/internal/models"
	"github.com/schoolpad/schoolpad-api/internal/service"
	appErrors "github.com/schoolpad/schoolpad-api/pkg/errors"
	"github.com/schoolpad/schoolpad-api/pkg/response"
)

// AuthHandler exposes the identity gate endpoints.
type AuthHandler struct {
	identity *service.IdentityService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(identity *service.IdentityService) *AuthHandler {
	return &AuthHandler{identity: identity}
}

// Login godoc
// @Summary Resolve an admin credential into a role
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	resp, err := h.identity.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

type superAdminRequest struct {
	Key string `json:"key"`
}

// SuperAdmin godoc
// @Summary Resolve a super-admin key
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body superAdminRequest true "Key payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/super-admin [post]
func (h *AuthHandler) SuperAdmin(c *gin.Context) {
	var req superAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	resp, err := h.identity.ResolveSuperAdmin(c.Request.Context(), req.Key)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}
