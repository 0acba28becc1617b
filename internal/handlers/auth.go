package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tour-booking/internal/models"
	"tour-booking/internal/services"
	"tour-booking/internal/utils"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if !bind(c, &req) {
		return
	}
	resp, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, utils.SuccessResponse("User registered", resp))
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bind(c, &req) {
		return
	}
	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Login successful", resp))
}

func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.authService.Me(c.Request.Context(), actor(c).UserID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("", user))
}

func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req models.UpdateProfileRequest
	if !bind(c, &req) {
		return
	}
	user, err := h.authService.UpdateProfile(c.Request.Context(), actor(c).UserID, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Profile updated", user))
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req models.ChangePasswordRequest
	if !bind(c, &req) {
		return
	}
	if err := h.authService.ChangePassword(c.Request.Context(), actor(c).UserID, &req); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Password changed", nil))
}
