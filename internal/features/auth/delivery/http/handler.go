package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"debate-platform-backend/internal/common/errors"
	"debate-platform-backend/internal/common/middleware"
	"debate-platform-backend/internal/features/auth/models"
	"debate-platform-backend/internal/features/auth/service"
	usermodels "debate-platform-backend/internal/features/user/models"
)

type AuthHandler struct {
	service     service.AuthService
	botToken    string
	initDataTTL time.Duration
}

func NewAuthHandler(service service.AuthService, botToken string, initDataTTL time.Duration) *AuthHandler {
	return &AuthHandler{service: service, botToken: botToken, initDataTTL: initDataTTL}
}

// LoginResponse is the body of POST /auth/telegram.
type LoginResponse struct {
	models.TokenPair
	User *usermodels.UserResponse `json:"user"`
}

func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := router.Group("/auth")
	{
		auth.POST("/telegram", middleware.TelegramInitData(h.botToken, h.initDataTTL), h.LoginTelegram)
		auth.POST("/refresh", h.Refresh)
		auth.POST("/logout", h.Logout)
	}
}

// @Summary Login with Telegram init data
// @Description Validates the init_data header, creates the user on first login and issues a token pair
// @Tags auth
// @Produce json
// @Param init_data header string true "Telegram Mini App init data"
// @Success 200 {object} LoginResponse
// @Failure 401 {object} middleware.ErrorResponse "Invalid init data"
// @Failure 403 {object} middleware.ErrorResponse "User is banned"
// @Router /auth/telegram [post]
func (h *AuthHandler) LoginTelegram(c *gin.Context) {
	tgUser, ok := middleware.TelegramUser(c)
	if !ok {
		middleware.Abort(c, errors.NewUnauthorizedError("Telegram init data required"))
		return
	}

	pair, user, err := h.service.LoginTelegram(c.Request.Context(), tgUser)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, LoginResponse{TokenPair: *pair, User: user})
}

// @Summary Refresh tokens
// @Description Exchanges a refresh token for a new pair. The presented refresh token becomes invalid.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body models.RefreshRequest true "Refresh token"
// @Success 200 {object} models.TokenPair
// @Failure 401 {object} middleware.ErrorResponse "Invalid or expired refresh token"
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var input models.RefreshRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.Abort(c, errors.NewValidationError("refresh_token", "is required"))
		return
	}

	pair, err := h.service.Refresh(c.Request.Context(), input.RefreshToken)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// @Summary Logout
// @Description Revokes the refresh token
// @Tags auth
// @Accept json
// @Param body body models.RefreshRequest true "Refresh token"
// @Success 204
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	var input models.RefreshRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.Abort(c, errors.NewValidationError("refresh_token", "is required"))
		return
	}

	if err := h.service.Logout(c.Request.Context(), input.RefreshToken); err != nil {
		middleware.Abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
