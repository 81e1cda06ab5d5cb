package http

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"debate-platform-backend/internal/common/errors"
	"debate-platform-backend/internal/common/middleware"
	"debate-platform-backend/internal/common/pagination"
	"debate-platform-backend/internal/features/user/models"
	"debate-platform-backend/internal/features/user/service"
)

type UserHandler struct {
	service service.UserService
}

func NewUserHandler(service service.UserService) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// RegisterRoutes: public is unauthenticated (avatars are loaded by <img>),
// authed carries RequireAuth, admin carries RequireAdmin on top.
func (h *UserHandler) RegisterRoutes(public, authed, admin *gin.RouterGroup) {
	public.GET("/users/:id/photo", h.GetPhoto)

	users := authed.Group("/users")
	{
		users.GET("/me", h.GetMe)
		users.PATCH("/me", h.UpdateMe)
		users.POST("/me/photo", h.UploadPhoto)
		users.GET("/:id", h.GetUser)
	}

	// Админские маршруты
	adminUsers := admin.Group("/users")
	{
		adminUsers.GET("", h.ListUsers)
		adminUsers.PUT("/:id/status", h.UpdateUserStatus)
	}
}

// @Summary Get current user
// @Description Profile, verification map and social links of the caller
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.UserResponse "User data"
// @Failure 401 {object} middleware.ErrorResponse "Unauthorized"
// @Failure 404 {object} middleware.ErrorResponse "User not found"
// @Router /users/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	user, err := h.service.GetUser(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// @Summary Update current user profile
// @Description Only the fields present in the body are changed. Bio is stored as plain text.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param profile body models.ProfileUpdate true "Profile fields"
// @Success 200 {object} models.UserResponse
// @Failure 400 {object} middleware.ErrorResponse "Invalid request"
// @Failure 401 {object} middleware.ErrorResponse "Unauthorized"
// @Router /users/me [patch]
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var input models.ProfileUpdate
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.Abort(c, errors.Wrap(err, errors.ErrCodeBadRequest, "Invalid request body"))
		return
	}

	user, err := h.service.UpdateProfile(c.Request.Context(), middleware.CurrentUserID(c), input)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// @Summary Upload profile photo
// @Description jpeg, png, webp or gif up to 2 MiB
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param photo formData file true "Image file"
// @Success 200 {object} models.UserResponse
// @Failure 400 {object} middleware.ErrorResponse "Invalid file"
// @Failure 413 {object} middleware.ErrorResponse "File too large"
// @Router /users/me/photo [post]
func (h *UserHandler) UploadPhoto(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, models.MaxPhotoSize+64<<10)

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		middleware.Abort(c, errors.NewValidationError("photo", "multipart file field 'photo' is required"))
		return
	}
	if fileHeader.Size > models.MaxPhotoSize {
		middleware.Abort(c, errors.New(errors.ErrCodeTooLarge, "Photo exceeds 2 MiB"))
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		middleware.Abort(c, errors.Wrap(err, errors.ErrCodeBadRequest, "Cannot read uploaded file"))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, models.MaxPhotoSize+1))
	if err != nil {
		middleware.Abort(c, errors.Wrap(err, errors.ErrCodeBadRequest, "Cannot read uploaded file"))
		return
	}

	user, err := h.service.UploadPhoto(c.Request.Context(), middleware.CurrentUserID(c), data)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// @Summary Get user photo
// @Tags users
// @Produce image/jpeg,image/png,image/webp,image/gif
// @Param id path int true "User ID"
// @Success 200 {file} binary
// @Failure 404 {object} middleware.ErrorResponse "Photo not found"
// @Router /users/{id}/photo [get]
func (h *UserHandler) GetPhoto(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	photo, err := h.service.GetPhoto(c.Request.Context(), id)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=300")
	c.Data(http.StatusOK, photo.ContentType, photo.Data)
}

// @Summary Get user by ID
// @Description Get user information by ID
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} models.UserResponse "User data"
// @Failure 400 {object} middleware.ErrorResponse "Invalid request"
// @Failure 401 {object} middleware.ErrorResponse "Unauthorized"
// @Failure 404 {object} middleware.ErrorResponse "User not found"
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	user, err := h.service.GetUser(c.Request.Context(), id)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// @Summary List users
// @Description Admin only. Search matches username, first or last name.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(10)
// @Param search query string false "Search text"
// @Success 200 {object} pagination.Page[models.UserResponse]
// @Failure 403 {object} middleware.ErrorResponse "Forbidden - not an admin"
// @Router /admin/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	params, err := pagination.FromQuery(c)
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	page, err := h.service.ListUsers(c.Request.Context(), params)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// @Summary Update user status
// @Description Update user status (admin only)
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param status body models.StatusUpdate true "New status"
// @Success 200 {object} models.UserResponse "Updated user data"
// @Failure 400 {object} middleware.ErrorResponse "Invalid request"
// @Failure 403 {object} middleware.ErrorResponse "Forbidden - not an admin"
// @Failure 404 {object} middleware.ErrorResponse "User not found"
// @Router /admin/users/{id}/status [put]
func (h *UserHandler) UpdateUserStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var input models.StatusUpdate
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.Abort(c, errors.NewValidationError("status", err.Error()))
		return
	}

	if err := h.service.UpdateUserStatus(c.Request.Context(), id, input.Status); err != nil {
		middleware.Abort(c, err)
		return
	}

	user, err := h.service.GetUser(c.Request.Context(), id)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		middleware.Abort(c, errors.NewValidationError("id", "invalid user ID format"))
		return 0, false
	}
	return id, true
}
