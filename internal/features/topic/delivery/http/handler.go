package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"debate-platform-backend/internal/common/errors"
	"debate-platform-backend/internal/common/middleware"
	"debate-platform-backend/internal/common/pagination"
	"debate-platform-backend/internal/features/topic/models"
	"debate-platform-backend/internal/features/topic/service"
)

type TopicHandler struct {
	service service.TopicService
}

func NewTopicHandler(service service.TopicService) *TopicHandler {
	return &TopicHandler{service: service}
}

func (h *TopicHandler) RegisterRoutes(authed *gin.RouterGroup) {
	topics := authed.Group("/topics")
	{
		topics.GET("", h.Search)
		topics.POST("", h.Create)
		topics.GET("/:id", h.Get)
		topics.PUT("/:id", h.Update)
		topics.DELETE("/:id", h.Delete)
	}
}

func actor(c *gin.Context) service.Actor {
	return service.Actor{UserID: middleware.CurrentUserID(c), IsAdmin: middleware.IsAdmin(c)}
}

// @Summary Search topics
// @Description Ordered by name. search matches a substring of the name.
// @Tags topics
// @Produce json
// @Security BearerAuth
// @Param search query string false "Search text"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(10)
// @Success 200 {object} pagination.Page[models.Topic]
// @Router /topics [get]
func (h *TopicHandler) Search(c *gin.Context) {
	params, err := pagination.FromQuery(c)
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	page, err := h.service.Search(c.Request.Context(), params)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// @Summary Get topic
// @Tags topics
// @Produce json
// @Security BearerAuth
// @Param id path string true "Topic ID"
// @Success 200 {object} models.Topic
// @Failure 404 {object} middleware.ErrorResponse
// @Router /topics/{id} [get]
func (h *TopicHandler) Get(c *gin.Context) {
	topic, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, topic)
}

// @Summary Create topic
// @Tags topics
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param topic body models.TopicInput true "Topic"
// @Success 201 {object} models.Topic
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse "Name already taken"
// @Router /topics [post]
func (h *TopicHandler) Create(c *gin.Context) {
	var input models.TopicInput
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.Abort(c, errors.NewValidationError("name", "is required"))
		return
	}

	topic, err := h.service.Create(c.Request.Context(), actor(c), input)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, topic)
}

// @Summary Update topic
// @Tags topics
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Topic ID"
// @Param topic body models.TopicPatch true "Changed fields"
// @Success 200 {object} models.Topic
// @Failure 403 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse "Name already taken"
// @Router /topics/{id} [put]
func (h *TopicHandler) Update(c *gin.Context) {
	var input models.TopicPatch
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.Abort(c, errors.NewValidationError("body", "invalid JSON"))
		return
	}

	topic, err := h.service.Update(c.Request.Context(), actor(c), c.Param("id"), input)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, topic)
}

// @Summary Delete topic
// @Tags topics
// @Security BearerAuth
// @Param id path string true "Topic ID"
// @Success 204
// @Failure 403 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /topics/{id} [delete]
func (h *TopicHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		middleware.Abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
