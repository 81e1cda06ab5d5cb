package http

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"debate-platform-backend/internal/common/broadcast"
	"debate-platform-backend/internal/common/errors"
	"debate-platform-backend/internal/common/middleware"
	"debate-platform-backend/internal/common/pagination"
	"debate-platform-backend/internal/features/verification/models"
	"debate-platform-backend/internal/features/verification/service"
)

const keepAliveInterval = 25 * time.Second

type VerificationHandler struct {
	service service.VerificationService
	events  *broadcast.Hub[models.Event]
}

func NewVerificationHandler(service service.VerificationService, events *broadcast.Hub[models.Event]) *VerificationHandler {
	return &VerificationHandler{service: service, events: events}
}

func (h *VerificationHandler) RegisterRoutes(authed, admin *gin.RouterGroup) {
	verifications := authed.Group("/verifications")
	{
		verifications.GET("", h.Status)
		verifications.POST("/:platform/start", h.Start)
		verifications.POST("/:platform/submit", h.Submit)
	}

	requests := admin.Group("/verification-requests")
	{
		requests.GET("", h.ListRequests)
		requests.GET("/stream", h.Stream)
		requests.GET("/:id", h.GetRequest)
		requests.POST("/:id/approve", h.Approve)
		requests.POST("/:id/reject", h.Reject)
	}
}

// @Summary Verification status of the current user
// @Tags verification
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Overview
// @Failure 401 {object} middleware.ErrorResponse
// @Router /verifications [get]
func (h *VerificationHandler) Status(c *gin.Context) {
	overview, err := h.service.Status(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

// @Summary Start verification
// @Description Issues a short code the user has to place on the social profile
// @Tags verification
// @Produce json
// @Security BearerAuth
// @Param platform path string true "Platform" Enums(linkedin,twitter,instagram,facebook,github,youtube,tiktok)
// @Success 200 {object} models.Challenge
// @Failure 400 {object} middleware.ErrorResponse "Unknown platform"
// @Failure 409 {object} middleware.ErrorResponse "Already verified"
// @Router /verifications/{platform}/start [post]
func (h *VerificationHandler) Start(c *gin.Context) {
	challenge, err := h.service.Start(c.Request.Context(), middleware.CurrentUserID(c), c.Param("platform"))
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, challenge)
}

// @Summary Submit profile URL for review
// @Tags verification
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param platform path string true "Platform"
// @Param body body models.SubmitRequest true "Profile URL"
// @Success 201 {object} models.Request
// @Failure 400 {object} middleware.ErrorResponse "Invalid URL or verification not started"
// @Failure 409 {object} middleware.ErrorResponse "Already verified"
// @Router /verifications/{platform}/submit [post]
func (h *VerificationHandler) Submit(c *gin.Context) {
	var input models.SubmitRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.Abort(c, errors.NewValidationError("profile_url", "is required"))
		return
	}

	req, err := h.service.Submit(c.Request.Context(), middleware.CurrentUserID(c), c.Param("platform"), input.ProfileURL)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

// @Summary List verification requests
// @Description Admin only. Oldest submission first.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status" Enums(pending,rejected)
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(10)
// @Success 200 {object} pagination.Page[models.Request]
// @Failure 403 {object} middleware.ErrorResponse
// @Router /admin/verification-requests [get]
func (h *VerificationHandler) ListRequests(c *gin.Context) {
	params, err := pagination.FromQuery(c)
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	page, err := h.service.ListRequests(c.Request.Context(), c.Query("status"), params)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// @Summary Get verification request
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Success 200 {object} models.Request
// @Failure 404 {object} middleware.ErrorResponse
// @Router /admin/verification-requests/{id} [get]
func (h *VerificationHandler) GetRequest(c *gin.Context) {
	req, err := h.service.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// @Summary Approve verification request
// @Description Marks the platform verified, stores the social link, notifies the user and deletes the request
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Success 200 {object} models.Request
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse "Already reviewed"
// @Router /admin/verification-requests/{id}/approve [post]
func (h *VerificationHandler) Approve(c *gin.Context) {
	req, err := h.service.Approve(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c))
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// @Summary Reject verification request
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Param body body models.RejectRequest false "Reason"
// @Success 200 {object} models.Request
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse "Already reviewed"
// @Router /admin/verification-requests/{id}/reject [post]
func (h *VerificationHandler) Reject(c *gin.Context) {
	var input models.RejectRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&input); err != nil && err != io.EOF {
			middleware.Abort(c, errors.Wrap(err, errors.ErrCodeBadRequest, "Invalid request body"))
			return
		}
	}

	req, err := h.service.Reject(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c), input.Reason)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// @Summary Live verification events
// @Description Server-sent events, one "verification" event per submitted, approved or rejected request
// @Tags admin
// @Produce text/event-stream
// @Security BearerAuth
// @Success 200 {object} models.Event
// @Router /admin/verification-requests/stream [get]
func (h *VerificationHandler) Stream(c *gin.Context) {
	events, cancel := h.events.Subscribe()
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	c.Status(http.StatusOK)
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case event, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("verification", event)
			return true
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			return true
		}
	})
}
