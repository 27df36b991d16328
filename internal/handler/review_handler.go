package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/studybridge/studybridge-api/internal/models"
	"github.com/studybridge/studybridge-api/internal/service"
	appErrors "github.com/studybridge/studybridge-api/pkg/errors"
	"github.com/studybridge/studybridge-api/pkg/response"
)

// ReviewHandler exposes review submission and moderation endpoints.
type ReviewHandler struct {
	service *service.ReviewService
}

// NewReviewHandler creates a new review handler.
func NewReviewHandler(svc *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{service: svc}
}

// List godoc
// @Summary List reviews
// @Description List reviews with moderation filters
// @Tags Reviews
// @Produce json
// @Param agency_id query string false "Agency filter"
// @Param status query string false "Status filter"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /reviews [get]
func (h *ReviewHandler) List(c *gin.Context) {
	var filter models.ReviewFilter
	filter.AgencyID = c.Query("agency_id")
	if status := c.Query("status"); status != "" {
		s := models.ReviewStatus(status)
		filter.Status = &s
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}

	reviews, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reviews, pagination)
}

// ListApproved godoc
// @Summary List approved reviews for an agency
// @Tags Reviews
// @Produce json
// @Param agencyId path string true "Agency ID"
// @Success 200 {object} response.Envelope
// @Router /agencies/{agencyId}/reviews [get]
func (h *ReviewHandler) ListApproved(c *gin.Context) {
	reviews, err := h.service.ListApproved(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reviews, nil)
}

// Submit godoc
// @Summary Submit a review
// @Description Submit a review for moderation
// @Tags Reviews
// @Accept json
// @Produce json
// @Param payload body service.SubmitReviewRequest true "Review payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /reviews [post]
func (h *ReviewHandler) Submit(c *gin.Context) {
	var req service.SubmitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil && req.AuthorID == nil {
		req.AuthorID = &claims.UserID
	}

	review, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, review)
}

// Moderate godoc
// @Summary Moderate a review
// @Description Approve or reject a pending review
// @Tags Reviews
// @Accept json
// @Produce json
// @Param id path string true "Review ID"
// @Param payload body object true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /reviews/{id}/status [patch]
func (h *ReviewHandler) Moderate(c *gin.Context) {
	var payload struct {
		Status models.ReviewStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "status required"))
		return
	}

	review, err := h.service.Moderate(c.Request.Context(), c.Param("id"), payload.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, review, nil)
}

// Delete godoc
// @Summary Delete review
// @Tags Reviews
// @Produce json
// @Param id path string true "Review ID"
// @Success 204 {object} response.Envelope
// @Router /reviews/{id} [delete]
func (h *ReviewHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Respond godoc
// @Summary Respond to a review
// @Description Agency owner reply to an approved review
// @Tags Reviews
// @Accept json
// @Produce json
// @Param id path string true "Review ID"
// @Param payload body service.RespondToReviewRequest true "Response payload"
// @Success 201 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /reviews/{id}/responses [post]
func (h *ReviewHandler) Respond(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.RespondToReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid response payload"))
		return
	}

	reply, err := h.service.Respond(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, reply)
}

// ListResponses godoc
// @Summary List review responses
// @Tags Reviews
// @Produce json
// @Param id path string true "Review ID"
// @Success 200 {object} response.Envelope
// @Router /reviews/{id}/responses [get]
func (h *ReviewHandler) ListResponses(c *gin.Context) {
	responses, err := h.service.ListResponses(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, responses, nil)
}
