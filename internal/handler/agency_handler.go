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

// AgencyHandler exposes agency management endpoints.
type AgencyHandler struct {
	service *service.AgencyService
}

// NewAgencyHandler creates a new agency handler.
func NewAgencyHandler(svc *service.AgencyService) *AgencyHandler {
	return &AgencyHandler{service: svc}
}

// List godoc
// @Summary List agencies
// @Description List agencies with pagination and filtering
// @Tags Agencies
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param status query string false "Status filter"
// @Param search query string false "Search term"
// @Success 200 {object} response.Envelope
// @Router /agencies [get]
func (h *AgencyHandler) List(c *gin.Context) {
	var filter models.AgencyFilter

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}
	if status := c.Query("status"); status != "" {
		s := models.AgencyStatus(status)
		filter.Status = &s
	}
	filter.Search = c.Query("search")
	filter.SortBy = c.Query("sort_by")
	filter.SortOrder = c.Query("sort_order")

	agencies, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, agencies, pagination)
}

// Get godoc
// @Summary Get agency
// @Description Get agency detail with services and photos
// @Tags Agencies
// @Produce json
// @Param id path string true "Agency ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /agencies/{id} [get]
func (h *AgencyHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// GetBySlug godoc
// @Summary Get agency by slug
// @Description Public agency profile lookup
// @Tags Agencies
// @Produce json
// @Param slug path string true "Agency slug"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /agencies/slug/{slug} [get]
func (h *AgencyHandler) GetBySlug(c *gin.Context) {
	detail, err := h.service.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Register agency
// @Description Create a new agency profile
// @Tags Agencies
// @Accept json
// @Produce json
// @Param payload body service.CreateAgencyRequest true "Agency payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /agencies [post]
func (h *AgencyHandler) Create(c *gin.Context) {
	var req service.CreateAgencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid agency payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleAgencyOwner {
		req.OwnerID = &claims.UserID
	}

	agency, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, agency)
}

// Update godoc
// @Summary Update agency
// @Description Update agency profile details
// @Tags Agencies
// @Accept json
// @Produce json
// @Param id path string true "Agency ID"
// @Param payload body service.UpdateAgencyRequest true "Agency payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /agencies/{id} [put]
func (h *AgencyHandler) Update(c *gin.Context) {
	var req service.UpdateAgencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid agency payload"))
		return
	}

	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required"))
		return
	}

	agency, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, agency, nil)
}

// UpdateStatus godoc
// @Summary Moderate agency
// @Description Approve or reject a pending agency
// @Tags Agencies
// @Accept json
// @Produce json
// @Param id path string true "Agency ID"
// @Param payload body object true "Status payload"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /agencies/{id}/status [patch]
func (h *AgencyHandler) UpdateStatus(c *gin.Context) {
	var payload struct {
		Status models.AgencyStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "status required"))
		return
	}

	if err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), payload.Status); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SetVerified godoc
// @Summary Toggle verified badge
// @Description Set the verified flag and recompute the trust score
// @Tags Agencies
// @Accept json
// @Produce json
// @Param id path string true "Agency ID"
// @Param payload body object true "Verified payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /agencies/{id}/verify [patch]
func (h *AgencyHandler) SetVerified(c *gin.Context) {
	var payload struct {
		Verified *bool `json:"verified" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil || payload.Verified == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "verified flag required"))
		return
	}

	score, err := h.service.SetVerified(c.Request.Context(), c.Param("id"), *payload.Verified)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"trust_score": score}, nil)
}

// Delete godoc
// @Summary Delete agency
// @Description Remove an agency and its listing entry
// @Tags Agencies
// @Produce json
// @Param id path string true "Agency ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /agencies/{id} [delete]
func (h *AgencyHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddService godoc
// @Summary Add agency service
// @Tags Agencies
// @Accept json
// @Produce json
// @Param id path string true "Agency ID"
// @Param payload body service.AddAgencyServiceRequest true "Service payload"
// @Success 201 {object} response.Envelope
// @Router /agencies/{id}/services [post]
func (h *AgencyHandler) AddService(c *gin.Context) {
	var req service.AddAgencyServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid service payload"))
		return
	}

	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required"))
		return
	}

	svc, err := h.service.AddService(c.Request.Context(), c.Param("id"), req, claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, svc)
}

// RemoveService godoc
// @Summary Remove agency service
// @Tags Agencies
// @Produce json
// @Param id path string true "Agency ID"
// @Param serviceId path string true "Service ID"
// @Success 204 {object} response.Envelope
// @Router /agencies/{id}/services/{serviceId} [delete]
func (h *AgencyHandler) RemoveService(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required"))
		return
	}
	if err := h.service.RemoveService(c.Request.Context(), c.Param("id"), c.Param("serviceId"), claims.UserID, claims.Role); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddPhoto godoc
// @Summary Add agency photo
// @Tags Agencies
// @Accept json
// @Produce json
// @Param id path string true "Agency ID"
// @Param payload body service.AddAgencyPhotoRequest true "Photo payload"
// @Success 201 {object} response.Envelope
// @Router /agencies/{id}/photos [post]
func (h *AgencyHandler) AddPhoto(c *gin.Context) {
	var req service.AddAgencyPhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid photo payload"))
		return
	}

	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required"))
		return
	}

	photo, err := h.service.AddPhoto(c.Request.Context(), c.Param("id"), req, claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, photo)
}

// RemovePhoto godoc
// @Summary Remove agency photo
// @Tags Agencies
// @Produce json
// @Param id path string true "Agency ID"
// @Param photoId path string true "Photo ID"
// @Success 204 {object} response.Envelope
// @Router /agencies/{id}/photos/{photoId} [delete]
func (h *AgencyHandler) RemovePhoto(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required"))
		return
	}
	if err := h.service.RemovePhoto(c.Request.Context(), c.Param("id"), c.Param("photoId"), claims.UserID, claims.Role); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
