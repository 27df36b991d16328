package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studybridge/studybridge-api/internal/models"
	"github.com/studybridge/studybridge-api/internal/service"
	appErrors "github.com/studybridge/studybridge-api/pkg/errors"
	"github.com/studybridge/studybridge-api/pkg/response"
)

// BuddyHandler exposes the study buddy network endpoints.
type BuddyHandler struct {
	service *service.BuddyService
}

// NewBuddyHandler creates a new buddy handler.
func NewBuddyHandler(svc *service.BuddyService) *BuddyHandler {
	return &BuddyHandler{service: svc}
}

// Search godoc
// @Summary Search study buddies
// @Tags Buddies
// @Produce json
// @Param destination_country query string false "Destination country"
// @Param university query string false "University"
// @Param field_of_study query string false "Field of study"
// @Param intake query string false "Intake"
// @Success 200 {object} response.Envelope
// @Router /buddies [get]
func (h *BuddyHandler) Search(c *gin.Context) {
	criteria := models.BuddySearch{
		DestinationCountry: c.Query("destination_country"),
		University:         c.Query("university"),
		FieldOfStudy:       c.Query("field_of_study"),
		Intake:             c.Query("intake"),
	}

	buddies, err := h.service.Search(c.Request.Context(), criteria)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, buddies, nil)
}

// Register godoc
// @Summary Register as a study buddy
// @Tags Buddies
// @Accept json
// @Produce json
// @Param payload body service.RegisterBuddyRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /buddies [post]
func (h *BuddyHandler) Register(c *gin.Context) {
	var req service.RegisterBuddyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}

	buddy, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, buddy)
}

// Remove godoc
// @Summary Remove a buddy profile
// @Tags Buddies
// @Produce json
// @Param id path string true "Buddy ID"
// @Success 204 {object} response.Envelope
// @Router /buddies/{id} [delete]
func (h *BuddyHandler) Remove(c *gin.Context) {
	if err := h.service.Remove(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// FormFields godoc
// @Summary List registration form fields
// @Tags Buddies
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /buddies/form-fields [get]
func (h *BuddyHandler) FormFields(c *gin.Context) {
	fields, err := h.service.FormFields(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fields, nil)
}

// SaveFormField godoc
// @Summary Create or update a registration form field
// @Tags Buddies
// @Accept json
// @Produce json
// @Param payload body service.SaveFormFieldRequest true "Form field payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /buddies/form-fields [put]
func (h *BuddyHandler) SaveFormField(c *gin.Context) {
	var req service.SaveFormFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid form field payload"))
		return
	}

	field, err := h.service.SaveFormField(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, field, nil)
}

// DeleteFormField godoc
// @Summary Delete a registration form field
// @Tags Buddies
// @Produce json
// @Param id path string true "Field ID"
// @Success 204 {object} response.Envelope
// @Router /buddies/form-fields/{id} [delete]
func (h *BuddyHandler) DeleteFormField(c *gin.Context) {
	if err := h.service.DeleteFormField(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
