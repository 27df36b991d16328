package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/studybridge/studybridge-api/internal/models"
	"github.com/studybridge/studybridge-api/internal/service"
	"github.com/studybridge/studybridge-api/pkg/response"
)

// ListingHandler serves the public agency directory.
type ListingHandler struct {
	service *service.ListingService
}

// NewListingHandler creates a new listing handler.
func NewListingHandler(svc *service.ListingService) *ListingHandler {
	return &ListingHandler{service: svc}
}

// List godoc
// @Summary Browse agency directory
// @Description Filter, sort and paginate the approved agency directory
// @Tags Directory
// @Produce json
// @Param q query string false "Search query"
// @Param min_rating query number false "Minimum rating"
// @Param max_price query string false "Maximum price"
// @Param specializations query string false "Comma separated specializations"
// @Param verified_only query bool false "Verified agencies only"
// @Param location query string false "Location filter"
// @Param page query int false "Page number"
// @Success 200 {object} response.Envelope
// @Router /listings [get]
func (h *ListingHandler) List(c *gin.Context) {
	filter := models.ListingFilter{
		SearchQuery:  c.Query("q"),
		MaxPrice:     c.Query("max_price"),
		Location:     c.Query("location"),
		VerifiedOnly: c.Query("verified_only") == "true",
		Page:         1,
	}
	if rating, err := strconv.ParseFloat(c.Query("min_rating"), 64); err == nil {
		filter.MinRating = rating
	}
	if specs := c.Query("specializations"); specs != "" {
		for _, s := range strings.Split(specs, ",") {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				filter.Specializations = append(filter.Specializations, trimmed)
			}
		}
	}
	if page, err := strconv.Atoi(c.Query("page")); err == nil && page > 0 {
		filter.Page = page
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result.Agencies, &result.Pagination)
}
