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

// BlogHandler exposes the knowledge hub endpoints.
type BlogHandler struct {
	service *service.BlogService
}

// NewBlogHandler creates a new blog handler.
func NewBlogHandler(svc *service.BlogService) *BlogHandler {
	return &BlogHandler{service: svc}
}

// List godoc
// @Summary List blog posts
// @Tags Blog
// @Produce json
// @Param tag query string false "Tag filter"
// @Param search query string false "Search term"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /blog [get]
func (h *BlogHandler) List(c *gin.Context) {
	filter := models.BlogFilter{
		Tag:           c.Query("tag"),
		Search:        c.Query("search"),
		PublishedOnly: claimsFromContext(c) == nil,
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}

	posts, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, posts, pagination)
}

// GetBySlug godoc
// @Summary Get blog post
// @Tags Blog
// @Produce json
// @Param slug path string true "Post slug"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /blog/{slug} [get]
func (h *BlogHandler) GetBySlug(c *gin.Context) {
	includeDrafts := claimsFromContext(c) != nil
	post, err := h.service.GetBySlug(c.Request.Context(), c.Param("slug"), includeDrafts)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, post, nil)
}

// Create godoc
// @Summary Create blog post
// @Tags Blog
// @Accept json
// @Produce json
// @Param payload body service.CreateBlogPostRequest true "Post payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /blog [post]
func (h *BlogHandler) Create(c *gin.Context) {
	var req service.CreateBlogPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid post payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil && req.AuthorID == nil {
		req.AuthorID = &claims.UserID
	}

	post, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, post)
}

// Update godoc
// @Summary Update blog post
// @Tags Blog
// @Accept json
// @Produce json
// @Param id path string true "Post ID"
// @Param payload body service.UpdateBlogPostRequest true "Post payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /blog/posts/{id} [put]
func (h *BlogHandler) Update(c *gin.Context) {
	var req service.UpdateBlogPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid post payload"))
		return
	}

	post, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, post, nil)
}

// Delete godoc
// @Summary Delete blog post
// @Tags Blog
// @Produce json
// @Param id path string true "Post ID"
// @Success 204 {object} response.Envelope
// @Router /blog/posts/{id} [delete]
func (h *BlogHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
