package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studybridge/studybridge-api/internal/service"
	appErrors "github.com/studybridge/studybridge-api/pkg/errors"
	"github.com/studybridge/studybridge-api/pkg/response"
)

// ImportHandler accepts bulk CSV uploads for the catalogue and directory.
type ImportHandler struct {
	service      *service.ImportService
	maxSizeBytes int64
}

// NewImportHandler creates a new import handler.
func NewImportHandler(svc *service.ImportService, maxSizeBytes int64) *ImportHandler {
	if maxSizeBytes <= 0 {
		maxSizeBytes = 5 << 20
	}
	return &ImportHandler{service: svc, maxSizeBytes: maxSizeBytes}
}

// ImportCourses godoc
// @Summary Bulk import courses
// @Description Upload a CSV file of courses
// @Tags Imports
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV file"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /imports/courses [post]
func (h *ImportHandler) ImportCourses(c *gin.Context) {
	content, err := h.readUpload(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	status, err := h.service.ImportCourses(c.Request.Context(), content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// ImportAgencies godoc
// @Summary Bulk import agencies
// @Description Upload a CSV file of agencies
// @Tags Imports
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV file"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /imports/agencies [post]
func (h *ImportHandler) ImportAgencies(c *gin.Context) {
	content, err := h.readUpload(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	status, err := h.service.ImportAgencies(c.Request.Context(), content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

func (h *ImportHandler) readUpload(c *gin.Context) (string, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "csv file is required")
	}
	if header.Size > h.maxSizeBytes {
		return "", appErrors.Clone(appErrors.ErrPayloadTooLarge, "csv file exceeds the upload limit")
	}

	file, err := header.Open()
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open upload")
	}
	defer file.Close() //nolint:errcheck

	// LimitReader guards against a forged Content-Length in the part header.
	data, err := io.ReadAll(io.LimitReader(file, h.maxSizeBytes+1))
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload")
	}
	if int64(len(data)) > h.maxSizeBytes {
		return "", appErrors.Clone(appErrors.ErrPayloadTooLarge, "csv file exceeds the upload limit")
	}
	return string(data), nil
}
