package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"scan2cal/calendar-app/internal/service"
)

// UploadHandler serves presigning, confirmation and cleaned-text reads.
type UploadHandler struct {
	uploads service.UploadService
	texts   service.TextService
}

func NewUploadHandler(uploads service.UploadService, texts service.TextService) *UploadHandler {
	return &UploadHandler{uploads: uploads, texts: texts}
}

// PresignRequest is either a single file or a batch under Files.
type PresignRequest struct {
	Filename    string             `json:"filename"`
	ContentType string             `json:"contentType"`
	Files       []service.FileSpec `json:"files"`
}

// Presign godoc
// @Summary Presign one or many direct uploads
// @Tags Uploads
// @Accept json
// @Produce json
// @Param request body PresignRequest true "File name(s) and content type(s)"
// @Success 200 {object} service.PresignedUpload "Single file"
// @Success 200 {object} gin.H "Batch: {uploads: [...]}"
// @Failure 400 {object} gin.H
// @Security BearerAuth
// @Router /uploads/presign [post]
func (h *UploadHandler) Presign(c *gin.Context) {
	var req PresignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	batch := req.Files != nil
	files := req.Files
	if !batch {
		files = []service.FileSpec{{Filename: req.Filename, ContentType: req.ContentType}}
	}

	presigned, err := h.uploads.Presign(c.Request.Context(), principal(c), files)
	if err != nil {
		respondError(c, err)
		return
	}
	if !batch {
		c.JSON(http.StatusOK, presigned[0])
		return
	}
	c.JSON(http.StatusOK, gin.H{"uploads": presigned})
}

// Confirm godoc
// @Summary Record a finished upload
// @Tags Uploads
// @Accept json
// @Produce json
// @Param request body service.ConfirmRequest true "Uploaded key and hints"
// @Success 201 {object} domain.Upload
// @Failure 400 {object} gin.H
// @Security BearerAuth
// @Router /uploads/confirm [post]
func (h *UploadHandler) Confirm(c *gin.Context) {
	var req service.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	upload, err := h.uploads.Confirm(c.Request.Context(), principal(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, upload)
}

// ListUploads godoc
// @Summary List confirmed uploads, oldest first
// @Tags Uploads
// @Produce json
// @Security BearerAuth
// @Success 200 {object} gin.H "{uploads: [...]}"
// @Failure 401 {object} gin.H
// @Router /uploads [get]
func (h *UploadHandler) ListUploads(c *gin.Context) {
	uploads, err := h.uploads.ListUploads(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"uploads": uploads})
}

// DeleteUpload godoc
// @Summary Delete an upload with its raw and cleaned objects
// @Tags Uploads
// @Security BearerAuth
// @Param uploadId path string true "Upload ID"
// @Success 204 "No Content"
// @Failure 404 {object} gin.H "Upload not found or not owned"
// @Router /uploads/{uploadId} [delete]
func (h *UploadHandler) DeleteUpload(c *gin.Context) {
	if err := h.uploads.DeleteUpload(c.Request.Context(), principal(c), c.Param("uploadId")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListCleanedSources godoc
// @Summary List cleaned texts available for extraction
// @Tags Uploads
// @Produce json
// @Security BearerAuth
// @Success 200 {object} gin.H "{sources: [...]}"
// @Router /uploads/cleaned [get]
func (h *UploadHandler) ListCleanedSources(c *gin.Context) {
	sources, err := h.uploads.ListCleanedSources(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sources": sources})
}

// GetUploadText godoc
// @Summary Read the cleaned text of an upload
// @Description Returns 404 until the cleaner has produced the text.
// @Tags Uploads
// @Produce json
// @Security BearerAuth
// @Param uploadId path string true "Upload ID"
// @Success 200 {object} gin.H "{text}"
// @Failure 404 {object} gin.H
// @Router /uploads/{uploadId}/text [get]
func (h *UploadHandler) GetUploadText(c *gin.Context) {
	text, err := h.texts.GetUploadText(c.Request.Context(), principal(c), c.Param("uploadId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}

// GetText godoc
// @Summary Read a cleaned text by storage key
// @Tags Uploads
// @Produce json
// @Security BearerAuth
// @Param key query string true "Cleaned object key"
// @Success 200 {object} gin.H "{key, text}"
// @Failure 400 {object} gin.H "Missing key"
// @Failure 404 {object} gin.H "Text not found"
// @Router /texts [get]
func (h *UploadHandler) GetText(c *gin.Context) {
	key := strings.TrimSpace(c.Query("key"))
	if key == "" {
		abortWithError(c, http.StatusBadRequest, "key query parameter is required")
		return
	}
	text, err := h.texts.GetText(c.Request.Context(), principal(c), key)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "text": text})
}
