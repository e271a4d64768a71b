package handler

import (
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"admin-dashboard/internal/imagecheck"
	"admin-dashboard/internal/models"
	"admin-dashboard/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
}

type UploadResponse struct {
	ID         string                 `json:"id"`
	Filename   string                 `json:"filename"`
	Profile    string                 `json:"profile"`
	Status     string                 `json:"status"`
	Dimensions *imagecheck.Dimensions `json:"dimensions,omitempty"`
	Message    string                 `json:"message"`
}

// validateProfile runs the named profile, or the lenient variant check for
// "variant". ok is false for unknown names.
func validateProfile(name string, f imagecheck.File) (imagecheck.Result, bool) {
	if name == imagecheck.VariantProfile {
		return imagecheck.ValidateVariant(f), true
	}
	p, ok := imagecheck.Lookup(name)
	if !ok {
		return imagecheck.Result{}, false
	}
	return imagecheck.Validate(f, p), true
}

// formImage reads the "image" part and resolves its content type from the
// extension. On failure the response has already been written.
func (h *Handler) formImage(c *gin.Context) (*multipart.FileHeader, string, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.opts.MaxUploadSize)

	header, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to get file from request"})
		return nil, "", false
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	contentType, ok := contentTypes[ext]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only .jpg, .jpeg, .png, .gif and .webp extensions are allowed"})
		return nil, "", false
	}
	return header, contentType, true
}

// ValidateImage reports whether the image satisfies the profile without storing it.
func (h *Handler) ValidateImage(c *gin.Context) {
	profile := c.Param("profile")
	header, _, ok := h.formImage(c)
	if !ok {
		return
	}

	result, ok := validateProfile(profile, imagecheck.FromFileHeader(header))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown image profile"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// UploadImage validates the image, stores the original and queues a thumbnail job.
func (h *Handler) UploadImage(c *gin.Context) {
	profile := c.Param("profile")
	header, contentType, ok := h.formImage(c)
	if !ok {
		return
	}

	result, ok := validateProfile(profile, imagecheck.FromFileHeader(header))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown image profile"})
		return
	}
	if !result.Valid {
		logger.Logger.Info().Str("profile", profile).Str("filename", header.Filename).Str("reason", result.Error).Msg("upload rejected")
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	defer file.Close()

	id := uuid.New()
	upload := &models.Upload{
		ID:          id,
		Profile:     profile,
		Filename:    header.Filename,
		ContentType: contentType,
		SizeBytes:   header.Size,
		Status:      models.UploadStatusPending,
		BucketName:  models.OriginalsBucket,
		ObjectName:  id.String() + strings.ToLower(filepath.Ext(header.Filename)),
	}
	if result.Dimensions != nil {
		upload.Width = result.Dimensions.Width
		upload.Height = result.Dimensions.Height
	}
	log := logger.Logger.With().Str("upload_id", id.String()).Str("profile", profile).Logger()

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	if _, err := h.objects.UploadFile(ctx, upload.BucketName, upload.ObjectName, file, header.Size, contentType); err != nil {
		log.Error().Err(err).Msg("failed to store original")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload file"})
		return
	}

	if err := h.store.Create(ctx, upload); err != nil {
		log.Error().Err(err).Msg("failed to save upload")
		if rmErr := h.objects.RemoveFile(ctx, upload.BucketName, upload.ObjectName); rmErr != nil {
			log.Warn().Err(rmErr).Msg("failed to remove orphaned original")
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save to database"})
		return
	}

	msg, err := json.Marshal(models.TaskMessage{
		UploadID:   id.String(),
		BucketName: upload.BucketName,
		ObjectName: upload.ObjectName,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create task message"})
		return
	}
	if err := h.publisher.Publish(ctx, msg); err != nil {
		log.Error().Err(err).Msg("failed to publish thumbnail task")
		if stErr := h.store.UpdateStatus(ctx, id, models.UploadStatusFailed); stErr != nil {
			log.Warn().Err(stErr).Msg("failed to mark upload failed")
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue thumbnail"})
		return
	}

	log.Info().Str("filename", header.Filename).Msg("upload accepted")
	c.JSON(http.StatusCreated, UploadResponse{
		ID:         id.String(),
		Filename:   header.Filename,
		Profile:    profile,
		Status:     string(models.UploadStatusPending),
		Dimensions: result.Dimensions,
		Message:    "Image uploaded successfully and queued for thumbnail generation",
	})
}
