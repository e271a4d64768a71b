package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"admin-dashboard/internal/models"
	"admin-dashboard/internal/repository/uploads"
	"admin-dashboard/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ImageResponse struct {
	ID           string    `json:"id"`
	Profile      string    `json:"profile"`
	Filename     string    `json:"filename"`
	ContentType  string    `json:"content_type"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	SizeBytes    int64     `json:"size_bytes"`
	Status       string    `json:"status"`
	BucketName   string    `json:"bucket_name"`
	ObjectName   string    `json:"object_name"`
	Thumbnail    string    `json:"thumbnail,omitempty"`
	DownloadURL  string    `json:"download_url,omitempty"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func newImageResponse(u *models.Upload) ImageResponse {
	return ImageResponse{
		ID:          u.ID.String(),
		Profile:     u.Profile,
		Filename:    u.Filename,
		ContentType: u.ContentType,
		Width:       u.Width,
		Height:      u.Height,
		SizeBytes:   u.SizeBytes,
		Status:      string(u.Status),
		BucketName:  u.BucketName,
		ObjectName:  u.ObjectName,
		Thumbnail:   u.Thumbnail,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// withLinks fills presigned URLs; they expire, so they are never cached.
func (h *Handler) withLinks(ctx context.Context, r ImageResponse) ImageResponse {
	if url, err := h.objects.GetFileLink(ctx, r.BucketName, r.ObjectName, h.opts.LinkTTL); err == nil {
		r.DownloadURL = url
	}
	if r.Status == string(models.UploadStatusCompleted) && r.Thumbnail != "" {
		if url, err := h.objects.GetFileLink(ctx, models.ThumbnailsBucket, r.Thumbnail, h.opts.LinkTTL); err == nil {
			r.ThumbnailURL = url
		}
	}
	return r
}

// settled reports whether the worker is done with an upload. Only settled rows
// are cached; the worker may still change the others.
func settled(status models.UploadStatus) bool {
	return status == models.UploadStatusCompleted || status == models.UploadStatusFailed
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid upload ID format"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) GetUpload(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	cacheKey := models.CacheKey(id)
	if cached, err := h.cache.Get(ctx, cacheKey); err == nil {
		var response ImageResponse
		if err := json.Unmarshal([]byte(cached), &response); err == nil {
			c.JSON(http.StatusOK, h.withLinks(ctx, response))
			return
		}
	}

	upload, err := h.store.Get(ctx, id)
	if errors.Is(err, uploads.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Upload not found"})
		return
	}
	if err != nil {
		logger.Logger.Error().Err(err).Str("upload_id", id.String()).Msg("failed to load upload")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load upload"})
		return
	}

	response := newImageResponse(upload)
	if settled(upload.Status) {
		if b, err := json.Marshal(response); err == nil {
			if err := h.cache.Set(ctx, cacheKey, string(b), h.opts.CacheTTL); err != nil {
				logger.Logger.Warn().Err(err).Str("key", cacheKey).Msg("failed to cache upload")
			}
		}
	}

	c.JSON(http.StatusOK, h.withLinks(ctx, response))
}

func (h *Handler) DeleteUpload(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	upload, err := h.store.Get(ctx, id)
	if errors.Is(err, uploads.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Upload not found"})
		return
	}
	if err != nil {
		logger.Logger.Error().Err(err).Str("upload_id", id.String()).Msg("failed to load upload")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load upload"})
		return
	}

	log := logger.Logger.With().Str("upload_id", id.String()).Logger()
	if err := h.objects.RemoveFile(ctx, upload.BucketName, upload.ObjectName); err != nil {
		log.Warn().Err(err).Msg("failed to remove original")
	}
	if upload.Thumbnail != "" {
		if err := h.objects.RemoveFile(ctx, models.ThumbnailsBucket, upload.Thumbnail); err != nil {
			log.Warn().Err(err).Msg("failed to remove thumbnail")
		}
	}

	if err := h.store.Delete(ctx, id); err != nil && !errors.Is(err, uploads.ErrNotFound) {
		log.Error().Err(err).Msg("failed to delete upload")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete upload"})
		return
	}
	if err := h.cache.Delete(ctx, models.CacheKey(id)); err != nil {
		log.Warn().Err(err).Msg("failed to invalidate cache")
	}

	log.Info().Msg("upload deleted")
	c.Status(http.StatusNoContent)
}
