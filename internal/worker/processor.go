package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"io"
	"time"

	"admin-dashboard/internal/models"
	"admin-dashboard/pkg/logger"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const finishTimeout = 10 * time.Second

// ErrInterrupted is returned when the task context was cancelled before the
// thumbnail was stored. The upload is put back to pending.
var ErrInterrupted = errors.New("upload processing interrupted")

type ObjectStore interface {
	DownloadFile(ctx context.Context, bucketName, objectName string) (io.ReadCloser, error)
	UploadFile(ctx context.Context, bucketName, objectName string, reader io.Reader, size int64, contentType string) (minio.UploadInfo, error)
}

type Repository interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.UploadStatus) error
	CompleteThumbnail(ctx context.Context, id uuid.UUID, thumbnail string) error
}

type Cache interface {
	Delete(ctx context.Context, key string) error
}

type Processor struct {
	store         ObjectStore
	repo          Repository
	cache         Cache
	thumbnailSize int
}

func NewProcessor(store ObjectStore, repo Repository, cache Cache, thumbnailSize int) *Processor {
	return &Processor{
		store:         store,
		repo:          repo,
		cache:         cache,
		thumbnailSize: thumbnailSize,
	}
}

// ThumbnailName is the object name of the thumbnail generated for an upload.
func ThumbnailName(id uuid.UUID) string {
	return id.String() + ".png"
}

// ProcessUpload renders the thumbnail for one accepted upload. Any failure
// after the status switch marks the upload failed, except cancellation,
// which resets it to pending. Final status writes outlive ctx.
func (p *Processor) ProcessUpload(ctx context.Context, task models.TaskMessage) error {
	id, err := uuid.Parse(task.UploadID)
	if err != nil {
		return fmt.Errorf("invalid upload id %q: %w", task.UploadID, err)
	}
	log := logger.Logger.With().Str("upload_id", id.String()).Logger()

	if err := p.repo.UpdateStatus(ctx, id, models.UploadStatusProcessing); err != nil {
		return fmt.Errorf("failed to mark processing: %w", err)
	}

	thumbnail, err := p.render(ctx, id, task)

	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()

	if err != nil {
		status := models.UploadStatusFailed
		if errors.Is(ctx.Err(), context.Canceled) {
			status = models.UploadStatusPending
			err = fmt.Errorf("%w: %w", ErrInterrupted, err)
		}
		if statusErr := p.repo.UpdateStatus(finishCtx, id, status); statusErr != nil {
			log.Warn().Err(statusErr).Str("status", string(status)).Msg("failed to update upload status")
		}
		p.invalidate(finishCtx, id)
		return err
	}

	if err := p.repo.CompleteThumbnail(finishCtx, id, thumbnail); err != nil {
		return fmt.Errorf("failed to mark completed: %w", err)
	}
	p.invalidate(finishCtx, id)

	log.Info().Str("thumbnail", thumbnail).Msg("thumbnail generated")
	return nil
}

func (p *Processor) render(ctx context.Context, id uuid.UUID, task models.TaskMessage) (string, error) {
	obj, err := p.store.DownloadFile(ctx, task.BucketName, task.ObjectName)
	if err != nil {
		return "", fmt.Errorf("failed to download original: %w", err)
	}
	defer obj.Close()

	img, err := imaging.Decode(obj, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("failed to decode original: %w", err)
	}

	thumb := imaging.Thumbnail(img, p.thumbnailSize, p.thumbnailSize, imaging.Lanczos)

	var buf bytes.Buffer
	if err := png.Encode(&buf, thumb); err != nil {
		return "", fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	name := ThumbnailName(id)
	if _, err := p.store.UploadFile(ctx, models.ThumbnailsBucket, name, &buf, int64(buf.Len()), "image/png"); err != nil {
		return "", fmt.Errorf("failed to upload thumbnail: %w", err)
	}
	return name, nil
}

func (p *Processor) invalidate(ctx context.Context, id uuid.UUID) {
	key := models.CacheKey(id)
	if err := p.cache.Delete(ctx, key); err != nil {
		logger.Logger.Warn().Err(err).Str("key", key).Msg("failed to invalidate cache")
	}
}
