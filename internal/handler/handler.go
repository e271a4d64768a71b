package handler

import (
	"context"
	"io"
	"time"

	"admin-dashboard/internal/models"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

type UploadStore interface {
	Create(ctx context.Context, u *models.Upload) error
	Get(ctx context.Context, id uuid.UUID) (*models.Upload, error)
	List(ctx context.Context, profile string, limit, offset int) ([]models.Upload, error)
	Count(ctx context.Context, profile string) (int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.UploadStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type ObjectStorage interface {
	UploadFile(ctx context.Context, bucketName, objectName string, reader io.Reader, size int64, contentType string) (minio.UploadInfo, error)
	GetFileLink(ctx context.Context, bucketName, objectName string, expires time.Duration) (string, error)
	RemoveFile(ctx context.Context, bucketName, objectName string) error
}

type Publisher interface {
	Publish(ctx context.Context, body []byte) error
}

type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
}

type Options struct {
	MaxUploadSize int64
	CacheTTL      time.Duration
	LinkTTL       time.Duration
}

type Handler struct {
	store     UploadStore
	objects   ObjectStorage
	publisher Publisher
	cache     Cache
	opts      Options
}

func NewHandler(store UploadStore, objects ObjectStorage, publisher Publisher, cache Cache, opts Options) *Handler {
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = 10 << 20
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	if opts.LinkTTL <= 0 {
		opts.LinkTTL = 15 * time.Minute
	}
	return &Handler{
		store:     store,
		objects:   objects,
		publisher: publisher,
		cache:     cache,
		opts:      opts,
	}
}
