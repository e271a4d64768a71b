package models

import (
	"time"

	"github.com/google/uuid"
)

type UploadStatus string

const (
	UploadStatusPending    UploadStatus = "pending"
	UploadStatusProcessing UploadStatus = "processing"
	UploadStatusCompleted  UploadStatus = "completed"
	UploadStatusFailed     UploadStatus = "failed"
)

const (
	OriginalsBucket  = "dashboard-originals"
	ThumbnailsBucket = "dashboard-thumbnails"
)

// Upload is an image accepted by a dashboard form.
type Upload struct {
	ID          uuid.UUID    `json:"id" db:"id"`
	Profile     string       `json:"profile" db:"profile"`
	Filename    string       `json:"filename" db:"filename"`
	ContentType string       `json:"content_type" db:"content_type"`
	Width       int          `json:"width" db:"width"`
	Height      int          `json:"height" db:"height"`
	SizeBytes   int64        `json:"size_bytes" db:"size_bytes"`
	Status      UploadStatus `json:"status" db:"status"`
	BucketName  string       `json:"bucket_name" db:"bucket_name"`
	ObjectName  string       `json:"object_name" db:"object_name"`
	Thumbnail   string       `json:"thumbnail,omitempty" db:"thumbnail"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
}

// TaskMessage is the thumbnail job published for every accepted upload.
type TaskMessage struct {
	UploadID   string `json:"upload_id"`
	BucketName string `json:"bucket_name"`
	ObjectName string `json:"object_name"`
}

// CacheKey is the Redis key holding the rendered upload response.
func CacheKey(id uuid.UUID) string {
	return "upload:" + id.String()
}
