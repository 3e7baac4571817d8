package storage

import (
	"context"
	"errors"
	"time"
)

const (
	// PresignedUploadExpiry is how long a presigned PUT stays valid.
	PresignedUploadExpiry = 60 * time.Second
	// DefaultPresignedURLExpiry applies when a caller passes a non-positive expiry.
	DefaultPresignedURLExpiry = 15 * time.Minute
	// MaxReadSize caps how many bytes ReadObject will buffer.
	MaxReadSize = 8 << 20
)

// ErrObjectNotFound is returned when the requested key does not exist.
var ErrObjectNotFound = errors.New("object not found in storage")

// ObjectInfo describes one listed object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ETag         string
}

// FileStorage defines the interface for object storage operations.
type FileStorage interface {
	// GeneratePresignedUploadURL creates a temporary URL that allows a single PUT
	// of objectKey with the given Content-Type.
	GeneratePresignedUploadURL(ctx context.Context, objectKey string, contentType string, expires time.Duration) (string, error)

	// GeneratePresignedDownloadURL creates a temporary URL that allows GET requests.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)

	// ReadObject fetches the whole object. Missing keys yield ErrObjectNotFound.
	ReadObject(ctx context.Context, objectKey string) ([]byte, error)

	// ListObjects returns every object whose key starts with prefix.
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// DeleteObject removes an object. Deleting a missing key is not an error.
	DeleteObject(ctx context.Context, objectKey string) error

	// BucketName is the bucket all keys refer to.
	BucketName() string
}
