// Package ports declares the contracts adapters implement.
package ports

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound is returned by GetObject and DeleteObject for unknown keys.
var ErrObjectNotFound = errors.New("object not found")

type PutObjectInput struct {
	ObjectKey   string
	ContentType string
	Reader      io.Reader
	Size        int64
}

type PutObjectOutput struct {
	// ObjectKey is what later Get/Delete calls use. localfs echoes the input
	// key; gdrive returns the Drive file id.
	ObjectKey string
	Size      int64
}

type SignedURLOutput struct {
	URL       string
	ExpiresAt time.Time
}

// StorageProvider stores published render artifacts (videos, thumbnails).
type StorageProvider interface {
	Provider() string

	PutObject(ctx context.Context, in PutObjectInput) (PutObjectOutput, error)
	GetObject(ctx context.Context, objectKey string) (rc io.ReadCloser, contentType string, size int64, err error)
	DeleteObject(ctx context.Context, objectKey string) error
	GetSignedURL(ctx context.Context, objectKey string, expiresIn time.Duration) (SignedURLOutput, error)
}

// LocalKeyer is implemented by providers whose objects are plain files.
// KeyFor returns the object key of a file already under the provider root,
// letting callers publish without copying.
type LocalKeyer interface {
	KeyFor(path string) (key string, ok bool)
}
