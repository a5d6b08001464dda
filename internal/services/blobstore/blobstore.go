package blobstore

import (
	"context"
	"io"

	"github.com/pkg/errors"
)

var (
	ErrAlreadyExists = errors.New("already exists")
	ErrNotFound      = errors.New("not found")
)

// Storage holds raw file bytes by opaque key. Metadata lives in the
// repository; a blob key is only ever reachable through a FileRecord.
type Storage interface {
	Put(ctx context.Context, key string, reader io.Reader, size int64) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
