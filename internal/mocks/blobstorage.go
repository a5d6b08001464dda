package mocks

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/blkmlk/file-dashboard/internal/services/blobstore"
)

// BlobStorage is an in-memory blobstore.Storage. Individual keys can be
// scripted to fail deletion to exercise the tolerated-failure path.
type BlobStorage struct {
	locker     sync.Mutex
	objects    map[string][]byte
	failDelete map[string]struct{}
}

func NewBlobStorage() *BlobStorage {
	return &BlobStorage{
		objects:    make(map[string][]byte),
		failDelete: make(map[string]struct{}),
	}
}

func (b *BlobStorage) Put(ctx context.Context, key string, reader io.Reader, size int64) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	b.locker.Lock()
	defer b.locker.Unlock()

	if _, ok := b.objects[key]; ok {
		return blobstore.ErrAlreadyExists
	}
	b.objects[key] = data
	return nil
}

func (b *BlobStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	b.locker.Lock()
	defer b.locker.Unlock()

	data, ok := b.objects[key]
	if !ok {
		return nil, blobstore.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *BlobStorage) Delete(ctx context.Context, key string) error {
	b.locker.Lock()
	defer b.locker.Unlock()

	if _, ok := b.failDelete[key]; ok {
		return errors.New("blob store unavailable")
	}
	if _, ok := b.objects[key]; !ok {
		return blobstore.ErrNotFound
	}
	delete(b.objects, key)
	return nil
}

// FailDelete makes every Delete of key fail until the key is removed from
// the script.
func (b *BlobStorage) FailDelete(key string) {
	b.locker.Lock()
	defer b.locker.Unlock()
	b.failDelete[key] = struct{}{}
}

func (b *BlobStorage) Has(key string) bool {
	b.locker.Lock()
	defer b.locker.Unlock()
	_, ok := b.objects[key]
	return ok
}

func (b *BlobStorage) Len() int {
	b.locker.Lock()
	defer b.locker.Unlock()
	return len(b.objects)
}
