package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/blkmlk/file-dashboard/env"
)

type fsStorage struct {
	rootPath string
}

func NewFS() (Storage, error) {
	rootPath, err := env.Get(env.FSRootPath)
	if err != nil {
		return nil, err
	}

	return &fsStorage{
		rootPath: rootPath,
	}, nil
}

func (f *fsStorage) Put(ctx context.Context, key string, reader io.Reader, size int64) error {
	filePath := f.getFilePath(key)

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0700)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return ErrAlreadyExists
		}
		return err
	}
	defer file.Close()

	if _, err = io.CopyN(file, reader, size); err != nil {
		return err
	}
	return nil
}

func (f *fsStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	filePath := f.getFilePath(key)

	file, err := os.OpenFile(filePath, os.O_RDONLY, 0700)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return file, nil
}

func (f *fsStorage) Delete(ctx context.Context, key string) error {
	filePath := f.getFilePath(key)

	if err := os.Remove(filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (f *fsStorage) getFilePath(key string) string {
	return fmt.Sprintf("%s/%s", f.rootPath, key)
}
