package mocks

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/blkmlk/file-dashboard/internal/services/uploader"
)

// UploadClient is a scriptable uploader.Client. It consumes the request body
// (driving progress callbacks), can fail the first N attempts per file name,
// and records the highest number of concurrent uploads it ever saw.
type UploadClient struct {
	locker    sync.Mutex
	delay     time.Duration
	failures  map[string]int
	attempts  map[string]int
	active    int
	maxActive int
}

func NewUploadClient() *UploadClient {
	return &UploadClient{
		failures: make(map[string]int),
		attempts: make(map[string]int),
	}
}

func (c *UploadClient) SetDelay(delay time.Duration) {
	c.locker.Lock()
	defer c.locker.Unlock()
	c.delay = delay
}

// FailTimes makes the next n uploads of fileName fail.
func (c *UploadClient) FailTimes(fileName string, n int) {
	c.locker.Lock()
	defer c.locker.Unlock()
	c.failures[fileName] = n
}

func (c *UploadClient) Attempts(fileName string) int {
	c.locker.Lock()
	defer c.locker.Unlock()
	return c.attempts[fileName]
}

func (c *UploadClient) MaxActive() int {
	c.locker.Lock()
	defer c.locker.Unlock()
	return c.maxActive
}

func (c *UploadClient) Upload(ctx context.Context, req uploader.UploadRequest) (*uploader.UploadResponse, error) {
	c.locker.Lock()
	c.attempts[req.FileName]++
	c.active++
	if c.active > c.maxActive {
		c.maxActive = c.active
	}
	delay := c.delay
	c.locker.Unlock()

	defer func() {
		c.locker.Lock()
		c.active--
		c.locker.Unlock()
	}()

	if _, err := io.Copy(io.Discard, req.Body); err != nil {
		return nil, err
	}

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	c.locker.Lock()
	fail := c.failures[req.FileName] > 0
	if fail {
		c.failures[req.FileName]--
	}
	c.locker.Unlock()

	if fail {
		return nil, errors.New("upload endpoint unavailable")
	}

	return &uploader.UploadResponse{
		Success: true,
		FileID:  uuid.NewString(),
		URL:     "http://blobs/" + uuid.NewString(),
	}, nil
}
