package uploader

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/blkmlk/file-dashboard/internal/services/cache"
)

const (
	DefaultMaxConcurrent  = 3
	DefaultRetryAttempts  = 3
	DefaultAttemptTimeout = 5 * time.Minute
	DefaultRetryBackoff   = time.Second

	pausePollInterval = 100 * time.Millisecond
)

var (
	ErrBusy     = errors.New("file is already being uploaded")
	ErrCanceled = errors.New("upload canceled")
)

type Config struct {
	MaxConcurrent int
	RetryAttempts int
	// AttemptTimeout bounds a single request; a timed-out attempt counts
	// as a failure and goes through the retry policy.
	AttemptTimeout time.Duration
	// RetryBackoff is doubled per attempt: backoff = RetryBackoff << attempt.
	RetryBackoff time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxConcurrent:  DefaultMaxConcurrent,
		RetryAttempts:  DefaultRetryAttempts,
		AttemptTimeout: DefaultAttemptTimeout,
		RetryBackoff:   DefaultRetryBackoff,
	}
}

// File is one pending upload. Open must return a fresh reader per call so
// that a retried attempt re-reads from the start.
type File struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

type Result struct {
	TaskID   string
	FileName string
	FileID   string
	URL      string
	Err      error
}

// Orchestrator drives uploads through the tracker with a bounded number of
// concurrent dispatches and exponential-backoff retry.
type Orchestrator struct {
	tracker *Tracker
	client  Client
	cache   cache.Cache
	cfg     Config
	log     *zap.SugaredLogger
}

func NewOrchestrator(
	tracker *Tracker,
	client Client,
	c cache.Cache,
	cfg Config,
	log *zap.SugaredLogger,
) *Orchestrator {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultAttemptTimeout
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}

	return &Orchestrator{
		tracker: tracker,
		client:  client,
		cache:   c,
		cfg:     cfg,
		log:     log,
	}
}

func (o *Orchestrator) Tracker() *Tracker {
	return o.tracker
}

// UploadMany uploads every file with at most MaxConcurrent dispatches
// outstanding. The returned slice is ordered by completion, not by input;
// correlate by TaskID when positional correspondence matters.
func (o *Orchestrator) UploadMany(ctx context.Context, ownerID string, parentID *string, files []File) []Result {
	permits := make(chan struct{}, o.cfg.MaxConcurrent)
	results := make(chan Result, len(files))

	var wg sync.WaitGroup
	for _, file := range files {
		taskID := o.tracker.Register(file.Name, file.Size)

		wg.Add(1)
		go func(file File, taskID string) {
			defer wg.Done()

			permits <- struct{}{}
			defer func() {
				<-permits
			}()

			results <- o.uploadOne(ctx, ownerID, parentID, file, taskID)
		}(file, taskID)
	}
	wg.Wait()
	close(results)

	ordered := make([]Result, 0, len(files))
	for result := range results {
		ordered = append(ordered, result)
	}
	return ordered
}

// CancelUpload drops local tracking state. It does not abort an in-flight
// request; the orchestrator notices the missing task before the next attempt.
func (o *Orchestrator) CancelUpload(taskID string) {
	o.tracker.Remove(taskID)
}

func (o *Orchestrator) uploadOne(ctx context.Context, ownerID string, parentID *string, file File, taskID string) Result {
	result := Result{
		TaskID:   taskID,
		FileName: file.Name,
	}

	keys := []string{file.Name}
	if err := o.cache.Lock(keys); err != nil {
		o.tracker.Fail(taskID, ErrBusy.Error())
		result.Err = ErrBusy
		return result
	}
	defer o.cache.Unlock(keys)

	o.tracker.Start(taskID)

	var lastErr error
	for attempt := 0; attempt <= o.cfg.RetryAttempts; attempt++ {
		if attempt > 0 {
			backoff := o.cfg.RetryBackoff << attempt
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
				o.tracker.Fail(taskID, lastErr.Error())
				result.Err = lastErr
				return result
			case <-time.After(backoff):
			}
		}

		if err := o.waitWhilePaused(ctx, taskID); err != nil {
			result.Err = err
			return result
		}

		resp, err := o.attempt(ctx, ownerID, parentID, file, taskID)
		if err == nil {
			o.tracker.Complete(taskID)
			result.FileID = resp.FileID
			result.URL = resp.URL
			return result
		}

		lastErr = err
		o.log.With("err", err, "file", file.Name, "attempt", attempt).Warn("upload attempt failed")
	}

	o.tracker.Fail(taskID, lastErr.Error())
	result.Err = lastErr
	return result
}

// waitWhilePaused blocks while the task sits in paused. A paused task is
// simply not redispatched; bytes already in flight are not stopped.
func (o *Orchestrator) waitWhilePaused(ctx context.Context, taskID string) error {
	for {
		task, ok := o.tracker.Get(taskID)
		if !ok {
			return ErrCanceled
		}
		if task.Status != StatusPaused {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pausePollInterval):
		}
	}
}

func (o *Orchestrator) attempt(ctx context.Context, ownerID string, parentID *string, file File, taskID string) (*UploadResponse, error) {
	reqCtx, cancel := context.WithTimeout(ctx, o.cfg.AttemptTimeout)
	defer cancel()

	body, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = body.Close()
	}()

	reader := &progressReader{
		reader: body,
		onRead: func(read int64) {
			o.tracker.UpdateProgress(taskID, read, file.Size)
		},
	}

	return o.client.Upload(reqCtx, UploadRequest{
		OwnerID:  ownerID,
		ParentID: parentID,
		FileName: file.Name,
		Size:     file.Size,
		Body:     reader,
	})
}

// progressReader reports the cumulative byte count after every read.
type progressReader struct {
	reader io.Reader
	read   atomic.Int64
	onRead func(read int64)
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.reader.Read(buf)
	if n > 0 {
		p.onRead(p.read.Add(int64(n)))
	}
	return n, err
}
