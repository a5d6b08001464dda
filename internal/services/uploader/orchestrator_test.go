package uploader_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/blkmlk/file-dashboard/internal/mocks"
	"github.com/blkmlk/file-dashboard/internal/services/cache"
	"github.com/blkmlk/file-dashboard/internal/services/uploader"
)

func testFile(name string, size int) uploader.File {
	data := make([]byte, size)
	return uploader.File{
		Name: name,
		Size: int64(size),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func newTestOrchestrator(client uploader.Client, cfg uploader.Config) *uploader.Orchestrator {
	log := zap.NewNop().Sugar()
	return uploader.NewOrchestrator(uploader.NewTracker(log), client, cache.NewMapCache(), cfg, log)
}

func TestUploadManyCompletesAll(t *testing.T) {
	client := mocks.NewUploadClient()
	client.SetDelay(20 * time.Millisecond)

	o := newTestOrchestrator(client, uploader.Config{
		MaxConcurrent: 2,
		RetryAttempts: 0,
		RetryBackoff:  10 * time.Millisecond,
	})

	var files []uploader.File
	for i := 0; i < 5; i++ {
		files = append(files, testFile(fmt.Sprintf("file-%d.bin", i), 256))
	}

	results := o.UploadMany(context.Background(), "owner-1", nil, files)
	require.Len(t, results, 5)
	for _, result := range results {
		require.NoError(t, result.Err)
		require.NotEmpty(t, result.FileID)
		require.NotEmpty(t, result.TaskID)
	}

	stats := o.Tracker().GetStats()
	require.Equal(t, 5, stats.Completed)
	require.Equal(t, stats.TotalBytes, stats.UploadedBytes)
}

func TestUploadManyBoundsConcurrency(t *testing.T) {
	client := mocks.NewUploadClient()
	client.SetDelay(30 * time.Millisecond)

	o := newTestOrchestrator(client, uploader.Config{
		MaxConcurrent: 2,
		RetryAttempts: 0,
		RetryBackoff:  10 * time.Millisecond,
	})

	// observe the tracker through its own pub/sub as well
	var locker sync.Mutex
	maxUploading := 0
	o.Tracker().Subscribe(func(tasks map[string]uploader.Task) {
		uploading := 0
		for _, task := range tasks {
			if task.Status == uploader.StatusUploading {
				uploading++
			}
		}
		locker.Lock()
		if uploading > maxUploading {
			maxUploading = uploading
		}
		locker.Unlock()
	})

	var files []uploader.File
	for i := 0; i < 5; i++ {
		files = append(files, testFile(fmt.Sprintf("file-%d.bin", i), 64))
	}

	results := o.UploadMany(context.Background(), "owner-1", nil, files)
	require.Len(t, results, 5)

	require.LessOrEqual(t, client.MaxActive(), 2)

	locker.Lock()
	defer locker.Unlock()
	require.LessOrEqual(t, maxUploading, 2)
}

func TestUploadRetriesThenSucceeds(t *testing.T) {
	client := mocks.NewUploadClient()
	client.FailTimes("flaky.bin", 2)

	o := newTestOrchestrator(client, uploader.Config{
		MaxConcurrent: 1,
		RetryAttempts: 3,
		RetryBackoff:  time.Millisecond,
	})

	results := o.UploadMany(context.Background(), "owner-1", nil, []uploader.File{testFile("flaky.bin", 128)})
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	require.Equal(t, 3, client.Attempts("flaky.bin"))
}

func TestUploadRetriesExhausted(t *testing.T) {
	client := mocks.NewUploadClient()
	client.FailTimes("dead.bin", 10)

	o := newTestOrchestrator(client, uploader.Config{
		MaxConcurrent: 1,
		RetryAttempts: 2,
		RetryBackoff:  time.Millisecond,
	})

	results := o.UploadMany(context.Background(), "owner-1", nil, []uploader.File{testFile("dead.bin", 128)})
	require.Len(t, results, 1)
	require.Error(t, results[0].Err)
	require.Equal(t, 3, client.Attempts("dead.bin"))

	task, ok := o.Tracker().Get(results[0].TaskID)
	require.True(t, ok)
	require.Equal(t, uploader.StatusError, task.Status)
	require.NotEmpty(t, task.Error)
}

func TestUploadDuplicateNameRejected(t *testing.T) {
	client := mocks.NewUploadClient()
	client.SetDelay(50 * time.Millisecond)

	o := newTestOrchestrator(client, uploader.Config{
		MaxConcurrent: 2,
		RetryAttempts: 0,
		RetryBackoff:  time.Millisecond,
	})

	files := []uploader.File{
		testFile("same.bin", 64),
		testFile("same.bin", 64),
	}

	results := o.UploadMany(context.Background(), "owner-1", nil, files)
	require.Len(t, results, 2)

	var busy, succeeded int
	for _, result := range results {
		switch {
		case result.Err == nil:
			succeeded++
		case result.Err == uploader.ErrBusy:
			busy++
		}
	}
	require.Equal(t, 1, succeeded)
	require.Equal(t, 1, busy)
}

func TestCancelDuringBackoff(t *testing.T) {
	client := mocks.NewUploadClient()
	client.FailTimes("slow.bin", 1)

	o := newTestOrchestrator(client, uploader.Config{
		MaxConcurrent: 1,
		RetryAttempts: 2,
		RetryBackoff:  200 * time.Millisecond,
	})

	done := make(chan []uploader.Result, 1)
	go func() {
		done <- o.UploadMany(context.Background(), "owner-1", nil, []uploader.File{testFile("slow.bin", 64)})
	}()

	// wait for the first attempt to fail, then cancel during backoff
	require.Eventually(t, func() bool {
		return client.Attempts("slow.bin") == 1
	}, time.Second, 5*time.Millisecond)

	for _, task := range o.Tracker().Snapshot() {
		o.CancelUpload(task.TaskID)
	}

	results := <-done
	require.Len(t, results, 1)
	require.ErrorIs(t, results[0].Err, uploader.ErrCanceled)
	require.Equal(t, 1, client.Attempts("slow.bin"))
}

func TestUploadProgressReported(t *testing.T) {
	client := mocks.NewUploadClient()

	o := newTestOrchestrator(client, uploader.Config{
		MaxConcurrent: 1,
		RetryAttempts: 0,
		RetryBackoff:  time.Millisecond,
	})

	var locker sync.Mutex
	var sawBytes bool
	o.Tracker().Subscribe(func(tasks map[string]uploader.Task) {
		locker.Lock()
		defer locker.Unlock()
		for _, task := range tasks {
			if task.Status == uploader.StatusUploading && task.UploadedBytes > 0 {
				sawBytes = true
			}
		}
	})

	results := o.UploadMany(context.Background(), "owner-1", nil, []uploader.File{testFile("big.bin", 1<<16)})
	require.NoError(t, results[0].Err)

	locker.Lock()
	defer locker.Unlock()
	require.True(t, sawBytes)
}
