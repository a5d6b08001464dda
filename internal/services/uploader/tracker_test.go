package uploader

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestTracker() *Tracker {
	return NewTracker(zap.NewNop().Sugar())
}

func TestTrackerLifecycle(t *testing.T) {
	tr := newTestTracker()

	taskID := tr.Register("video.mp4", 1000)

	task, ok := tr.Get(taskID)
	require.True(t, ok)
	require.Equal(t, StatusQueued, task.Status)

	tr.Start(taskID)
	task, _ = tr.Get(taskID)
	require.Equal(t, StatusUploading, task.Status)
	require.False(t, task.StartTime.IsZero())

	tr.UpdateProgress(taskID, 500, 1000)
	task, _ = tr.Get(taskID)
	require.Equal(t, int64(500), task.UploadedBytes)
	require.Equal(t, float64(50), task.ProgressPercent)

	tr.Complete(taskID)
	task, _ = tr.Get(taskID)
	require.Equal(t, StatusCompleted, task.Status)
	require.Equal(t, float64(100), task.ProgressPercent)
	require.Equal(t, int64(1000), task.UploadedBytes)
	require.False(t, task.EndTime.IsZero())
}

func TestTrackerZeroDeltaTimeYieldsZeroSpeed(t *testing.T) {
	tr := newTestTracker()

	fixed := time.Now()
	tr.now = func() time.Time { return fixed }

	taskID := tr.Register("file.bin", 1000)
	tr.Start(taskID)

	tr.UpdateProgress(taskID, 0, 1000)
	tr.UpdateProgress(taskID, 100, 1000)

	task, _ := tr.Get(taskID)
	require.Equal(t, float64(0), task.SpeedBytesPerSec)
	require.Equal(t, float64(0), task.ETASeconds)
}

func TestTrackerSpeedAndETA(t *testing.T) {
	tr := newTestTracker()

	current := time.Now()
	tr.now = func() time.Time { return current }

	taskID := tr.Register("file.bin", 1000)
	tr.Start(taskID)

	current = current.Add(time.Second)
	tr.UpdateProgress(taskID, 100, 1000)

	task, _ := tr.Get(taskID)
	require.Equal(t, float64(100), task.SpeedBytesPerSec)
	require.Equal(t, float64(9), task.ETASeconds)
}

func TestTrackerIgnoresIllegalTransitions(t *testing.T) {
	tr := newTestTracker()

	taskID := tr.Register("file.bin", 1000)

	// progress before start is ignored
	tr.UpdateProgress(taskID, 500, 1000)
	task, _ := tr.Get(taskID)
	require.Equal(t, int64(0), task.UploadedBytes)

	// pause before start is ignored
	tr.Pause(taskID)
	task, _ = tr.Get(taskID)
	require.Equal(t, StatusQueued, task.Status)

	tr.Start(taskID)
	tr.Complete(taskID)

	// terminal states stay terminal
	tr.Start(taskID)
	tr.Fail(taskID, "late failure")
	task, _ = tr.Get(taskID)
	require.Equal(t, StatusCompleted, task.Status)
	require.Empty(t, task.Error)
}

func TestTrackerPauseResume(t *testing.T) {
	tr := newTestTracker()

	taskID := tr.Register("file.bin", 1000)
	tr.Start(taskID)

	tr.Pause(taskID)
	task, _ := tr.Get(taskID)
	require.Equal(t, StatusPaused, task.Status)

	// progress is dropped while paused
	tr.UpdateProgress(taskID, 500, 1000)
	task, _ = tr.Get(taskID)
	require.Equal(t, int64(0), task.UploadedBytes)

	tr.Resume(taskID)
	task, _ = tr.Get(taskID)
	require.Equal(t, StatusUploading, task.Status)
}

func TestTrackerProgressMonotonic(t *testing.T) {
	tr := newTestTracker()

	taskID := tr.Register("file.bin", 1000)
	tr.Start(taskID)

	tr.UpdateProgress(taskID, 600, 1000)
	tr.UpdateProgress(taskID, 400, 1000)

	task, _ := tr.Get(taskID)
	require.Equal(t, float64(60), task.ProgressPercent)

	// over-reporting clamps at 100
	tr.UpdateProgress(taskID, 2000, 1000)
	task, _ = tr.Get(taskID)
	require.Equal(t, float64(100), task.ProgressPercent)
}

func TestTrackerSubscribers(t *testing.T) {
	tr := newTestTracker()

	var notifications []map[string]Task
	subID := tr.Subscribe(func(tasks map[string]Task) {
		notifications = append(notifications, tasks)
	})

	taskID := tr.Register("file.bin", 1000)
	require.Len(t, notifications, 1)
	require.Equal(t, StatusQueued, notifications[0][taskID].Status)

	tr.Start(taskID)
	require.Len(t, notifications, 2)
	require.Equal(t, StatusUploading, notifications[1][taskID].Status)

	// an ignored transition does not notify
	tr.Start(taskID)
	require.Len(t, notifications, 2)

	tr.Unsubscribe(subID)
	tr.Complete(taskID)
	require.Len(t, notifications, 2)
}

func TestTrackerStats(t *testing.T) {
	tr := newTestTracker()

	a := tr.Register("a.bin", 100)
	b := tr.Register("b.bin", 200)
	c := tr.Register("c.bin", 300)

	tr.Start(a)
	tr.UpdateProgress(a, 50, 100)

	tr.Start(b)
	tr.Complete(b)

	tr.Start(c)
	tr.Fail(c, "boom")

	stats := tr.GetStats()
	require.Equal(t, 3, stats.Total)
	require.Equal(t, 1, stats.Uploading)
	require.Equal(t, 1, stats.Completed)
	require.Equal(t, 1, stats.Errored)
	require.Equal(t, int64(600), stats.TotalBytes)

	var uploaded int64
	for _, task := range tr.Snapshot() {
		uploaded += task.UploadedBytes
	}
	require.Equal(t, uploaded, stats.UploadedBytes)
}

func TestTrackerRemoveAndClear(t *testing.T) {
	tr := newTestTracker()

	a := tr.Register("a.bin", 100)
	b := tr.Register("b.bin", 200)

	tr.Remove(a)
	_, ok := tr.Get(a)
	require.False(t, ok)
	_, ok = tr.Get(b)
	require.True(t, ok)

	tr.Clear()
	require.Zero(t, tr.GetStats().Total)
}
