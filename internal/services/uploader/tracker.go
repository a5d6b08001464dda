package uploader

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Status string

const (
	StatusQueued    Status = "queued"
	StatusUploading Status = "uploading"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Task is the transient, process-local state of one upload. Tasks are owned
// by the Tracker; callers hold task ids and read copies.
type Task struct {
	TaskID           string
	FileName         string
	FileSize         int64
	Status           Status
	UploadedBytes    int64
	ProgressPercent  float64
	SpeedBytesPerSec float64
	ETASeconds       float64
	StartTime        time.Time
	LastUpdateTime   time.Time
	EndTime          time.Time
	Error            string
}

type Subscriber func(tasks map[string]Task)

// Tracker is a per-task upload state machine with synchronous
// publish/subscribe. Legal transitions:
//
//	queued -> uploading -> completed
//	uploading -> error
//	uploading <-> paused
//
// Everything else, progress updates outside uploading included, is a no-op.
type Tracker struct {
	locker      sync.Mutex
	tasks       map[string]*Task
	subscribers map[string]Subscriber
	now         func() time.Time
	log         *zap.SugaredLogger
}

func NewTracker(log *zap.SugaredLogger) *Tracker {
	return &Tracker{
		tasks:       make(map[string]*Task),
		subscribers: make(map[string]Subscriber),
		now:         time.Now,
		log:         log,
	}
}

func (t *Tracker) Register(fileName string, fileSize int64) string {
	taskID := uuid.NewString()

	t.locker.Lock()
	t.tasks[taskID] = &Task{
		TaskID:   taskID,
		FileName: fileName,
		FileSize: fileSize,
		Status:   StatusQueued,
	}
	t.notifyLocked()

	return taskID
}

func (t *Tracker) Start(taskID string) {
	t.transition(taskID, func(task *Task) bool {
		if task.Status != StatusQueued {
			return false
		}
		now := t.now()
		task.Status = StatusUploading
		task.StartTime = now
		task.LastUpdateTime = now
		return true
	})
}

func (t *Tracker) Pause(taskID string) {
	t.transition(taskID, func(task *Task) bool {
		if task.Status != StatusUploading {
			return false
		}
		task.Status = StatusPaused
		return true
	})
}

func (t *Tracker) Resume(taskID string) {
	t.transition(taskID, func(task *Task) bool {
		if task.Status != StatusPaused {
			return false
		}
		task.Status = StatusUploading
		// reset the sample window so the pause doesn't skew speed
		task.LastUpdateTime = t.now()
		return true
	})
}

// UpdateProgress records a byte-level sample. Speed is instantaneous, taken
// against the previous sample, not a cumulative average. A zero time delta
// yields zero speed, never a division fault. ETA of 0 means "calculating".
func (t *Tracker) UpdateProgress(taskID string, uploadedBytes, totalBytes int64) {
	t.transition(taskID, func(task *Task) bool {
		if task.Status != StatusUploading {
			return false
		}

		if totalBytes <= 0 {
			totalBytes = task.FileSize
		}

		now := t.now()
		deltaBytes := float64(uploadedBytes - task.UploadedBytes)
		deltaSeconds := now.Sub(task.LastUpdateTime).Seconds()

		speed := 0.0
		if deltaSeconds > 0 {
			speed = deltaBytes / deltaSeconds
		}

		if totalBytes > 0 {
			percent := 100 * float64(uploadedBytes) / float64(totalBytes)
			if percent > 100 {
				percent = 100
			}
			if percent > task.ProgressPercent {
				task.ProgressPercent = percent
			}
		}

		task.UploadedBytes = uploadedBytes
		task.SpeedBytesPerSec = speed
		if speed > 0 {
			task.ETASeconds = float64(totalBytes-uploadedBytes) / speed
		} else {
			task.ETASeconds = 0
		}
		task.LastUpdateTime = now
		return true
	})
}

func (t *Tracker) Complete(taskID string) {
	t.transition(taskID, func(task *Task) bool {
		if task.Status != StatusUploading {
			return false
		}
		task.Status = StatusCompleted
		task.UploadedBytes = task.FileSize
		task.ProgressPercent = 100
		task.ETASeconds = 0
		task.EndTime = t.now()
		return true
	})
}

func (t *Tracker) Fail(taskID string, message string) {
	t.transition(taskID, func(task *Task) bool {
		if task.Status != StatusUploading && task.Status != StatusQueued {
			return false
		}
		task.Status = StatusError
		task.Error = message
		task.EndTime = t.now()
		t.log.With("task_id", taskID, "file", task.FileName, "err", message).Warn("upload failed")
		return true
	})
}

// Remove drops a task from tracking. It does not abort an in-flight request.
func (t *Tracker) Remove(taskID string) {
	t.locker.Lock()
	if _, ok := t.tasks[taskID]; !ok {
		t.locker.Unlock()
		return
	}
	delete(t.tasks, taskID)
	t.notifyLocked()
}

func (t *Tracker) Clear() {
	t.locker.Lock()
	t.tasks = make(map[string]*Task)
	t.notifyLocked()
}

func (t *Tracker) Get(taskID string) (Task, bool) {
	t.locker.Lock()
	defer t.locker.Unlock()

	task, ok := t.tasks[taskID]
	if !ok {
		return Task{}, false
	}
	return *task, true
}

func (t *Tracker) Snapshot() map[string]Task {
	t.locker.Lock()
	defer t.locker.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) Subscribe(fn Subscriber) string {
	t.locker.Lock()
	defer t.locker.Unlock()

	id := uuid.NewString()
	t.subscribers[id] = fn
	return id
}

func (t *Tracker) Unsubscribe(id string) {
	t.locker.Lock()
	defer t.locker.Unlock()
	delete(t.subscribers, id)
}

type Stats struct {
	Total     int
	Queued    int
	Uploading int
	Paused    int
	Completed int
	Errored   int

	TotalBytes    int64
	UploadedBytes int64
}

// GetStats aggregates over all tracked tasks at one instant; the sums equal
// the pointwise sums of the individual task fields.
func (t *Tracker) GetStats() Stats {
	t.locker.Lock()
	defer t.locker.Unlock()

	var stats Stats
	for _, task := range t.tasks {
		stats.Total++
		stats.TotalBytes += task.FileSize
		stats.UploadedBytes += task.UploadedBytes

		switch task.Status {
		case StatusQueued:
			stats.Queued++
		case StatusUploading:
			stats.Uploading++
		case StatusPaused:
			stats.Paused++
		case StatusCompleted:
			stats.Completed++
		case StatusError:
			stats.Errored++
		}
	}
	return stats
}

// transition applies fn under the lock and notifies subscribers when fn
// reports a change. Unknown task ids and illegal transitions are no-ops.
func (t *Tracker) transition(taskID string, fn func(task *Task) bool) {
	t.locker.Lock()

	task, ok := t.tasks[taskID]
	if !ok || !fn(task) {
		t.locker.Unlock()
		return
	}

	t.notifyLocked()
}

// notifyLocked snapshots state under the held lock, releases it, and calls
// every subscriber synchronously. Notification order is unspecified.
func (t *Tracker) notifyLocked() {
	snapshot := t.snapshotLocked()
	subscribers := make([]Subscriber, 0, len(t.subscribers))
	for _, fn := range t.subscribers {
		subscribers = append(subscribers, fn)
	}
	t.locker.Unlock()

	for _, fn := range subscribers {
		fn(snapshot)
	}
}

func (t *Tracker) snapshotLocked() map[string]Task {
	snapshot := make(map[string]Task, len(t.tasks))
	for id, task := range t.tasks {
		snapshot[id] = *task
	}
	return snapshot
}
