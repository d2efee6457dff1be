package queue

import (
	"context"
	"time"
)

const TaskTypePublishPost = "publish:post"

// QueueName is the asynq queue all publish jobs run on.
const QueueName = "publish"

const (
	// PublishConcurrency bounds how many publish jobs run at once
	// system-wide, which in turn bounds outbound platform API pressure.
	PublishConcurrency = 5

	// DefaultMaxAttempts is the total number of tries for one publish job,
	// the first execution included.
	DefaultMaxAttempts = 3

	// RetryBaseDelay seeds the exponential backoff between job attempts
	// (2s, 4s, 8s).
	RetryBaseDelay = 2 * time.Second
)

type PublishPostPayload struct {
	PostID int64 `json:"post_id"`
}

type EnqueueOptions struct {
	// Delay before the job becomes runnable. Zero means as soon as a
	// worker slot frees up.
	Delay       time.Duration
	MaxAttempts int
	Timeout     time.Duration
}

// JobInfo describes a not-yet-started job, enough for the scheduler to
// find and remove jobs belonging to a post.
type JobInfo struct {
	ID      string
	PostID  int64
	State   string
	NextRun time.Time
}

// JobQueue is the durable delayed work queue the delay scheduler talks to.
// The asynq-backed Queue implements it; tests substitute fakes.
type JobQueue interface {
	Enqueue(ctx context.Context, payload PublishPostPayload, opts EnqueueOptions) (string, error)
	Remove(jobID string) error
	ListPending(postID int64) ([]JobInfo, error)
}

// Hooks receive job outcome notifications for logging and metrics. They are
// observational only; post/target consistency is owned by the worker's own
// writes.
type Hooks struct {
	OnJobCompleted func(jobID, taskType string)
	OnJobFailed    func(jobID, taskType string, err error)
}
