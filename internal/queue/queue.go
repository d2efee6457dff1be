package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/postwave/postwave/pkg/utils"
)

var ErrJobNotFound = errors.New("job not found")

var _ JobQueue = (*Queue)(nil)

// Queue is the process-wide job queue component. It owns the asynq client,
// inspector, and worker server; it is constructed once in main and passed
// by reference to the scheduler and the publish worker.
type Queue struct {
	redis     asynq.RedisClientOpt
	client    *asynq.Client
	inspector *asynq.Inspector
	server    *asynq.Server
	hooks     Hooks
}

func New(redis asynq.RedisClientOpt, hooks Hooks) *Queue {
	return &Queue{
		redis:     redis,
		client:    asynq.NewClient(redis),
		inspector: asynq.NewInspector(redis),
		hooks:     hooks,
	}
}

func (q *Queue) Enqueue(ctx context.Context, payload PublishPostPayload, opts EnqueueOptions) (string, error) {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	jobID, err := gonanoid.New()
	if err != nil {
		return "", err
	}

	task := asynq.NewTask(TaskTypePublishPost, taskPayload)
	info, err := q.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueName),
		asynq.TaskID(jobID),
		asynq.ProcessIn(opts.Delay),
		asynq.MaxRetry(maxAttempts-1),
		asynq.Timeout(timeout),
	)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	slog.Info("publish job enqueued", "job_id", info.ID, "post_id", payload.PostID, "delay", opts.Delay.String())
	return info.ID, nil
}

// Remove deletes a job that has not started running. Once a job is active
// it runs to completion; asynq rejects the delete and the error propagates.
func (q *Queue) Remove(jobID string) error {
	err := q.inspector.DeleteTask(QueueName, jobID)
	if errors.Is(err, asynq.ErrTaskNotFound) {
		return ErrJobNotFound
	}
	return err
}

// ListPending returns jobs for the post still waiting to run: delayed
// (asynq "scheduled") plus ready-but-unstarted ("pending"). Retry-state
// jobs count too since they have not begun their next execution.
func (q *Queue) ListPending(postID int64) ([]JobInfo, error) {
	var jobs []JobInfo

	scheduled, err := q.inspector.ListScheduledTasks(QueueName)
	if err != nil {
		return nil, err
	}
	pending, err := q.inspector.ListPendingTasks(QueueName)
	if err != nil {
		return nil, err
	}
	retry, err := q.inspector.ListRetryTasks(QueueName)
	if err != nil {
		return nil, err
	}

	for _, tasks := range [][]*asynq.TaskInfo{scheduled, pending, retry} {
		for _, t := range tasks {
			if t.Type != TaskTypePublishPost {
				continue
			}
			var payload PublishPostPayload
			if err := json.Unmarshal(t.Payload, &payload); err != nil {
				slog.Info(err.Error())
				continue
			}
			if payload.PostID != postID {
				continue
			}
			jobs = append(jobs, JobInfo{
				ID:      t.ID,
				PostID:  payload.PostID,
				State:   t.State.String(),
				NextRun: t.NextProcessAt,
			})
		}
	}

	return jobs, nil
}

// Start runs the worker server with the publish handler. Failed jobs are
// retried with exponential backoff off RetryBaseDelay.
func (q *Queue) Start(handler func(ctx context.Context, task *asynq.Task) error) error {
	backoff := utils.ExponentialBackoff(RetryBaseDelay)

	q.server = asynq.NewServer(q.redis, asynq.Config{
		Concurrency: PublishConcurrency,
		Queues:      map[string]int{QueueName: 1},
		RetryDelayFunc: func(n int, e error, t *asynq.Task) time.Duration {
			return backoff(n)
		},
	})

	mux := asynq.NewServeMux()
	mux.Use(q.observe)
	mux.HandleFunc(TaskTypePublishPost, handler)

	log.Println("Starting the Asynq server...")
	return q.server.Start(mux)
}

func (q *Queue) Shutdown() {
	if q.server != nil {
		q.server.Shutdown()
	}
	if err := q.client.Close(); err != nil {
		slog.Info(err.Error())
	}
}

// observe reports job outcomes to the attached hooks.
func (q *Queue) observe(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
		err := next.ProcessTask(ctx, task)
		jobID, _ := asynq.GetTaskID(ctx)
		if err != nil {
			if q.hooks.OnJobFailed != nil {
				q.hooks.OnJobFailed(jobID, task.Type(), err)
			}
			return err
		}
		if q.hooks.OnJobCompleted != nil {
			q.hooks.OnJobCompleted(jobID, task.Type())
		}
		return nil
	})
}
