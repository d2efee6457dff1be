package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/postwave/postwave/internal/queue"
	"github.com/postwave/postwave/pkg/utils"
)

const (
	// Enqueue failures are transient infra errors; retry a few times
	// before surfacing a scheduling failure to the caller.
	enqueueAttempts  = 3
	enqueueBaseDelay = time.Second
)

var enqueueBackoff = utils.LinearBackoff(enqueueBaseDelay)

// Scheduler turns a post's desired publication time into a queued job and
// supports cancelling and rescheduling it. It guarantees at most one
// waiting job per post: scheduling always clears prior jobs first.
type Scheduler struct {
	q queue.JobQueue
}

func New(q queue.JobQueue) *Scheduler {
	return &Scheduler{q: q}
}

// SchedulePost enqueues a publish job for the post. A scheduled time in
// the past collapses to immediate execution. Returns the job id.
func (s *Scheduler) SchedulePost(ctx context.Context, postID int64, scheduledAt time.Time) (string, error) {
	delay := time.Until(scheduledAt)
	if delay < 0 {
		delay = 0
	}

	// Clear any prior job so a double-schedule never fires twice.
	if _, err := s.CancelPost(ctx, postID); err != nil {
		return "", fmt.Errorf("clearing prior job for post %d: %w", postID, err)
	}

	var jobID string
	err := utils.Retry(enqueueAttempts, enqueueBackoff, func() error {
		var err error
		jobID, err = s.q.Enqueue(ctx, queue.PublishPostPayload{PostID: postID}, queue.EnqueueOptions{
			Delay:       delay,
			MaxAttempts: queue.DefaultMaxAttempts,
		})
		return err
	})
	if err != nil {
		return "", fmt.Errorf("scheduling post %d: %w", postID, err)
	}

	return jobID, nil
}

// CancelPost removes any waiting or delayed job for the post. It reports
// whether a job was found; no job is not an error. A job that already
// started executing runs to completion and cannot be cancelled.
func (s *Scheduler) CancelPost(ctx context.Context, postID int64) (bool, error) {
	jobs, err := s.q.ListPending(postID)
	if err != nil {
		return false, fmt.Errorf("listing jobs for post %d: %w", postID, err)
	}
	if len(jobs) == 0 {
		return false, nil
	}

	removed := false
	for _, job := range jobs {
		if err := s.q.Remove(job.ID); err != nil {
			if err == queue.ErrJobNotFound {
				// Fired between list and remove; nothing left to cancel.
				continue
			}
			return removed, fmt.Errorf("removing job %s: %w", job.ID, err)
		}
		removed = true
		slog.Info("publish job cancelled", "job_id", job.ID, "post_id", postID)
	}

	return removed, nil
}

// ReschedulePost is cancel-then-schedule. If the schedule half fails the
// post is left with no live job, so the error must reach the caller and be
// surfaced as a scheduling failure.
func (s *Scheduler) ReschedulePost(ctx context.Context, postID int64, newScheduledAt time.Time) (string, error) {
	if _, err := s.CancelPost(ctx, postID); err != nil {
		return "", err
	}
	return s.SchedulePost(ctx, postID, newScheduledAt)
}

// PublishImmediately queues the post for the next free worker slot.
func (s *Scheduler) PublishImmediately(ctx context.Context, postID int64) (string, error) {
	return s.SchedulePost(ctx, postID, time.Now())
}
