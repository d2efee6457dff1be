package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/postwave/postwave/internal/queue"
	"github.com/postwave/postwave/internal/repository"
	"github.com/postwave/postwave/internal/scheduler"
)

// reconcileGrace is how far past its scheduled time a post must be before
// the sweep considers its job lost rather than merely due.
const reconcileGrace = 5 * time.Minute

// ReconcileJob re-enqueues scheduled posts that have no live job. A post
// can end up in that state when a reschedule's enqueue half failed, or
// when queue state was lost; without the sweep it would sit in scheduled
// forever.
type ReconcileJob struct {
	pr    repository.PostRepository
	q     queue.JobQueue
	sched *scheduler.Scheduler
}

func NewReconcileJob(pr repository.PostRepository, q queue.JobQueue, sched *scheduler.Scheduler) *ReconcileJob {
	return &ReconcileJob{pr: pr, q: q, sched: sched}
}

func (j *ReconcileJob) Run() {
	ctx := context.Background()

	cutoff := time.Now().Add(-reconcileGrace)
	posts, err := j.pr.ListOverdueScheduled(ctx, cutoff)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	for _, post := range posts {
		jobs, err := j.q.ListPending(post.ID)
		if err != nil {
			slog.Info(err.Error())
			continue
		}
		if len(jobs) > 0 {
			continue
		}

		jobID, err := j.sched.PublishImmediately(ctx, post.ID)
		if err != nil {
			slog.Error("reconcile could not re-enqueue post", "post_id", post.ID, "error", err.Error())
			continue
		}
		slog.Info("reconciled orphaned scheduled post", "post_id", post.ID, "job_id", jobID)
	}
}
