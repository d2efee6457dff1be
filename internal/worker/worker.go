package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/postwave/postwave/internal/models"
	"github.com/postwave/postwave/internal/notify"
	"github.com/postwave/postwave/internal/publisher"
	"github.com/postwave/postwave/internal/queue"
	"github.com/postwave/postwave/internal/repository"
)

// targetConcurrency bounds platform calls within one publish job.
const targetConcurrency = 5

const publishCallTimeout = 30 * time.Second

// Worker executes one publication attempt for a post across all its
// targets. Targets are independent: one failing never aborts the others.
// The aggregate post status is derived and persisted only after every
// target has been attempted.
type Worker struct {
	pr       repository.PostRepository
	tr       repository.TargetRepository
	ar       repository.SocialAccountRepository
	ur       repository.UserRepository
	registry *publisher.Registry
	notifier notify.Notifier
}

func New(
	pr repository.PostRepository,
	tr repository.TargetRepository,
	ar repository.SocialAccountRepository,
	ur repository.UserRepository,
	registry *publisher.Registry,
	notifier notify.Notifier) *Worker {
	return &Worker{
		pr:       pr,
		tr:       tr,
		ar:       ar,
		ur:       ur,
		registry: registry,
		notifier: notifier,
	}
}

type TargetResult struct {
	TargetID       int64
	AccountID      int64
	Platform       string
	PlatformPostID string
	Error          string
	Published      bool
}

type Result struct {
	Status    string
	Skipped   bool
	Reason    string
	Targets   []TargetResult
	Succeeded int
	Failed    int
}

// HandlePublishPostTask is the job-fires entry point the queue invokes.
// An error return triggers the queue's retry with backoff; skips complete
// the job without side effects.
func (w *Worker) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload queue.PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		// A malformed payload will never succeed on retry.
		return fmt.Errorf("unmarshal publish payload: %v: %w", err, asynq.SkipRetry)
	}

	result, err := w.PublishPost(ctx, payload.PostID)
	if err != nil {
		// Only the final attempt gets to stamp the post as failed; an
		// earlier transient error must leave it scheduled so the retry
		// can still produce a clean terminal state.
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)
		if retried >= maxRetry {
			w.markPostFailed(ctx, payload.PostID)
		}
		return err
	}

	if result.Skipped {
		slog.Info("publish job skipped", "post_id", payload.PostID, "reason", result.Reason)
		return nil
	}

	slog.Info("publish job finished",
		"post_id", payload.PostID,
		"status", result.Status,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
	)
	return nil
}

// PublishPost runs one publication attempt. Returned errors are job-level
// (load failures, aggregate write failures) and retryable; per-target
// platform failures are terminal outcomes recorded on the target and are
// never returned as errors.
func (w *Worker) PublishPost(ctx context.Context, postID int64) (*Result, error) {
	post, err := w.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("loading post %d: %w", postID, err)
	}
	if post == nil {
		slog.Warn("publish job fired for missing post", "post_id", postID)
		return &Result{Skipped: true, Reason: "not_found"}, nil
	}

	// A job can fire after the post was cancelled, deleted, or already
	// handled by an earlier attempt. Guarding on status keeps duplicate
	// triggers side-effect free.
	if post.Status != models.PostStatusScheduled {
		return &Result{Skipped: true, Reason: "not_scheduled"}, nil
	}

	targets, err := w.tr.ListByPostID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("loading targets for post %d: %w", postID, err)
	}
	if len(targets) == 0 {
		// Creation validation enforces at least one target; a post that
		// reaches here without any has nothing to deliver.
		slog.Warn("post has no targets", "post_id", postID)
		w.markPostFailed(ctx, postID)
		return &Result{Status: models.PostStatusFailed}, nil
	}

	results := make([]TargetResult, len(targets))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, targetConcurrency)

	for i, target := range targets {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(i int, target *models.Target) {
			defer wg.Done()
			defer func() { <-semaphore }()
			results[i] = w.publishTarget(ctx, post, target)
		}(i, target)
	}

	wg.Wait()

	now := time.Now()
	succeeded, failed := 0, 0
	for _, r := range results {
		if r.Published {
			succeeded++
		} else {
			failed++
		}
	}

	status := models.DerivePostStatus(succeeded, failed)
	var publishedAt *time.Time
	if succeeded > 0 {
		publishedAt = &now
	}

	if err := w.pr.SetAggregateStatus(ctx, postID, status, publishedAt); err != nil {
		return nil, fmt.Errorf("persisting status for post %d: %w", postID, err)
	}
	post.Status = status
	post.PublishedAt = publishedAt

	if failed > 0 {
		w.notifyFailures(ctx, post, results)
	}

	return &Result{
		Status:    status,
		Targets:   results,
		Succeeded: succeeded,
		Failed:    failed,
	}, nil
}

// publishTarget attempts delivery for a single target and records the
// outcome on its row. Every failure mode here stays inside the target:
// account lookup, platform resolution, and the platform call itself.
func (w *Worker) publishTarget(ctx context.Context, post *models.Post, target *models.Target) TargetResult {
	result := TargetResult{TargetID: target.ID, AccountID: target.AccountID}

	fail := func(msg string) TargetResult {
		result.Error = msg
		if err := w.tr.MarkFailed(ctx, target.ID, msg); err != nil {
			slog.Error("failed to record target failure", "target_id", target.ID, "error", err.Error())
		}
		return result
	}

	acc, err := w.ar.GetByID(ctx, target.AccountID)
	if err != nil {
		return fail(fmt.Sprintf("loading account %d: %v", target.AccountID, err))
	}
	if acc == nil {
		return fail(fmt.Sprintf("account %d no longer exists", target.AccountID))
	}
	result.Platform = acc.Platform

	pub, err := w.registry.Resolve(acc.Platform)
	if err != nil {
		return fail(err.Error())
	}

	callCtx, cancel := context.WithTimeout(ctx, publishCallTimeout)
	defer cancel()

	platformPostID, err := pub.Publish(callCtx, acc, post)
	if err != nil {
		slog.Info("target publish failed", "post_id", post.ID, "target_id", target.ID, "platform", acc.Platform, "error", err.Error())
		return fail(err.Error())
	}

	publishedAt := time.Now()
	if err := w.tr.MarkPublished(ctx, target.ID, platformPostID, publishedAt); err != nil {
		slog.Error("failed to record target success", "target_id", target.ID, "error", err.Error())
	}

	result.Published = true
	result.PlatformPostID = platformPostID
	return result
}

// notifyFailures informs the user's notification sink about failed targets.
// Sink errors are logged and swallowed.
func (w *Worker) notifyFailures(ctx context.Context, post *models.Post, results []TargetResult) {
	var reasons []string
	for _, r := range results {
		if !r.Published {
			reasons = append(reasons, fmt.Sprintf("account %d (%s): %s", r.AccountID, r.Platform, r.Error))
		}
	}

	user, _, err := w.ur.GetByID(ctx, post.UserID)
	if err != nil {
		slog.Info("unable to load user for failure notification", "user_id", post.UserID, "error", err.Error())
	}

	if err := w.notifier.NotifyFailure(ctx, user, post, strings.Join(reasons, "\n")); err != nil {
		slog.Info("failure notification not delivered", "post_id", post.ID, "error", err.Error())
	}
}

// markPostFailed is the best-effort write on the job-level failure path;
// a secondary error here must not mask the original one.
func (w *Worker) markPostFailed(ctx context.Context, postID int64) {
	if err := w.pr.UpdatePostStatus(ctx, models.PostStatusFailed, postID); err != nil {
		slog.Error("failed to mark post failed", "post_id", postID, "error", err.Error())
	}
}
