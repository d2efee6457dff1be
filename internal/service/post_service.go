package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/postwave/postwave/internal/models"
	"github.com/postwave/postwave/internal/repository"
	"github.com/postwave/postwave/internal/scheduler"
	"github.com/postwave/postwave/internal/transfer"
)

const scheduledTimeLayout = "2006-01-02T15:04"

type PostService interface {
	CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation) (int64, error)
	List(ctx context.Context, userID int64) ([]*models.Post, error)
	PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error)
	Targets(ctx context.Context, postID, userID int64) ([]*models.Target, error)
	Cancel(ctx context.Context, userID, postID int64) (bool, error)
	Reschedule(ctx context.Context, userID, postID int64, scheduledAt string) error
	PublishNow(ctx context.Context, userID, postID int64) error
	Remove(ctx context.Context, userID, postID int64) error
}

type postService struct {
	db    *sql.DB
	pr    repository.PostRepository
	tr    repository.TargetRepository
	ac    repository.SocialAccountRepository
	sched *scheduler.Scheduler
}

func NewPostService(
	db *sql.DB,
	pr repository.PostRepository,
	tr repository.TargetRepository,
	ac repository.SocialAccountRepository,
	sched *scheduler.Scheduler) PostService {
	return &postService{
		db:    db,
		pr:    pr,
		tr:    tr,
		ac:    ac,
		sched: sched,
	}
}

// CreatePost validates and persists a post with one target per selected
// account, then hands scheduled posts to the delay scheduler. A post with
// no scheduled time stays a draft and never enters the queue.
func (s *postService) CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation) (int64, error) {
	if pc == nil {
		err := errors.New("post creation data is nil")
		slog.Error(err.Error())
		return 0, err
	}
	if pc.Caption == "" {
		err := errors.New("caption cannot be empty")
		slog.Info(err.Error())
		return 0, err
	}
	if len(pc.Caption) > models.MaxCaptionLength {
		err := fmt.Errorf("caption exceeds %d characters", models.MaxCaptionLength)
		slog.Info(err.Error())
		return 0, err
	}

	postType := pc.PostType
	if postType == "" {
		postType = models.PostTypeText
	}
	if !models.ValidPostType(postType) {
		err := fmt.Errorf("invalid post type %q", postType)
		slog.Info(err.Error())
		return 0, err
	}

	if len(pc.SelectedAccounts) == 0 {
		err := errors.New("no social accounts selected")
		slog.Info(err.Error())
		return 0, err
	}

	status := models.PostStatusDraft
	var scheduledAt *time.Time
	if pc.ScheduledAt != "" {
		parsed, err := time.Parse(scheduledTimeLayout, pc.ScheduledAt)
		if err != nil {
			err = fmt.Errorf("invalid scheduled time format: %w", err)
			slog.Info(err.Error())
			return 0, err
		}
		if !parsed.After(time.Now()) {
			err = errors.New("scheduled time must be in the future")
			slog.Info(err.Error())
			return 0, err
		}
		scheduledAt = &parsed
		status = models.PostStatusScheduled
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	post := models.Post{
		UserID:      userID,
		PostType:    postType,
		Caption:     pc.Caption,
		Title:       pc.Title,
		MediaURL:    pc.MediaURL,
		ScheduledAt: scheduledAt,
		Status:      status,
		AIGenerated: pc.AIGenerated,
		AIPrompt:    pc.AIPrompt,
	}

	postID, err := s.pr.Create(ctx, tx, &post)
	if err != nil {
		return 0, fmt.Errorf("error creating post: %w", err)
	}

	if err = s.createTargets(ctx, tx, userID, postID, pc.SelectedAccounts); err != nil {
		return 0, fmt.Errorf("error processing selected accounts: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if status == models.PostStatusScheduled {
		if _, err := s.sched.SchedulePost(ctx, postID, *scheduledAt); err != nil {
			// The post exists but has no live job; surface the
			// scheduling failure so the caller can retry or cancel.
			return postID, fmt.Errorf("post %d created but not scheduled: %w", postID, err)
		}
	}

	return postID, nil
}

func (s *postService) createTargets(ctx context.Context, tx *sql.Tx, userID, postID int64, accounts []int64) error {
	for _, accountID := range accounts {
		exists, err := s.ac.CheckByUserID(ctx, accountID, userID)
		if err != nil {
			return fmt.Errorf("error checking social account %d: %w", accountID, err)
		}
		if !exists {
			return fmt.Errorf("social account %d does not exist", accountID)
		}

		target := models.Target{
			PostID:    postID,
			AccountID: accountID,
		}
		if _, err := s.tr.Create(ctx, tx, &target); err != nil {
			return fmt.Errorf("error saving target for account %d: %w", accountID, err)
		}
	}
	return nil
}

func (s *postService) PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error) {
	if err := s.checkOwnership(ctx, postID, userID); err != nil {
		return nil, err
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("error getting post info")
	}

	return post, nil
}

func (s *postService) Targets(ctx context.Context, postID, userID int64) ([]*models.Target, error) {
	if err := s.checkOwnership(ctx, postID, userID); err != nil {
		return nil, err
	}

	targets, err := s.tr.ListByPostID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("error getting targets")
	}
	return targets, nil
}

func (s *postService) List(ctx context.Context, userID int64) ([]*models.Post, error) {
	posts, err := s.pr.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting posts")
	}
	return posts, nil
}

// Cancel removes the post's pending publish job, if any, and returns it
// to draft so nothing re-enqueues it. Reports whether a job was removed.
func (s *postService) Cancel(ctx context.Context, userID, postID int64) (bool, error) {
	if err := s.checkOwnership(ctx, postID, userID); err != nil {
		return false, err
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil || post == nil {
		return false, errors.New("post doesn't exist")
	}
	if !post.Editable() {
		err := errors.New("post is no longer cancellable")
		slog.Info(err.Error())
		return false, err
	}

	removed, err := s.sched.CancelPost(ctx, postID)
	if err != nil {
		return false, err
	}

	if post.Status == models.PostStatusScheduled {
		if err := s.pr.UpdatePostStatus(ctx, models.PostStatusDraft, postID); err != nil {
			return removed, err
		}
	}

	return removed, nil
}

func (s *postService) Reschedule(ctx context.Context, userID, postID int64, scheduledAt string) error {
	if err := s.checkOwnership(ctx, postID, userID); err != nil {
		return err
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil || post == nil {
		return errors.New("post doesn't exist")
	}
	if !post.Editable() {
		err := errors.New("post can no longer be rescheduled")
		slog.Info(err.Error())
		return err
	}

	parsed, err := time.Parse(scheduledTimeLayout, scheduledAt)
	if err != nil {
		err = fmt.Errorf("invalid scheduled time format: %w", err)
		slog.Info(err.Error())
		return err
	}
	if !parsed.After(time.Now()) {
		err = errors.New("scheduled time must be in the future")
		slog.Info(err.Error())
		return err
	}

	if err := s.pr.UpdateSchedule(ctx, postID, parsed); err != nil {
		return fmt.Errorf("error updating schedule: %w", err)
	}

	if _, err := s.sched.ReschedulePost(ctx, postID, parsed); err != nil {
		// The post is now scheduled with no live job; the reconciler
		// will pick it up, but the caller still needs to know.
		return fmt.Errorf("post %d rescheduled but not queued: %w", postID, err)
	}

	return nil
}

func (s *postService) PublishNow(ctx context.Context, userID, postID int64) error {
	if err := s.checkOwnership(ctx, postID, userID); err != nil {
		return err
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil || post == nil {
		return errors.New("post doesn't exist")
	}
	if !post.Editable() {
		err := errors.New("post was already published")
		slog.Info(err.Error())
		return err
	}

	now := time.Now()
	if err := s.pr.UpdateSchedule(ctx, postID, now); err != nil {
		return fmt.Errorf("error updating schedule: %w", err)
	}

	if _, err := s.sched.PublishImmediately(ctx, postID); err != nil {
		return fmt.Errorf("error queueing post %d: %w", postID, err)
	}

	return nil
}

// Remove deletes a post unless it already went out, clearing any pending
// job first.
func (s *postService) Remove(ctx context.Context, userID, postID int64) error {
	if err := s.checkOwnership(ctx, postID, userID); err != nil {
		return err
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil || post == nil {
		return errors.New("post doesn't exist")
	}
	if post.Status == models.PostStatusPublished || post.Status == models.PostStatusPartiallyPublished {
		err := errors.New("published posts cannot be removed")
		slog.Info(err.Error())
		return err
	}

	if _, err := s.sched.CancelPost(ctx, postID); err != nil {
		return err
	}

	if err := s.pr.Remove(ctx, postID); err != nil {
		return fmt.Errorf("error removing post")
	}

	return nil
}

func (s *postService) checkOwnership(ctx context.Context, postID, userID int64) error {
	if userID == 0 {
		err := errors.New("user is not valid")
		slog.Info(err.Error())
		return err
	}
	if postID == 0 {
		err := errors.New("post id is not valid")
		slog.Info(err.Error())
		return err
	}

	isValid, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return err
	}
	if !isValid {
		err = errors.New("post doesn't exist")
		slog.Info(err.Error())
		return err
	}
	return nil
}
