package service

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/postwave/postwave/internal/models"
	"github.com/postwave/postwave/internal/queue"
	"github.com/postwave/postwave/internal/scheduler"
	"github.com/postwave/postwave/internal/transfer"
	"github.com/stretchr/testify/require"
)

type stubQueue struct {
	jobs    map[string]queue.JobInfo
	nextID  int
	removed []string
}

func newStubQueue() *stubQueue {
	return &stubQueue{jobs: make(map[string]queue.JobInfo)}
}

func (s *stubQueue) Enqueue(ctx context.Context, payload queue.PublishPostPayload, opts queue.EnqueueOptions) (string, error) {
	s.nextID++
	id := "job-" + strconv.Itoa(s.nextID)
	s.jobs[id] = queue.JobInfo{ID: id, PostID: payload.PostID, NextRun: time.Now().Add(opts.Delay)}
	return id, nil
}

func (s *stubQueue) Remove(jobID string) error {
	if _, ok := s.jobs[jobID]; !ok {
		return queue.ErrJobNotFound
	}
	delete(s.jobs, jobID)
	s.removed = append(s.removed, jobID)
	return nil
}

func (s *stubQueue) ListPending(postID int64) ([]queue.JobInfo, error) {
	var out []queue.JobInfo
	for _, j := range s.jobs {
		if j.PostID == postID {
			out = append(out, j)
		}
	}
	return out, nil
}

type stubPostRepo struct {
	post            *models.Post
	statusWrites    []string
	scheduleWrites  []time.Time
	removedIDs      []int64
	ownershipResult bool
}

func (s *stubPostRepo) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	return s.post, nil
}

func (s *stubPostRepo) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	return 1, nil
}

func (s *stubPostRepo) GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	return nil, nil
}

func (s *stubPostRepo) UpdatePostStatus(ctx context.Context, status string, postID int64) error {
	s.statusWrites = append(s.statusWrites, status)
	return nil
}

func (s *stubPostRepo) SetAggregateStatus(ctx context.Context, postID int64, status string, publishedAt *time.Time) error {
	return nil
}

func (s *stubPostRepo) UpdateSchedule(ctx context.Context, postID int64, scheduledAt time.Time) error {
	s.scheduleWrites = append(s.scheduleWrites, scheduledAt)
	return nil
}

func (s *stubPostRepo) ListOverdueScheduled(ctx context.Context, cutoff time.Time) ([]*models.Post, error) {
	return nil, nil
}

func (s *stubPostRepo) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	return s.ownershipResult, nil
}

func (s *stubPostRepo) Remove(ctx context.Context, id int64) error {
	s.removedIDs = append(s.removedIDs, id)
	return nil
}

func newServiceUnderTest(pr *stubPostRepo, q *stubQueue) PostService {
	return NewPostService(nil, pr, nil, nil, scheduler.New(q))
}

func TestCreatePostValidation(t *testing.T) {
	// Validation runs before any transaction, so nil db and repos are safe.
	svc := NewPostService(nil, nil, nil, nil, nil)

	future := time.Now().Add(time.Hour).Format("2006-01-02T15:04")

	tests := []struct {
		name string
		pc   *transfer.PostCreation
	}{
		{"nil payload", nil},
		{"empty caption", &transfer.PostCreation{ScheduledAt: future, SelectedAccounts: []int64{1}}},
		{"caption too long", &transfer.PostCreation{
			Caption:          strings.Repeat("a", models.MaxCaptionLength+1),
			ScheduledAt:      future,
			SelectedAccounts: []int64{1},
		}},
		{"invalid post type", &transfer.PostCreation{
			Caption:          "hello",
			PostType:         "hologram",
			ScheduledAt:      future,
			SelectedAccounts: []int64{1},
		}},
		{"no accounts selected", &transfer.PostCreation{Caption: "hello", ScheduledAt: future}},
		{"bad time format", &transfer.PostCreation{
			Caption:          "hello",
			ScheduledAt:      "tomorrow at noon",
			SelectedAccounts: []int64{1},
		}},
		{"time in the past", &transfer.PostCreation{
			Caption:          "hello",
			ScheduledAt:      time.Now().Add(-time.Hour).Format("2006-01-02T15:04"),
			SelectedAccounts: []int64{1},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreatePost(context.Background(), 1, tt.pc)
			require.Error(t, err)
		})
	}
}

func TestCancelScheduledPost(t *testing.T) {
	pr := &stubPostRepo{
		post:            &models.Post{ID: 5, UserID: 1, Status: models.PostStatusScheduled},
		ownershipResult: true,
	}
	q := newStubQueue()
	svc := newServiceUnderTest(pr, q)

	sched := scheduler.New(q)
	_, err := sched.SchedulePost(context.Background(), 5, time.Now().Add(time.Hour))
	require.NoError(t, err)

	removed, err := svc.Cancel(context.Background(), 1, 5)
	require.NoError(t, err)
	require.True(t, removed)
	require.Empty(t, q.jobs)

	// Back to draft so the reconcile sweep never re-enqueues it.
	require.Equal(t, []string{models.PostStatusDraft}, pr.statusWrites)
}

func TestCancelWithoutPendingJob(t *testing.T) {
	pr := &stubPostRepo{
		post:            &models.Post{ID: 5, UserID: 1, Status: models.PostStatusDraft},
		ownershipResult: true,
	}
	svc := newServiceUnderTest(pr, newStubQueue())

	removed, err := svc.Cancel(context.Background(), 1, 5)
	require.NoError(t, err)
	require.False(t, removed)
	require.Empty(t, pr.statusWrites)
}

func TestCancelPublishedPostRejected(t *testing.T) {
	pr := &stubPostRepo{
		post:            &models.Post{ID: 5, UserID: 1, Status: models.PostStatusPublished},
		ownershipResult: true,
	}
	svc := newServiceUnderTest(pr, newStubQueue())

	_, err := svc.Cancel(context.Background(), 1, 5)
	require.Error(t, err)
}

func TestCancelForeignPostRejected(t *testing.T) {
	pr := &stubPostRepo{
		post:            &models.Post{ID: 5, UserID: 2, Status: models.PostStatusScheduled},
		ownershipResult: false,
	}
	svc := newServiceUnderTest(pr, newStubQueue())

	_, err := svc.Cancel(context.Background(), 1, 5)
	require.Error(t, err)
}

func TestRescheduleReplacesJob(t *testing.T) {
	pr := &stubPostRepo{
		post:            &models.Post{ID: 5, UserID: 1, Status: models.PostStatusScheduled},
		ownershipResult: true,
	}
	q := newStubQueue()
	svc := newServiceUnderTest(pr, q)

	sched := scheduler.New(q)
	_, err := sched.SchedulePost(context.Background(), 5, time.Now().Add(time.Hour))
	require.NoError(t, err)

	newTime := time.Now().Add(2 * time.Hour).Format("2006-01-02T15:04")
	err = svc.Reschedule(context.Background(), 1, 5, newTime)
	require.NoError(t, err)

	require.Len(t, pr.scheduleWrites, 1)

	jobs, err := q.ListPending(5)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
}

func TestReschedulePastTimeRejected(t *testing.T) {
	pr := &stubPostRepo{
		post:            &models.Post{ID: 5, UserID: 1, Status: models.PostStatusScheduled},
		ownershipResult: true,
	}
	svc := newServiceUnderTest(pr, newStubQueue())

	past := time.Now().Add(-time.Hour).Format("2006-01-02T15:04")
	err := svc.Reschedule(context.Background(), 1, 5, past)
	require.Error(t, err)
	require.Empty(t, pr.scheduleWrites)
}

func TestPublishNowQueuesImmediately(t *testing.T) {
	pr := &stubPostRepo{
		post:            &models.Post{ID: 5, UserID: 1, Status: models.PostStatusDraft},
		ownershipResult: true,
	}
	q := newStubQueue()
	svc := newServiceUnderTest(pr, q)

	err := svc.PublishNow(context.Background(), 1, 5)
	require.NoError(t, err)

	require.Len(t, pr.scheduleWrites, 1)
	jobs, err := q.ListPending(5)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
}

func TestPublishNowRejectedForPublishedPost(t *testing.T) {
	pr := &stubPostRepo{
		post:            &models.Post{ID: 5, UserID: 1, Status: models.PostStatusPublished},
		ownershipResult: true,
	}
	svc := newServiceUnderTest(pr, newStubQueue())

	err := svc.PublishNow(context.Background(), 1, 5)
	require.Error(t, err)
}

func TestRemoveCancelsPendingJob(t *testing.T) {
	pr := &stubPostRepo{
		post:            &models.Post{ID: 5, UserID: 1, Status: models.PostStatusScheduled},
		ownershipResult: true,
	}
	q := newStubQueue()
	svc := newServiceUnderTest(pr, q)

	sched := scheduler.New(q)
	_, err := sched.SchedulePost(context.Background(), 5, time.Now().Add(time.Hour))
	require.NoError(t, err)

	err = svc.Remove(context.Background(), 1, 5)
	require.NoError(t, err)
	require.Empty(t, q.jobs)
	require.Equal(t, []int64{5}, pr.removedIDs)
}

func TestRemovePublishedPostRejected(t *testing.T) {
	pr := &stubPostRepo{
		post:            &models.Post{ID: 5, UserID: 1, Status: models.PostStatusPartiallyPublished},
		ownershipResult: true,
	}
	svc := newServiceUnderTest(pr, newStubQueue())

	err := svc.Remove(context.Background(), 1, 5)
	require.Error(t, err)
	require.Empty(t, pr.removedIDs)
}
