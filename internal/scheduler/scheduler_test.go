package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/postwave/postwave/internal/queue"
	"github.com/stretchr/testify/require"
)

type enqueueCall struct {
	payload queue.PublishPostPayload
	opts    queue.EnqueueOptions
}

// fakeJobQueue keeps pending jobs in memory so cancel and reschedule
// behavior can be exercised without Redis.
type fakeJobQueue struct {
	nextID      int
	jobs        map[string]queue.JobInfo
	calls       []enqueueCall
	enqueueErrs []error
	listErr     error
	removeErr   error
}

func newFakeJobQueue() *fakeJobQueue {
	return &fakeJobQueue{jobs: make(map[string]queue.JobInfo)}
}

func (f *fakeJobQueue) Enqueue(ctx context.Context, payload queue.PublishPostPayload, opts queue.EnqueueOptions) (string, error) {
	f.calls = append(f.calls, enqueueCall{payload: payload, opts: opts})
	if len(f.enqueueErrs) > 0 {
		err := f.enqueueErrs[0]
		f.enqueueErrs = f.enqueueErrs[1:]
		if err != nil {
			return "", err
		}
	}
	f.nextID++
	id := fmt.Sprintf("job-%d", f.nextID)
	f.jobs[id] = queue.JobInfo{
		ID:      id,
		PostID:  payload.PostID,
		State:   "scheduled",
		NextRun: time.Now().Add(opts.Delay),
	}
	return id, nil
}

func (f *fakeJobQueue) Remove(jobID string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	if _, ok := f.jobs[jobID]; !ok {
		return queue.ErrJobNotFound
	}
	delete(f.jobs, jobID)
	return nil
}

func (f *fakeJobQueue) ListPending(postID int64) ([]queue.JobInfo, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []queue.JobInfo
	for _, j := range f.jobs {
		if j.PostID == postID {
			out = append(out, j)
		}
	}
	return out, nil
}

func noBackoff(int) time.Duration { return 0 }

func TestSchedulePostFutureTime(t *testing.T) {
	q := newFakeJobQueue()
	s := New(q)

	jobID, err := s.SchedulePost(context.Background(), 42, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	require.Len(t, q.calls, 1)
	require.Equal(t, int64(42), q.calls[0].payload.PostID)
	require.Equal(t, queue.DefaultMaxAttempts, q.calls[0].opts.MaxAttempts)
	require.InDelta(t, time.Hour.Seconds(), q.calls[0].opts.Delay.Seconds(), 1.0)
}

func TestSchedulePostPastTimeRunsImmediately(t *testing.T) {
	q := newFakeJobQueue()
	s := New(q)

	_, err := s.SchedulePost(context.Background(), 42, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	require.Len(t, q.calls, 1)
	require.Equal(t, time.Duration(0), q.calls[0].opts.Delay)
}

func TestSchedulePostReplacesExistingJob(t *testing.T) {
	q := newFakeJobQueue()
	s := New(q)

	first, err := s.SchedulePost(context.Background(), 42, time.Now().Add(time.Hour))
	require.NoError(t, err)

	second, err := s.SchedulePost(context.Background(), 42, time.Now().Add(2*time.Hour))
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	jobs, err := q.ListPending(42)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, second, jobs[0].ID)
}

func TestSchedulePostRetriesEnqueue(t *testing.T) {
	prev := enqueueBackoff
	enqueueBackoff = noBackoff
	defer func() { enqueueBackoff = prev }()

	q := newFakeJobQueue()
	q.enqueueErrs = []error{errors.New("redis down"), errors.New("redis down")}
	s := New(q)

	jobID, err := s.SchedulePost(context.Background(), 42, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.NotEmpty(t, jobID)
	require.Len(t, q.calls, 3)
}

func TestSchedulePostEnqueueExhausted(t *testing.T) {
	prev := enqueueBackoff
	enqueueBackoff = noBackoff
	defer func() { enqueueBackoff = prev }()

	q := newFakeJobQueue()
	q.enqueueErrs = []error{
		errors.New("redis down"),
		errors.New("redis down"),
		errors.New("redis down"),
	}
	s := New(q)

	_, err := s.SchedulePost(context.Background(), 42, time.Now().Add(time.Hour))
	require.Error(t, err)
	require.Contains(t, err.Error(), "scheduling post 42")
	require.Len(t, q.calls, 3)
}

func TestCancelPost(t *testing.T) {
	q := newFakeJobQueue()
	s := New(q)

	_, err := s.SchedulePost(context.Background(), 42, time.Now().Add(time.Hour))
	require.NoError(t, err)

	removed, err := s.CancelPost(context.Background(), 42)
	require.NoError(t, err)
	require.True(t, removed)

	jobs, err := q.ListPending(42)
	require.NoError(t, err)
	require.Empty(t, jobs)
}

func TestCancelPostNothingPending(t *testing.T) {
	q := newFakeJobQueue()
	s := New(q)

	removed, err := s.CancelPost(context.Background(), 42)
	require.NoError(t, err)
	require.False(t, removed)
}

func TestCancelPostOnlyTouchesOwnJobs(t *testing.T) {
	q := newFakeJobQueue()
	s := New(q)

	_, err := s.SchedulePost(context.Background(), 42, time.Now().Add(time.Hour))
	require.NoError(t, err)
	_, err = s.SchedulePost(context.Background(), 43, time.Now().Add(time.Hour))
	require.NoError(t, err)

	removed, err := s.CancelPost(context.Background(), 42)
	require.NoError(t, err)
	require.True(t, removed)

	jobs, err := q.ListPending(43)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
}

func TestReschedulePost(t *testing.T) {
	q := newFakeJobQueue()
	s := New(q)

	first, err := s.SchedulePost(context.Background(), 42, time.Now().Add(time.Hour))
	require.NoError(t, err)

	newTime := time.Now().Add(3 * time.Hour)
	second, err := s.ReschedulePost(context.Background(), 42, newTime)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	jobs, err := q.ListPending(42)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.InDelta(t, 3*time.Hour.Seconds(), q.calls[len(q.calls)-1].opts.Delay.Seconds(), 1.0)
}

func TestPublishImmediately(t *testing.T) {
	q := newFakeJobQueue()
	s := New(q)

	jobID, err := s.PublishImmediately(context.Background(), 42)
	require.NoError(t, err)
	require.NotEmpty(t, jobID)
	require.LessOrEqual(t, q.calls[0].opts.Delay, time.Second)
}
