package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvloznov/ledger-consolidation/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noBackoff(int) time.Duration { return time.Millisecond }

func waitForStatus(t *testing.T, store *Store, jobID string, status jobs.JobStatus) *jobs.ConsolidationJob {
	t.Helper()
	var job *jobs.ConsolidationJob
	require.Eventually(t, func() bool {
		var err error
		job, err = store.GetJob(context.Background(), jobID)
		return err == nil && job.Status == status
	}, 2*time.Second, 5*time.Millisecond)
	return job
}

func TestQueue_CompletesJob(t *testing.T) {
	store := NewStore()
	q := NewQueue(4, store)
	t.Cleanup(func() { _ = q.Close() })

	handler := func(ctx context.Context, job *jobs.ConsolidationJob) error {
		job.RunID = "run-" + job.Trigger
		return nil
	}
	require.NoError(t, q.Start(context.Background(), handler))

	job := &jobs.ConsolidationJob{Trigger: "api"}
	require.NoError(t, q.PublishConsolidation(context.Background(), job))
	require.NotEmpty(t, job.JobID)
	assert.Equal(t, jobs.JobStatusPending, job.Status)
	assert.Equal(t, defaultMaxRetries, job.MaxRetries)

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	assert.Equal(t, "run-api", done.RunID)
	assert.NotNil(t, done.StartedAt)
	assert.NotNil(t, done.CompletedAt)
	assert.Empty(t, done.Error)
}

func TestQueue_RetriesThenSucceeds(t *testing.T) {
	store := NewStore()
	q := NewQueue(4, store, WithBackoff(noBackoff))
	t.Cleanup(func() { _ = q.Close() })

	var calls atomic.Int32
	handler := func(ctx context.Context, job *jobs.ConsolidationJob) error {
		if calls.Add(1) < 3 {
			return errors.New("provider down")
		}
		return nil
	}
	require.NoError(t, q.Start(context.Background(), handler))

	job := &jobs.ConsolidationJob{Trigger: "worker"}
	require.NoError(t, q.PublishConsolidation(context.Background(), job))

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	assert.Equal(t, 2, done.RetryCount)
	assert.Equal(t, int32(3), calls.Load())
}

func TestQueue_FailsAfterMaxRetries(t *testing.T) {
	store := NewStore()
	q := NewQueue(4, store, WithBackoff(noBackoff))
	t.Cleanup(func() { _ = q.Close() })

	var calls atomic.Int32
	handler := func(ctx context.Context, job *jobs.ConsolidationJob) error {
		calls.Add(1)
		return errors.New("always fails")
	}
	require.NoError(t, q.Start(context.Background(), handler))

	job := &jobs.ConsolidationJob{Trigger: "api", MaxRetries: 1}
	require.NoError(t, q.PublishConsolidation(context.Background(), job))

	failed := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	assert.Equal(t, "always fails", failed.Error)
	assert.Equal(t, 1, failed.RetryCount)
	assert.Equal(t, int32(2), calls.Load())
}

func TestQueue_HandlerPanicFailsJob(t *testing.T) {
	store := NewStore()
	q := NewQueue(1, store, WithBackoff(noBackoff))
	t.Cleanup(func() { _ = q.Close() })

	handler := func(ctx context.Context, job *jobs.ConsolidationJob) error {
		panic("boom")
	}
	require.NoError(t, q.Start(context.Background(), handler))

	job := &jobs.ConsolidationJob{MaxRetries: -1}
	require.NoError(t, q.PublishConsolidation(context.Background(), job))

	failed := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	assert.Contains(t, failed.Error, "job panicked: boom")
}

func TestQueue_PublishAfterClose(t *testing.T) {
	q := NewQueue(1, NewStore())
	require.NoError(t, q.Close())
	require.NoError(t, q.Close(), "second close is a no-op")

	err := q.PublishConsolidation(context.Background(), &jobs.ConsolidationJob{})
	assert.ErrorIs(t, err, ErrQueueClosed)
	assert.ErrorIs(t, q.Start(context.Background(), nil), ErrQueueClosed)
}

func TestQueue_PublishRespectsContext(t *testing.T) {
	q := NewQueue(0, nil)
	t.Cleanup(func() { _ = q.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := q.PublishConsolidation(ctx, &jobs.ConsolidationJob{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
