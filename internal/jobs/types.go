package jobs

import (
	"context"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeConsolidate represents a consolidation run.
	JobTypeConsolidate JobType = "consolidate"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// ConsolidationJob requests one consolidation run.
type ConsolidationJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// Trigger records who asked for the run (api, worker, cli).
	Trigger string `json:"trigger"`

	// RunID is the consolidation run of the latest attempt.
	RunID string `json:"run_id,omitempty"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains the error message if the job failed.
	Error string `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// GetID returns the job ID.
func (j *ConsolidationJob) GetID() string {
	return j.JobID
}

// GetType returns the job type.
func (j *ConsolidationJob) GetType() JobType {
	return JobTypeConsolidate
}

// GetStatus returns the current job status.
func (j *ConsolidationJob) GetStatus() JobStatus {
	return j.Status
}

// Terminal reports whether the job will not change status anymore.
func (j *ConsolidationJob) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// Publisher enqueues jobs for asynchronous processing.
type Publisher interface {
	// PublishConsolidation enqueues a consolidation job.
	PublishConsolidation(ctx context.Context, job *ConsolidationJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer processes jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs and calling handler for each one.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming and waits for in-flight jobs.
	Stop(ctx context.Context) error
}

// JobHandler processes a single job. The handler may set job.RunID.
type JobHandler func(ctx context.Context, job *ConsolidationJob) error

// JobStore persists job state for status tracking.
type JobStore interface {
	// SaveJob creates or updates a job.
	SaveJob(ctx context.Context, job *ConsolidationJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*ConsolidationJob, error)

	// ListJobs returns jobs matching filter, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*ConsolidationJob, error)

	// UpdateJobStatus updates the status of a job.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines criteria for listing jobs.
type JobFilter struct {
	Trigger string
	Status  JobStatus
	Limit   int
	Offset  int
}
