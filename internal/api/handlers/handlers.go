package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dvloznov/ledger-consolidation/internal/api/middleware"
	infra "github.com/dvloznov/ledger-consolidation/internal/infra/bigquery"
	"github.com/dvloznov/ledger-consolidation/internal/jobs"
	"github.com/dvloznov/ledger-consolidation/internal/jobs/inmemory"
	"github.com/dvloznov/ledger-consolidation/internal/ledger"
	"github.com/dvloznov/ledger-consolidation/internal/logger"
	"github.com/go-chi/chi/v5"
)

// LatestRun is the run id alias resolved to the newest successful run.
const LatestRun = "latest"

// RunReader is the read side of the run repository.
type RunReader interface {
	ListRuns(ctx context.Context, limit int) ([]*infra.RunRow, error)
	QueryAllocations(ctx context.Context, runID string) ([]*infra.AllocationRow, error)
	LatestSucceededRun(ctx context.Context) (*infra.RunRow, error)
}

// RunsHandler handles consolidation run endpoints.
type RunsHandler struct {
	runs      RunReader
	publisher jobs.Publisher
}

// NewRunsHandler creates a new runs handler. runs may be nil when no
// warehouse is configured.
func NewRunsHandler(runs RunReader, publisher jobs.Publisher) *RunsHandler {
	return &RunsHandler{runs: runs, publisher: publisher}
}

// RunView is the JSON shape of a run.
type RunView struct {
	RunID       string     `json:"run_id"`
	Trigger     string     `json:"trigger"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Slots       int64      `json:"cost_center_slots"`
	Records     *int64     `json:"record_count,omitempty"`
	Allocations *int64     `json:"allocation_count,omitempty"`
	OutputURI   string     `json:"output_uri,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// NewRunView converts a stored run.
func NewRunView(r *infra.RunRow) RunView {
	v := RunView{
		RunID:     r.RunID,
		Trigger:   r.Trigger,
		Status:    r.Status,
		StartedAt: r.StartedTS,
		Slots:     r.CostCenterSlots,
		OutputURI: r.OutputURI.StringVal,
		Error:     r.ErrorMessage,
	}
	if r.FinishedTS.Valid {
		t := r.FinishedTS.Timestamp
		v.FinishedAt = &t
	}
	if r.RecordCount.Valid {
		n := r.RecordCount.Int64
		v.Records = &n
	}
	if r.AllocationCount.Valid {
		n := r.AllocationCount.Int64
		v.Allocations = &n
	}
	return v
}

// CreateRun handles POST /api/runs
func (h *RunsHandler) CreateRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	job := &jobs.ConsolidationJob{Trigger: "api"}
	if err := h.publisher.PublishConsolidation(ctx, job); err != nil {
		log.Error().Err(err).Msg("Failed to enqueue consolidation job")
		if errors.Is(err, inmemory.ErrQueueClosed) {
			middleware.WriteError(w, http.StatusServiceUnavailable, "Job queue is closed")
			return
		}
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue consolidation job")
		return
	}

	log.Info().Str("job_id", job.JobID).Msg("Consolidation job enqueued")
	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

// ListRuns handles GET /api/runs
func (h *RunsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		middleware.WriteError(w, http.StatusNotImplemented, "Run history is not configured")
		return
	}
	ctx := r.Context()

	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 500 {
			middleware.WriteError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	rows, err := h.runs.ListRuns(ctx, limit)
	if err != nil {
		lg := logger.FromContext(ctx)
		lg.Error().Err(err).Msg("Failed to list runs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	runs := make([]RunView, len(rows))
	for i, row := range rows {
		runs[i] = NewRunView(row)
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// GetAllocations handles GET /api/runs/{runID}/allocations
func (h *RunsHandler) GetAllocations(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		middleware.WriteError(w, http.StatusNotImplemented, "Run history is not configured")
		return
	}
	ctx := r.Context()
	log := logger.FromContext(ctx)

	runID := chi.URLParam(r, "runID")
	if runID == LatestRun {
		latest, err := h.runs.LatestSucceededRun(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Failed to look up latest run")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to look up latest run")
			return
		}
		if latest == nil {
			middleware.WriteError(w, http.StatusNotFound, "No successful run yet")
			return
		}
		runID = latest.RunID
	}

	rows, err := h.runs.QueryAllocations(ctx, runID)
	if err != nil {
		log.Error().Err(err).Str("run_id", runID).Msg("Failed to query allocations")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to query allocations")
		return
	}

	allocations := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		out, err := row.OutputRow()
		if err != nil {
			log.Error().Err(err).Str("run_id", runID).Msg("Failed to decode allocation")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to decode allocations")
			return
		}
		allocations = append(allocations, columnsToObject(ledger.OutputColumns, out.Strings()))
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":      runID,
		"allocations": allocations,
		"count":       len(allocations),
	})
}

func columnsToObject(columns, values []string) map[string]string {
	obj := make(map[string]string, len(columns))
	for i, c := range columns {
		obj[c] = values[i]
	}
	return obj
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore) *JobsHandler {
	return &JobsHandler{store: store}
}

// GetJob handles GET /api/jobs/{jobID}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "jobID")

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		lg := logger.FromContext(ctx)
		lg.Debug().Err(err).Str("job_id", jobID).Msg("Job lookup failed")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	filter := jobs.JobFilter{
		Trigger: query.Get("trigger"),
		Status:  jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		lg := logger.FromContext(ctx)
		lg.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
