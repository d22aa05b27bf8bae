package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/ledger-consolidation/internal/api"
	infra "github.com/dvloznov/ledger-consolidation/internal/infra/bigquery"
	"github.com/dvloznov/ledger-consolidation/internal/jobs"
	"github.com/dvloznov/ledger-consolidation/internal/jobs/inmemory"
	"github.com/dvloznov/ledger-consolidation/internal/ledger"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockRunReader is a mock implementation of handlers.RunReader.
type MockRunReader struct {
	ListRunsFunc           func(ctx context.Context, limit int) ([]*infra.RunRow, error)
	QueryAllocationsFunc   func(ctx context.Context, runID string) ([]*infra.AllocationRow, error)
	LatestSucceededRunFunc func(ctx context.Context) (*infra.RunRow, error)
}

func (m *MockRunReader) ListRuns(ctx context.Context, limit int) ([]*infra.RunRow, error) {
	if m.ListRunsFunc != nil {
		return m.ListRunsFunc(ctx, limit)
	}
	return nil, nil
}

func (m *MockRunReader) QueryAllocations(ctx context.Context, runID string) ([]*infra.AllocationRow, error) {
	if m.QueryAllocationsFunc != nil {
		return m.QueryAllocationsFunc(ctx, runID)
	}
	return nil, nil
}

func (m *MockRunReader) LatestSucceededRun(ctx context.Context) (*infra.RunRow, error) {
	if m.LatestSucceededRunFunc != nil {
		return m.LatestSucceededRunFunc(ctx)
	}
	return nil, nil
}

type fixture struct {
	srv   *httptest.Server
	store *inmemory.Store
	queue *inmemory.Queue
}

func newFixture(t *testing.T, runs *MockRunReader, token string) *fixture {
	t.Helper()
	store := inmemory.NewStore()
	queue := inmemory.NewQueue(10, store)
	t.Cleanup(func() { _ = queue.Close() })

	router := api.NewRouter(api.RouterConfig{
		Log:       zerolog.Nop(),
		Runs:      runs,
		Publisher: queue,
		Jobs:      store,
		Token:     token,
		RunLimit:  2,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, store: store, queue: queue}
}

func (f *fixture) do(t *testing.T, method, path, token string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if len(body) > 0 {
		require.NoError(t, json.Unmarshal(body, &out))
	}
	return resp, out
}

func TestHealth_NoAuth(t *testing.T) {
	f := newFixture(t, &MockRunReader{}, "secret")

	resp, body := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestAPI_RequiresToken(t *testing.T) {
	f := newFixture(t, &MockRunReader{}, "secret")

	resp, _ := f.do(t, http.MethodGet, "/api/jobs", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, "/api/jobs", "wrong")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, "/api/jobs", "secret")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateRun_EnqueuesJob(t *testing.T) {
	f := newFixture(t, &MockRunReader{}, "")

	resp, body := f.do(t, http.MethodPost, "/api/runs", "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	jobID, _ := body["job_id"].(string)
	require.NotEmpty(t, jobID)

	job, err := f.store.GetJob(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, "api", job.Trigger)

	resp, body = f.do(t, http.MethodGet, "/api/jobs/"+jobID, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, jobID, body["job_id"])

	resp, body = f.do(t, http.MethodGet, "/api/jobs?trigger=api", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["count"])
}

func TestCreateRun_RateLimited(t *testing.T) {
	f := newFixture(t, &MockRunReader{}, "")

	for i := 0; i < 2; i++ {
		resp, _ := f.do(t, http.MethodPost, "/api/runs", "")
		require.Equal(t, http.StatusAccepted, resp.StatusCode)
	}
	resp, body := f.do(t, http.MethodPost, "/api/runs", "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "Too many requests", body["error"])

	resp, _ = f.do(t, http.MethodGet, "/api/jobs", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "reads are not limited")
}

func TestCreateRun_QueueClosed(t *testing.T) {
	f := newFixture(t, &MockRunReader{}, "")
	require.NoError(t, f.queue.Close())

	resp, _ := f.do(t, http.MethodPost, "/api/runs", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestGetJob_NotFound(t *testing.T) {
	f := newFixture(t, &MockRunReader{}, "")

	resp, body := f.do(t, http.MethodGet, "/api/jobs/missing", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Job not found", body["error"])
}

func TestListRuns(t *testing.T) {
	var gotLimit int
	runs := &MockRunReader{
		ListRunsFunc: func(ctx context.Context, limit int) ([]*infra.RunRow, error) {
			gotLimit = limit
			return []*infra.RunRow{{
				RunID:       "run-1",
				Trigger:     "worker",
				Status:      infra.RunStatusSucceeded,
				StartedTS:   time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC),
				RecordCount: bigquery.NullInt64{Int64: 12, Valid: true},
			}}, nil
		},
	}
	f := newFixture(t, runs, "")

	resp, body := f.do(t, http.MethodGet, "/api/runs?limit=5", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 5, gotLimit)
	assert.EqualValues(t, 1, body["count"])

	list := body["runs"].([]any)
	run := list[0].(map[string]any)
	assert.Equal(t, "run-1", run["run_id"])
	assert.EqualValues(t, 12, run["record_count"])
	assert.NotContains(t, run, "allocation_count")

	resp, _ = f.do(t, http.MethodGet, "/api/runs?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetAllocations_Latest(t *testing.T) {
	var queried string
	runs := &MockRunReader{
		LatestSucceededRunFunc: func(ctx context.Context) (*infra.RunRow, error) {
			return &infra.RunRow{RunID: "run-7"}, nil
		},
		QueryAllocationsFunc: func(ctx context.Context, runID string) ([]*infra.AllocationRow, error) {
			queried = runID
			row := ledger.OutputRow{
				RecordID:    "A",
				RecordType:  ledger.Expense,
				Status:      ledger.StatusAcquitted,
				Paid:        decimal.RequireFromString("100"),
				CenterName:  "Ops",
				CenterValue: decimal.RequireFromString("60.5"),
			}
			return []*infra.AllocationRow{infra.NewAllocationRow(runID, row, time.Now())}, nil
		},
	}
	f := newFixture(t, runs, "")

	resp, body := f.do(t, http.MethodGet, "/api/runs/latest/allocations", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "run-7", queried)
	assert.Equal(t, "run-7", body["run_id"])

	allocations := body["allocations"].([]any)
	require.Len(t, allocations, 1)
	first := allocations[0].(map[string]any)
	assert.Equal(t, "Ops", first["centerName"])
	assert.Equal(t, "60.5", first["centerValue"])
	assert.Equal(t, "", first["dueDate"])
}

func TestGetAllocations_NoSuccessfulRun(t *testing.T) {
	f := newFixture(t, &MockRunReader{}, "")

	resp, _ := f.do(t, http.MethodGet, "/api/runs/latest/allocations", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestJobStatusFilter(t *testing.T) {
	f := newFixture(t, &MockRunReader{}, "")
	ctx := context.Background()
	require.NoError(t, f.store.SaveJob(ctx, &jobs.ConsolidationJob{JobID: "a", Status: jobs.JobStatusFailed}))
	require.NoError(t, f.store.SaveJob(ctx, &jobs.ConsolidationJob{JobID: "b", Status: jobs.JobStatusCompleted}))

	resp, body := f.do(t, http.MethodGet, "/api/jobs?status=failed", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["count"])
}
