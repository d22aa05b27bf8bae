package exports

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/dvloznov/ledger-consolidation/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Path string
	Auth string
	Body map[string]any
}

func newProviderServer(t *testing.T, failStatus string) (*httptest.Server, func() []recordedRequest) {
	t.Helper()
	var mu sync.Mutex
	var seen []recordedRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mu.Lock()
		seen = append(seen, recordedRequest{Path: r.URL.Path, Auth: r.Header.Get("x-authorization"), Body: body})
		mu.Unlock()

		status := body["status"].([]any)[0].(string)
		if status == failStatus {
			http.Error(w, "export unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		_, _ = w.Write(buildWorkbook(t, [][]any{
			{"id", "Valor (R$)"},
			{status + "-1", "10"},
		}))
	}))
	t.Cleanup(srv.Close)

	return srv, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), seen...)
	}
}

func TestRequests(t *testing.T) {
	reqs := Requests(ledger.Expense, []string{"pending", " ", "LOST"})
	assert.Equal(t, []ExportRequest{
		{Type: ledger.Expense, Status: ledger.StatusPending},
		{Type: ledger.Expense, Status: ledger.StatusLost},
	}, reqs)
	assert.Equal(t, "EXPENSE-PENDING", reqs[0].Name())
}

func TestExportRequest_Payload(t *testing.T) {
	expense := ExportRequest{Type: ledger.Expense, Status: ledger.StatusPending}.payload()
	assert.Equal(t, []string{"EXPENSE"}, expense["type"])
	assert.Contains(t, expense, "dateFrom")
	assert.NotContains(t, expense, "dueDateFrom")

	revenue := ExportRequest{Type: ledger.Revenue, Status: ledger.StatusPending}.payload()
	assert.Equal(t, "REVENUE", revenue["type"])
	assert.Contains(t, revenue, "dueDateFrom")
	assert.Equal(t, []string{"PENDING"}, revenue["status"])
}

func TestFetchAll_SkipsFailedStatuses(t *testing.T) {
	srv, seen := newProviderServer(t, "LOST")
	client := NewProviderClient(ProviderConfig{BaseURL: srv.URL + "/", PayablePath: "/export", Token: "tok", Concurrency: 2, Slots: 1})

	reqs := Requests(ledger.Expense, []string{"ACQUITTED", "LOST", "PENDING"})
	res, err := client.FetchAll(context.Background(), reqs)
	require.NoError(t, err)

	require.Len(t, res.Exports, 2)
	assert.Equal(t, ledger.StatusAcquitted, res.Exports[0].Request.Status, "request order preserved")
	assert.Equal(t, ledger.StatusPending, res.Exports[1].Request.Status)
	assert.NotEmpty(t, res.Exports[0].Data)

	require.Len(t, res.Failures, 1)
	assert.Equal(t, ledger.StatusLost, res.Failures[0].Request.Status)
	assert.ErrorContains(t, res.Failures[0].Err, "unexpected status 500")

	batches := res.Batches()
	require.Len(t, batches, 2)
	assert.Equal(t, "ACQUITTED-1", batches[0].Rows[0][ledger.ColID])
	assert.Equal(t, "10", batches[1].Rows[0][ledger.ColPaid])

	requests := seen()
	require.Len(t, requests, 3)
	for _, r := range requests {
		assert.Equal(t, "tok", r.Auth)
	}
}

func TestFetchAll_RoutesByRecordType(t *testing.T) {
	srv, seen := newProviderServer(t, "")
	client := NewProviderClient(ProviderConfig{
		BaseURL:        srv.URL,
		PayablePath:    "/statement-view/export",
		ReceivablePath: "/installment-view/export",
		Concurrency:    1,
	})

	reqs := append(Requests(ledger.Expense, []string{"PENDING"}), Requests(ledger.Revenue, []string{"ACQUITTED"})...)
	_, err := client.FetchAll(context.Background(), reqs)
	require.NoError(t, err)

	byType := make(map[string]string)
	for _, r := range seen() {
		switch typ := r.Body["type"].(type) {
		case string:
			byType[typ] = r.Path
		case []any:
			byType[typ[0].(string)] = r.Path
		}
	}
	assert.Equal(t, map[string]string{
		"EXPENSE": "/statement-view/export",
		"REVENUE": "/installment-view/export",
	}, byType)
}

func TestFetchExport_UnknownRecordType(t *testing.T) {
	client := NewProviderClient(ProviderConfig{BaseURL: "http://127.0.0.1:1"})
	_, err := client.FetchExport(context.Background(), ExportRequest{Type: ledger.RecordType("ASSET"), Status: ledger.StatusPending})
	assert.ErrorContains(t, err, "unknown record type")
}

func TestFetchAll_AllFailed(t *testing.T) {
	srv, _ := newProviderServer(t, "PENDING")
	client := NewProviderClient(ProviderConfig{BaseURL: srv.URL, ReceivablePath: "/export"})

	res, err := client.FetchAll(context.Background(), Requests(ledger.Revenue, []string{"PENDING"}))
	assert.ErrorContains(t, err, "all 1 exports failed")
	require.NotNil(t, res)
	assert.Len(t, res.Failures, 1)
}

func TestFetchAll_ContextCanceled(t *testing.T) {
	srv, _ := newProviderServer(t, "")
	client := NewProviderClient(ProviderConfig{BaseURL: srv.URL})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchAll(ctx, Requests(ledger.Expense, []string{"PENDING"}))
	assert.ErrorIs(t, err, context.Canceled)
}
