package exports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dvloznov/ledger-consolidation/internal/ledger"
	"github.com/dvloznov/ledger-consolidation/internal/logger"
	"golang.org/x/sync/errgroup"
)

const userAgent = "ledger-consolidation/1.0"

// ExportRequest selects one status export of one record type.
type ExportRequest struct {
	Type   ledger.RecordType
	Status ledger.Status
}

// Name identifies the export, e.g. EXPENSE-PENDING.
func (r ExportRequest) Name() string {
	return fmt.Sprintf("%s-%s", r.Type, r.Status)
}

// Requests builds one request per status. Statuses are upper-cased.
func Requests(rt ledger.RecordType, statuses []string) []ExportRequest {
	reqs := make([]ExportRequest, 0, len(statuses))
	for _, s := range statuses {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		reqs = append(reqs, ExportRequest{Type: rt, Status: ledger.Status(s)})
	}
	return reqs
}

// payload is the provider's export filter. Payables and receivables use
// different date filter keys and a different shape for "type".
func (r ExportRequest) payload() map[string]any {
	body := map[string]any{
		"quickFilter": "ALL",
		"search":      "",
		"status":      []string{string(r.Status)},
	}
	if r.Type == ledger.Revenue {
		body["dueDateFrom"] = nil
		body["dueDateTo"] = nil
		body["type"] = string(ledger.Revenue)
	} else {
		body["dateFrom"] = nil
		body["dateTo"] = nil
		body["type"] = []string{string(ledger.Expense)}
	}
	return body
}

// Export is one fetched status export: the raw workbook and its parsed batch.
type Export struct {
	Request ExportRequest
	Data    []byte
	Batch   ledger.Batch
}

// FetchFailure records a status export that could not be fetched or parsed.
type FetchFailure struct {
	Request ExportRequest
	Err     error
}

// FetchResult holds the exports that succeeded, in request order, and the
// ones that failed.
type FetchResult struct {
	Exports  []Export
	Failures []FetchFailure
}

// Batches returns the parsed batches in request order.
func (r *FetchResult) Batches() []ledger.Batch {
	batches := make([]ledger.Batch, len(r.Exports))
	for i, e := range r.Exports {
		batches[i] = e.Batch
	}
	return batches
}

// ProviderConfig configures a ProviderClient.
type ProviderConfig struct {
	BaseURL string
	// PayablePath serves EXPENSE exports (financial statement view) and
	// ReceivablePath serves REVENUE exports (installment view). Only the
	// installment view carries the received and open amount columns.
	PayablePath    string
	ReceivablePath string
	Token          string
	Timeout        time.Duration
	Concurrency    int
	Slots          int
}

// ProviderClient downloads status exports from the accounting provider.
type ProviderClient struct {
	httpClient  *http.Client
	endpoints   map[ledger.RecordType]string
	token       string
	concurrency int
	slots       int
}

// NewProviderClient creates a client for cfg.
func NewProviderClient(cfg ProviderConfig) *ProviderClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	return &ProviderClient{
		httpClient: &http.Client{Timeout: timeout},
		endpoints: map[ledger.RecordType]string{
			ledger.Expense: base + cfg.PayablePath,
			ledger.Revenue: base + cfg.ReceivablePath,
		},
		token:       cfg.Token,
		concurrency: concurrency,
		slots:       cfg.Slots,
	}
}

// FetchExport downloads the raw XLSX bytes of one status export.
func (c *ProviderClient) FetchExport(ctx context.Context, req ExportRequest) ([]byte, error) {
	endpoint, ok := c.endpoints[req.Type]
	if !ok {
		return nil, fmt.Errorf("FetchExport: %s: unknown record type", req.Name())
	}
	body, err := json.Marshal(req.payload())
	if err != nil {
		return nil, fmt.Errorf("FetchExport: marshal payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("FetchExport: build request: %w", err)
	}
	httpReq.Header.Set("x-authorization", c.token)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("FetchExport: %s: %w", req.Name(), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("FetchExport: %s: read body: %w", req.Name(), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("FetchExport: %s: unexpected status %d: %s", req.Name(), resp.StatusCode, snippet(data))
	}
	return data, nil
}

// Fetch downloads and parses one status export.
func (c *ProviderClient) Fetch(ctx context.Context, req ExportRequest) (Export, error) {
	data, err := c.FetchExport(ctx, req)
	if err != nil {
		return Export{}, err
	}
	table, err := ReadXLSX(bytes.NewReader(data), HeadersFor(req.Type, c.slots))
	if err != nil {
		return Export{}, fmt.Errorf("Fetch: %s: %w", req.Name(), err)
	}
	return Export{Request: req, Data: data, Batch: table.Batch(req.Type, req.Status)}, nil
}

// FetchAll fetches every request with bounded concurrency. A failing status
// is recorded and skipped; the call only errors when ctx is done or when
// no export at all could be fetched.
func (c *ProviderClient) FetchAll(ctx context.Context, reqs []ExportRequest) (*FetchResult, error) {
	log := logger.FromContext(ctx)

	exports := make([]*Export, len(reqs))
	failures := make([]error, len(reqs))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, req := range reqs {
		g.Go(func() error {
			exp, err := c.Fetch(ctx, req)
			if err != nil {
				failures[i] = err
				log.Warn().Err(err).
					Str("record_type", string(req.Type)).
					Str("status", string(req.Status)).
					Msg("Export fetch failed, skipping status")
				return nil
			}
			exports[i] = &exp
			log.Info().
				Str("record_type", string(req.Type)).
				Str("status", string(req.Status)).
				Int("rows", len(exp.Batch.Rows)).
				Msg("Export fetched")
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("FetchAll: %w", err)
	}

	res := &FetchResult{}
	for i := range reqs {
		if exports[i] != nil {
			res.Exports = append(res.Exports, *exports[i])
			continue
		}
		res.Failures = append(res.Failures, FetchFailure{Request: reqs[i], Err: failures[i]})
	}
	if len(reqs) > 0 && len(res.Exports) == 0 {
		return res, fmt.Errorf("FetchAll: all %d exports failed: %w", len(reqs), res.Failures[0].Err)
	}
	return res, nil
}

func snippet(b []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
