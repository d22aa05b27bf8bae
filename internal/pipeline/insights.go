package pipeline

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	infra "github.com/dvloznov/ledger-consolidation/internal/infra/bigquery"
	"github.com/dvloznov/ledger-consolidation/internal/insights"
	"github.com/dvloznov/ledger-consolidation/internal/ledger"
	"github.com/dvloznov/ledger-consolidation/internal/logger"
	"github.com/dvloznov/ledger-consolidation/internal/notionsync"
)

// RunHistory reads the stored output of earlier runs.
type RunHistory interface {
	LatestSucceededRun(ctx context.Context) (*infra.RunRow, error)
	QueryRecords(ctx context.Context, runID string) ([]*infra.RecordRow, error)
	QueryAllocations(ctx context.Context, runID string) ([]*infra.AllocationRow, error)
}

// ReportWriter turns a yearly summary into narrative sections.
type ReportWriter interface {
	Summarize(ctx context.Context, s *insights.Summary) (*insights.Report, error)
}

// SectionPublisher publishes narrative sections for a run.
type SectionPublisher interface {
	PublishSections(ctx context.Context, runID string, sections []insights.Section) (*notionsync.PublishResult, error)
}

// InsightsDeps are the collaborators of an insights run. Only Writer is
// required; History may be nil when the state already carries records.
type InsightsDeps struct {
	History RunHistory
	Writer  ReportWriter
	Sheets  SheetPublisher
	Notion  SectionPublisher
}

// InsightsOptions configure an insights run.
type InsightsOptions struct {
	// Year selects records settled in that year. Zero means the year of AsOf.
	Year int
	// AsOf bounds cash flow and delinquency. Zero means today in Location.
	AsOf     civil.Date
	Now      func() time.Time
	Location *time.Location
	// SheetTitle is the tab the sections are written to. Empty skips it.
	SheetTitle string
}

func (o InsightsOptions) resolve() InsightsOptions {
	if o.AsOf == (civil.Date{}) {
		now := time.Now
		if o.Now != nil {
			now = o.Now
		}
		loc := o.Location
		if loc == nil {
			loc = time.Local
		}
		o.AsOf = civil.DateOf(now().In(loc))
	}
	if o.Year == 0 {
		o.Year = o.AsOf.Year
	}
	return o
}

// InsightsState is shared across insights steps.
type InsightsState struct {
	RunID       string
	Records     []ledger.LedgerRecord
	Allocations []ledger.OutputRow

	Summary   *insights.Summary
	Report    *insights.Report
	Published *notionsync.PublishResult
}

// InsightsStep is one step of an insights run.
type InsightsStep interface {
	Execute(ctx context.Context, state *InsightsState) error
}

// RunInsights loads the latest successful run unless state carries
// records, aggregates it, writes the narrative and publishes it.
func RunInsights(ctx context.Context, deps InsightsDeps, opts InsightsOptions, state *InsightsState) (*InsightsState, error) {
	if state == nil {
		state = &InsightsState{}
	}
	opts = opts.resolve()

	steps := []InsightsStep{
		&LoadRunStep{History: deps.History},
		&AggregateStep{Year: opts.Year, AsOf: opts.AsOf},
		&SummarizeStep{Writer: deps.Writer},
		&PublishSectionsSheetStep{Sheets: deps.Sheets, Title: opts.SheetTitle},
		&PublishNotionStep{Notion: deps.Notion},
	}
	for i, step := range steps {
		stepCtx := ctx
		if state.RunID != "" {
			stepCtx = logger.WithRun(ctx, state.RunID)
		}
		if err := step.Execute(stepCtx, state); err != nil {
			return state, fmt.Errorf("insights step %d failed: %w", i+1, err)
		}
	}
	return state, nil
}

// LoadRunStep reads records and allocations of the latest successful run.
type LoadRunStep struct {
	History RunHistory
}

func (s *LoadRunStep) Execute(ctx context.Context, state *InsightsState) error {
	if len(state.Records) > 0 {
		return nil
	}
	if s.History == nil {
		return fmt.Errorf("LoadRunStep: no run history and no records")
	}

	if state.RunID == "" {
		latest, err := s.History.LatestSucceededRun(ctx)
		if err != nil {
			return fmt.Errorf("LoadRunStep: %w", err)
		}
		if latest == nil {
			return fmt.Errorf("LoadRunStep: no successful run to analyze")
		}
		state.RunID = latest.RunID
	}

	recordRows, err := s.History.QueryRecords(ctx, state.RunID)
	if err != nil {
		return fmt.Errorf("LoadRunStep: %w", err)
	}
	for _, row := range recordRows {
		rec, err := row.Record()
		if err != nil {
			return fmt.Errorf("LoadRunStep: %w", err)
		}
		state.Records = append(state.Records, rec)
	}

	allocationRows, err := s.History.QueryAllocations(ctx, state.RunID)
	if err != nil {
		return fmt.Errorf("LoadRunStep: %w", err)
	}
	for _, row := range allocationRows {
		out, err := row.OutputRow()
		if err != nil {
			return fmt.Errorf("LoadRunStep: %w", err)
		}
		state.Allocations = append(state.Allocations, out)
	}

	lg := logger.FromContext(ctx)
	lg.Info().
		Str("run_id", state.RunID).
		Int("records", len(state.Records)).
		Int("allocations", len(state.Allocations)).
		Msg("Loaded run for insights")
	return nil
}

// AggregateStep computes the yearly summary.
type AggregateStep struct {
	Year int
	AsOf civil.Date
}

func (s *AggregateStep) Execute(ctx context.Context, state *InsightsState) error {
	state.Summary = insights.Aggregate(state.Records, state.Allocations, s.Year, s.AsOf)
	if state.Summary.Records == 0 {
		return fmt.Errorf("AggregateStep: no records settled in %d", s.Year)
	}
	return nil
}

// SummarizeStep asks the writer for the narrative.
type SummarizeStep struct {
	Writer ReportWriter
}

func (s *SummarizeStep) Execute(ctx context.Context, state *InsightsState) error {
	report, err := s.Writer.Summarize(ctx, state.Summary)
	if err != nil {
		return fmt.Errorf("SummarizeStep: %w", err)
	}
	state.Report = report
	return nil
}

// PublishSectionsSheetStep writes the sections to one spreadsheet tab.
type PublishSectionsSheetStep struct {
	Sheets SheetPublisher
	Title  string
}

func (s *PublishSectionsSheetStep) Execute(ctx context.Context, state *InsightsState) error {
	if s.Sheets == nil || s.Title == "" {
		return nil
	}
	if err := s.Sheets.ReplaceSheet(ctx, s.Title, insights.SectionLines(state.Report.Sections)); err != nil {
		return fmt.Errorf("PublishSectionsSheetStep: %w", err)
	}
	return nil
}

// PublishNotionStep publishes the sections to Notion.
type PublishNotionStep struct {
	Notion SectionPublisher
}

func (s *PublishNotionStep) Execute(ctx context.Context, state *InsightsState) error {
	if s.Notion == nil {
		return nil
	}
	res, err := s.Notion.PublishSections(ctx, state.RunID, state.Report.Sections)
	if err != nil {
		return fmt.Errorf("PublishNotionStep: %w", err)
	}
	state.Published = res
	return nil
}
