package sheets

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/ledger-consolidation/internal/logger"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// Publisher replaces whole tabs of one spreadsheet with tabular data.
type Publisher struct {
	svc           *sheetsapi.Service
	spreadsheetID string
}

// NewPublisher creates a Publisher. An empty credentialsFile falls back to
// Application Default Credentials.
func NewPublisher(ctx context.Context, spreadsheetID, credentialsFile string, opts ...option.ClientOption) (*Publisher, error) {
	opts = append([]option.ClientOption{option.WithScopes(sheetsapi.SpreadsheetsScope)}, opts...)
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewPublisher: creating sheets service: %w", err)
	}
	return &Publisher{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// ReplaceSheet clears the tab named title, creating it when missing, and
// writes lines from A1. Values are written RAW so ids and dates are never
// reinterpreted by the spreadsheet.
func (p *Publisher) ReplaceSheet(ctx context.Context, title string, lines [][]string) error {
	log := logger.FromContext(ctx)

	if err := p.ensureSheet(ctx, title); err != nil {
		return err
	}

	rng := quoteSheet(title)
	if _, err := p.svc.Spreadsheets.Values.Clear(p.spreadsheetID, rng, &sheetsapi.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("ReplaceSheet: clearing %s: %w", title, err)
	}

	if len(lines) == 0 {
		return nil
	}

	vr := &sheetsapi.ValueRange{Values: toValues(lines)}
	if _, err := p.svc.Spreadsheets.Values.Update(p.spreadsheetID, rng+"!A1", vr).ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("ReplaceSheet: writing %s: %w", title, err)
	}

	log.Info().
		Str("sheet", title).
		Int("rows", len(lines)).
		Msg("Sheet replaced")
	return nil
}

func (p *Publisher) ensureSheet(ctx context.Context, title string) error {
	ss, err := p.svc.Spreadsheets.Get(p.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("ensureSheet: reading spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == title {
			return nil
		}
	}

	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			AddSheet: &sheetsapi.AddSheetRequest{
				Properties: &sheetsapi.SheetProperties{Title: title},
			},
		}},
	}
	if _, err := p.svc.Spreadsheets.BatchUpdate(p.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("ensureSheet: adding sheet %s: %w", title, err)
	}
	return nil
}

// quoteSheet renders a sheet title for A1 notation.
func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func toValues(lines [][]string) [][]interface{} {
	values := make([][]interface{}, len(lines))
	for i, line := range lines {
		row := make([]interface{}, len(line))
		for j, v := range line {
			row[j] = v
		}
		values[i] = row
	}
	return values
}
