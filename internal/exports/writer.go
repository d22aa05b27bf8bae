package exports

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/dvloznov/ledger-consolidation/internal/ledger"
	"github.com/xuri/excelize/v2"
)

// Default sheet names of the output workbook.
const (
	RecordsSheet     = "Consolidated"
	AllocationsSheet = "Dados_Pivotados"
)

// WriteCSV writes the flat allocation table in
// ledger.OutputColumns order.
func WriteCSV(w io.Writer, rows []ledger.OutputRow) error {
	return writeCSV(w, ledger.OutputColumns, allocationLines(rows))
}

// WriteRecordsCSV writes consolidated records in ledger.RecordColumns order.
func WriteRecordsCSV(w io.Writer, records []ledger.LedgerRecord) error {
	return writeCSV(w, ledger.RecordColumns, recordLines(records))
}

func writeCSV(w io.Writer, header []string, lines [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writeCSV: header: %w", err)
	}
	if err := cw.WriteAll(lines); err != nil {
		return fmt.Errorf("writeCSV: rows: %w", err)
	}
	return nil
}

// WriteWorkbook writes the consolidated records and the allocation table
// as two sheets of one XLSX workbook.
func WriteWorkbook(w io.Writer, res *ledger.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), RecordsSheet); err != nil {
		return fmt.Errorf("WriteWorkbook: rename sheet: %w", err)
	}
	if err := writeSheet(f, RecordsSheet, ledger.RecordColumns, recordLines(res.Records)); err != nil {
		return err
	}

	if _, err := f.NewSheet(AllocationsSheet); err != nil {
		return fmt.Errorf("WriteWorkbook: add sheet: %w", err)
	}
	if err := writeSheet(f, AllocationsSheet, ledger.OutputColumns, allocationLines(res.Rows)); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("WriteWorkbook: write: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []string, lines [][]string) error {
	all := append([][]string{header}, lines...)
	for i, line := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("writeSheet: %w", err)
		}
		values := line
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("writeSheet: %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// AllocationLines renders allocations as header plus string rows, the shape
// spreadsheet publishers take.
func AllocationLines(rows []ledger.OutputRow) [][]string {
	return append([][]string{ledger.OutputColumns}, allocationLines(rows)...)
}

// RecordLines is AllocationLines for consolidated records.
func RecordLines(records []ledger.LedgerRecord) [][]string {
	return append([][]string{ledger.RecordColumns}, recordLines(records)...)
}

func allocationLines(rows []ledger.OutputRow) [][]string {
	lines := make([][]string, len(rows))
	for i, r := range rows {
		lines[i] = r.Strings()
	}
	return lines
}

func recordLines(records []ledger.LedgerRecord) [][]string {
	lines := make([][]string, len(records))
	for i, r := range records {
		lines[i] = r.Strings()
	}
	return lines
}
