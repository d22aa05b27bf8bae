package exports

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dvloznov/ledger-consolidation/internal/ledger"
	"github.com/xuri/excelize/v2"
)

// Table is a parsed export: canonical columns and one row per data line.
type Table struct {
	Columns []string
	Rows    []ledger.RawRow
}

// Batch tags the table with its record type and requested status.
func (t *Table) Batch(rt ledger.RecordType, status ledger.Status) ledger.Batch {
	return ledger.Batch{Type: rt, Status: status, Columns: t.Columns, Rows: t.Rows}
}

var dateColumns = ledger.NewColumnSet(ledger.DateColumns...)

// ReadXLSX reads the first sheet of an export workbook. The first row is
// the header; fully empty rows are skipped. Date cells stored as Excel
// serials are rendered as YYYY-MM-DD.
func ReadXLSX(r io.Reader, headers HeaderMap) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("ReadXLSX: open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("ReadXLSX: workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("ReadXLSX: read sheet %q: %w", sheets[0], err)
	}
	return buildTable(rows, headers, true), nil
}

// ReadCSV reads a CSV export with a header row. The delimiter is sniffed
// from the header line: semicolon when it has more semicolons than commas.
func ReadCSV(r io.Reader, headers HeaderMap) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("ReadCSV: read input: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = sniffDelimiter(data)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("ReadCSV: parse: %w", err)
	}
	return buildTable(rows, headers, false), nil
}

// ReadBytes dispatches on the file extension of name.
func ReadBytes(name string, data []byte, headers HeaderMap) (*Table, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(bytes.NewReader(data), headers)
	case ".csv", ".txt":
		return ReadCSV(bytes.NewReader(data), headers)
	}
	return nil, fmt.Errorf("ReadBytes: unsupported export format %q", name)
}

// ReadFile reads a local export file.
func ReadFile(path string, headers HeaderMap) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ReadFile: %w", err)
	}
	return ReadBytes(path, data, headers)
}

func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

func buildTable(rows [][]string, headers HeaderMap, excelDates bool) *Table {
	t := &Table{}
	if len(rows) == 0 {
		return t
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = headers.Canonical(h)
		if header[i] != "" {
			t.Columns = append(t.Columns, header[i])
		}
	}

	for _, cells := range rows[1:] {
		if blankLine(cells) {
			continue
		}
		row := make(ledger.RawRow, len(t.Columns))
		for i, col := range header {
			if col == "" {
				continue
			}
			v := ""
			if i < len(cells) {
				v = strings.TrimSpace(cells[i])
			}
			if excelDates && dateColumns.Has(col) {
				v = serialToDate(v)
			}
			row[col] = v
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func blankLine(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// serialToDate converts an Excel serial day number to YYYY-MM-DD. Other
// values are returned unchanged.
func serialToDate(v string) string {
	serial, err := strconv.ParseFloat(v, 64)
	if err != nil || serial <= 0 {
		return v
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return v
	}
	return t.Format("2006-01-02")
}
