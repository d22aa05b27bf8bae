package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dvloznov/ledger-consolidation/internal/config"
	"github.com/dvloznov/ledger-consolidation/internal/exports"
	"github.com/dvloznov/ledger-consolidation/internal/ledger"
	"github.com/dvloznov/ledger-consolidation/internal/pipeline"
	"github.com/google/subcommands"
)

type consolidateCmd struct {
	slots       int
	out         string
	recordsOut  string
	workbook    string
	diagnostics string
}

func (*consolidateCmd) Name() string { return "consolidate" }
func (*consolidateCmd) Synopsis() string {
	return "consolidate local or archived exports into the allocation table"
}
func (*consolidateCmd) Usage() string {
	return `ledgerctl consolidate [-slots K] [-o out.csv] [-records records.csv] [-xlsx out.xlsx] <type>:<status>=<file>...

  Reads each export file (xlsx or csv, local path or gs:// URI), consolidates
  them in the given order and writes the allocation table as CSV.
  Example: ledgerctl consolidate payables:PENDING=pending.xlsx receivables:ACQUITTED=rec.xlsx
`
}

func (c *consolidateCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.slots, "slots", 0, "cost-center slot count K (defaults to LEDGER_COST_CENTER_SLOTS)")
	f.StringVar(&c.out, "o", "-", "allocation table CSV output, - for stdout")
	f.StringVar(&c.recordsOut, "records", "", "consolidated records CSV output")
	f.StringVar(&c.workbook, "xlsx", "", "output workbook with both tables")
	f.StringVar(&c.diagnostics, "diagnostics", "", "write run diagnostics as JSON to this file")
}

func (c *consolidateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one export is required")
		return subcommands.ExitUsageError
	}
	inputs := make([]exportInput, 0, f.NArg())
	for _, arg := range f.Args() {
		in, err := parseExportInput(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
		inputs = append(inputs, in)
	}

	ctx, a, err := setup(ctx, func(cfg *config.Config) {
		if c.slots > 0 {
			cfg.CostCenterSlots = c.slots
		}
	})
	if err != nil {
		return fail("%v", err)
	}
	defer a.Close()

	var fetch func(ctx context.Context, uri string) ([]byte, error)
	if a.Storage != nil {
		fetch = a.Storage.Fetch
	}
	batches, err := loadBatches(ctx, inputs, a.Config.CostCenterSlots, fetch)
	if err != nil {
		return fail("%v", err)
	}

	// Local consolidation only: no collaborators are passed.
	state, err := pipeline.Run(ctx, pipeline.Deps{}, a.Options("cli"), &pipeline.PipelineState{Batches: batches})
	if err != nil {
		return fail("%v", err)
	}

	if err := c.write(state.Result); err != nil {
		return fail("%v", err)
	}
	return subcommands.ExitSuccess
}

func (c *consolidateCmd) write(res *ledger.Result) error {
	if err := writeTo(c.out, func(w io.Writer) error { return exports.WriteCSV(w, res.Rows) }); err != nil {
		return err
	}
	if c.recordsOut != "" {
		if err := writeTo(c.recordsOut, func(w io.Writer) error { return exports.WriteRecordsCSV(w, res.Records) }); err != nil {
			return err
		}
	}
	if c.workbook != "" {
		if err := writeTo(c.workbook, func(w io.Writer) error { return exports.WriteWorkbook(w, res) }); err != nil {
			return err
		}
	}
	if c.diagnostics != "" {
		return writeTo(c.diagnostics, func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(res.Diagnostics)
		})
	}
	return nil
}

// writeTo runs write against the named file, or stdout for "-".
func writeTo(name string, write func(io.Writer) error) error {
	if name == "-" || name == "" {
		return write(os.Stdout)
	}
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	return f.Close()
}
