package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"
)

type runsCmd struct {
	limit int
}

func (*runsCmd) Name() string     { return "runs" }
func (*runsCmd) Synopsis() string { return "list recent consolidation runs" }
func (*runsCmd) Usage() string {
	return `ledgerctl runs [-n limit]

  Lists the most recent runs, newest first.
`
}

func (c *runsCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "n", 20, "number of runs to list")
}

func (c *runsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, a, err := setup(ctx, nil)
	if err != nil {
		return fail("%v", err)
	}
	defer a.Close()

	if a.Runs == nil {
		return fail("LEDGER_GCP_PROJECT is required to list runs")
	}
	runs, err := a.Runs.ListRuns(ctx, c.limit)
	if err != nil {
		return fail("%v", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tSTARTED\tTRIGGER\tSTATUS\tRECORDS\tALLOCATIONS\tERROR")
	for _, r := range runs {
		records, allocations := "-", "-"
		if r.RecordCount.Valid {
			records = fmt.Sprint(r.RecordCount.Int64)
		}
		if r.AllocationCount.Valid {
			allocations = fmt.Sprint(r.AllocationCount.Int64)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.RunID,
			r.StartedTS.Local().Format(time.DateTime),
			r.Trigger,
			r.Status,
			records,
			allocations,
			truncate(r.ErrorMessage, 60),
		)
	}
	if err := w.Flush(); err != nil {
		return fail("%v", err)
	}
	return subcommands.ExitSuccess
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
