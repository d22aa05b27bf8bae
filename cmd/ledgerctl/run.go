package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/dvloznov/ledger-consolidation/internal/pipeline"
	"github.com/google/subcommands"
)

type runCmd struct {
	trigger string
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "run the full consolidation pipeline once" }
func (*runCmd) Usage() string {
	return `ledgerctl run [-trigger name]

  Fetches every configured status export from the provider, archives it,
  consolidates, persists the run and publishes the spreadsheet tabs.
  Collaborators without configuration are skipped.
`
}

func (c *runCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.trigger, "trigger", "cli", "trigger recorded on the run")
}

func (c *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, a, err := setup(ctx, nil)
	if err != nil {
		return fail("%v", err)
	}
	defer a.Close()

	if a.Provider == nil {
		return fail("LEDGER_EXPORT_TOKEN is required for a full run")
	}

	state, err := pipeline.Run(ctx, a.Deps(), a.Options(c.trigger), nil)
	if err != nil {
		return fail("run %s: %v", state.RunID, err)
	}

	fmt.Printf("Run %s: %d records, %d allocations\n", state.RunID, len(state.Result.Records), len(state.Result.Rows))
	for _, failure := range state.Failures {
		fmt.Printf("  skipped %s: %v\n", failure.Request.Name(), failure.Err)
	}
	if state.OutputURI != "" {
		fmt.Printf("Output: %s\n", state.OutputURI)
	}
	return subcommands.ExitSuccess
}
