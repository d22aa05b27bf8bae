package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/dvloznov/ledger-consolidation/internal/config"
	"github.com/dvloznov/ledger-consolidation/internal/pipeline"
	"github.com/google/subcommands"
)

type insightsCmd struct {
	year       int
	runID      string
	noPublish  bool
	showPrompt bool
}

func (*insightsCmd) Name() string     { return "insights" }
func (*insightsCmd) Synopsis() string { return "generate the yearly financial narrative" }
func (*insightsCmd) Usage() string {
	return `ledgerctl insights [-year YYYY] [-run id] [-no-publish] [-prompt]

  Aggregates the records of a run (the latest successful one by default),
  asks Gemini for a narrative and publishes it to the insights tab and
  Notion when those are configured.
`
}

func (c *insightsCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.year, "year", 0, "year to analyze (defaults to the current year)")
	f.StringVar(&c.runID, "run", "", "run to analyze (defaults to the latest successful run)")
	f.BoolVar(&c.noPublish, "no-publish", false, "print the narrative without publishing it")
	f.BoolVar(&c.showPrompt, "prompt", false, "print the prompt sent to the model")
}

func (c *insightsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, a, err := setup(ctx, func(cfg *config.Config) {
		if c.noPublish {
			cfg.SpreadsheetID = ""
			cfg.NotionDatabaseID = ""
		}
	})
	if err != nil {
		return fail("%v", err)
	}
	defer a.Close()

	deps, err := a.InsightsDeps(ctx)
	if err != nil {
		return fail("%v", err)
	}

	state, err := pipeline.RunInsights(ctx, deps, a.InsightsOptions(c.year), &pipeline.InsightsState{RunID: c.runID})
	if err != nil {
		return fail("%v", err)
	}

	if c.showPrompt {
		fmt.Fprintln(os.Stderr, state.Report.Prompt)
	}
	for _, s := range state.Report.Sections {
		fmt.Printf("## %s\n\n%s\n\n", s.Title, s.Body)
	}
	if state.Published != nil {
		fmt.Fprintf(os.Stderr, "Notion: %d created, %d archived, %d skipped\n",
			state.Published.Created, state.Published.Archived, state.Published.Skipped)
	}
	return subcommands.ExitSuccess
}
