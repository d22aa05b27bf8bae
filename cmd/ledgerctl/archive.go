package main

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"

	"github.com/dvloznov/ledger-consolidation/internal/gcsstore"
	"github.com/google/subcommands"
	"github.com/google/uuid"
)

type archiveCmd struct {
	runID string
}

func (*archiveCmd) Name() string     { return "archive" }
func (*archiveCmd) Synopsis() string { return "upload local export files to the run archive" }
func (*archiveCmd) Usage() string {
	return `ledgerctl archive [-run id] <type>:<status>=<file>...

  Uploads manually downloaded exports under <prefix>/<run>/<TYPE>-<STATUS>.<ext>
  so they can be consolidated later with gs:// inputs.
`
}

func (c *archiveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.runID, "run", "", "archive folder (defaults to a new id)")
}

func (c *archiveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		return subcommands.ExitUsageError
	}
	inputs := make([]exportInput, 0, f.NArg())
	for _, arg := range f.Args() {
		in, err := parseExportInput(arg)
		if err != nil {
			return fail("%v", err)
		}
		inputs = append(inputs, in)
	}

	ctx, a, err := setup(ctx, nil)
	if err != nil {
		return fail("%v", err)
	}
	defer a.Close()

	if a.Storage == nil {
		return fail("LEDGER_GCS_BUCKET is required to archive exports")
	}
	runID := c.runID
	if runID == "" {
		runID = uuid.New().String()
	}

	for _, in := range inputs {
		object := a.Archive.Object(runID, in.Request.Name()+filepath.Ext(in.Source))
		if err := a.Storage.UploadFile(ctx, a.Config.Bucket, object, in.Source); err != nil {
			return fail("%s: %v", in.Source, err)
		}
		fmt.Printf("%s=%s\n", in.Request.Name(), gcsstore.URI(a.Config.Bucket, object))
	}
	return subcommands.ExitSuccess
}
