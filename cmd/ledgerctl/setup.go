package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dvloznov/ledger-consolidation/internal/app"
	"github.com/dvloznov/ledger-consolidation/internal/config"
	"github.com/dvloznov/ledger-consolidation/internal/exports"
	"github.com/dvloznov/ledger-consolidation/internal/ledger"
	"github.com/dvloznov/ledger-consolidation/internal/logger"
	"github.com/google/subcommands"
)

// setup loads config and connects collaborators. The caller closes the app.
func setup(ctx context.Context, override func(*config.Config)) (context.Context, *app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return ctx, nil, err
	}
	if override != nil {
		override(cfg)
		if err := cfg.Validate(); err != nil {
			return ctx, nil, err
		}
	}

	log := app.NewLogger(cfg)
	ctx = logger.WithContext(ctx, log)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return ctx, nil, err
	}
	return ctx, a, nil
}

func fail(format string, args ...interface{}) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	return subcommands.ExitFailure
}

// exportInput is one local or archived export named on the command line.
type exportInput struct {
	Request exports.ExportRequest
	Source  string
}

// parseExportInput parses "<type>:<status>=<path or gs:// uri>". The type
// is expense/payables or revenue/receivables.
func parseExportInput(arg string) (exportInput, error) {
	selector, source, ok := strings.Cut(arg, "=")
	if !ok || strings.TrimSpace(source) == "" {
		return exportInput{}, fmt.Errorf("%q: want <type>:<status>=<file>", arg)
	}
	kind, status, ok := strings.Cut(selector, ":")
	if !ok || strings.TrimSpace(status) == "" {
		return exportInput{}, fmt.Errorf("%q: missing status", arg)
	}

	var rt ledger.RecordType
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "payables", "payable":
		rt = ledger.Expense
	case "receivables", "receivable":
		rt = ledger.Revenue
	default:
		parsed, ok := ledger.ParseRecordType(kind)
		if !ok {
			return exportInput{}, fmt.Errorf("%q: unknown record type %q", arg, kind)
		}
		rt = parsed
	}

	st, _ := ledger.ParseStatus(status)
	return exportInput{
		Request: exports.ExportRequest{Type: rt, Status: st},
		Source:  strings.TrimSpace(source),
	}, nil
}

// loadBatches reads every input into a batch, downloading gs:// sources
// through fetch.
func loadBatches(ctx context.Context, inputs []exportInput, slots int, fetch func(ctx context.Context, uri string) ([]byte, error)) ([]ledger.Batch, error) {
	batches := make([]ledger.Batch, 0, len(inputs))
	for _, in := range inputs {
		headers := exports.HeadersFor(in.Request.Type, slots)

		var table *exports.Table
		var err error
		if strings.HasPrefix(in.Source, "gs://") {
			if fetch == nil {
				return nil, fmt.Errorf("%s: no storage configured for gs:// inputs", in.Source)
			}
			var data []byte
			data, err = fetch(ctx, in.Source)
			if err == nil {
				table, err = exports.ReadBytes(in.Source, data, headers)
			}
		} else {
			table, err = exports.ReadFile(in.Source, headers)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", in.Source, err)
		}
		batches = append(batches, table.Batch(in.Request.Type, in.Request.Status))
	}
	return batches, nil
}
